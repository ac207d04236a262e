package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// COHORT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CohortRepository implements cohort.Repository for PostgreSQL.
type CohortRepository struct {
	conn *Connection

	// lockedRedeem selects the FOR UPDATE redemption path. Disabling it
	// reproduces the plain read-modify-write for parity testing.
	lockedRedeem bool
}

// NewCohortRepository creates a new CohortRepository.
func NewCohortRepository(conn *Connection) *CohortRepository {
	return &CohortRepository{conn: conn, lockedRedeem: true}
}

// SetLockedRedeem toggles the row-locked redemption path. Called once at
// wiring time, before the repository handles traffic.
func (r *CohortRepository) SetLockedRedeem(enabled bool) {
	r.lockedRedeem = enabled
}

const cohortColumns = `id, course_id, name, start_date, end_date, max_students,
	   current_students, cancelled, release_hour, base_price, special_offer,
	   currency, is_free, tier, early_bird, coupons, created_at, updated_at`

// GetByID returns a cohort by ID.
func (r *CohortRepository) GetByID(ctx context.Context, id shared.CohortID) (*cohort.Cohort, error) {
	query := fmt.Sprintf(`SELECT %s FROM cohorts WHERE id = $1`, cohortColumns)

	row := r.conn.QueryRow(ctx, query, string(id))
	return scanCohort(row)
}

// GetByCourse returns cohorts of a course, newest first.
func (r *CohortRepository) GetByCourse(ctx context.Context, courseID shared.CourseID, limit int) ([]*cohort.Cohort, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM cohorts
		WHERE course_id = $1
		ORDER BY start_date DESC
		LIMIT $2
	`, cohortColumns)

	rows, err := r.conn.Query(ctx, query, string(courseID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cohorts by course: %w", err)
	}
	defer rows.Close()

	var cohorts []*cohort.Cohort
	for rows.Next() {
		c, err := scanCohort(rows)
		if err != nil {
			return nil, err
		}
		cohorts = append(cohorts, c)
	}

	return cohorts, rows.Err()
}

// Save upserts a cohort by ID.
func (r *CohortRepository) Save(ctx context.Context, c *cohort.Cohort) error {
	query := `
		INSERT INTO cohorts (
			id, course_id, name, start_date, end_date, max_students,
			current_students, cancelled, release_hour, base_price, special_offer,
			currency, is_free, tier, early_bird, coupons, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			max_students = EXCLUDED.max_students,
			cancelled = EXCLUDED.cancelled,
			release_hour = EXCLUDED.release_hour,
			base_price = EXCLUDED.base_price,
			special_offer = EXCLUDED.special_offer,
			currency = EXCLUDED.currency,
			is_free = EXCLUDED.is_free,
			tier = EXCLUDED.tier,
			early_bird = EXCLUDED.early_bird,
			coupons = EXCLUDED.coupons,
			updated_at = EXCLUDED.updated_at
	`

	earlyBirdJSON, err := marshalEarlyBird(c.Pricing.EarlyBird)
	if err != nil {
		return err
	}
	couponsJSON, err := marshalCoupons(c.Coupons)
	if err != nil {
		return err
	}

	_, err = r.conn.Exec(ctx, query,
		string(c.ID),
		string(c.CourseID),
		c.Name,
		c.StartDate,
		c.EndDate,
		c.MaxStudents,
		c.CurrentStudents,
		c.Cancelled,
		c.ReleaseHour,
		c.Pricing.BasePrice,
		c.Pricing.SpecialOffer,
		string(c.Pricing.Currency),
		c.Pricing.IsFree,
		c.Pricing.Tier,
		earlyBirdJSON,
		couponsJSON,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save cohort: %w", err)
	}

	return nil
}

// RedeemCoupon atomically increments a coupon's usage counter.
// With lockedRedeem the cohort row is locked for the duration of the
// transaction, so two concurrent redemptions of the last remaining use
// serialize: the second one re-reads CurrentUses == MaxUses and fails
// validation inside fn.
func (r *CohortRepository) RedeemCoupon(ctx context.Context, id shared.CohortID, couponCode string, fn cohort.RedeemFunc) (*cohort.Coupon, error) {
	var redeemed *cohort.Coupon

	selectQuery := `SELECT coupons FROM cohorts WHERE id = $1 FOR UPDATE`
	if !r.lockedRedeem {
		selectQuery = `SELECT coupons FROM cohorts WHERE id = $1`
	}

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var couponsJSON []byte
		err := tx.QueryRow(ctx, selectQuery, string(id)).Scan(&couponsJSON)
		if IsNoRows(err) {
			return shared.ErrCohortNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read cohort coupons: %w", err)
		}

		coupons, err := unmarshalCoupons(couponsJSON)
		if err != nil {
			return err
		}

		found := cohort.FindCoupon(coupons, couponCode)
		if err := fn(found); err != nil {
			return err
		}
		if found == nil {
			return shared.ErrCouponNotFound
		}

		found.CurrentUses++

		updatedJSON, err := marshalCoupons(coupons)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE cohorts SET coupons = $1, updated_at = $2 WHERE id = $3`,
			updatedJSON, time.Now().UTC(), string(id),
		); err != nil {
			return fmt.Errorf("failed to write coupons back: %w", err)
		}

		snapshot := *found
		redeemed = &snapshot
		return nil
	})
	if err != nil {
		return nil, err
	}

	return redeemed, nil
}

// IncrementStudents bumps the best-effort student counter.
func (r *CohortRepository) IncrementStudents(ctx context.Context, id shared.CohortID) error {
	result, err := r.conn.Exec(ctx,
		`UPDATE cohorts SET current_students = current_students + 1, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), string(id),
	)
	if err != nil {
		return fmt.Errorf("failed to increment students: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrCohortNotFound
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// scanCohort scans a single cohort from a row.
func scanCohort(row pgx.Row) (*cohort.Cohort, error) {
	var c cohort.Cohort
	var currency string
	var earlyBirdJSON, couponsJSON []byte

	err := row.Scan(
		&c.ID,
		&c.CourseID,
		&c.Name,
		&c.StartDate,
		&c.EndDate,
		&c.MaxStudents,
		&c.CurrentStudents,
		&c.Cancelled,
		&c.ReleaseHour,
		&c.Pricing.BasePrice,
		&c.Pricing.SpecialOffer,
		&currency,
		&c.Pricing.IsFree,
		&c.Pricing.Tier,
		&earlyBirdJSON,
		&couponsJSON,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrCohortNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cohort: %w", err)
	}

	c.Pricing.Currency = shared.Currency(currency).Normalize()

	c.Pricing.EarlyBird, err = unmarshalEarlyBird(earlyBirdJSON)
	if err != nil {
		return nil, err
	}
	c.Coupons, err = unmarshalCoupons(couponsJSON)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// JSONB CONVERSION
// ══════════════════════════════════════════════════════════════════════════════

// couponDoc is the JSONB storage form of a coupon.
type couponDoc struct {
	Code        string    `json:"code"`
	Type        string    `json:"type"`
	Value       float64   `json:"value"`
	MinAmount   float64   `json:"min_amount,omitempty"`
	ValidFrom   time.Time `json:"valid_from"`
	ValidUntil  time.Time `json:"valid_until"`
	MaxUses     int       `json:"max_uses"`
	CurrentUses int       `json:"current_uses"`
	IsActive    bool      `json:"is_active"`
}

// earlyBirdDoc is the JSONB storage form of an early bird discount.
type earlyBirdDoc struct {
	Amount     float64   `json:"amount"`
	Type       string    `json:"type"`
	ValidUntil time.Time `json:"valid_until"`
}

func marshalCoupons(coupons []cohort.Coupon) ([]byte, error) {
	docs := make([]couponDoc, 0, len(coupons))
	for _, c := range coupons {
		docs = append(docs, couponDoc{
			Code:        c.Code,
			Type:        string(c.Type),
			Value:       c.Value,
			MinAmount:   c.MinAmount,
			ValidFrom:   c.ValidFrom,
			ValidUntil:  c.ValidUntil,
			MaxUses:     c.MaxUses,
			CurrentUses: c.CurrentUses,
			IsActive:    c.IsActive,
		})
	}

	data, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal coupons: %w", err)
	}
	return data, nil
}

func unmarshalCoupons(data []byte) ([]cohort.Coupon, error) {
	if len(data) == 0 {
		return []cohort.Coupon{}, nil
	}

	var docs []couponDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal coupons: %w", err)
	}

	coupons := make([]cohort.Coupon, 0, len(docs))
	for _, d := range docs {
		coupons = append(coupons, cohort.Coupon{
			Code:        d.Code,
			Type:        cohort.DiscountType(d.Type),
			Value:       d.Value,
			MinAmount:   d.MinAmount,
			ValidFrom:   d.ValidFrom,
			ValidUntil:  d.ValidUntil,
			MaxUses:     d.MaxUses,
			CurrentUses: d.CurrentUses,
			IsActive:    d.IsActive,
		})
	}
	return coupons, nil
}

func marshalEarlyBird(eb *cohort.EarlyBirdDiscount) ([]byte, error) {
	if eb == nil {
		return nil, nil
	}

	data, err := json.Marshal(earlyBirdDoc{
		Amount:     eb.Amount,
		Type:       string(eb.Type),
		ValidUntil: eb.ValidUntil,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal early bird discount: %w", err)
	}
	return data, nil
}

func unmarshalEarlyBird(data []byte) (*cohort.EarlyBirdDiscount, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var doc earlyBirdDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal early bird discount: %w", err)
	}
	return &cohort.EarlyBirdDiscount{
		Amount:     doc.Amount,
		Type:       cohort.DiscountType(doc.Type),
		ValidUntil: doc.ValidUntil,
	}, nil
}
