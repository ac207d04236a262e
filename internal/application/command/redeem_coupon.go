package command

import (
	"context"
	"errors"

	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDEEM COUPON COMMAND
// The coupon ledger: consumes one use of a coupon at payment confirmation.
// The cohort's coupon list is re-read and re-validated inside a row-locked
// transaction, so two concurrent redemptions of the last remaining use
// cannot both pass the cap check. Business-rule failures come back as a
// result with a message; only store-access faults surface as errors.
// ══════════════════════════════════════════════════════════════════════════════

// RedeemCouponCommand contains the data to redeem a coupon.
type RedeemCouponCommand struct {
	// CohortID scopes the coupon.
	CohortID string

	// CouponCode is matched case-insensitively.
	CouponCode string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RedeemCouponCommand) Validate() error {
	if c.CohortID == "" {
		return errors.New("redeem_coupon: cohort_id is required")
	}
	if c.CouponCode == "" {
		return errors.New("redeem_coupon: coupon_code is required")
	}
	return nil
}

// RedeemCouponResult contains the redemption outcome.
type RedeemCouponResult struct {
	// Success reports whether a use was consumed.
	Success bool `json:"success"`

	// Message is a human-readable explanation on failure.
	Message string `json:"message,omitempty"`

	// Coupon is the coupon after the increment (on success).
	Coupon *cohort.Coupon `json:"coupon,omitempty"`
}

// RedeemCouponHandler handles coupon redemption.
type RedeemCouponHandler struct {
	cohorts cohort.Repository
	clock   shared.Clock
	events  EventPublisher
}

// NewRedeemCouponHandler creates a new handler.
func NewRedeemCouponHandler(cohorts cohort.Repository, clock shared.Clock, events EventPublisher) *RedeemCouponHandler {
	if events == nil {
		events = NopPublisher{}
	}
	return &RedeemCouponHandler{
		cohorts: cohorts,
		clock:   clock,
		events:  events,
	}
}

// Handle executes the command.
func (h *RedeemCouponHandler) Handle(ctx context.Context, cmd RedeemCouponCommand) (*RedeemCouponResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "RedeemCoupon", shared.ErrValidation, err.Error(), err)
	}

	now := h.clock.Now()

	redeemed, err := h.cohorts.RedeemCoupon(ctx, shared.CohortID(cmd.CohortID), cmd.CouponCode, func(c *cohort.Coupon) error {
		if c == nil {
			return shared.ErrCouponNotFound
		}
		if !c.IsRedeemableAt(now) {
			if c.CurrentUses >= c.MaxUses {
				return shared.ErrCouponExhausted
			}
			return shared.ErrCouponExpired
		}
		return nil
	})

	switch {
	case err == nil:
		_ = h.events.Publish(ctx, shared.NewCouponRedeemedEvent(cmd.CohortID, redeemed.Code, redeemed.UsesLeft()))
		return &RedeemCouponResult{Success: true, Coupon: redeemed}, nil

	case errors.Is(err, shared.ErrCohortNotFound):
		return &RedeemCouponResult{Success: false, Message: "Cohort not found"}, nil

	case errors.Is(err, shared.ErrCouponNotFound),
		errors.Is(err, shared.ErrCouponExpired),
		errors.Is(err, shared.ErrCouponExhausted):
		return &RedeemCouponResult{Success: false, Message: cohort.MsgInvalidCoupon}, nil

	default:
		// Store-access fault: propagate, distinct from validation failures.
		return nil, shared.WrapError("command", "RedeemCoupon", shared.ErrExternalService, "coupon redemption failed", err)
	}
}
