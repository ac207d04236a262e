package query

import (
	"context"
	"errors"

	"github.com/cohort-hub/cohort-engine/config"
	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUOTE PRICE QUERY
// Вычисляет цену когорты для отображения на странице оплаты.
// Купон здесь только проверяется - использование списывается отдельной
// командой RedeemCoupon после подтверждения платежа.
// ══════════════════════════════════════════════════════════════════════════════

// QuotePriceQuery содержит параметры запроса цены.
type QuotePriceQuery struct {
	// CohortID - когорта.
	CohortID string

	// CouponCode - необязательный код купона.
	CouponCode string
}

// Validate проверяет корректность параметров.
func (q QuotePriceQuery) Validate() error {
	if q.CohortID == "" {
		return errors.New("quote_price: cohort_id is required")
	}
	return nil
}

// QuotePriceHandler обрабатывает запросы цены.
type QuotePriceHandler struct {
	cohorts cohort.Repository
	clock   shared.Clock
	flags   *config.FeatureFlags
}

// NewQuotePriceHandler создаёт новый обработчик.
func NewQuotePriceHandler(cohorts cohort.Repository, clock shared.Clock) *QuotePriceHandler {
	return &QuotePriceHandler{cohorts: cohorts, clock: clock}
}

// SetFeatureFlags подключает флаги. Без них все фичи считаются включёнными.
func (h *QuotePriceHandler) SetFeatureFlags(flags *config.FeatureFlags) {
	h.flags = flags
}

// Handle выполняет запрос.
func (h *QuotePriceHandler) Handle(ctx context.Context, q QuotePriceQuery) (*cohort.Quote, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "QuotePrice", shared.ErrValidation, err.Error(), err)
	}

	c, err := h.cohorts.GetByID(ctx, shared.CohortID(q.CohortID))
	if err != nil {
		return nil, err
	}

	pricing := c.Pricing
	if h.flags != nil && !h.flags.IsEnabled(config.FeaturePricingEarlyBird, nil) {
		pricing.EarlyBird = nil
	}

	quote := cohort.ComputePrice(pricing, h.clock.Now(), q.CouponCode, c.Coupons)
	return &quote, nil
}
