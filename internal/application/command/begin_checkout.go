package command

import (
	"context"
	"errors"

	"github.com/cohort-hub/cohort-engine/config"
	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BEGIN CHECKOUT COMMAND
// Glue between the pricing engine and the payment gateway collaborator:
// computes a quote and exchanges it for an opaque checkout handle. The coupon
// use is NOT consumed here - redemption happens at payment confirmation, and
// the two writes are not transactionally coupled (a confirmed payment after
// a failed redemption, or vice versa, is an accepted gap).
// ══════════════════════════════════════════════════════════════════════════════

// CheckoutRequest is what the payment gateway needs to open a session.
type CheckoutRequest struct {
	CohortID   string  `json:"cohort_id"`
	UserID     string  `json:"user_id"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	CouponCode string  `json:"coupon_code,omitempty"`
}

// CheckoutSession is the opaque handle returned by the gateway.
type CheckoutSession struct {
	Handle      string `json:"handle"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// PaymentGateway is the external payment collaborator.
// Implemented by internal/infrastructure/external/payments.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// BeginCheckoutCommand contains the data to start a checkout.
type BeginCheckoutCommand struct {
	CohortID   string
	UserID     string
	CouponCode string
}

// Validate validates the command.
func (c BeginCheckoutCommand) Validate() error {
	if c.CohortID == "" {
		return errors.New("begin_checkout: cohort_id is required")
	}
	if c.UserID == "" {
		return errors.New("begin_checkout: user_id is required")
	}
	return nil
}

// BeginCheckoutResult contains the quote and, for paid cohorts, the handle.
type BeginCheckoutResult struct {
	// Quote is the computed price, including any coupon message.
	Quote cohort.Quote `json:"quote"`

	// Free is true for free cohorts; no gateway session is opened.
	Free bool `json:"free"`

	// Session is the gateway handle (nil for free cohorts).
	Session *CheckoutSession `json:"session,omitempty"`
}

// BeginCheckoutHandler handles checkout initiation.
type BeginCheckoutHandler struct {
	cohorts cohort.Repository
	gateway PaymentGateway
	clock   shared.Clock
	flags   *config.FeatureFlags
}

// NewBeginCheckoutHandler creates a new handler.
func NewBeginCheckoutHandler(cohorts cohort.Repository, gateway PaymentGateway, clock shared.Clock) *BeginCheckoutHandler {
	return &BeginCheckoutHandler{
		cohorts: cohorts,
		gateway: gateway,
		clock:   clock,
	}
}

// SetFeatureFlags attaches the flag source. Without one, every feature is on.
func (h *BeginCheckoutHandler) SetFeatureFlags(flags *config.FeatureFlags) {
	h.flags = flags
}

// Handle executes the command.
func (h *BeginCheckoutHandler) Handle(ctx context.Context, cmd BeginCheckoutCommand) (*BeginCheckoutResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("command", "BeginCheckout", shared.ErrValidation, err.Error(), err)
	}

	c, err := h.cohorts.GetByID(ctx, shared.CohortID(cmd.CohortID))
	if err != nil {
		return nil, err
	}

	pricing := c.Pricing
	if h.flags != nil && !h.flags.IsEnabled(config.FeaturePricingEarlyBird, &config.FeatureContext{UserID: cmd.UserID}) {
		pricing.EarlyBird = nil
	}

	quote := cohort.ComputePrice(pricing, h.clock.Now(), cmd.CouponCode, c.Coupons)

	if c.Pricing.IsFree {
		return &BeginCheckoutResult{Quote: quote, Free: true}, nil
	}

	session, err := h.gateway.CreateSession(ctx, CheckoutRequest{
		CohortID:   cmd.CohortID,
		UserID:     cmd.UserID,
		Amount:     quote.FinalPrice,
		Currency:   quote.Currency,
		CouponCode: cmd.CouponCode,
	})
	if err != nil {
		return nil, shared.WrapError("command", "BeginCheckout", shared.ErrExternalService, "payment gateway call failed", err)
	}

	return &BeginCheckoutResult{Quote: quote, Session: session}, nil
}
