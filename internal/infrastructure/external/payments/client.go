// Package payments implements the payment gateway client.
// This package handles all communication with the external payment
// provider: opening checkout sessions and verifying webhook callbacks.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cohort-hub/cohort-engine/internal/application/command"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
	"github.com/cohort-hub/cohort-engine/pkg/circuitbreaker"
	"github.com/cohort-hub/cohort-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the payment gateway client.
type ClientConfig struct {
	// BaseURL is the gateway API base URL
	BaseURL string

	// APIKey is the secret key for authentication
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables request/response debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL: baseURL,
		Timeout: 15 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the payment gateway API client. It implements
// command.PaymentGateway with retries for transient failures and a
// circuit breaker so a dead gateway fails checkouts fast instead of
// stacking up blocked requests.
type Client struct {
	http    *resty.Client
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewClient creates a new payment gateway client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetAuthToken(config.APIKey).
		SetDebug(config.Debug)

	logger := config.Logger

	return &Client{
		http:    httpClient,
		retrier: retry.PaymentGatewayRetrier(),
		breaker: circuitbreaker.PaymentGatewayBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		}),
		logger: logger,
	}
}

// sessionResponse is the gateway's checkout session payload.
type sessionResponse struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirect_url"`
	Status      string `json:"status"`
}

// apiError is the gateway's error payload.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
}

// CreateSession opens a checkout session at the gateway.
// Implements command.PaymentGateway.
func (c *Client) CreateSession(ctx context.Context, req command.CheckoutRequest) (*command.CheckoutSession, error) {
	var session sessionResponse

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.postSession(ctx, req, &session)
		})
	})
	if err != nil {
		return nil, c.translateError(err)
	}

	return &command.CheckoutSession{
		Handle:      session.ID,
		RedirectURL: session.RedirectURL,
	}, nil
}

// postSession performs a single session creation request.
func (c *Client) postSession(ctx context.Context, req command.CheckoutRequest, out *sessionResponse) error {
	var gwErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(out).
		SetError(&gwErr).
		Post("/v1/checkout/sessions")
	if err != nil {
		// Transport errors (connection refused, DNS, timeout) are transient
		return retry.Retryable(err)
	}

	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode() == http.StatusTooManyRequests,
		resp.StatusCode() >= http.StatusInternalServerError:
		c.logger.Warn("gateway transient failure",
			"status", resp.StatusCode(),
			"code", gwErr.Code)
		return retry.Retryable(&gwErr)
	default:
		// Client errors (bad amount, unknown currency) never heal on retry
		return retry.Permanent(&gwErr)
	}
}

// translateError maps transport failures onto the domain error taxonomy.
func (c *Client) translateError(err error) error {
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return shared.ErrPaymentGatewayUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return shared.ErrPaymentGatewayTimeout
	default:
		var gwErr *apiError
		if errors.As(err, &gwErr) {
			return fmt.Errorf("%w: %s", shared.ErrPaymentGatewayUnavailable, gwErr.Message)
		}
		return fmt.Errorf("%w: %v", shared.ErrPaymentGatewayUnavailable, err)
	}
}

// IsHealthy checks if the gateway is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	resp, err := c.http.R().SetContext(ctx).Get("/v1/health")
	return err == nil && resp.IsSuccess()
}

// BreakerState reports the circuit breaker state for health endpoints.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}
