package cohort

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

const testCohortID = shared.CohortID("7ed99bd0-87b2-4dbb-a97b-596c3f29c49b")

func TestDeriveStatus(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		now       time.Time
		cancelled bool
		want      Status
	}{
		{"before start", start.Add(-time.Second), false, StatusUpcoming},
		{"exactly at start", start, false, StatusActive},
		{"mid cohort", start.AddDate(0, 1, 0), false, StatusActive},
		{"exactly at end", end, false, StatusCompleted},
		{"after end", end.Add(time.Hour), false, StatusCompleted},
		{"cancelled wins over active", start.AddDate(0, 1, 0), true, StatusCancelled},
		{"cancelled wins over upcoming", start.Add(-time.Hour), true, StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.now, start, end, tt.cancelled)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCohort_CurrentWeek(t *testing.T) {
	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	c := &Cohort{StartDate: start, EndDate: start.AddDate(0, 3, 0)}

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"before start", start.Add(-time.Hour), 0},
		{"day three", start.AddDate(0, 0, 3), 0},
		{"just under a week", start.Add(7*24*time.Hour - time.Second), 0},
		{"exactly one week", start.Add(7 * 24 * time.Hour), 1},
		{"day ten", start.AddDate(0, 0, 10), 1},
		{"three weeks in", start.Add(21 * 24 * time.Hour), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.CurrentWeek(tt.now))
		})
	}
}

func TestNewCohort_Valid(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0)

	c, err := NewCohort(testCohortID, "go-basics", "Autumn 2026", start, end, 30, standardPricing())

	require.NoError(t, err)
	assert.Equal(t, testCohortID, c.ID)
	assert.Equal(t, DefaultReleaseHour, c.ReleaseHour)
	assert.Equal(t, 0, c.CurrentStudents)
	assert.Empty(t, c.Coupons)
	assert.False(t, c.Cancelled)
}

func TestNewCohort_Invalid(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0)

	tests := []struct {
		name    string
		mutate  func() (*Cohort, error)
		wantErr error
	}{
		{
			"empty cohort id",
			func() (*Cohort, error) {
				return NewCohort("", "go-basics", "Autumn", start, end, 30, standardPricing())
			},
			shared.ErrInvalidID,
		},
		{
			"invalid course id",
			func() (*Cohort, error) {
				return NewCohort(testCohortID, "go basics", "Autumn", start, end, 30, standardPricing())
			},
			shared.ErrInvalidID,
		},
		{
			"empty name",
			func() (*Cohort, error) {
				return NewCohort(testCohortID, "go-basics", "", start, end, 30, standardPricing())
			},
			shared.ErrEmptyValue,
		},
		{
			"start equals end",
			func() (*Cohort, error) {
				return NewCohort(testCohortID, "go-basics", "Autumn", start, start, 30, standardPricing())
			},
			shared.ErrInvalidCohortDates,
		},
		{
			"zero capacity",
			func() (*Cohort, error) {
				return NewCohort(testCohortID, "go-basics", "Autumn", start, end, 0, standardPricing())
			},
			shared.ErrValueOutOfRange,
		},
		{
			"negative base price",
			func() (*Cohort, error) {
				p := standardPricing()
				p.BasePrice = -1
				return NewCohort(testCohortID, "go-basics", "Autumn", start, end, 30, p)
			},
			shared.ErrNegativeValue,
		},
		{
			"bad currency",
			func() (*Cohort, error) {
				p := standardPricing()
				p.Currency = "DOLLARS"
				return NewCohort(testCohortID, "go-basics", "Autumn", start, end, 30, p)
			},
			shared.ErrInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.mutate()
			assert.Nil(t, c)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPricingConfig_DiscountBase(t *testing.T) {
	p := standardPricing()
	assert.Equal(t, 100.0, p.DiscountBase())

	p.SpecialOffer = 60
	assert.Equal(t, 60.0, p.DiscountBase())
}

func TestPricingConfig_FreeCohortSkipsCurrencyCheck(t *testing.T) {
	p := PricingConfig{IsFree: true}
	assert.NoError(t, p.Validate())
}

func TestCohort_IsFull(t *testing.T) {
	c := &Cohort{MaxStudents: 2, CurrentStudents: 1}
	assert.False(t, c.IsFull())

	c.CurrentStudents = 2
	assert.True(t, c.IsFull())
}

func TestCohort_Cancel(t *testing.T) {
	c := &Cohort{StartDate: time.Now().Add(-time.Hour), EndDate: time.Now().Add(time.Hour)}
	assert.Equal(t, StatusActive, c.Status(time.Now()))

	c.Cancel()
	assert.Equal(t, StatusCancelled, c.Status(time.Now()))
}

func TestCoupon_IsRedeemableAt(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	base := Coupon{
		Code:      "WINDOW",
		ValidFrom: from, ValidUntil: until,
		MaxUses: 10, IsActive: true,
	}

	tests := []struct {
		name   string
		mutate func(c *Coupon)
		now    time.Time
		want   bool
	}{
		{"inside window", nil, from.AddDate(0, 0, 10), true},
		{"exactly at valid_from", nil, from, true},
		{"just before valid_from", nil, from.Add(-time.Second), false},
		{"exactly at valid_until", nil, until, false},
		{"inactive", func(c *Coupon) { c.IsActive = false }, from.AddDate(0, 0, 10), false},
		{"uses exhausted", func(c *Coupon) { c.CurrentUses = 10 }, from.AddDate(0, 0, 10), false},
		{"one use left", func(c *Coupon) { c.CurrentUses = 9 }, from.AddDate(0, 0, 10), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			if tt.mutate != nil {
				tt.mutate(&c)
			}
			assert.Equal(t, tt.want, c.IsRedeemableAt(tt.now))
		})
	}
}

func TestCoupon_UsesLeft(t *testing.T) {
	c := Coupon{MaxUses: 5, CurrentUses: 3}
	assert.Equal(t, 2, c.UsesLeft())

	c.CurrentUses = 7
	assert.Equal(t, 0, c.UsesLeft())
}

func TestFindCoupon(t *testing.T) {
	coupons := []Coupon{
		{Code: "ALPHA"},
		{Code: "beta"},
	}

	assert.Equal(t, "ALPHA", FindCoupon(coupons, "alpha").Code)
	assert.Equal(t, "beta", FindCoupon(coupons, "BETA").Code)
	assert.Nil(t, FindCoupon(coupons, "gamma"))
	assert.Nil(t, FindCoupon(nil, "alpha"))
}
