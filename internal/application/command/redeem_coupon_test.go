package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

var redeemNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const redeemCohortID = "7ed99bd0-87b2-4dbb-a97b-596c3f29c49b"

func cohortWithCoupon(c cohort.Coupon) *cohort.Cohort {
	return &cohort.Cohort{
		ID:       shared.CohortID(redeemCohortID),
		CourseID: "go-basics",
		Coupons:  []cohort.Coupon{c},
	}
}

func liveCoupon() cohort.Coupon {
	return cohort.Coupon{
		Code:       "SPRING20",
		Type:       cohort.DiscountPercentage,
		Value:      20,
		ValidFrom:  redeemNow.Add(-time.Hour),
		ValidUntil: redeemNow.Add(time.Hour),
		MaxUses:    3,
		IsActive:   true,
	}
}

func TestRedeemCoupon_Success(t *testing.T) {
	repo := newFakeCohortRepo(cohortWithCoupon(liveCoupon()))
	events := &capturingPublisher{}
	handler := NewRedeemCouponHandler(repo, shared.FixedClock{At: redeemNow}, events)

	result, err := handler.Handle(context.Background(), RedeemCouponCommand{
		CohortID:   redeemCohortID,
		CouponCode: "spring20",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, result.Coupon)
	assert.Equal(t, 1, result.Coupon.CurrentUses)
	assert.Equal(t, 2, result.Coupon.UsesLeft())

	require.Len(t, events.events, 1)
	assert.Equal(t, shared.EventCouponRedeemed, events.events[0].EventType())
}

func TestRedeemCoupon_LastUseConsumedOnce(t *testing.T) {
	c := liveCoupon()
	c.CurrentUses = 2 // one use left
	repo := newFakeCohortRepo(cohortWithCoupon(c))
	handler := NewRedeemCouponHandler(repo, shared.FixedClock{At: redeemNow}, nil)

	first, err := handler.Handle(context.Background(), RedeemCouponCommand{CohortID: redeemCohortID, CouponCode: "SPRING20"})
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, 0, first.Coupon.UsesLeft())

	// The re-validation inside the locked write rejects the second redemption.
	second, err := handler.Handle(context.Background(), RedeemCouponCommand{CohortID: redeemCohortID, CouponCode: "SPRING20"})
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Equal(t, cohort.MsgInvalidCoupon, second.Message)
}

func TestRedeemCoupon_UnknownCode(t *testing.T) {
	repo := newFakeCohortRepo(cohortWithCoupon(liveCoupon()))
	handler := NewRedeemCouponHandler(repo, shared.FixedClock{At: redeemNow}, nil)

	result, err := handler.Handle(context.Background(), RedeemCouponCommand{CohortID: redeemCohortID, CouponCode: "NOPE"})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, cohort.MsgInvalidCoupon, result.Message)
}

func TestRedeemCoupon_ExpiredCoupon(t *testing.T) {
	c := liveCoupon()
	c.ValidUntil = redeemNow.Add(-time.Minute)
	repo := newFakeCohortRepo(cohortWithCoupon(c))
	handler := NewRedeemCouponHandler(repo, shared.FixedClock{At: redeemNow}, nil)

	result, err := handler.Handle(context.Background(), RedeemCouponCommand{CohortID: redeemCohortID, CouponCode: "SPRING20"})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 0, repo.cohorts[shared.CohortID(redeemCohortID)].Coupons[0].CurrentUses)
}

func TestRedeemCoupon_CohortNotFound(t *testing.T) {
	handler := NewRedeemCouponHandler(newFakeCohortRepo(), shared.FixedClock{At: redeemNow}, nil)

	result, err := handler.Handle(context.Background(), RedeemCouponCommand{CohortID: redeemCohortID, CouponCode: "SPRING20"})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Cohort not found", result.Message)
}

func TestRedeemCoupon_StoreFaultSurfacesAsError(t *testing.T) {
	repo := newFakeCohortRepo(cohortWithCoupon(liveCoupon()))
	repo.storeErr = assert.AnError
	handler := NewRedeemCouponHandler(repo, shared.FixedClock{At: redeemNow}, nil)

	result, err := handler.Handle(context.Background(), RedeemCouponCommand{CohortID: redeemCohortID, CouponCode: "SPRING20"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, shared.ErrExternalService)
}

func TestRedeemCoupon_Validation(t *testing.T) {
	handler := NewRedeemCouponHandler(newFakeCohortRepo(), shared.FixedClock{At: redeemNow}, nil)

	_, err := handler.Handle(context.Background(), RedeemCouponCommand{CouponCode: "SPRING20"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = handler.Handle(context.Background(), RedeemCouponCommand{CohortID: redeemCohortID})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
