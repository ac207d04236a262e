package eventhandler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

type fakeCohortRepo struct {
	increments   []shared.CohortID
	incrementErr error
}

func (r *fakeCohortRepo) GetByID(ctx context.Context, id shared.CohortID) (*cohort.Cohort, error) {
	return nil, shared.ErrCohortNotFound
}

func (r *fakeCohortRepo) GetByCourse(ctx context.Context, courseID shared.CourseID, limit int) ([]*cohort.Cohort, error) {
	return nil, nil
}

func (r *fakeCohortRepo) Save(ctx context.Context, c *cohort.Cohort) error {
	return nil
}

func (r *fakeCohortRepo) RedeemCoupon(ctx context.Context, id shared.CohortID, couponCode string, fn cohort.RedeemFunc) (*cohort.Coupon, error) {
	return nil, shared.ErrCouponNotFound
}

func (r *fakeCohortRepo) IncrementStudents(ctx context.Context, id shared.CohortID) error {
	if r.incrementErr != nil {
		return r.incrementErr
	}
	r.increments = append(r.increments, id)
	return nil
}

type fakeMailer struct {
	recipients []string
	vars       []map[string]string
	err        error
}

func (m *fakeMailer) SendEnrollmentConfirmation(ctx context.Context, to string, vars map[string]string) error {
	if m.err != nil {
		return m.err
	}
	m.recipients = append(m.recipients, to)
	m.vars = append(m.vars, vars)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOnEnrollmentCreated_IncrementsCounterAndSendsEmail(t *testing.T) {
	repo := &fakeCohortRepo{}
	mailer := &fakeMailer{}
	h := NewOnEnrollmentCreatedHandler(repo, mailer, quietLogger())

	event := shared.NewEnrollmentCreatedEvent("enr-1", "user-1", "go-basics", "cohort-1", "student@example.com")
	require.NoError(t, h.Handle(event))

	require.Len(t, repo.increments, 1)
	assert.Equal(t, shared.CohortID("cohort-1"), repo.increments[0])

	require.Len(t, mailer.recipients, 1)
	assert.Equal(t, "student@example.com", mailer.recipients[0])
	assert.Equal(t, "go-basics", mailer.vars[0]["course_id"])
	assert.Equal(t, "enr-1", mailer.vars[0]["enrollment_id"])
}

func TestOnEnrollmentCreated_NoEmailWithoutAddress(t *testing.T) {
	repo := &fakeCohortRepo{}
	mailer := &fakeMailer{}
	h := NewOnEnrollmentCreatedHandler(repo, mailer, quietLogger())

	event := shared.NewEnrollmentCreatedEvent("enr-1", "user-1", "go-basics", "cohort-1", "")
	require.NoError(t, h.Handle(event))

	assert.Len(t, repo.increments, 1)
	assert.Empty(t, mailer.recipients)
}

func TestOnEnrollmentCreated_NilMailerIsOptional(t *testing.T) {
	repo := &fakeCohortRepo{}
	h := NewOnEnrollmentCreatedHandler(repo, nil, quietLogger())

	event := shared.NewEnrollmentCreatedEvent("enr-1", "user-1", "go-basics", "cohort-1", "student@example.com")
	assert.NoError(t, h.Handle(event))
	assert.Len(t, repo.increments, 1)
}

func TestOnEnrollmentCreated_EffectFailuresAreSwallowed(t *testing.T) {
	repo := &fakeCohortRepo{incrementErr: errors.New("connection refused")}
	mailer := &fakeMailer{err: errors.New("smtp timeout")}
	h := NewOnEnrollmentCreatedHandler(repo, mailer, quietLogger())

	event := shared.NewEnrollmentCreatedEvent("enr-1", "user-1", "go-basics", "cohort-1", "student@example.com")

	// Счётчик и письмо best-effort: зачисление не ретраится из-за них.
	assert.NoError(t, h.Handle(event))
}

func TestOnEnrollmentCreated_IgnoresForeignEvents(t *testing.T) {
	repo := &fakeCohortRepo{}
	mailer := &fakeMailer{}
	h := NewOnEnrollmentCreatedHandler(repo, mailer, quietLogger())

	require.NoError(t, h.Handle(shared.NewLessonCompletedEvent("u1", "l1", "c1")))

	assert.Empty(t, repo.increments)
	assert.Empty(t, mailer.recipients)
}

func TestOnEnrollmentCreated_EventTypes(t *testing.T) {
	h := NewOnEnrollmentCreatedHandler(&fakeCohortRepo{}, nil, quietLogger())
	assert.Equal(t, []shared.EventType{shared.EventEnrollmentCreated}, h.EventTypes())
}
