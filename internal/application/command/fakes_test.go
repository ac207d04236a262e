package command

import (
	"context"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/progress"
	"github.com/cohort-hub/cohort-engine/internal/domain/release"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// In-memory collaborators for handler tests.

type fakeCohortRepo struct {
	cohorts map[shared.CohortID]*cohort.Cohort
	saveErr error
	storeErr error

	savedCohorts []*cohort.Cohort
	increments   []shared.CohortID
}

func newFakeCohortRepo(cohorts ...*cohort.Cohort) *fakeCohortRepo {
	repo := &fakeCohortRepo{cohorts: make(map[shared.CohortID]*cohort.Cohort)}
	for _, c := range cohorts {
		repo.cohorts[c.ID] = c
	}
	return repo
}

func (r *fakeCohortRepo) GetByID(_ context.Context, id shared.CohortID) (*cohort.Cohort, error) {
	if r.storeErr != nil {
		return nil, r.storeErr
	}
	c, ok := r.cohorts[id]
	if !ok {
		return nil, shared.ErrCohortNotFound
	}
	return c, nil
}

func (r *fakeCohortRepo) GetByCourse(_ context.Context, courseID shared.CourseID, limit int) ([]*cohort.Cohort, error) {
	var out []*cohort.Cohort
	for _, c := range r.cohorts {
		if c.CourseID == courseID {
			out = append(out, c)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeCohortRepo) Save(_ context.Context, c *cohort.Cohort) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.cohorts[c.ID] = c
	r.savedCohorts = append(r.savedCohorts, c)
	return nil
}

// RedeemCoupon mirrors the transactional contract of the real store:
// re-read the coupon, let fn decide, commit the increment only on nil.
func (r *fakeCohortRepo) RedeemCoupon(_ context.Context, id shared.CohortID, couponCode string, fn cohort.RedeemFunc) (*cohort.Coupon, error) {
	if r.storeErr != nil {
		return nil, r.storeErr
	}
	c, ok := r.cohorts[id]
	if !ok {
		return nil, shared.ErrCohortNotFound
	}
	matched := cohort.FindCoupon(c.Coupons, couponCode)
	if err := fn(matched); err != nil {
		return nil, err
	}
	matched.CurrentUses++
	out := *matched
	return &out, nil
}

func (r *fakeCohortRepo) IncrementStudents(_ context.Context, id shared.CohortID) error {
	r.increments = append(r.increments, id)
	if c, ok := r.cohorts[id]; ok {
		c.CurrentStudents++
	}
	return nil
}

type fakeLessonRepo struct {
	lessons map[shared.CourseID][]release.Lesson
	err     error
}

func (r *fakeLessonRepo) GetByCourse(_ context.Context, courseID shared.CourseID) ([]release.Lesson, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.lessons[courseID], nil
}

func (r *fakeLessonRepo) CountByCourse(_ context.Context, courseID shared.CourseID) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	return len(r.lessons[courseID]), nil
}

func (r *fakeLessonRepo) GetByCourseWeek(_ context.Context, courseID shared.CourseID, week int) ([]release.Lesson, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []release.Lesson
	for _, l := range r.lessons[courseID] {
		if l.WeekNumber == week {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeReleaseRepo struct {
	batches  [][]*release.Record
	batchErr error
}

func (r *fakeReleaseRepo) SaveBatch(_ context.Context, records []*release.Record) error {
	if r.batchErr != nil {
		return r.batchErr
	}
	r.batches = append(r.batches, records)
	return nil
}

func (r *fakeReleaseRepo) GetByLesson(_ context.Context, cohortID shared.CohortID, lessonID shared.LessonID) (*release.Record, error) {
	for _, batch := range r.batches {
		for _, rec := range batch {
			if rec.CohortID == cohortID && rec.LessonID == lessonID {
				return rec, nil
			}
		}
	}
	return nil, shared.ErrReleaseNotFound
}

func (r *fakeReleaseRepo) GetByCohort(_ context.Context, cohortID shared.CohortID) ([]*release.Record, error) {
	var out []*release.Record
	for _, batch := range r.batches {
		for _, rec := range batch {
			if rec.CohortID == cohortID {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

func (r *fakeReleaseRepo) MarkReleased(_ context.Context, now time.Time) (int, error) {
	flipped := 0
	for _, batch := range r.batches {
		for _, rec := range batch {
			if !rec.Released && !now.Before(rec.ReleaseAt) {
				rec.Released = true
				flipped++
			}
		}
	}
	return flipped, nil
}

type fakeProgressRepo struct {
	records map[string]*progress.LessonProgress
	getErr  error
	saveErr error
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{records: make(map[string]*progress.LessonProgress)}
}

func progressKey(userID shared.UserID, lessonID shared.LessonID) string {
	return userID.String() + "/" + lessonID.String()
}

func (r *fakeProgressRepo) Get(_ context.Context, userID shared.UserID, lessonID shared.LessonID) (*progress.LessonProgress, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	p, ok := r.records[progressKey(userID, lessonID)]
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	return p, nil
}

func (r *fakeProgressRepo) Save(_ context.Context, p *progress.LessonProgress) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.records[progressKey(p.UserID, p.LessonID)] = p
	return nil
}

func (r *fakeProgressRepo) GetCompletionsByUser(_ context.Context, userID shared.UserID, courseID shared.CourseID) ([]time.Time, error) {
	var out []time.Time
	for _, p := range r.records {
		if p.UserID == userID && p.CourseID == courseID && p.CompletedAt != nil {
			out = append(out, *p.CompletedAt)
		}
	}
	return out, nil
}

func (r *fakeProgressRepo) CompletedLessonIDs(_ context.Context, userID shared.UserID, courseID shared.CourseID) (map[shared.LessonID]bool, error) {
	out := make(map[shared.LessonID]bool)
	for _, p := range r.records {
		if p.UserID == userID && p.CourseID == courseID && p.Completed {
			out[p.LessonID] = true
		}
	}
	return out, nil
}

func (r *fakeProgressRepo) CountCompletedByCohort(_ context.Context, _ shared.CohortID) (int, error) {
	return 0, nil
}

func (r *fakeProgressRepo) CountDistinctCompletersSince(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (r *fakeProgressRepo) CompletedLessonsByMember(_ context.Context, _ shared.CohortID, _ []shared.LessonID) (map[shared.UserID]map[shared.LessonID]bool, error) {
	return nil, nil
}

type fakeEnrollmentRepo struct {
	enrollments map[string]*progress.Enrollment
	saveErr     error
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{enrollments: make(map[string]*progress.Enrollment)}
}

func enrollmentKey(userID shared.UserID, cohortID shared.CohortID) string {
	return userID.String() + "/" + cohortID.String()
}

func (r *fakeEnrollmentRepo) Save(_ context.Context, e *progress.Enrollment) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.enrollments[enrollmentKey(e.UserID, e.CohortID)] = e
	return nil
}

func (r *fakeEnrollmentRepo) GetByUserAndCohort(_ context.Context, userID shared.UserID, cohortID shared.CohortID) (*progress.Enrollment, error) {
	e, ok := r.enrollments[enrollmentKey(userID, cohortID)]
	if !ok {
		return nil, shared.ErrEnrollmentNotFound
	}
	return e, nil
}

func (r *fakeEnrollmentRepo) ActiveMembers(_ context.Context, cohortID shared.CohortID) ([]shared.UserID, error) {
	var out []shared.UserID
	for _, e := range r.enrollments {
		if e.CohortID == cohortID && e.IsActive() {
			out = append(out, e.UserID)
		}
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) CountActiveMembers(ctx context.Context, cohortID shared.CohortID) (int, error) {
	members, err := r.ActiveMembers(ctx, cohortID)
	return len(members), err
}

type fakePresenceTracker struct {
	touched []shared.UserID
}

func (t *fakePresenceTracker) Touch(_ context.Context, userID shared.UserID) error {
	t.touched = append(t.touched, userID)
	return nil
}

func (t *fakePresenceTracker) CountOnline(_ context.Context) (int, error) {
	return len(t.touched), nil
}

func (t *fakePresenceTracker) FilterOnline(_ context.Context, userIDs []shared.UserID) ([]shared.UserID, error) {
	return userIDs, nil
}

type capturingPublisher struct {
	events []shared.Event
}

func (p *capturingPublisher) Publish(_ context.Context, event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) typesSeen() []shared.EventType {
	out := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type fakeGateway struct {
	session  *CheckoutSession
	err      error
	requests []CheckoutRequest
}

func (g *fakeGateway) CreateSession(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return g.session, nil
}
