package query

import (
	"context"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/community"
	"github.com/cohort-hub/cohort-engine/internal/domain/progress"
	"github.com/cohort-hub/cohort-engine/internal/domain/release"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// In-memory collaborators for query handler tests. Each fake degrades to an
// injected error so the best-effort aggregation paths can be exercised.

type stubCohortRepo struct {
	cohorts map[shared.CohortID]*cohort.Cohort
	err     error
}

func newStubCohortRepo(cohorts ...*cohort.Cohort) *stubCohortRepo {
	repo := &stubCohortRepo{cohorts: make(map[shared.CohortID]*cohort.Cohort)}
	for _, c := range cohorts {
		repo.cohorts[c.ID] = c
	}
	return repo
}

func (r *stubCohortRepo) GetByID(_ context.Context, id shared.CohortID) (*cohort.Cohort, error) {
	if r.err != nil {
		return nil, r.err
	}
	c, ok := r.cohorts[id]
	if !ok {
		return nil, shared.ErrCohortNotFound
	}
	return c, nil
}

func (r *stubCohortRepo) GetByCourse(_ context.Context, _ shared.CourseID, _ int) ([]*cohort.Cohort, error) {
	return nil, nil
}

func (r *stubCohortRepo) Save(_ context.Context, c *cohort.Cohort) error {
	r.cohorts[c.ID] = c
	return nil
}

func (r *stubCohortRepo) RedeemCoupon(_ context.Context, _ shared.CohortID, _ string, _ cohort.RedeemFunc) (*cohort.Coupon, error) {
	return nil, shared.ErrCouponNotFound
}

func (r *stubCohortRepo) IncrementStudents(_ context.Context, _ shared.CohortID) error {
	return nil
}

type stubReleaseRepo struct {
	records map[string]*release.Record
	err     error
}

func newStubReleaseRepo(records ...*release.Record) *stubReleaseRepo {
	repo := &stubReleaseRepo{records: make(map[string]*release.Record)}
	for _, rec := range records {
		repo.records[rec.CohortID.String()+"/"+rec.LessonID.String()] = rec
	}
	return repo
}

func (r *stubReleaseRepo) SaveBatch(_ context.Context, _ []*release.Record) error {
	return nil
}

func (r *stubReleaseRepo) GetByLesson(_ context.Context, cohortID shared.CohortID, lessonID shared.LessonID) (*release.Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	rec, ok := r.records[cohortID.String()+"/"+lessonID.String()]
	if !ok {
		return nil, shared.ErrReleaseNotFound
	}
	return rec, nil
}

func (r *stubReleaseRepo) GetByCohort(_ context.Context, _ shared.CohortID) ([]*release.Record, error) {
	return nil, nil
}

func (r *stubReleaseRepo) MarkReleased(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

type stubLessonRepo struct {
	lessons map[shared.CourseID][]release.Lesson
	err     error
}

func (r *stubLessonRepo) GetByCourse(_ context.Context, courseID shared.CourseID) ([]release.Lesson, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.lessons[courseID], nil
}

func (r *stubLessonRepo) CountByCourse(_ context.Context, courseID shared.CourseID) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	return len(r.lessons[courseID]), nil
}

func (r *stubLessonRepo) GetByCourseWeek(_ context.Context, courseID shared.CourseID, week int) ([]release.Lesson, error) {
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

type stubProgressRepo struct {
	completions        map[shared.UserID][]time.Time
	completed          map[shared.UserID]map[shared.LessonID]bool
	completedByCohort  int
	completersToday    int
	byMember           map[shared.UserID]map[shared.LessonID]bool
	completionsErr     error
	completedIDsErr    error
	cohortCountErr     error
	completersErr      error
	byMemberErr        error
}

func (r *stubProgressRepo) Get(_ context.Context, _ shared.UserID, _ shared.LessonID) (*progress.LessonProgress, error) {
	return nil, shared.ErrProgressNotFound
}

func (r *stubProgressRepo) Save(_ context.Context, _ *progress.LessonProgress) error {
	return nil
}

func (r *stubProgressRepo) GetCompletionsByUser(_ context.Context, userID shared.UserID, _ shared.CourseID) ([]time.Time, error) {
	if r.completionsErr != nil {
		return nil, r.completionsErr
	}
	return r.completions[userID], nil
}

func (r *stubProgressRepo) CompletedLessonIDs(_ context.Context, userID shared.UserID, _ shared.CourseID) (map[shared.LessonID]bool, error) {
	if r.completedIDsErr != nil {
		return nil, r.completedIDsErr
	}
	return r.completed[userID], nil
}

func (r *stubProgressRepo) CountCompletedByCohort(_ context.Context, _ shared.CohortID) (int, error) {
	if r.cohortCountErr != nil {
		return 0, r.cohortCountErr
	}
	return r.completedByCohort, nil
}

func (r *stubProgressRepo) CountDistinctCompletersSince(_ context.Context, _ time.Time) (int, error) {
	if r.completersErr != nil {
		return 0, r.completersErr
	}
	return r.completersToday, nil
}

func (r *stubProgressRepo) CompletedLessonsByMember(_ context.Context, _ shared.CohortID, _ []shared.LessonID) (map[shared.UserID]map[shared.LessonID]bool, error) {
	if r.byMemberErr != nil {
		return nil, r.byMemberErr
	}
	return r.byMember, nil
}

type stubEnrollmentRepo struct {
	members []shared.UserID
	err     error
}

func (r *stubEnrollmentRepo) Save(_ context.Context, _ *progress.Enrollment) error {
	return nil
}

func (r *stubEnrollmentRepo) GetByUserAndCohort(_ context.Context, _ shared.UserID, _ shared.CohortID) (*progress.Enrollment, error) {
	return nil, shared.ErrEnrollmentNotFound
}

func (r *stubEnrollmentRepo) ActiveMembers(_ context.Context, _ shared.CohortID) ([]shared.UserID, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.members, nil
}

func (r *stubEnrollmentRepo) CountActiveMembers(_ context.Context, _ shared.CohortID) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	return len(r.members), nil
}

type stubPresence struct {
	online       int
	onlineSubset []shared.UserID
	err          error
}

func (t *stubPresence) Touch(_ context.Context, _ shared.UserID) error {
	return nil
}

func (t *stubPresence) CountOnline(_ context.Context) (int, error) {
	if t.err != nil {
		return 0, t.err
	}
	return t.online, nil
}

func (t *stubPresence) FilterOnline(_ context.Context, userIDs []shared.UserID) ([]shared.UserID, error) {
	if t.err != nil {
		return nil, t.err
	}
	if t.onlineSubset != nil {
		return t.onlineSubset, nil
	}
	return userIDs, nil
}

type stubQuestionRepo struct {
	questions []community.Question
	err       error
}

func (r *stubQuestionRepo) Save(_ context.Context, q *community.Question) error {
	r.questions = append(r.questions, *q)
	return nil
}

func (r *stubQuestionRepo) CountSince(_ context.Context, since time.Time) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	count := 0
	for _, q := range r.questions {
		if !q.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}
