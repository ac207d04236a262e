package query

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/community"
	"github.com/cohort-hub/cohort-engine/internal/domain/release"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
	"github.com/cohort-hub/cohort-engine/pkg/logger"
)

var statsNow = time.Date(2026, 9, 21, 15, 0, 0, 0, time.UTC)

const statsCohortID = "9ca4322d-ebd5-4ffa-a340-56fe811bbab1"

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

func statsCohort() *cohort.Cohort {
	return &cohort.Cohort{
		ID:        shared.CohortID(statsCohortID),
		CourseID:  "go-basics",
		StartDate: statsNow.AddDate(0, 0, -10), // week 1 in progress
		EndDate:   statsNow.AddDate(0, 2, 0),
	}
}

func statsHandler(
	presence community.PresenceTracker,
	questions community.QuestionRepository,
	progressRepo *stubProgressRepo,
	enrollments *stubEnrollmentRepo,
	lessons *stubLessonRepo,
	cohorts *stubCohortRepo,
) *GetCommunityStatsHandler {
	if progressRepo == nil {
		progressRepo = &stubProgressRepo{}
	}
	if enrollments == nil {
		enrollments = &stubEnrollmentRepo{}
	}
	if lessons == nil {
		lessons = &stubLessonRepo{}
	}
	if cohorts == nil {
		cohorts = newStubCohortRepo()
	}
	return NewGetCommunityStatsHandler(presence, questions, progressRepo, enrollments, lessons, cohorts, shared.FixedClock{At: statsNow}, time.UTC, quietLogger())
}

func TestGetCommunityStats_AcademyMetrics(t *testing.T) {
	questions := &stubQuestionRepo{questions: []community.Question{
		{ID: "q1", CreatedAt: statsNow.Add(-2 * time.Hour)},  // today
		{ID: "q2", CreatedAt: statsNow.AddDate(0, 0, -3)},    // this week
		{ID: "q3", CreatedAt: statsNow.AddDate(0, 0, -20)},   // old
	}}
	progressRepo := &stubProgressRepo{completersToday: 4}

	handler := statsHandler(&stubPresence{online: 12}, questions, progressRepo, nil, nil, nil)
	stats, err := handler.Handle(context.Background(), GetCommunityStatsQuery{})

	require.NoError(t, err)
	assert.Equal(t, 12, stats.AcademyUsersOnline)
	assert.Equal(t, 2, stats.QuestionsLastWeek)
	assert.Equal(t, 1, stats.CommunityBuzz)
	assert.Equal(t, 4, stats.HotStreak)
	assert.Equal(t, statsNow, stats.GeneratedAt)

	// No cohort filter: cohort-scoped metrics stay zero.
	assert.Equal(t, 0, stats.CohortActiveUsers)
	assert.Equal(t, 0.0, stats.CohortProgressPercent)
}

func TestGetCommunityStats_FailingMetricsDegradeToZero(t *testing.T) {
	// Every collaborator fails; the snapshot still comes back complete.
	questions := &stubQuestionRepo{err: assert.AnError}
	progressRepo := &stubProgressRepo{completersErr: assert.AnError}
	presence := &stubPresence{err: assert.AnError}

	handler := statsHandler(presence, questions, progressRepo, nil, nil, nil)
	stats, err := handler.Handle(context.Background(), GetCommunityStatsQuery{})

	require.NoError(t, err)
	assert.Equal(t, 0, stats.AcademyUsersOnline)
	assert.Equal(t, 0, stats.QuestionsLastWeek)
	assert.Equal(t, 0, stats.CommunityBuzz)
	assert.Equal(t, 0, stats.HotStreak)
	assert.Equal(t, community.TierLow, stats.EngagementScore)
}

func TestGetCommunityStats_CohortProgress(t *testing.T) {
	enrollments := &stubEnrollmentRepo{members: []shared.UserID{"u1", "u2"}}
	lessons := &stubLessonRepo{lessons: map[shared.CourseID][]release.Lesson{
		"go-basics": {
			{ID: "l1", CourseID: "go-basics", WeekNumber: 1},
			{ID: "l2", CourseID: "go-basics", WeekNumber: 1},
			{ID: "l3", CourseID: "go-basics", WeekNumber: 2},
			{ID: "l4", CourseID: "go-basics", WeekNumber: 2},
			{ID: "l5", CourseID: "go-basics", WeekNumber: 3},
		},
	}}
	progressRepo := &stubProgressRepo{completedByCohort: 4}
	cohorts := newStubCohortRepo(statsCohort())

	handler := statsHandler(&stubPresence{}, &stubQuestionRepo{}, progressRepo, enrollments, lessons, cohorts)
	stats, err := handler.Handle(context.Background(), GetCommunityStatsQuery{CohortID: statsCohortID})

	require.NoError(t, err)
	// 4 completions over 5 lessons x 2 members.
	assert.Equal(t, 40.0, stats.CohortProgressPercent)
	assert.Equal(t, 2, stats.CohortActiveUsers)
}

func TestGetCommunityStats_WeeklyGoals(t *testing.T) {
	enrollments := &stubEnrollmentRepo{members: []shared.UserID{"u1", "u2"}}
	lessons := &stubLessonRepo{lessons: map[shared.CourseID][]release.Lesson{
		"go-basics": {
			{ID: "l1", CourseID: "go-basics", WeekNumber: 1},
			{ID: "l2", CourseID: "go-basics", WeekNumber: 1},
		},
	}}
	// u1 finished both week-1 lessons, u2 only one of them.
	progressRepo := &stubProgressRepo{byMember: map[shared.UserID]map[shared.LessonID]bool{
		"u1": {"l1": true, "l2": true},
		"u2": {"l1": true},
	}}

	// Three days in: the cohort is in its first calendar week, which maps
	// to the week-1 lessons.
	c := statsCohort()
	c.StartDate = statsNow.AddDate(0, 0, -3)
	cohorts := newStubCohortRepo(c)

	handler := statsHandler(&stubPresence{}, &stubQuestionRepo{}, progressRepo, enrollments, lessons, cohorts)
	stats, err := handler.Handle(context.Background(), GetCommunityStatsQuery{CohortID: statsCohortID})

	require.NoError(t, err)
	assert.Equal(t, 50.0, stats.WeeklyGoalsPercent)
}

func TestGetCommunityStats_WeeklyGoalsSecondWeek(t *testing.T) {
	enrollments := &stubEnrollmentRepo{members: []shared.UserID{"u1"}}
	lessons := &stubLessonRepo{lessons: map[shared.CourseID][]release.Lesson{
		"go-basics": {
			{ID: "l1", CourseID: "go-basics", WeekNumber: 1},
			{ID: "l2", CourseID: "go-basics", WeekNumber: 2},
		},
	}}
	// Week-2 lesson done; the leftover week-1 lesson must not count against
	// the goal once the cohort has moved on.
	progressRepo := &stubProgressRepo{byMember: map[shared.UserID]map[shared.LessonID]bool{
		"u1": {"l2": true},
	}}

	c := statsCohort()
	c.StartDate = statsNow.AddDate(0, 0, -8) // eight days in, second week
	cohorts := newStubCohortRepo(c)

	handler := statsHandler(&stubPresence{}, &stubQuestionRepo{}, progressRepo, enrollments, lessons, cohorts)
	stats, err := handler.Handle(context.Background(), GetCommunityStatsQuery{CohortID: statsCohortID})

	require.NoError(t, err)
	assert.Equal(t, 100.0, stats.WeeklyGoalsPercent)
}

func TestGetCommunityStats_CohortFailureKeepsAcademyMetrics(t *testing.T) {
	questions := &stubQuestionRepo{questions: []community.Question{
		{ID: "q1", CreatedAt: statsNow.Add(-time.Hour)},
	}}
	enrollments := &stubEnrollmentRepo{err: assert.AnError}

	handler := statsHandler(&stubPresence{online: 7}, questions, nil, enrollments, nil, nil)
	stats, err := handler.Handle(context.Background(), GetCommunityStatsQuery{CohortID: statsCohortID})

	require.NoError(t, err)
	assert.Equal(t, 7, stats.AcademyUsersOnline)
	assert.Equal(t, 1, stats.QuestionsLastWeek)
	assert.Equal(t, 0, stats.CohortActiveUsers)
	assert.Equal(t, 0.0, stats.CohortProgressPercent)
}

func TestGetCommunityStats_EngagementTiers(t *testing.T) {
	tests := []struct {
		name            string
		completersToday int
		want            community.Tier
	}{
		{"low engagement", 5, community.TierLow},
		{"just below medium", 19, community.TierLow},
		{"medium boundary", 20, community.TierMedium},
		{"just below high", 49, community.TierMedium},
		{"high boundary", 50, community.TierHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			progressRepo := &stubProgressRepo{completersToday: tt.completersToday}
			handler := statsHandler(&stubPresence{}, &stubQuestionRepo{}, progressRepo, nil, nil, nil)

			stats, err := handler.Handle(context.Background(), GetCommunityStatsQuery{})

			require.NoError(t, err)
			assert.Equal(t, tt.want, stats.EngagementScore)
		})
	}
}
