package query

import (
	"context"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/community"
	"github.com/cohort-hub/cohort-engine/internal/domain/progress"
	"github.com/cohort-hub/cohort-engine/internal/domain/release"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
	"github.com/cohort-hub/cohort-engine/pkg/logger"
	"github.com/cohort-hub/cohort-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COMMUNITY STATS QUERY
// Собирает снимок вовлечённости сообщества для живого дашборда: кто онлайн,
// сколько вопросов, сколько завершений сегодня, прогресс когорты и
// выполнение недельных целей.
//
// Агрегатор best-effort: отказ отдельного подзапроса (нет индекса, частичный
// сбой стораджа) деградирует соответствующую метрику до нуля. Снимок всегда
// возвращается полным и типизированным - дашборд показывает нули,
// а не ломает страницу.
// ══════════════════════════════════════════════════════════════════════════════

// Окна подзапросов.
const (
	// questionsWeekWindow - окно метрики "вопросов за неделю".
	questionsWeekWindow = 7 * 24 * time.Hour

	// buzzWindow - окно метрики community buzz.
	buzzWindow = 24 * time.Hour
)

// GetCommunityStatsQuery содержит параметры запроса статистики.
type GetCommunityStatsQuery struct {
	// CohortID - необязательный фильтр по когорте. Без него метрики
	// когорты (онлайн участников, прогресс, недельные цели) равны нулю.
	CohortID string
}

// GetCommunityStatsHandler обрабатывает запросы статистики сообщества.
type GetCommunityStatsHandler struct {
	presence    community.PresenceTracker
	questions   community.QuestionRepository
	progress    progress.Repository
	enrollments progress.EnrollmentRepository
	lessons     release.LessonRepository
	cohorts     cohort.Repository
	clock       shared.Clock

	// loc - зона для границы "сегодня" в метрике hot streak.
	loc *time.Location
	log *logger.Logger
}

// NewGetCommunityStatsHandler создаёт новый обработчик.
func NewGetCommunityStatsHandler(
	presence community.PresenceTracker,
	questions community.QuestionRepository,
	progressRepo progress.Repository,
	enrollments progress.EnrollmentRepository,
	lessons release.LessonRepository,
	cohorts cohort.Repository,
	clock shared.Clock,
	loc *time.Location,
	log *logger.Logger,
) *GetCommunityStatsHandler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Default()
	}
	return &GetCommunityStatsHandler{
		presence:    presence,
		questions:   questions,
		progress:    progressRepo,
		enrollments: enrollments,
		lessons:     lessons,
		cohorts:     cohorts,
		clock:       clock,
		loc:         loc,
		log:         log.With(logger.Component("community_stats")),
	}
}

// Handle выполняет запрос. Никогда не возвращает ошибку ради отдельной
// метрики - только снимок, где отказавшие метрики обнулены.
func (h *GetCommunityStatsHandler) Handle(ctx context.Context, q GetCommunityStatsQuery) (*community.Stats, error) {
	now := h.clock.Now()
	stats := &community.Stats{GeneratedAt: now}

	stats.AcademyUsersOnline = h.intMetric("academy_online", func() (int, error) {
		return h.presence.CountOnline(ctx)
	})

	stats.QuestionsLastWeek = h.intMetric("questions_last_week", func() (int, error) {
		return h.questions.CountSince(ctx, now.Add(-questionsWeekWindow))
	})

	stats.CommunityBuzz = h.intMetric("community_buzz", func() (int, error) {
		return h.questions.CountSince(ctx, now.Add(-buzzWindow))
	})

	stats.HotStreak = h.intMetric("hot_streak", func() (int, error) {
		return h.progress.CountDistinctCompletersSince(ctx, timeutil.StartOfDay(now, h.loc))
	})

	if q.CohortID != "" {
		h.fillCohortMetrics(ctx, shared.CohortID(q.CohortID), now, stats)
	}

	stats.EngagementScore = community.ClassifyTier(stats.Score())
	return stats, nil
}

// fillCohortMetrics заполняет метрики, привязанные к конкретной когорте.
func (h *GetCommunityStatsHandler) fillCohortMetrics(ctx context.Context, cohortID shared.CohortID, now time.Time, stats *community.Stats) {
	members, err := h.enrollments.ActiveMembers(ctx, cohortID)
	if err != nil {
		h.log.Warn("cohort members query failed, metrics degraded to zero", logger.Err(err))
		return
	}

	stats.CohortActiveUsers = h.intMetric("cohort_online", func() (int, error) {
		online, err := h.presence.FilterOnline(ctx, members)
		return len(online), err
	})

	c, err := h.cohorts.GetByID(ctx, cohortID)
	if err != nil {
		h.log.Warn("cohort load failed, progress metrics degraded to zero", logger.Err(err))
		return
	}

	stats.CohortProgressPercent = h.floatMetric("cohort_progress", func() (float64, error) {
		return h.cohortProgressPercent(ctx, c, len(members))
	})

	stats.WeeklyGoalsPercent = h.floatMetric("weekly_goals", func() (float64, error) {
		return h.weeklyGoalsPercent(ctx, c, members, now)
	})
}

// cohortProgressPercent: завершённые уроки когорты относительно
// (уроков в курсе x участников). Ноль, если любой множитель нулевой.
func (h *GetCommunityStatsHandler) cohortProgressPercent(ctx context.Context, c *cohort.Cohort, memberCount int) (float64, error) {
	lessonCount, err := h.lessons.CountByCourse(ctx, c.CourseID)
	if err != nil {
		return 0, err
	}
	if lessonCount == 0 || memberCount == 0 {
		return 0, nil
	}

	completed, err := h.progress.CountCompletedByCohort(ctx, c.ID)
	if err != nil {
		return 0, err
	}

	return float64(completed) / float64(lessonCount*memberCount) * 100, nil
}

// weeklyGoalsPercent: доля участников, завершивших ВСЕ уроки текущей недели.
// Участник без единого завершения на этой неделе и когорта без уроков
// на этой неделе дают ноль.
func (h *GetCommunityStatsHandler) weeklyGoalsPercent(ctx context.Context, c *cohort.Cohort, members []shared.UserID, now time.Time) (float64, error) {
	if len(members) == 0 {
		return 0, nil
	}

	// CurrentWeek считает с нуля, а недели уроков нумеруются с единицы.
	week := c.CurrentWeek(now) + 1
	weekLessons, err := h.lessons.GetByCourseWeek(ctx, c.CourseID, week)
	if err != nil {
		return 0, err
	}
	if len(weekLessons) == 0 {
		return 0, nil
	}

	lessonIDs := make([]shared.LessonID, 0, len(weekLessons))
	for _, l := range weekLessons {
		lessonIDs = append(lessonIDs, l.ID)
	}

	byMember, err := h.progress.CompletedLessonsByMember(ctx, c.ID, lessonIDs)
	if err != nil {
		return 0, err
	}

	achieved := 0
	for _, member := range members {
		completed := byMember[member]
		all := true
		for _, id := range lessonIDs {
			if !completed[id] {
				all = false
				break
			}
		}
		if all {
			achieved++
		}
	}

	return float64(achieved) / float64(len(members)) * 100, nil
}

// intMetric выполняет подзапрос с деградацией до нуля при ошибке.
func (h *GetCommunityStatsHandler) intMetric(name string, fn func() (int, error)) int {
	v, err := fn()
	if err != nil {
		h.log.Warn("metric query failed, degraded to zero", logger.String("metric", name), logger.Err(err))
		return 0
	}
	return v
}

// floatMetric выполняет подзапрос с деградацией до нуля при ошибке.
func (h *GetCommunityStatsHandler) floatMetric(name string, fn func() (float64, error)) float64 {
	v, err := fn()
	if err != nil {
		h.log.Warn("metric query failed, degraded to zero", logger.String("metric", name), logger.Err(err))
		return 0
	}
	return v
}
