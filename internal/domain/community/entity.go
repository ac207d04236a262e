// Package community содержит доменную модель активности сообщества:
// вопросы учеников, присутствие онлайн и сводную статистику вовлечённости.
// Чистый доменный слой без внешних зависимостей.
package community

import (
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION
// ══════════════════════════════════════════════════════════════════════════════

// Question - вопрос ученика в сообществе курса.
// Для статистики важны только автор, курс и момент создания.
type Question struct {
	ID        string
	UserID    shared.UserID
	CourseID  shared.CourseID
	Title     string
	CreatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGAGEMENT TIER
// ══════════════════════════════════════════════════════════════════════════════

// Tier - грубая классификация объёма недавней активности когорты.
type Tier string

const (
	// TierHigh - высокая вовлечённость (score >= 50).
	TierHigh Tier = "High"

	// TierMedium - средняя вовлечённость (20 <= score < 50).
	TierMedium Tier = "Medium"

	// TierLow - низкая вовлечённость (score < 20).
	TierLow Tier = "Low"
)

// Пороги классификации. Фиксированные константы, не настраиваются.
const (
	tierHighThreshold   = 50
	tierMediumThreshold = 20
)

// ClassifyTier вычисляет уровень вовлечённости из суммарного балла.
// Границы: ровно 50 - High, ровно 20 - Medium.
func ClassifyTier(score int) Tier {
	switch {
	case score >= tierHighThreshold:
		return TierHigh
	case score >= tierMediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMUNITY STATS
// ══════════════════════════════════════════════════════════════════════════════

// Stats - полный снимок вовлечённости сообщества на момент GeneratedAt.
// Снимок всегда полон: при отказе отдельного подзапроса соответствующая
// метрика деградирует до нуля, а не срывает агрегацию.
type Stats struct {
	// AcademyUsersOnline - пользователи онлайн по всей академии
	// (last seen в пределах пяти минут).
	AcademyUsersOnline int `json:"academy_users_online"`

	// CohortActiveUsers - онлайн среди активных участников когорты.
	CohortActiveUsers int `json:"cohort_active_users"`

	// QuestionsLastWeek - вопросов за последние семь дней.
	QuestionsLastWeek int `json:"questions_last_week"`

	// HotStreak - уникальных пользователей с завершением урока сегодня.
	HotStreak int `json:"hot_streak"`

	// CommunityBuzz - вопросов за последние 24 часа.
	CommunityBuzz int `json:"community_buzz"`

	// CohortProgressPercent - завершённые уроки когорты относительно
	// (уроков в курсе x участников), в процентах.
	CohortProgressPercent float64 `json:"cohort_progress_percent"`

	// WeeklyGoalsPercent - доля участников, завершивших все уроки
	// текущей недели, в процентах.
	WeeklyGoalsPercent float64 `json:"weekly_goals_percent"`

	// EngagementScore - уровень вовлечённости.
	EngagementScore Tier `json:"engagement_score"`

	// GeneratedAt - момент формирования снимка.
	GeneratedAt time.Time `json:"generated_at"`
}

// Score возвращает суммарный балл вовлечённости:
// вопросы за неделю + hot streak + buzz.
func (s Stats) Score() int {
	return s.QuestionsLastWeek + s.HotStreak + s.CommunityBuzz
}
