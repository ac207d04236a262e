package query

import (
	"context"
	"errors"

	"github.com/cohort-hub/cohort-engine/internal/domain/progress"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STREAK QUERY
// Возвращает серию завершений ученика по курсу. Сама арифметика серии -
// чистая функция progress.ComputeStreak; здесь только загрузка истории.
// ══════════════════════════════════════════════════════════════════════════════

// GetStreakQuery содержит параметры запроса серии.
type GetStreakQuery struct {
	// UserID - ученик.
	UserID string

	// CourseID - курс, по которому считается серия.
	CourseID string
}

// Validate проверяет корректность параметров.
func (q GetStreakQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_streak: user_id is required")
	}
	if q.CourseID == "" {
		return errors.New("get_streak: course_id is required")
	}
	return nil
}

// GetStreakHandler обрабатывает запросы серии.
type GetStreakHandler struct {
	repo  progress.Repository
	clock shared.Clock
}

// NewGetStreakHandler создаёт новый обработчик.
func NewGetStreakHandler(repo progress.Repository, clock shared.Clock) *GetStreakHandler {
	return &GetStreakHandler{repo: repo, clock: clock}
}

// Handle выполняет запрос.
func (h *GetStreakHandler) Handle(ctx context.Context, q GetStreakQuery) (*progress.StreakResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetStreak", shared.ErrValidation, err.Error(), err)
	}

	completions, err := h.repo.GetCompletionsByUser(ctx, shared.UserID(q.UserID), shared.CourseID(q.CourseID))
	if err != nil {
		return nil, shared.WrapError("query", "GetStreak", shared.ErrExternalService, "failed to load completions", err)
	}

	result := progress.ComputeStreak(completions, h.clock.Now())
	return &result, nil
}
