// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/cohort"
	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ENROLLMENT CREATED HANDLER
// Обрабатывает событие зачисления ученика после подтверждения оплаты.
//
// Ключевые функции:
// 1. Инкремент best-effort счётчика учеников когорты
// 2. Отправка письма-подтверждения через внешний Mailer
//
// Оба эффекта сознательно вынесены из транзакции зачисления: счётчик
// eventually consistent, письмо может не уйти - запись Enrollment
// при этом остаётся источником истины.
// ═══════════════════════════════════════════════════════════════════════════

// Mailer - внешний коллаборатор отправки транзакционных писем.
// Реализация - в internal/infrastructure/external/mailer.
type Mailer interface {
	// SendEnrollmentConfirmation отправляет подтверждение зачисления.
	SendEnrollmentConfirmation(ctx context.Context, to string, vars map[string]string) error
}

// OnEnrollmentCreatedHandler обрабатывает событие зачисления.
type OnEnrollmentCreatedHandler struct {
	cohorts cohort.Repository
	mailer  Mailer
	logger  *slog.Logger

	// timeout ограничивает обращения к сторадж/почте из обработчика.
	timeout time.Duration
}

// NewOnEnrollmentCreatedHandler создаёт новый обработчик.
func NewOnEnrollmentCreatedHandler(cohorts cohort.Repository, mailer Mailer, logger *slog.Logger) *OnEnrollmentCreatedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnEnrollmentCreatedHandler{
		cohorts: cohorts,
		mailer:  mailer,
		logger:  logger,
		timeout: 10 * time.Second,
	}
}

// EventTypes возвращает типы событий, на которые подписан обработчик.
func (h *OnEnrollmentCreatedHandler) EventTypes() []shared.EventType {
	return []shared.EventType{shared.EventEnrollmentCreated}
}

// Handle обрабатывает событие. Ошибки эффектов логируются и не
// пробрасываются - шина не ретраит зачисление из-за счётчика или письма.
func (h *OnEnrollmentCreatedHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.EnrollmentCreatedEvent)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.cohorts.IncrementStudents(ctx, shared.CohortID(e.CohortID)); err != nil {
		h.logger.Warn("student counter increment failed",
			"cohort_id", e.CohortID,
			"enrollment_id", e.EnrollmentID,
			"error", err)
	}

	if h.mailer != nil && e.Email != "" {
		vars := map[string]string{
			"cohort_id":     e.CohortID,
			"course_id":     e.CourseID,
			"enrollment_id": e.EnrollmentID,
		}
		if err := h.mailer.SendEnrollmentConfirmation(ctx, e.Email, vars); err != nil {
			h.logger.Warn("enrollment confirmation email failed",
				"enrollment_id", e.EnrollmentID,
				"error", err)
		}
	}

	return nil
}
