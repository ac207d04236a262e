package community

import (
	"context"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// QuestionRepository - контракт хранилища вопросов.
type QuestionRepository interface {
	// Save сохраняет вопрос.
	Save(ctx context.Context, q *Question) error

	// CountSince возвращает количество вопросов, созданных не раньше since.
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// PresenceTracker - контракт отслеживания присутствия онлайн.
// Реализация - в internal/infrastructure/persistence/redis.
type PresenceTracker interface {
	// Touch отмечает активность пользователя (heartbeat).
	Touch(ctx context.Context, userID shared.UserID) error

	// CountOnline возвращает число пользователей онлайн
	// (активность в пределах окна за последние пять минут).
	CountOnline(ctx context.Context) (int, error)

	// FilterOnline возвращает подмножество userIDs, находящихся онлайн.
	FilterOnline(ctx context.Context, userIDs []shared.UserID) ([]shared.UserID, error)
}
