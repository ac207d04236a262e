package cohort

import (
	"context"

	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// Repository определяет контракт хранилища когорт.
// Реализация - в internal/infrastructure/persistence/postgres.
type Repository interface {
	// GetByID возвращает когорту по ID.
	// Возвращает shared.ErrCohortNotFound, если когорта не найдена.
	GetByID(ctx context.Context, id shared.CohortID) (*Cohort, error)

	// GetByCourse возвращает когорты курса (не более limit).
	GetByCourse(ctx context.Context, courseID shared.CourseID, limit int) ([]*Cohort, error)

	// Save сохраняет когорту (upsert по ID).
	Save(ctx context.Context, c *Cohort) error

	// RedeemCoupon атомарно инкрементирует CurrentUses купона.
	// Перечитывает список купонов когорты под блокировкой строки,
	// повторно валидирует купон на момент now и записывает массив обратно.
	// Возвращает обновлённый купон или доменную ошибку валидации.
	RedeemCoupon(ctx context.Context, id shared.CohortID, couponCode string, fn RedeemFunc) (*Coupon, error)

	// IncrementStudents инкрементирует best-effort счётчик учеников.
	IncrementStudents(ctx context.Context, id shared.CohortID) error
}

// RedeemFunc валидирует купон внутри транзакции погашения.
// Получает найденный по коду купон (nil, если кода нет) и решает,
// можно ли его погасить. Возвращённая ошибка откатывает запись.
type RedeemFunc func(c *Coupon) error
