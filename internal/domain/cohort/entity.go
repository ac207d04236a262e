// Package cohort содержит доменную модель когорты - ограниченного по времени
// запуска курса для группы учеников, со своим расписанием и ценообразованием.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package cohort

import (
	"strings"
	"time"

	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Status представляет жизненный цикл когорты.
// Статус вычисляется из дат при чтении; хранится только флаг отмены.
type Status string

const (
	// StatusUpcoming - когорта ещё не началась.
	StatusUpcoming Status = "upcoming"

	// StatusActive - когорта идёт прямо сейчас.
	StatusActive Status = "active"

	// StatusCompleted - когорта завершилась.
	StatusCompleted Status = "completed"

	// StatusCancelled - когорта отменена администратором (единственный хранимый статус).
	StatusCancelled Status = "cancelled"
)

// IsValid проверяет корректность статуса.
func (s Status) IsValid() bool {
	switch s {
	case StatusUpcoming, StatusActive, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// DeriveStatus вычисляет статус когорты как чистую функцию от трёх входов.
// Отмена - явный административный признак и всегда побеждает.
// Границы: старт включительно, конец исключительно.
func DeriveStatus(now, startDate, endDate time.Time, cancelled bool) Status {
	if cancelled {
		return StatusCancelled
	}
	if now.Before(startDate) {
		return StatusUpcoming
	}
	if !now.Before(endDate) {
		return StatusCompleted
	}
	return StatusActive
}

// DiscountType определяет способ вычисления скидки.
type DiscountType string

const (
	// DiscountPercentage - скидка в процентах от базовой цены.
	DiscountPercentage DiscountType = "percentage"

	// DiscountFixed - фиксированная сумма скидки.
	DiscountFixed DiscountType = "fixed"
)

// IsValid проверяет корректность типа скидки.
func (d DiscountType) IsValid() bool {
	return d == DiscountPercentage || d == DiscountFixed
}

// ══════════════════════════════════════════════════════════════════════════════
// PRICING CONFIG
// ══════════════════════════════════════════════════════════════════════════════

// EarlyBirdDiscount - скидка за раннюю покупку, привязанная к когорте.
// Действует независимо от купонов до момента ValidUntil.
type EarlyBirdDiscount struct {
	// Amount - величина скидки (проценты или фиксированная сумма).
	Amount float64

	// Type - тип скидки.
	Type DiscountType

	// ValidUntil - момент окончания действия (исключительно).
	ValidUntil time.Time
}

// IsActiveAt проверяет, действует ли скидка в указанный момент.
func (e *EarlyBirdDiscount) IsActiveAt(now time.Time) bool {
	if e == nil {
		return false
	}
	return now.Before(e.ValidUntil)
}

// PricingConfig - встроенная в когорту конфигурация ценообразования.
type PricingConfig struct {
	// BasePrice - базовая цена (неотрицательная).
	BasePrice float64

	// SpecialOffer - специальная цена; если задана и > 0,
	// заменяет BasePrice как базу для скидок.
	SpecialOffer float64

	// Currency - код валюты ISO 4217.
	Currency shared.Currency

	// IsFree - когорта бесплатна, вся логика скидок пропускается.
	IsFree bool

	// Tier - маркетинговая метка тарифа ("standard", "premium").
	Tier string

	// EarlyBird - опциональная скидка за раннюю покупку.
	EarlyBird *EarlyBirdDiscount
}

// DiscountBase возвращает базу для вычисления скидок:
// SpecialOffer, если задана и положительна, иначе BasePrice.
func (p PricingConfig) DiscountBase() float64 {
	if p.SpecialOffer > 0 {
		return p.SpecialOffer
	}
	return p.BasePrice
}

// Validate проверяет корректность конфигурации.
func (p PricingConfig) Validate() error {
	if p.BasePrice < 0 {
		return shared.NewDomainError("cohort", "Validate", shared.ErrNegativeValue, "base price cannot be negative")
	}
	if p.SpecialOffer < 0 {
		return shared.NewDomainError("cohort", "Validate", shared.ErrNegativeValue, "special offer cannot be negative")
	}
	if !p.IsFree && !p.Currency.Normalize().IsValid() {
		return shared.NewDomainError("cohort", "Validate", shared.ErrInvalidFormat, "currency must be a 3-letter ISO code")
	}
	if p.EarlyBird != nil && !p.EarlyBird.Type.IsValid() {
		return shared.NewDomainError("cohort", "Validate", shared.ErrInvalidInput, "early bird discount type must be percentage or fixed")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COUPON
// ══════════════════════════════════════════════════════════════════════════════

// Coupon - многоразовый код скидки с лимитом использований,
// привязанный к одной когорте.
type Coupon struct {
	// Code - код купона. Уникален внутри когорты без учёта регистра.
	Code string

	// Type - тип скидки.
	Type DiscountType

	// Value - величина скидки.
	Value float64

	// MinAmount - минимальная базовая цена для применения (0 = без минимума).
	MinAmount float64

	// ValidFrom - начало действия (включительно).
	ValidFrom time.Time

	// ValidUntil - конец действия (исключительно).
	ValidUntil time.Time

	// MaxUses - максимальное количество использований.
	MaxUses int

	// CurrentUses - текущее количество использований.
	// Инвариант: CurrentUses <= MaxUses, никогда не уменьшается.
	CurrentUses int

	// IsActive - купон включён администратором.
	IsActive bool
}

// Matches сравнивает код без учёта регистра.
func (c *Coupon) Matches(code string) bool {
	return strings.EqualFold(c.Code, strings.TrimSpace(code))
}

// IsRedeemableAt проверяет временное окно и лимит использований.
// Граница окна: ValidFrom включительно, ValidUntil исключительно.
func (c *Coupon) IsRedeemableAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if now.Before(c.ValidFrom) || !now.Before(c.ValidUntil) {
		return false
	}
	return c.CurrentUses < c.MaxUses
}

// MeetsMinAmount проверяет минимальную сумму относительно базы до скидок.
func (c *Coupon) MeetsMinAmount(base float64) bool {
	return c.MinAmount <= 0 || base >= c.MinAmount
}

// UsesLeft возвращает оставшееся количество использований.
func (c *Coupon) UsesLeft() int {
	left := c.MaxUses - c.CurrentUses
	if left < 0 {
		return 0
	}
	return left
}

// Reduction вычисляет сумму скидки купона от базы.
func (c *Coupon) Reduction(base float64) float64 {
	if c.Type == DiscountPercentage {
		return base * c.Value / 100
	}
	return c.Value
}

// FindCoupon ищет купон по коду без учёта регистра.
// Возвращает nil, если код не найден.
func FindCoupon(coupons []Coupon, code string) *Coupon {
	for i := range coupons {
		if coupons[i].Matches(code) {
			return &coupons[i]
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COHORT ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// DefaultReleaseHour - час локального времени, в который открываются уроки (08:00).
const DefaultReleaseHour = 8

// Cohort - ограниченный по времени запуск курса для группы учеников.
type Cohort struct {
	// ID - уникальный идентификатор когорты.
	ID shared.CohortID

	// CourseID - курс, к которому относится когорта.
	CourseID shared.CourseID

	// Name - отображаемое имя ("Autumn 2026").
	Name string

	// StartDate - начало когорты. Инвариант: StartDate < EndDate.
	StartDate time.Time

	// EndDate - конец когорты.
	EndDate time.Time

	// MaxStudents - вместимость когорты.
	MaxStudents int

	// CurrentStudents - текущее число учеников.
	// Счётчик best-effort: инкрементируется вне транзакции зачисления
	// и может отставать от реального числа Enrollment-записей.
	CurrentStudents int

	// Cancelled - административная отмена. Единственный хранимый статус.
	Cancelled bool

	// ReleaseHour - локальный час еженедельного открытия уроков.
	ReleaseHour int

	// Pricing - встроенная конфигурация ценообразования.
	Pricing PricingConfig

	// Coupons - купоны, привязанные к когорте.
	Coupons []Coupon

	// CreatedAt / UpdatedAt - служебные отметки времени.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCohort создаёт когорту с валидацией инвариантов.
func NewCohort(id shared.CohortID, courseID shared.CourseID, name string, start, end time.Time, maxStudents int, pricing PricingConfig) (*Cohort, error) {
	if id.IsEmpty() {
		return nil, shared.NewDomainError("cohort", "Create", shared.ErrInvalidID, "cohort ID is required")
	}
	if !courseID.IsValid() {
		return nil, shared.NewDomainError("cohort", "Create", shared.ErrInvalidID, "course ID is required")
	}
	if name == "" {
		return nil, shared.NewDomainError("cohort", "Create", shared.ErrEmptyValue, "cohort name is required")
	}
	if !start.Before(end) {
		return nil, shared.ErrInvalidCohortDates
	}
	if maxStudents <= 0 {
		return nil, shared.NewDomainError("cohort", "Create", shared.ErrValueOutOfRange, "max students must be positive")
	}
	if err := pricing.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Cohort{
		ID:          id,
		CourseID:    courseID,
		Name:        name,
		StartDate:   start,
		EndDate:     end,
		MaxStudents: maxStudents,
		ReleaseHour: DefaultReleaseHour,
		Pricing:     pricing,
		Coupons:     make([]Coupon, 0),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Status возвращает вычисленный статус когорты на момент now.
func (c *Cohort) Status(now time.Time) Status {
	return DeriveStatus(now, c.StartDate, c.EndDate, c.Cancelled)
}

// IsFull проверяет, достигнута ли вместимость (по best-effort счётчику).
func (c *Cohort) IsFull() bool {
	return c.CurrentStudents >= c.MaxStudents
}

// Cancel отменяет когорту.
func (c *Cohort) Cancel() {
	c.Cancelled = true
	c.UpdatedAt = time.Now().UTC()
}

// CurrentWeek возвращает номер текущей недели когорты как
// floor((now - StartDate) / 7 дней). В первые семь дней возвращает 0:
// недельные цели начинают считаться со второй недели, когда уроки
// первой недели уже полностью открыты.
func (c *Cohort) CurrentWeek(now time.Time) int {
	if now.Before(c.StartDate) {
		return 0
	}
	return int(now.Sub(c.StartDate) / (7 * 24 * time.Hour))
}
