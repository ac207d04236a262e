package cohort

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRICING ENGINE
// Чистая функция вычисления цены: (конфигурация, момент времени, купон) -> Quote.
// Никакого I/O и никаких обращений к глобальным часам - момент "сейчас"
// передаётся явно, чтобы результат был воспроизводимым в тестах.
// ══════════════════════════════════════════════════════════════════════════════

// Сообщения об ошибках валидации купона. Это не ошибки Go:
// вычисление цены никогда не падает из-за плохого купона,
// сообщение возвращается внутри Quote и показывается рядом с полем ввода.
const (
	// MsgInvalidCoupon - купон не найден, неактивен, истёк или исчерпан.
	MsgInvalidCoupon = "Invalid or expired coupon code"

	// MsgMinAmountNotMet - базовая цена ниже минимума купона.
	MsgMinAmountNotMet = "Order amount is below the coupon minimum"
)

// Quote - результат вычисления цены.
type Quote struct {
	// OriginalPrice - база для скидок (SpecialOffer или BasePrice).
	OriginalPrice float64 `json:"original_price"`

	// FinalPrice - итоговая цена, никогда не отрицательная.
	FinalPrice float64 `json:"final_price"`

	// Discount - суммарная скидка (early-bird + купон).
	Discount float64 `json:"discount"`

	// Currency - валюта цены.
	Currency string `json:"currency"`

	// AppliedCoupon - применённый купон (nil, если купон не применён).
	AppliedCoupon *Coupon `json:"applied_coupon,omitempty"`

	// AppliedEarlyBird - применена ли скидка за раннюю покупку.
	AppliedEarlyBird bool `json:"applied_early_bird"`

	// Message - сообщение о проблеме с купоном (пустое = без проблем).
	// Скидка early-bird действует даже при невалидном купоне.
	Message string `json:"message,omitempty"`
}

// HasCouponError сообщает, была ли проблема с купоном.
func (q Quote) HasCouponError() bool {
	return q.Message != ""
}

// ComputePrice вычисляет итоговую цену когорты на момент now.
//
// Алгоритм:
//  1. Бесплатная когорта - всё по нулям, дальше не считаем.
//  2. База = SpecialOffer (если задана и > 0), иначе BasePrice.
//  3. Early-bird, если действует, считается от базы.
//  4. Купон ищется без учёта регистра среди доступных; невалидный купон
//     не срывает вычисление - early-bird остаётся, в Quote пишется Message.
//  5. Скидка купона тоже считается от базы, а не от цены после early-bird:
//     скидки складываются, а не компаундятся, чтобы итог не зависел
//     от порядка применения.
//  6. Итог ограничивается нулём снизу.
//
// Функция чистая: не мутирует входные данные и не делает I/O.
func ComputePrice(pricing PricingConfig, now time.Time, couponCode string, available []Coupon) Quote {
	currency := pricing.Currency.String()

	if pricing.IsFree {
		return Quote{Currency: currency}
	}

	base := pricing.DiscountBase()
	quote := Quote{
		OriginalPrice: base,
		FinalPrice:    base,
		Currency:      currency,
	}

	var discount float64

	if pricing.EarlyBird.IsActiveAt(now) {
		if pricing.EarlyBird.Type == DiscountPercentage {
			discount += base * pricing.EarlyBird.Amount / 100
		} else {
			discount += pricing.EarlyBird.Amount
		}
		quote.AppliedEarlyBird = true
	}

	if couponCode != "" {
		coupon := FindCoupon(available, couponCode)
		switch {
		case coupon == nil || !coupon.IsRedeemableAt(now):
			quote.Message = MsgInvalidCoupon
		case !coupon.MeetsMinAmount(base):
			quote.Message = MsgMinAmountNotMet
		default:
			matched := *coupon
			discount += matched.Reduction(base)
			quote.AppliedCoupon = &matched
		}
	}

	quote.Discount = discount
	quote.FinalPrice = base - discount
	if quote.FinalPrice < 0 {
		quote.FinalPrice = 0
	}

	return quote
}
