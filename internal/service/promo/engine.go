// Package promo validates promotional codes and computes discounts.
//
// IsValid and CalculateDiscount are pure: they read a snapshot of the code and never
// touch its usage counter. Redemption happens in the booking repository.
package promo

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

func IsValid(p *domain.PromoCode, now time.Time) bool {
	return validate(p, now) == nil
}

func validate(p *domain.PromoCode, now time.Time) error {
	if p == nil {
		return fmt.Errorf("no code: %w", domain.ErrPromoNotApplicable)
	}
	if !p.IsActive {
		return fmt.Errorf("%s inactive: %w", p.Code, domain.ErrPromoNotApplicable)
	}
	if p.StartDate != nil && now.Before(*p.StartDate) {
		return fmt.Errorf("%s not started: %w", p.Code, domain.ErrPromoNotApplicable)
	}
	if p.EndDate != nil && now.After(*p.EndDate) {
		return fmt.Errorf("%s expired: %w", p.Code, domain.ErrPromoNotApplicable)
	}
	if p.Exhausted() {
		return fmt.Errorf("%s usage limit reached: %w", p.Code, domain.ErrPromoNotApplicable)
	}
	if len(p.ValidDays) > 0 && !validOn(p.ValidDays, now.Weekday()) {
		return fmt.Errorf("%s not valid on %s: %w", p.Code, now.Weekday(), domain.ErrPromoNotApplicable)
	}
	return nil
}

func validOn(days []string, wd time.Weekday) bool {
	for _, d := range days {
		if strings.EqualFold(strings.TrimSpace(d), wd.String()) {
			return true
		}
	}
	return false
}

// Evaluate returns the discount for a purchase, or an error wrapping
// ErrPromoNotApplicable that says why the code does not apply.
func Evaluate(p *domain.PromoCode, amount int64, passengerCount int, now time.Time) (int64, error) {
	if err := validate(p, now); err != nil {
		return 0, err
	}
	if p.MinAmount != nil && amount < *p.MinAmount {
		return 0, fmt.Errorf("%s requires amount %d: %w", p.Code, *p.MinAmount, domain.ErrPromoNotApplicable)
	}
	if p.MinPassengers != nil && passengerCount < *p.MinPassengers {
		return 0, fmt.Errorf("%s requires %d passengers: %w", p.Code, *p.MinPassengers, domain.ErrPromoNotApplicable)
	}

	var discount int64
	switch p.DiscountType {
	case domain.DiscountPercentage:
		discount = int64(math.Round(float64(p.DiscountValue) / 100 * float64(amount)))
	case domain.DiscountFixed:
		discount = p.DiscountValue
	default:
		return 0, fmt.Errorf("%s has unknown discount type %q: %w", p.Code, p.DiscountType, domain.ErrPromoNotApplicable)
	}

	if p.MaxDiscount != nil && discount > *p.MaxDiscount {
		discount = *p.MaxDiscount
	}
	if discount > amount {
		discount = amount
	}
	if discount < 0 {
		discount = 0
	}
	return discount, nil
}

// CalculateDiscount is Evaluate with the reason dropped: zero when the code does not apply.
func CalculateDiscount(p *domain.PromoCode, amount int64, passengerCount int, now time.Time) int64 {
	discount, err := Evaluate(p, amount, passengerCount, now)
	if err != nil {
		return 0
	}
	return discount
}
