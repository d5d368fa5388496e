package domain

import "time"

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// PromoCode is a discount rule. DiscountValue is a whole percent for percentage
// codes and cents for fixed codes. MaxUses == 0 means unlimited.
type PromoCode struct {
	ID            int64        `json:"id"`
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue int64        `json:"discount_value"`
	MinAmount     *int64       `json:"min_amount,omitempty"`
	MaxDiscount   *int64       `json:"max_discount,omitempty"`
	StartDate     *time.Time   `json:"start_date,omitempty"`
	EndDate       *time.Time   `json:"end_date,omitempty"`
	MaxUses       int          `json:"max_uses"`
	CurrentUses   int          `json:"current_uses"`
	MinPassengers *int         `json:"min_passengers,omitempty"`
	ValidDays     []string     `json:"valid_days,omitempty"`
	IsActive      bool         `json:"is_active"`
}

// Exhausted reports whether the usage limit has been reached.
func (p *PromoCode) Exhausted() bool {
	return p.MaxUses > 0 && p.CurrentUses >= p.MaxUses
}

// IncrementUses records one redemption on the snapshot. It refuses to go past MaxUses.
func (p *PromoCode) IncrementUses() error {
	if p.Exhausted() {
		return ErrPromoNotApplicable
	}
	p.CurrentUses++
	return nil
}
