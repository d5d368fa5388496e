package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

type PromoRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.PromoCode, error)
}

type PGPromoRepository struct {
	db DBConn
}

func NewPromoRepository(db DBConn) PromoRepository {
	return &PGPromoRepository{db: db}
}

func (r *PGPromoRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	var p domain.PromoCode
	err := r.db.QueryRow(ctx, `SELECT id, code, discount_type, discount_value, min_amount, max_discount, start_date, end_date, max_uses, current_uses, min_passengers, valid_days, is_active FROM promo_codes WHERE upper(code) = upper($1)`, code).
		Scan(&p.ID, &p.Code, &p.DiscountType, &p.DiscountValue, &p.MinAmount, &p.MaxDiscount, &p.StartDate, &p.EndDate, &p.MaxUses, &p.CurrentUses, &p.MinPassengers, &p.ValidDays, &p.IsActive)
	if err != nil {
		return nil, notFound(err, "promo code")
	}
	return &p, nil
}

// incrementPromoUsesTx commits one redemption. It refuses to exceed max_uses, so a
// code exhausted by a concurrent booking reports ErrPromoNotApplicable.
func incrementPromoUsesTx(ctx context.Context, tx execer, promoID int64) error {
	res, err := tx.Exec(ctx, `UPDATE promo_codes SET current_uses = current_uses + 1 WHERE id = $1 AND is_active AND (max_uses = 0 OR current_uses < max_uses)`, promoID)
	if err != nil {
		return fmt.Errorf("failed to redeem promo code: %w", err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("promo %d exhausted: %w", promoID, domain.ErrPromoNotApplicable)
	}
	return nil
}

var _ PromoRepository = (*PGPromoRepository)(nil)
