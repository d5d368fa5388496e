package promo

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
)

type Cache interface {
	GetPromo(ctx context.Context, code string) (*domain.PromoCode, error)
	SetPromo(ctx context.Context, promo *domain.PromoCode) error
	DeletePromo(ctx context.Context, code string) error
}

type PromoUseCase interface {
	Lookup(ctx context.Context, code string) (*domain.PromoCode, error)
	Quote(ctx context.Context, code string, amount int64, passengerCount int) (*Quote, error)
	Invalidate(ctx context.Context, code string)
}

// Quote is a non-committing discount preview.
type Quote struct {
	Code           string `json:"code"`
	Amount         int64  `json:"amount"`
	DiscountAmount int64  `json:"discount_amount"`
	FinalAmount    int64  `json:"final_amount"`
	Applicable     bool   `json:"applicable"`
	Reason         string `json:"reason,omitempty"`
}

type Service struct {
	repo  repository.PromoRepository
	cache Cache
	clock domain.Clock
	log   *slog.Logger
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithClock(c domain.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(repo repository.PromoRepository, opts ...Option) *Service {
	s := &Service{repo: repo, clock: domain.SystemClock(), log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup returns the current snapshot of a code, reading through the cache.
func (s *Service) Lookup(ctx context.Context, code string) (*domain.PromoCode, error) {
	code = normalize(code)
	if code == "" {
		return nil, domain.ErrNotFound
	}
	if s.cache != nil {
		if cached, err := s.cache.GetPromo(ctx, code); err == nil && cached != nil {
			return cached, nil
		} else if err != nil {
			s.log.Warn("promo cache read failed", "code", code, "error", err)
		}
	}

	p, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetPromo(ctx, p); err != nil {
			s.log.Warn("promo cache write failed", "code", code, "error", err)
		}
	}
	return p, nil
}

func (s *Service) Quote(ctx context.Context, code string, amount int64, passengerCount int) (*Quote, error) {
	if amount < 0 || passengerCount < 0 {
		return nil, domain.ErrInvalidInput
	}
	q := &Quote{Code: normalize(code), Amount: amount, FinalAmount: amount}

	p, err := s.Lookup(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		q.Reason = "unknown code"
		return q, nil
	}
	if err != nil {
		return nil, err
	}

	discount, err := Evaluate(p, amount, passengerCount, s.clock.Now())
	if err != nil {
		q.Reason = err.Error()
		return q, nil
	}
	q.Applicable = discount > 0
	q.DiscountAmount = discount
	q.FinalAmount = amount - discount
	return q, nil
}

// Invalidate drops the cached snapshot after a redemption changed current_uses.
func (s *Service) Invalidate(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePromo(ctx, normalize(code)); err != nil {
		s.log.Warn("promo cache invalidation failed", "code", code, "error", err)
	}
}

var _ PromoUseCase = (*Service)(nil)
