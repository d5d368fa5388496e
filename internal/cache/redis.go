package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache holds read-side snapshots only. Seat ownership is never cached: the
// database row is the single authority for claims.
type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
	promoTTL   time.Duration
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL, promoTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL: flightsTTL,
		promoTTL:   promoTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	var flights []domain.Flight
	ok, err := c.getJSON(ctx, flightsKey(), &flights)
	if err != nil || !ok {
		return nil, err
	}
	return flights, nil
}

func (c *RedisCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	return c.setJSON(ctx, flightsKey(), flights, c.flightsTTL)
}

func (c *RedisCache) GetPromo(ctx context.Context, code string) (*domain.PromoCode, error) {
	var p domain.PromoCode
	ok, err := c.getJSON(ctx, promoKey(code), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (c *RedisCache) SetPromo(ctx context.Context, p *domain.PromoCode) error {
	return c.setJSON(ctx, promoKey(p.Code), p, c.promoTTL)
}

func (c *RedisCache) DeletePromo(ctx context.Context, code string) error {
	return c.client.Del(ctx, promoKey(code)).Err()
}

func (c *RedisCache) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func flightsKey() string {
	return "cache:flights"
}

func promoKey(code string) string {
	return "cache:promo:" + strings.ToUpper(code)
}
