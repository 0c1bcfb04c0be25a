package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dharmasatrya/milesvalue/internal/models"
)

const keyPrefix = "milesvalue:offers:"

// Cache stores aggregated offers per normalized search criteria.
type Cache interface {
	Get(ctx context.Context, criteria models.SearchCriteria) ([]models.UnifiedOffer, bool)
	Set(ctx context.Context, criteria models.SearchCriteria, offers []models.UnifiedOffer) error
	Close() error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     "localhost",
		Port:     "6379",
		Password: "",
		DB:       0,
		TTL:      5 * time.Minute,
	}
}

func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisCacheWithClient(client, cfg.TTL), nil
}

func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *RedisCache) Get(ctx context.Context, criteria models.SearchCriteria) ([]models.UnifiedOffer, bool) {
	data, err := c.client.Get(ctx, generateKey(criteria)).Bytes()
	if err != nil {
		return nil, false
	}

	var offers []models.UnifiedOffer
	if err := json.Unmarshal(data, &offers); err != nil {
		return nil, false
	}
	return offers, len(offers) > 0
}

func (c *RedisCache) Set(ctx context.Context, criteria models.SearchCriteria, offers []models.UnifiedOffer) error {
	if len(offers) == 0 {
		return errors.New("refusing to cache empty result")
	}

	data, err := json.Marshal(offers)
	if err != nil {
		return fmt.Errorf("encode offers: %w", err)
	}
	return c.client.Set(ctx, generateKey(criteria), data, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(ctx context.Context, criteria models.SearchCriteria) ([]models.UnifiedOffer, bool) {
	return nil, false
}

func (c *NoOpCache) Set(ctx context.Context, criteria models.SearchCriteria, offers []models.UnifiedOffer) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}

func generateKey(criteria models.SearchCriteria) string {
	c := criteria.Normalize()
	keyData := struct {
		Route         string
		DepartureDate string
		ReturnDate    string
		Passengers    models.Passengers
		CabinClass    models.CabinClass
		Currency      string
	}{
		Route:         c.Route.Key(),
		DepartureDate: c.DepartureDate,
		Passengers:    c.Passengers,
		CabinClass:    c.CabinClass,
		Currency:      c.Currency,
	}

	if c.ReturnDate != nil {
		keyData.ReturnDate = *c.ReturnDate
	}

	data, _ := json.Marshal(keyData)
	hash := sha256.Sum256(data)
	return keyPrefix + hex.EncodeToString(hash[:])
}
