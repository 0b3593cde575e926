package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tilbakekreving/backend/internal/domain/iverksettelse"
)

// ackTTL bounds how long a recorded acknowledgement is kept. It comfortably
// outlasts the full retry backoff table, so any retry that should
// short-circuit will still find the record.
const ackTTL = 7 * 24 * time.Hour

// RedisSendevakt implements iverksettelse.Sendevakt using Redis. Suitable for
// deployments where several dispatcher instances poll the same queue.
type RedisSendevakt struct {
	client    *redis.Client
	keyPrefix string
	ackPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisSendevakt creates a new Redis-based dispatch guard
func NewRedisSendevakt(cfg RedisConfig) (*RedisSendevakt, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSendevakt{
		client:    client,
		keyPrefix: "utsending:vakt:",
		ackPrefix: "utsending:ack:",
	}, nil
}

// NewRedisSendevaktWithClient creates a guard with an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewRedisSendevaktWithClient(client *redis.Client, keyPrefix string) *RedisSendevakt {
	if keyPrefix == "" {
		keyPrefix = "utsending:vakt:"
	}
	return &RedisSendevakt{
		client:    client,
		keyPrefix: keyPrefix,
		ackPrefix: keyPrefix + "ack:",
	}
}

// Acquire implements iverksettelse.Sendevakt. SETNX with TTL makes the claim
// atomic across instances.
func (s *RedisSendevakt) Acquire(ctx context.Context, utsendingID uuid.UUID, ttl time.Duration) (bool, error) {
	key := s.keyPrefix + utsendingID.String()

	won, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire dispatch guard: %w", err)
	}
	return won, nil
}

// Release implements iverksettelse.Sendevakt
func (s *RedisSendevakt) Release(ctx context.Context, utsendingID uuid.UUID) error {
	key := s.keyPrefix + utsendingID.String()
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release dispatch guard: %w", err)
	}
	return nil
}

// MarkAcked implements iverksettelse.Sendevakt
func (s *RedisSendevakt) MarkAcked(ctx context.Context, eksternRef string, kvitteringID string) error {
	key := s.ackPrefix + eksternRef
	if err := s.client.Set(ctx, key, kvitteringID, ackTTL).Err(); err != nil {
		return fmt.Errorf("failed to record dispatch acknowledgement: %w", err)
	}
	return nil
}

// Acked implements iverksettelse.Sendevakt
func (s *RedisSendevakt) Acked(ctx context.Context, eksternRef string) (string, bool, error) {
	key := s.ackPrefix + eksternRef
	kvitteringID, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up dispatch acknowledgement: %w", err)
	}
	return kvitteringID, true, nil
}

// Close closes the Redis client
func (s *RedisSendevakt) Close() error {
	return s.client.Close()
}

var _ iverksettelse.Sendevakt = (*RedisSendevakt)(nil)
