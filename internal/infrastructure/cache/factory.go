package cache

import (
	"fmt"

	"github.com/tilbakekreving/backend/internal/domain/iverksettelse"
	"github.com/tilbakekreving/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SendevaktFactory creates dispatch guards based on configuration
type SendevaktFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SendevaktFactoryOption is a functional option for configuring the factory
type SendevaktFactoryOption func(*SendevaktFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SendevaktFactoryOption {
	return func(f *SendevaktFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory guard
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) SendevaktFactoryOption {
	return func(f *SendevaktFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSendevaktFactory creates a new factory
func NewSendevaktFactory(cfg config.RedisConfig, opts ...SendevaktFactoryOption) *SendevaktFactory {
	f := &SendevaktFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisVakt creates a Redis-based dispatch guard
func (f *SendevaktFactory) CreateRedisVakt() (iverksettelse.Sendevakt, error) {
	vakt, err := NewRedisSendevakt(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis dispatch guard: %w", err)
	}
	return vakt, nil
}

// CreateInMemoryVakt creates an in-memory dispatch guard.
// In-memory guards do not share state across process instances, so a
// multi-instance deployment relies on the remote system's EksternRef
// deduplication instead.
func (f *SendevaktFactory) CreateInMemoryVakt() iverksettelse.Sendevakt {
	return NewInMemorySendevakt()
}

// CreateVakt tries Redis first and falls back to in-memory if Redis is
// unavailable and fallback is allowed.
func (f *SendevaktFactory) CreateVakt() (iverksettelse.Sendevakt, error) {
	vakt, err := f.CreateRedisVakt()
	if err == nil {
		f.logger.Info("using Redis dispatch guard",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port))
		return vakt, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis unavailable and in-memory fallback disabled: %w", err)
	}

	f.logger.Warn("redis unavailable, falling back to in-memory dispatch guard",
		zap.Error(err))
	return f.CreateInMemoryVakt(), nil
}
