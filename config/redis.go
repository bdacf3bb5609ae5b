package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/cqrs-es-go/redisview"
)

// RedisConfig holds the Redis connection settings of the view repository.
type RedisConfig struct {
	Addr        string        `env:"CQRS_REDIS_ADDR"         envDefault:"localhost:6379"`
	Password    string        `env:"CQRS_REDIS_PASSWORD"`
	DB          int           `env:"CQRS_REDIS_DB"           envDefault:"0"`
	KeyPrefix   string        `env:"CQRS_REDIS_KEY_PREFIX"   envDefault:"cqrs:view:"`
	DialTimeout time.Duration `env:"CQRS_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
}

// LoadRedisConfig reads the CQRS_REDIS_* variables.
func LoadRedisConfig() (RedisConfig, error) {
	cfg, err := env.ParseAs[RedisConfig]()
	if err != nil {
		return RedisConfig{}, errors.Join(ErrLoadingConfigFailed, err)
	}

	return cfg, nil
}

// NewClient creates a client, it connects lazily on the first command.
func (c RedisConfig) NewClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: c.DialTimeout,
	})
}

// RepositoryOptions returns the key prefix option for redisview.
func (c RedisConfig) RepositoryOptions() []redisview.Option {
	return []redisview.Option{redisview.WithKeyPrefix(c.KeyPrefix)}
}
