package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

type RedisConfig struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	MinIdleConns int
	ReadTimeout  time.Duration
	MaxRetries   int
}

// InitializeRedis connects to the Redis server at url.
func InitializeRedis(url string) (*redis.Client, error) {
	client, err := NewRedisClient(LoadRedisConfig(url))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}
	logrus.Info("Redis connection initialized successfully")
	return client, nil
}

// LoadRedisConfig reads pool tuning from the environment with default fallbacks
func LoadRedisConfig(url string) RedisConfig {
	return RedisConfig{
		URL:          url,
		PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
		DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 30*time.Second),
		MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 10*time.Second),
		MaxRetries:   getEnvAsInt("REDIS_MAX_RETRIES", 3),
	}
}

func getEnvAsInt(name string, defaultValue int) int {
	if value, exists := os.LookupEnv(name); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.Warnf("Invalid integer value for %s, using default: %d", name, defaultValue)
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(name); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
		logrus.Warnf("Invalid duration value for %s, using default: %s", name, defaultValue)
	}
	return defaultValue
}

// NewRedisClient creates a Redis client with the provided configuration
func NewRedisClient(config RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = config.PoolSize
	opt.MinIdleConns = config.MinIdleConns
	opt.DialTimeout = config.DialTimeout
	opt.ReadTimeout = config.ReadTimeout
	opt.MaxRetries = config.MaxRetries

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis server: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"pool_size":      config.PoolSize,
		"min_idle_conns": config.MinIdleConns,
		"dial_timeout":   config.DialTimeout.String(),
		"read_timeout":   config.ReadTimeout.String(),
		"max_retries":    config.MaxRetries,
	}).Info("Redis client configured")
	return client, nil
}

const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// RedisLocker hands out short-lived distributed locks.
type RedisLocker struct {
	client  *redis.Client
	release *redis.Script
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, release: redis.NewScript(releaseLockScript)}
}

// NewLock acquires the lock key for value; false means someone else holds it.
func (l *RedisLocker) NewLock(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	if l.client == nil {
		return false, errors.New("Redis client is not initialized")
	}
	return l.client.SetNX(ctx, key, value, ttl).Result()
}

// ReleaseLock deletes key only if it is still owned by value.
func (l *RedisLocker) ReleaseLock(ctx context.Context, key string, value string) error {
	if l.client == nil {
		return errors.New("Redis client is not initialized")
	}
	result, err := l.release.Run(ctx, l.client, []string{key}, value).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if result == 0 {
		return errors.New("lock release failed: not the lock owner")
	}
	return nil
}

// MonitorRedisPool logs the connection pool statistics for monitoring
func MonitorRedisPool(client *redis.Client) {
	stats := client.PoolStats()
	logrus.WithFields(logrus.Fields{
		"total": stats.TotalConns,
		"idle":  stats.IdleConns,
		"stale": stats.StaleConns,
	}).Info("Redis pool stats")
}
