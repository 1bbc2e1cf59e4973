package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	Addr         string        `json:"addr" yaml:"addr" env:"SCOREKIT_REDIS_ADDR"`
	Password     string        `json:"password" yaml:"password" env:"SCOREKIT_REDIS_PASSWORD"`
	DB           int           `json:"db" yaml:"db" env:"SCOREKIT_REDIS_DB"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size" env:"SCOREKIT_REDIS_POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns" env:"SCOREKIT_REDIS_MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout" env:"SCOREKIT_REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" env:"SCOREKIT_REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" env:"SCOREKIT_REDIS_WRITE_TIMEOUT"`
}

// DefaultConfig returns sensible defaults for Redis configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Tokens implements the token.Store interface on Redis. Pending tokens ride
// on native key TTL for expiry; the consumed marker outlives the token to
// block replay.
//
// Keys:
//   - token:{id}:pending  -> "1", EX token TTL
//   - token:{id}:consumed -> "1", EX retention
type Tokens struct {
	client *redis.Client
}

// NewTokens connects to Redis and verifies the connection.
func NewTokens(cfg Config) (*Tokens, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Tokens{client: client}, nil
}

// NewTokensWithClient wraps an existing client (useful for testing).
func NewTokensWithClient(client *redis.Client) *Tokens {
	return &Tokens{client: client}
}

// Close closes the Redis connection.
func (t *Tokens) Close() error { return t.client.Close() }

func pendingKey(id string) string  { return fmt.Sprintf("token:%s:pending", id) }
func consumedKey(id string) string { return fmt.Sprintf("token:%s:consumed", id) }

// consumeScript flips pending -> consumed in one server-side step, so two
// concurrent consumers can never both observe the pending key.
var consumeScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[2]) == 1 then
		return 0
	end
	if redis.call('DEL', KEYS[1]) == 1 then
		redis.call('SET', KEYS[2], '1', 'EX', ARGV[1])
		return 1
	end
	return 0
`)

func (t *Tokens) Save(ctx context.Context, id string, ttl time.Duration) error {
	ok, err := t.client.SetNX(ctx, pendingKey(id), "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if !ok {
		return fmt.Errorf("token id collision: %s", id)
	}
	return nil
}

func (t *Tokens) Consume(ctx context.Context, id string, retain time.Duration) (bool, error) {
	seconds := int64(retain / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	result, err := consumeScript.Run(ctx, t.client, []string{pendingKey(id), consumedKey(id)}, seconds).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume token: %w", err)
	}
	n, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type from Redis script")
	}
	return n == 1, nil
}
