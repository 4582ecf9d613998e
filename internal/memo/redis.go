package memo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const keyPrefix = "dashboard:calc:"

// Redis stores results in redis. Calls go through a circuit breaker so an
// unreachable server fails fast instead of slowing every calculation.
type Redis struct {
	client  redis.Cmdable
	breaker *gobreaker.CircuitBreaker
}

// NewRedis wraps client.
func NewRedis(client redis.Cmdable) *Redis {
	st := gobreaker.Settings{
		Name:     "memo-redis",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	}
	return &Redis{client: client, breaker: gobreaker.NewCircuitBreaker(st)}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.breaker.Execute(func() (any, error) {
		val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return val, err
	})
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	val, _ := v.([]byte)
	if val == nil {
		return nil, false, nil
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := r.breaker.Execute(func() (any, error) {
		return nil, r.client.Set(ctx, keyPrefix+key, value, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// State reports the breaker state.
func (r *Redis) State() gobreaker.State {
	return r.breaker.State()
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// New returns a redis cache when addr is set and reachable, and a bounded
// in-memory cache otherwise.
func New(ctx context.Context, addr string, memoryEntries int) Cache {
	if addr == "" {
		return NewMemory(memoryEntries)
	}
	client, err := Dial(ctx, addr)
	if err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("redis unavailable, using in-memory memo cache")
		return NewMemory(memoryEntries)
	}
	log.Info().Str("addr", addr).Msg("using redis memo cache")
	return NewRedis(client)
}
