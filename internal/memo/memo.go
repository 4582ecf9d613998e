// Package memo caches calculation results keyed by a hash of their inputs.
package memo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/rs/zerolog/log"
)

// Cache stores encoded results.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key hashes input under the calculator's name. Nil pointers hash like
// zero values, so pass inputs with defaults already applied.
func Key(calculator string, input any) (string, error) {
	h, err := hashstructure.Hash(struct {
		Calculator string
		Input      any
	}{calculator, input}, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("hash %s input: %w", calculator, err)
	}
	return calculator + ":" + strconv.FormatUint(h, 16), nil
}

// Do returns the cached result for key, or computes, stores and returns it.
// Cache failures are logged and never fail the call. hit reports whether the
// result came from the cache.
func Do[T any](ctx context.Context, c Cache, key string, ttl time.Duration, compute func() T) (result T, hit bool) {
	if c == nil {
		return compute(), false
	}

	raw, ok, err := c.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("memo cache get failed")
	}
	if ok {
		if err := json.Unmarshal(raw, &result); err == nil {
			return result, true
		}
		log.Warn().Str("key", key).Msg("memo cache held an undecodable value")
	}

	result = compute()
	encoded, err := json.Marshal(result)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("memo encode failed")
		return result, false
	}
	if err := c.Set(ctx, key, encoded, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("memo cache set failed")
	}
	return result, false
}

type entry struct {
	value   []byte
	expires time.Time
}

// Memory is a bounded in-process cache.
type Memory struct {
	mu    sync.Mutex
	max   int
	items map[string]entry
	now   func() time.Time
}

// NewMemory returns a cache holding at most max entries.
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = 1
	}
	return &Memory{max: max, items: make(map[string]entry, max), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.items, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[key]; !exists && len(m.items) >= m.max {
		m.evict()
	}

	e := entry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.items[key] = e
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// evict drops expired entries, or the entry closest to expiry when none
// have expired. Callers hold mu.
func (m *Memory) evict() {
	now := m.now()
	var victim string
	var soonest time.Time
	for k, e := range m.items {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.items, k)
			continue
		}
		if victim == "" || (!e.expires.IsZero() && (soonest.IsZero() || e.expires.Before(soonest))) {
			victim, soonest = k, e.expires
		}
	}
	if len(m.items) >= m.max && victim != "" {
		delete(m.items, victim)
	}
}
