package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-listbind/pkg/interfaces"
)

// ErrCacheMiss reports that no valid entry exists for a key.
var ErrCacheMiss = errors.New("cache: miss")

// Entry is a cached value stamped with its insertion time and lifetime.
type Entry struct {
	Data      any
	Timestamp time.Time
	TTL       time.Duration
}

// Valid reports whether the entry is still fresh at now.
func (e Entry) Valid(now time.Time) bool {
	return now.Sub(e.Timestamp) < e.TTL
}

// Option customises the memory cache.
type Option func(*Memory)

// WithClock overrides the time source used to stamp and expire entries.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// Memory is an in-process TTL cache scoped to one runtime instance.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

var (
	_ interfaces.CacheProvider     = (*Memory)(nil)
	_ interfaces.PrefixInvalidator = (*Memory)(nil)
)

// NewMemory constructs an empty cache.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the cached value when the entry is still valid. Expired entries
// are evicted on access.
func (m *Memory) Get(_ context.Context, key string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !entry.Valid(m.now()) {
		delete(m.entries, key)
		return nil, ErrCacheMiss
	}
	return entry.Data, nil
}

// Set stores value under key. A non-positive ttl removes the key instead.
func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ttl <= 0 {
		delete(m.entries, key)
		return nil
	}
	m.entries[key] = Entry{Data: value, Timestamp: m.now(), TTL: ttl}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// DeleteByPrefix drops every entry whose key starts with prefix.
func (m *Memory) DeleteByPrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry)
	return nil
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
