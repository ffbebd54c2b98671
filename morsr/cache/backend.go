package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/inference-sim/overlay-engine/morsr"
)

// Backend is a byte-oriented persistent key-value store. Get reports a
// missing or expired key as ok=false with a nil error.
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Driver names a Backend implementation.
type Driver string

const (
	DriverNone     Driver = "none"
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverS3       Driver = "s3"
)

// OpenBackend selects a Backend from configuration. An empty driver or
// "none" returns a nil Backend and the cache runs memory-only.
func OpenBackend(ctx context.Context, cfg morsr.BackendConfig) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch Driver(cfg.Driver) {
	case "", DriverNone:
		return nil, nil
	case DriverMemory:
		b = NewMemoryBackend()
	case DriverSQLite:
		b, err = OpenSQLite(ctx, cfg.Path)
	case DriverPostgres:
		b, err = OpenPostgres(ctx, cfg.DSN)
	case DriverS3:
		b, err = OpenS3(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			Prefix:    cfg.Prefix,
			PathStyle: cfg.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown cache backend driver %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("cache backend %s: %w", cfg.Driver, err)
	}
	return b, nil
}

// MemoryBackend keeps entries in process memory. Useful for tests and for
// sharing one backing store between several caches.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero = never
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryBackend) Close() error { return nil }
