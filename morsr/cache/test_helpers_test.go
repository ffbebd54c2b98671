package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inference-sim/overlay-engine/lattice"
	"github.com/inference-sim/overlay-engine/morsr"
)

// canonicalOverlay returns a distinct canonical overlay for each n.
func canonicalOverlay(t *testing.T, n int) *morsr.Overlay {
	t.Helper()
	features := make([]float64, lattice.Dim)
	features[n%lattice.Dim] = float64(n + 1)
	features[(n+3)%lattice.Dim] = -0.5
	o, err := morsr.NewEmbedder(lattice.E8(), 0).Embed(features, "test")
	require.NoError(t, err)
	c := morsr.NewCanonicalizer(nil).Canonicalize(o)
	require.True(t, c.IsCanonical())
	return c
}

func newTestCache(t *testing.T, maxSize int, backend Backend) *OverlayCache {
	t.Helper()
	c, err := New(Options{MaxSize: maxSize, Backend: backend, BackendTimeout: time.Second})
	require.NoError(t, err)
	return c
}

var errConnRefused = errors.New("connection refused")

// failingBackend fails every call and counts them.
type failingBackend struct {
	gets, sets atomic.Int32
}

func (f *failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	f.gets.Add(1)
	return nil, false, errConnRefused
}

func (f *failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	f.sets.Add(1)
	return errConnRefused
}

func (f *failingBackend) Close() error { return nil }

// blockingBackend waits for the context on every call.
type blockingBackend struct{}

func (blockingBackend) Get(ctx context.Context, _ string) ([]byte, bool, error) {
	<-ctx.Done()
	return nil, false, ctx.Err()
}

func (blockingBackend) Set(ctx context.Context, _ string, _ []byte, _ time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingBackend) Close() error { return nil }

// gatedBackend serves one stored value, but each Get blocks until release is
// closed. started is closed by the first Get.
type gatedBackend struct {
	key, value []byte
	started    chan struct{}
	release    chan struct{}
	once       sync.Once
	canceled   atomic.Int32
}

func newGatedBackend(key string, value []byte) *gatedBackend {
	return &gatedBackend{
		key:     []byte(key),
		value:   value,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		g.canceled.Add(1)
		return nil, false, ctx.Err()
	}
	if key != string(g.key) {
		return nil, false, nil
	}
	return g.value, true, nil
}

func (g *gatedBackend) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (g *gatedBackend) Close() error { return nil }
