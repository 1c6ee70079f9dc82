// Package inflight serialises assignment runs per semester.
package inflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrNotHolder is returned when releasing a key held by another run.
var ErrNotHolder = errors.New("key held by another run")

// Guard admits at most one holder per key.
type Guard interface {
	// Acquire records holder for key if the key is free. It returns false
	// when another holder already has the key.
	Acquire(ctx context.Context, key, holder string) (bool, error)

	// Release frees key if holder owns it.
	Release(ctx context.Context, key, holder string) error

	// Refresh restarts the key's lifetime for holder, taking the key again
	// if it lapsed. It returns ErrNotHolder when another holder has it.
	Refresh(ctx context.Context, key, holder string) error


	Size() int64
}

// memoryGuard keeps holders in a map. It only serialises within a process.
type memoryGuard struct {
	mu      sync.Mutex
	holders map[string]string
	size    atomic.Int64
}

// NewMemoryGuard creates a process-local guard.
func NewMemoryGuard() Guard {
	return &memoryGuard{holders: make(map[string]string)}
}

func (g *memoryGuard) Acquire(_ context.Context, key, holder string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.holders[key]; held {
		return false, nil
	}
	g.holders[key] = holder
	g.size.Add(1)
	return true, nil
}

func (g *memoryGuard) Release(_ context.Context, key, holder string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	current, held := g.holders[key]
	if !held {
		return nil
	}
	if current != holder {
		return ErrNotHolder
	}
	delete(g.holders, key)
	g.size.Add(-1)
	return nil
}

// Refresh only checks ownership; memory keys never expire.
func (g *memoryGuard) Refresh(_ context.Context, key, holder string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if current, held := g.holders[key]; held && current != holder {
		return ErrNotHolder
	}
	return nil
}

func (g *memoryGuard) Size() int64 {
	return g.size.Load()
}
