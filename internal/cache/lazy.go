// Package cache holds process-wide values that are built lazily on first use
// and can be dropped explicitly or after a TTL.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader builds the cached value.
type Loader[T any] func(ctx context.Context) (T, error)

// Lazy is a value built once on first Get and shared by every later caller
// until Refresh is called or the TTL elapses. Concurrent first callers share
// one build. Failed builds are not cached.
type Lazy[T any] struct {
	name string
	load Loader[T]
	ttl  time.Duration

	mu       sync.RWMutex
	value    T
	loaded   bool
	loadedAt time.Time
	builds   int64

	group singleflight.Group
	now   func() time.Time
}

// NewLazy creates a lazy value. A zero ttl keeps the value until Refresh.
func NewLazy[T any](name string, ttl time.Duration, load Loader[T]) *Lazy[T] {
	return &Lazy[T]{
		name: name,
		load: load,
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get returns the cached value, building it if needed.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.RLock()
	if l.loaded && !l.expired() {
		v := l.value
		l.mu.RUnlock()
		return v, nil
	}
	l.mu.RUnlock()

	// shared by concurrent callers, detached from the first caller's cancellation
	buildCtx := context.WithoutCancel(ctx)
	v, err, _ := l.group.Do(l.name, func() (interface{}, error) {
		value, err := l.load(buildCtx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.value = value
		l.loaded = true
		l.loadedAt = l.now()
		l.builds++
		l.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Refresh drops the cached value; the next Get rebuilds it.
func (l *Lazy[T]) Refresh() {
	l.mu.Lock()
	var zero T
	l.value = zero
	l.loaded = false
	l.mu.Unlock()
}

// Stats reports whether a value is held and how many builds ran.
func (l *Lazy[T]) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Stats{
		Name:     l.name,
		Loaded:   l.loaded,
		LoadedAt: l.loadedAt,
		Builds:   l.builds,
	}
}

// expired must be called with mu held.
func (l *Lazy[T]) expired() bool {
	return l.ttl > 0 && l.now().Sub(l.loadedAt) > l.ttl
}

// Stats describes a lazy value.
type Stats struct {
	Name     string    `json:"name"`
	Loaded   bool      `json:"loaded"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
	Builds   int64     `json:"builds"`
}

// Refresher is anything holding droppable cached state.
type Refresher interface {
	Refresh()
}

// Group refreshes several caches together.
type Group []Refresher

// Refresh drops every member's cached state.
func (g Group) Refresh() {
	for _, r := range g {
		r.Refresh()
	}
}
