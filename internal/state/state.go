// Package state holds observable values: a current snapshot plus change
// notification. Repositories publish their plugin lists through it and
// derived views (Map, Combine) recompute synchronously on every change.
package state

import (
	"context"
	"sync"
)

// State is a value that can be read at any time and observed for changes.
type State[T any] struct {
	mu       sync.RWMutex
	value    T
	version  uint64
	nextID   int
	watchers map[int]func(T)
}

// New returns a State holding v.
func New[T any](v T) *State[T] {
	return &State[T]{value: v, watchers: make(map[int]func(T))}
}

// Value returns the current snapshot.
func (s *State[T]) Value() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Version counts the updates applied so far.
func (s *State[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Set replaces the value and notifies watchers in registration order.
// Watchers run on the caller's goroutine after the lock is released.
func (s *State[T]) Set(v T) {
	s.mu.Lock()
	s.value = v
	s.version++
	fns := make([]func(T), 0, len(s.watchers))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.watchers[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Watch registers fn for future updates and returns a function that
// removes it.
func (s *State[T]) Watch(fn func(T)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// Subscribe streams the current value and then every update until ctx is
// done, then closes the channel. Slow readers only see the latest value.
func (s *State[T]) Subscribe(ctx context.Context) <-chan T {
	out := make(chan T, 1)
	out <- s.Value()

	var mu sync.Mutex
	closed := false
	stop := s.Watch(func(T) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case <-out:
		default:
		}
		out <- s.Value()
	})
	go func() {
		<-ctx.Done()
		stop()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()
	return out
}

// Map derives a State whose value is f applied to src's value. Updates
// are applied one at a time from src's latest value, so overlapping Sets on
// src never leave dst on an older result.
func Map[A, B any](src *State[A], f func(A) B) *State[B] {
	dst := New(f(src.Value()))
	var mu sync.Mutex
	src.Watch(func(A) {
		mu.Lock()
		defer mu.Unlock()
		dst.Set(f(src.Value()))
	})
	return dst
}

// Combine derives a State from every element of srcs. It recomputes when
// any of them changes.
func Combine[A, B any](srcs []*State[A], f func([]A) B) *State[B] {
	snapshot := func() []A {
		vals := make([]A, len(srcs))
		for i, s := range srcs {
			vals[i] = s.Value()
		}
		return vals
	}
	dst := New(f(snapshot()))
	var mu sync.Mutex
	for _, s := range srcs {
		s.Watch(func(A) {
			mu.Lock()
			defer mu.Unlock()
			dst.Set(f(snapshot()))
		})
	}
	return dst
}
