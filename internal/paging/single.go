package paging

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Single wraps a loader that produces the whole collection at once.
type Single[T any] struct {
	load func(ctx context.Context) ([]T, error)

	group singleflight.Group

	mu     sync.Mutex
	items  []T
	loaded bool
	epoch  uint64
}

// NewSingle returns a Single backed by load.
func NewSingle[T any](load func(ctx context.Context) ([]T, error)) *Single[T] {
	return &Single[T]{load: load}
}

// Items wraps a fixed slice. After Clear the same items are served again.
func Items[T any](items ...T) *Single[T] {
	return &Single[T]{
		load: func(context.Context) ([]T, error) {
			return slices.Clone(items), nil
		},
		items:  items,
		loaded: true,
	}
}

func (s *Single[T]) sealed() {}

// LoadItems returns the cached items, invoking the loader at most once
// between clears.
func (s *Single[T]) LoadItems(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	if s.loaded {
		items := s.items
		s.mu.Unlock()
		return items, nil
	}
	epoch := s.epoch
	s.mu.Unlock()

	ch := s.group.DoChan(flightKey(tokenKey{first: true}, epoch, 0), func() (any, error) {
		items, err := s.load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, &PageLoadError{Err: err}
		}
		s.mu.Lock()
		if s.epoch == epoch {
			s.items, s.loaded = items, true
		}
		s.mu.Unlock()
		return items, nil
	})

	res, err := await(ctx, ch)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Val.([]T), nil
}

// LoadFirst is LoadItems.
func (s *Single[T]) LoadFirst(ctx context.Context) ([]T, error) { return s.LoadItems(ctx) }

// LoadAll is LoadItems.
func (s *Single[T]) LoadAll(ctx context.Context) ([]T, error) { return s.LoadItems(ctx) }

// Clear forgets the cached items; the next call reloads.
func (s *Single[T]) Clear() {
	s.mu.Lock()
	s.items, s.loaded = nil, false
	s.epoch++
	s.mu.Unlock()
}
