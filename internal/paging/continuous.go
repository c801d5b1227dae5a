package paging

import (
	"context"
	"iter"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Continuous wraps a loader that is called once per continuation token.
// Pages are cached by the token that requested them.
type Continuous[T any] struct {
	load func(ctx context.Context, token *string) (Page[T], error)

	group singleflight.Group

	mu     sync.Mutex
	pages  map[tokenKey]Page[T]
	epoch  uint64
	evicts map[tokenKey]uint64
}

// NewContinuous returns a Continuous backed by load. A nil token asks for the
// first page.
func NewContinuous[T any](load func(ctx context.Context, token *string) (Page[T], error)) *Continuous[T] {
	return &Continuous[T]{
		load:   load,
		pages:  make(map[tokenKey]Page[T]),
		evicts: make(map[tokenKey]uint64),
	}
}

func (c *Continuous[T]) sealed() {}

// LoadPage returns the page for token, loading it on a cache miss.
func (c *Continuous[T]) LoadPage(ctx context.Context, token *string) (Page[T], error) {
	key := keyOf(token)

	c.mu.Lock()
	if p, ok := c.pages[key]; ok {
		c.mu.Unlock()
		return p, nil
	}
	epoch, evict := c.epoch, c.evicts[key]
	c.mu.Unlock()

	ch := c.group.DoChan(flightKey(key, epoch, evict), func() (any, error) {
		p, err := c.load(context.WithoutCancel(ctx), token)
		if err != nil {
			return nil, &PageLoadError{Token: token, Err: err}
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.epoch != epoch || c.evicts[key] != evict {
			return p, nil
		}
		if cached, ok := c.pages[key]; ok {
			return cached, nil
		}
		c.pages[key] = p
		return p, nil
	})

	res, err := await(ctx, ch)
	if err != nil {
		return Page[T]{}, err
	}
	if res.Err != nil {
		return Page[T]{}, res.Err
	}
	return res.Val.(Page[T]), nil
}

// LoadFirst returns the data of the first page.
func (c *Continuous[T]) LoadFirst(ctx context.Context) ([]T, error) {
	p, err := c.LoadPage(ctx, nil)
	if err != nil {
		return nil, err
	}
	return p.Data, nil
}

// LoadAll walks continuations from the first page until one has none and
// returns the concatenated data. A source whose tokens cycle never
// terminates; cancel ctx to stop it.
func (c *Continuous[T]) LoadAll(ctx context.Context) ([]T, error) {
	var all []T
	for p, err := range c.Pages(ctx) {
		if err != nil {
			return nil, err
		}
		all = append(all, p.Data...)
	}
	return all, nil
}

// Pages iterates pages in order, starting from the first.
func (c *Continuous[T]) Pages(ctx context.Context) iter.Seq2[Page[T], error] {
	return func(yield func(Page[T], error) bool) {
		var token *string
		for {
			p, err := c.LoadPage(ctx, token)
			if err != nil {
				yield(Page[T]{}, err)
				return
			}
			if !yield(p, nil) || p.Continuation == nil {
				return
			}
			token = p.Continuation
		}
	}
}

// Invalidate evicts the page cached for token. Unknown tokens are ignored.
func (c *Continuous[T]) Invalidate(token *string) {
	key := keyOf(token)
	c.mu.Lock()
	delete(c.pages, key)
	c.evicts[key]++
	c.mu.Unlock()
}

// Clear drops every cached page.
func (c *Continuous[T]) Clear() {
	c.mu.Lock()
	c.pages = make(map[tokenKey]Page[T])
	c.evicts = make(map[tokenKey]uint64)
	c.epoch++
	c.mu.Unlock()
}
