// Package paging provides lazily loaded, cached collections for extension
// feeds. A PagedData is either a Single (one load yields every item) or a
// Continuous (items arrive in pages chained by opaque continuation tokens).
//
// Loads are deduplicated: concurrent callers asking for the same page share
// one in-flight load. Successful results are cached until Clear or
// Invalidate; failures are returned to every waiting caller and never cached.
package paging

import (
	"context"
	"fmt"
	"strconv"
)

// Page is one chunk of a continuation-paged feed. A nil Continuation marks
// the last page.
type Page[T any] struct {
	Data         []T
	Continuation *string
}

// PagedData is implemented by *Single and *Continuous only.
type PagedData[T any] interface {
	// LoadFirst returns the first page (or everything, for Single).
	LoadFirst(ctx context.Context) ([]T, error)
	// LoadAll returns every item, following continuations to the end.
	LoadAll(ctx context.Context) ([]T, error)
	// Clear drops all cached results.
	Clear()

	sealed()
}

// PageLoadError reports a failed load. Token is nil for the first page.
type PageLoadError struct {
	Token *string
	Err   error
}

func (e *PageLoadError) Error() string {
	if e.Token == nil {
		return fmt.Sprintf("loading first page: %v", e.Err)
	}
	return fmt.Sprintf("loading page %q: %v", *e.Token, e.Err)
}

func (e *PageLoadError) Unwrap() error { return e.Err }

// Token returns a pointer to s, for building continuations inline.
func Token(s string) *string { return &s }

// tokenKey identifies a cached page. The first page has its own key so that
// an empty-string token never collides with it.
type tokenKey struct {
	first bool
	token string
}

func keyOf(token *string) tokenKey {
	if token == nil {
		return tokenKey{first: true}
	}
	return tokenKey{token: *token}
}

// flightKey scopes a single-flight key to the cache generation, so a load
// started before Clear or Invalidate is never joined by a caller after it.
func flightKey(k tokenKey, epoch, evict uint64) string {
	gen := strconv.FormatUint(epoch, 10) + "." + strconv.FormatUint(evict, 10)
	if k.first {
		return "\x00first@" + gen
	}
	return gen + ":" + k.token
}

// await waits for a flight result unless ctx ends first. The flight keeps
// running after an abandoned wait and still populates the cache.
func await[R any](ctx context.Context, ch <-chan R) (R, error) {
	select {
	case r := <-ch:
		return r, nil
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}
