package paging

import "context"

// LoadResult is what a ContinuationSource hands to a paginated view.
// NextKey is nil when the source is exhausted.
type LoadResult[T any] struct {
	Data    []T
	Key     *string
	NextKey *string
}

// ContinuationSource adapts a Continuous to key-based pagination, where the
// view remembers the key of each page it has shown and asks for reloads by
// key.
type ContinuationSource[T any] struct {
	data *Continuous[T]
}

// NewContinuationSource wraps c.
func NewContinuationSource[T any](c *Continuous[T]) *ContinuationSource[T] {
	return &ContinuationSource[T]{data: c}
}

// Load returns the page for key; a nil key loads the first page.
func (s *ContinuationSource[T]) Load(ctx context.Context, key *string) (LoadResult[T], error) {
	p, err := s.data.LoadPage(ctx, key)
	if err != nil {
		return LoadResult[T]{}, err
	}
	return LoadResult[T]{Data: p.Data, Key: key, NextKey: p.Continuation}, nil
}

// RefreshKey evicts the page shown at anchor and returns the key to reload
// it with. A nil anchor refreshes from the first page.
func (s *ContinuationSource[T]) RefreshKey(anchor *LoadResult[T]) *string {
	if anchor == nil {
		s.data.Invalidate(nil)
		return nil
	}
	s.data.Invalidate(anchor.Key)
	return anchor.Key
}
