package plugin

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"vividfusion/internal/clients"
	"vividfusion/internal/state"
)

// Repo is a live list of E. The returned State is shared; every rescan of
// the underlying source publishes a new snapshot.
type Repo[E any] interface {
	Load() *state.State[[]E]
}

// Candidate is one discovered plugin. Either Err is set (its manifest could
// not be read) or Ext holds the Metadata and a lazy instance, which may
// itself fail when first requested.
type Candidate[T any] struct {
	Source string
	Ext    *Extension[T]
	Err    error
}

// Metadata returns the candidate's Metadata, if its manifest was readable.
func (c Candidate[T]) Metadata() (Metadata, bool) {
	if c.Ext == nil {
		return Metadata{}, false
	}
	return c.Ext.Metadata, true
}

// Instance returns the discovery error or the lazily loaded instance.
func (c Candidate[T]) Instance() (T, error) {
	if c.Err != nil {
		var zero T
		return zero, c.Err
	}
	return c.Ext.Instance()
}

// LazyRepo parses every item of a source and defers loading until an
// instance is requested. Failures stay in the list with their Metadata.
type LazyRepo[S, T any] struct {
	src    Source[S]
	parser Parser[S]
	loader Loader
	kind   clients.ExtensionType
	logger hclog.Logger

	once sync.Once
	out  *state.State[[]Candidate[T]]
}

// NewLazyRepo builds candidates of type T for kind from src.
func NewLazyRepo[S, T any](src Source[S], parser Parser[S], loader Loader, kind clients.ExtensionType, logger hclog.Logger) *LazyRepo[S, T] {
	return &LazyRepo[S, T]{src: src, parser: parser, loader: loader, kind: kind, logger: logger}
}

func (r *LazyRepo[S, T]) Load() *state.State[[]Candidate[T]] {
	r.once.Do(func() {
		r.out = state.Map(r.src.Load(), r.build)
	})
	return r.out
}

func (r *LazyRepo[S, T]) build(items []S) []Candidate[T] {
	out := make([]Candidate[T], 0, len(items))
	for _, item := range items {
		origin := describe(item)
		md, err := r.parser.Parse(item)
		if err != nil {
			r.logger.Debug("invalid plugin manifest", "source", origin, "error", err)
			out = append(out, Candidate[T]{Source: origin, Err: err})
			continue
		}
		if !md.Supports(r.kind) {
			continue
		}
		out = append(out, Candidate[T]{
			Source: origin,
			Ext: NewExtension(md, func() (T, error) {
				return LoadAs[T](r.loader, md, r.kind)
			}),
		})
	}
	return out
}

func describe(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case Metadata:
		return x.ClassName
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

// EagerRepo loads every candidate as soon as it is discovered and keeps
// only the ones that loaded.
type EagerRepo[T any] struct {
	lazy   Repo[Candidate[T]]
	logger hclog.Logger

	once sync.Once
	out  *state.State[[]*Extension[T]]
}

// Eager wraps a candidate repo.
func Eager[T any](lazy Repo[Candidate[T]], logger hclog.Logger) *EagerRepo[T] {
	return &EagerRepo[T]{lazy: lazy, logger: logger}
}

func (r *EagerRepo[T]) Load() *state.State[[]*Extension[T]] {
	r.once.Do(func() {
		r.out = state.Map(r.lazy.Load(), func(cs []Candidate[T]) []*Extension[T] {
			out := make([]*Extension[T], 0, len(cs))
			for _, c := range cs {
				if _, err := c.Instance(); err != nil {
					r.logger.Warn("skipping plugin", "source", c.Source, "error", err)
					continue
				}
				out = append(out, c.Ext)
			}
			return out
		})
	})
	return r.out
}

// NewFileRepo loads plugin files from src, dropping any that fail.
func NewFileRepo[T any](src *FileSource, loader Loader, kind clients.ExtensionType, logger hclog.Logger) *EagerRepo[T] {
	return Eager[T](NewLazyRepo[string, T](src, FileParser{}, loader, kind, logger), logger)
}

// NewInstalledRepo loads installed packages from src, dropping any that
// fail.
func NewInstalledRepo[T any](src *PackageSource, loader Loader, kind clients.ExtensionType, logger hclog.Logger) *EagerRepo[T] {
	return Eager[T](NewLazyRepo[AppInfo, T](src, AppParser{}, loader, kind, logger), logger)
}
