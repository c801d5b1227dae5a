package plugin

import (
	"sync"

	"vividfusion/internal/state"
)

type composed[E any] struct {
	repos []Repo[E]

	once sync.Once
	out  *state.State[[]E]
}

// Compose concatenates repos in argument order. The result updates
// whenever any of them does. It neither sorts nor removes duplicates.
func Compose[E any](repos ...Repo[E]) Repo[E] {
	return &composed[E]{repos: repos}
}

func (c *composed[E]) Load() *state.State[[]E] {
	c.once.Do(func() {
		states := make([]*state.State[[]E], len(c.repos))
		for i, r := range c.repos {
			states[i] = r.Load()
		}
		c.out = state.Combine(states, func(lists [][]E) []E {
			var all []E
			for _, l := range lists {
				all = append(all, l...)
			}
			return all
		})
	})
	return c.out
}

// DedupeByClass keeps one candidate per class name, preferring the lowest
// ImportType. The survivor takes the position of the first occurrence.
// Candidates without Metadata are kept as they are.
func DedupeByClass[T any](cs []Candidate[T]) []Candidate[T] {
	seen := make(map[string]int, len(cs))
	out := make([]Candidate[T], 0, len(cs))
	for _, c := range cs {
		md, ok := c.Metadata()
		if !ok {
			out = append(out, c)
			continue
		}
		if i, dup := seen[md.ClassName]; dup {
			if md.ImportType < out[i].Ext.Metadata.ImportType {
				out[i] = c
			}
			continue
		}
		seen[md.ClassName] = len(out)
		out = append(out, c)
	}
	return out
}
