package extension

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/hashicorp/go-hclog"

	"vividfusion/internal/clients"
	"vividfusion/internal/plugin"
	"vividfusion/internal/state"
)

type injectKey struct {
	src     any
	enabled bool
}

// Pipeline is the live, ordered list of extensions of one type: built-ins,
// installed packages and plugin files, deduplicated by class, annotated
// with the stored enabled flag and sorted by the stored priority.
type Pipeline[T clients.BaseClient] struct {
	kind   clients.ExtensionType
	m      *Manager
	logger hclog.Logger

	composed *state.State[[]plugin.Candidate[T]]

	// publish orders recomputations so the newest candidates land last.
	publish sync.Mutex

	mu       sync.Mutex
	injected map[injectKey]*plugin.Extension[T]
	out      *state.State[[]*plugin.Extension[T]]
}

func newPipeline[T clients.BaseClient](m *Manager, kind clients.ExtensionType) *Pipeline[T] {
	logger := m.logger.Named(kind.String())
	repo := plugin.Compose[plugin.Candidate[T]](
		plugin.NewLazyRepo[plugin.Metadata, T](m.builtins, plugin.Parsed{}, m.loader, kind, logger),
		plugin.NewLazyRepo[plugin.AppInfo, T](m.packages, plugin.AppParser{}, m.loader, kind, logger),
		plugin.NewLazyRepo[string, T](m.files, plugin.FileParser{}, m.loader, kind, logger),
	)
	p := &Pipeline[T]{
		kind:     kind,
		m:        m,
		logger:   logger,
		composed: repo.Load(),
		injected: make(map[injectKey]*plugin.Extension[T]),
	}
	p.out = state.New(p.resolve(p.composed.Value()))
	p.composed.Watch(func([]plugin.Candidate[T]) { p.republish() })
	return p
}

// Kind is the extension type this pipeline serves.
func (p *Pipeline[T]) Kind() clients.ExtensionType { return p.kind }

// Load returns the live list.
func (p *Pipeline[T]) Load() *state.State[[]*plugin.Extension[T]] { return p.out }

// List returns the current snapshot, disabled extensions included.
func (p *Pipeline[T]) List() []*plugin.Extension[T] { return p.out.Value() }

// Enabled returns the enabled extensions in priority order.
func (p *Pipeline[T]) Enabled() []*plugin.Extension[T] {
	var out []*plugin.Extension[T]
	for _, e := range p.out.Value() {
		if e.Metadata.Enabled {
			out = append(out, e)
		}
	}
	return out
}

// Get finds an extension by ID.
func (p *Pipeline[T]) Get(id string) (*plugin.Extension[T], bool) {
	for _, e := range p.out.Value() {
		if e.ID() == id {
			return e, true
		}
	}
	return nil, false
}

// Selected returns the active extension: the stored selection when it is
// still enabled, otherwise the first enabled extension.
func (p *Pipeline[T]) Selected(ctx context.Context) (*plugin.Extension[T], error) {
	enabled := p.Enabled()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoExtension, p.kind)
	}
	id, err := p.m.store.Selected(ctx, p.kind)
	if err != nil {
		return nil, err
	}
	for _, e := range enabled {
		if e.ID() == id {
			return e, nil
		}
	}
	return enabled[0], nil
}

// Select makes id the active extension and notifies it.
func (p *Pipeline[T]) Select(ctx context.Context, id string) error {
	e, ok := p.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s extension %q", ErrUnknownExtension, p.kind, id)
	}
	if !e.Metadata.Enabled {
		return fmt.Errorf("%s extension %q is disabled", p.kind, id)
	}
	inst, err := e.Instance()
	if err != nil {
		return err
	}
	if err := p.m.store.SetSelected(ctx, p.kind, id); err != nil {
		return err
	}
	return inst.OnExtensionSelected(ctx)
}

// republish recomputes the list from the current candidates, picking up
// changed enabled flags and priorities.
func (p *Pipeline[T]) republish() {
	p.publish.Lock()
	defer p.publish.Unlock()
	p.out.Set(p.resolve(p.composed.Value()))
}

func (p *Pipeline[T]) resolve(cs []plugin.Candidate[T]) []*plugin.Extension[T] {
	ctx := context.Background()
	cs = plugin.DedupeByClass(cs)

	p.mu.Lock()
	defer p.mu.Unlock()

	live := make(map[injectKey]*plugin.Extension[T], len(cs))
	out := make([]*plugin.Extension[T], 0, len(cs))
	for _, c := range cs {
		if c.Err != nil {
			p.m.report(&LoadError{Kind: p.kind, Source: c.Source, Err: c.Err})
			continue
		}
		md := c.Ext.Metadata
		if enabled, ok, err := p.m.store.ExtensionEnabled(ctx, p.kind, md.ID); err != nil {
			p.logger.Warn("reading extension state", "id", md.ID, "error", err)
		} else if ok {
			md.Enabled = enabled
		}

		key := injectKey{src: c.Ext, enabled: md.Enabled}
		ext, ok := p.injected[key]
		if !ok {
			ext = p.inject(md, c.Ext)
		}
		live[key] = ext
		out = append(out, ext)
	}
	p.injected = live

	order, err := p.m.store.Priority(ctx, p.kind)
	if err != nil {
		p.logger.Warn("reading priority", "error", err)
	}
	sortByPriority(out, order)
	return out
}

// inject wraps src so that the first Instance call also seeds default
// settings and runs Init.
func (p *Pipeline[T]) inject(md plugin.Metadata, src *plugin.Extension[T]) *plugin.Extension[T] {
	return plugin.NewExtension(md, func() (T, error) {
		inst, err := src.Instance()
		if err != nil {
			p.logger.Warn("loading extension", "id", md.ID, "class", md.ClassName, "error", err)
			return inst, err
		}
		settings := p.m.store.Settings(p.kind, md.ID)
		if err := settings.SeedDefaults(inst.DefaultSettings()); err != nil {
			p.logger.Warn("seeding settings", "id", md.ID, "error", err)
		}
		if err := inst.Init(settings, p.m.http); err != nil {
			var zero T
			return zero, fmt.Errorf("initializing %s: %w", md.ID, err)
		}
		p.logger.Debug("extension ready", "id", md.ID, "import", md.ImportType)
		return inst, nil
	})
}

// sortByPriority orders exts by their position in order. IDs missing from
// order rank ahead of listed ones, so newly installed extensions surface
// first.
func sortByPriority[T any](exts []*plugin.Extension[T], order []string) {
	rank := func(id string) int { return slices.Index(order, id) }
	slices.SortStableFunc(exts, func(a, b *plugin.Extension[T]) int {
		return rank(a.ID()) - rank(b.ID())
	})
}
