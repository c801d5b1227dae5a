// Package extension owns the extension lists of the running application.
// A Manager composes built-in, installed and file plugins for every
// extension type, applies the user's enabled flags and priorities, and
// injects settings and the shared HTTP client into each instance before
// first use.
package extension

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/hashicorp/go-hclog"

	"vividfusion/internal/clients"
	"vividfusion/internal/config"
	"vividfusion/internal/plugin"
	"vividfusion/internal/store"
)

var (
	ErrNoExtension      = errors.New("no enabled extension")
	ErrUnknownExtension = errors.New("unknown extension")
)

// LoadError is a discovery failure forwarded on Manager.Errors.
type LoadError struct {
	Kind   clients.ExtensionType
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s extension %s: %v", e.Kind, e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Options configures a Manager.
type Options struct {
	Paths         config.Paths
	PluginExt     string
	FeaturePrefix string
	Registry      *plugin.Registry
	Store         *store.Store
	HTTP          *http.Client
	Logger        hclog.Logger
}

// Manager is the composition root for extension lists. It is created by
// the CLI root and must be closed to stop plugin processes.
type Manager struct {
	logger   hclog.Logger
	store    *store.Store
	http     *http.Client
	paths    config.Paths
	pm       plugin.DirPackageManager
	registry *plugin.Registry

	process  *plugin.ProcessLoader
	loader   plugin.Loader
	builtins *plugin.StaticSource[plugin.Metadata]
	files    *plugin.FileSource
	packages *plugin.PackageSource

	Database *Pipeline[clients.DatabaseClient]
	Stream   *Pipeline[clients.StreamClient]
	Subtitle *Pipeline[clients.SubtitleClient]

	errs chan error

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds the pipelines. Sources are scanned immediately.
func New(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("extensions")
	registry := opts.Registry
	if registry == nil {
		registry = plugin.NewRegistry()
	}

	m := &Manager{
		logger:   logger,
		store:    opts.Store,
		http:     opts.HTTP,
		paths:    opts.Paths,
		pm:       plugin.DirPackageManager{Root: opts.Paths.Packages},
		registry: registry,
		process:  plugin.NewProcessLoader(logger),
		builtins: plugin.NewStaticSource(registry.Builtins()),
		files:    plugin.NewFileSource(opts.Paths.Root, opts.PluginExt, logger),
		errs:     make(chan error, 32),
	}
	m.packages = plugin.NewPackageSource(m.pm, logger, opts.FeaturePrefix+".extension")
	m.loader = plugin.Dispatch{Builtin: registry, External: m.process}

	m.Database = newPipeline[clients.DatabaseClient](m, clients.Database)
	m.Stream = newPipeline[clients.StreamClient](m, clients.Stream)
	m.Subtitle = newPipeline[clients.SubtitleClient](m, clients.Subtitle)
	return m
}

// Errors delivers discovery failures. Failures are dropped while the
// channel is full.
func (m *Manager) Errors() <-chan error { return m.errs }

func (m *Manager) report(err error) {
	m.logger.Warn("extension failed to load", "error", err)
	select {
	case m.errs <- err:
	default:
	}
}

// Watch rescans whenever the plugin or package directory changes, until
// ctx is done or the Manager is closed.
func (m *Manager) Watch(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel
	m.mu.Unlock()

	if err := m.files.Watch(ctx); err != nil {
		return err
	}
	return m.packages.Watch(ctx, m.paths.Packages)
}

// Refresh rescans every source.
func (m *Manager) Refresh() error {
	m.builtins.Refresh()
	return errors.Join(m.files.Refresh(), m.packages.Refresh())
}

// Close stops watchers and plugin processes.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()
	return m.process.Close()
}

// Info is a type-independent view of one listed extension.
type Info struct {
	Kind     clients.ExtensionType
	Metadata plugin.Metadata
}

// List returns every discovered extension of every type, in pipeline
// order.
func (m *Manager) List() []Info {
	var out []Info
	out = appendInfo(out, m.Database)
	out = appendInfo(out, m.Stream)
	return appendInfo(out, m.Subtitle)
}

// Updates sends the full listing whenever any pipeline republishes, until
// ctx is done. Listings are coalesced for slow readers.
func (m *Manager) Updates(ctx context.Context) <-chan []Info {
	db := m.Database.Load().Subscribe(ctx)
	st := m.Stream.Load().Subscribe(ctx)
	sub := m.Subtitle.Load().Subscribe(ctx)

	out := make(chan []Info, 1)
	go func() {
		defer close(out)
		for {
			var ok bool
			select {
			case _, ok = <-db:
			case _, ok = <-st:
			case _, ok = <-sub:
			}
			if !ok {
				return
			}
			select {
			case <-out:
			default:
			}
			out <- m.List()
		}
	}()
	return out
}

func appendInfo[T clients.BaseClient](out []Info, p *Pipeline[T]) []Info {
	for _, e := range p.List() {
		out = append(out, Info{Kind: p.kind, Metadata: e.Metadata})
	}
	return out
}

func (m *Manager) republish(kind clients.ExtensionType) {
	switch kind {
	case clients.Database:
		m.Database.republish()
	case clients.Stream:
		m.Stream.republish()
	case clients.Subtitle:
		m.Subtitle.republish()
	}
}

func (m *Manager) known(kind clients.ExtensionType, id string) bool {
	for _, info := range m.List() {
		if info.Kind == kind && info.Metadata.ID == id {
			return true
		}
	}
	return false
}

// SetEnabled stores the enabled flag of an extension and republishes its
// list.
func (m *Manager) SetEnabled(ctx context.Context, kind clients.ExtensionType, id string, enabled bool) error {
	if !m.known(kind, id) {
		return fmt.Errorf("%w: %s extension %q", ErrUnknownExtension, kind, id)
	}
	if err := m.store.SetExtensionEnabled(ctx, kind, id, enabled); err != nil {
		return err
	}
	m.republish(kind)
	return nil
}

// SetPriority stores the preferred order of extension IDs for kind.
func (m *Manager) SetPriority(ctx context.Context, kind clients.ExtensionType, ids []string) error {
	for _, id := range ids {
		if !m.known(kind, id) {
			return fmt.Errorf("%w: %s extension %q", ErrUnknownExtension, kind, id)
		}
	}
	if err := m.store.SetPriority(ctx, kind, ids); err != nil {
		return err
	}
	m.republish(kind)
	return nil
}

// Settings returns the persisted settings of an extension.
func (m *Manager) Settings(kind clients.ExtensionType, id string) *store.Settings {
	return m.store.Settings(kind, id)
}

// Run calls fn with the extension's instance when it implements C, and
// returns a *clients.NotSupportedError otherwise.
func Run[C any, T clients.BaseClient, R any](ext *plugin.Extension[T], fn func(C) (R, error)) (R, error) {
	var zero R
	inst, err := ext.Instance()
	if err != nil {
		return zero, err
	}
	c, ok := any(inst).(C)
	if !ok {
		return zero, &clients.NotSupportedError{Extension: ext.ID(), Capability: fmt.Sprintf("%T", (*C)(nil))[1:]}
	}
	return fn(c)
}
