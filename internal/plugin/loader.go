package plugin

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"
	"golang.org/x/sync/singleflight"

	"vividfusion/internal/clients"
	"vividfusion/internal/plugin/remote"
)

// Loader instantiates the class described by md for the given capability.
// Failures are *ClassLoadError.
type Loader interface {
	Load(md Metadata, kind clients.ExtensionType) (any, error)
}

// Cast asserts that a loaded instance provides T.
func Cast[T any](md Metadata, raw any) (T, error) {
	v, ok := raw.(T)
	if !ok {
		var zero T
		return zero, classErr(md, fmt.Errorf("%w: %T", ErrCapabilityMismatch, raw))
	}
	return v, nil
}

// LoadAs loads md through l and casts the result to T.
func LoadAs[T any](l Loader, md Metadata, kind clients.ExtensionType) (T, error) {
	raw, err := l.Load(md, kind)
	if err != nil {
		var zero T
		return zero, err
	}
	return Cast[T](md, raw)
}

// Dispatch routes built-ins to the registry and everything else to the
// external loader.
type Dispatch struct {
	Builtin  Loader
	External Loader
}

func (d Dispatch) Load(md Metadata, kind clients.ExtensionType) (any, error) {
	if md.ImportType == BuiltIn {
		if d.Builtin == nil {
			return nil, classErr(md, ErrClassNotFound)
		}
		return d.Builtin.Load(md, kind)
	}
	if d.External == nil {
		return nil, classErr(md, ErrPathInaccessible)
	}
	return d.External.Load(md, kind)
}

// pluginProcess is the part of *goplugin.Client the loader manages.
type pluginProcess interface {
	Exited() bool
	Kill()
}

type process struct {
	client  pluginProcess
	rpc     goplugin.ClientProtocol
	modTime time.Time
}

func (p *process) fresh(modTime time.Time) bool {
	return p.modTime.Equal(modTime) && !p.client.Exited()
}

// ProcessLoader runs App and File plugins as child processes over
// go-plugin's net/rpc transport. Each plugin path gets its own process,
// shared by every capability loaded from it. A process is restarted when
// its executable changes on disk.
type ProcessLoader struct {
	logger hclog.Logger
	start  func(md Metadata) (pluginProcess, goplugin.ClientProtocol, error)

	// starting collapses concurrent starts of one path; different paths
	// start in parallel.
	starting singleflight.Group

	mu     sync.Mutex
	procs  map[string]*process
	closed bool
}

// NewProcessLoader returns a loader that logs plugin output through logger.
func NewProcessLoader(logger hclog.Logger) *ProcessLoader {
	l := &ProcessLoader{
		logger: logger.Named("plugins"),
		procs:  make(map[string]*process),
	}
	l.start = l.spawn
	return l
}

func (l *ProcessLoader) Load(md Metadata, kind clients.ExtensionType) (any, error) {
	info, err := os.Stat(md.Path)
	if err != nil {
		return nil, classErr(md, fmt.Errorf("%w: %v", ErrPathInaccessible, err))
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return nil, classErr(md, fmt.Errorf("%w: not an executable file", ErrPathInaccessible))
	}

	proto, err := l.connect(md, info.ModTime())
	if err != nil {
		return nil, classErr(md, fmt.Errorf("%w: %v", ErrPathInaccessible, err))
	}

	raw, err := proto.Dispense(kind.String())
	if err != nil {
		return nil, classErr(md, fmt.Errorf("%w: %s: %v", ErrCapabilityMismatch, kind, err))
	}
	if named, ok := raw.(remote.Named); ok {
		class, err := named.ClassName()
		if err != nil {
			return nil, classErr(md, err)
		}
		if class != md.ClassName {
			return nil, classErr(md, fmt.Errorf("%w: plugin serves %q", ErrClassNotFound, class))
		}
	}
	return raw, nil
}

// running returns the live process for path, stopping it first when it is
// stale.
func (l *ProcessLoader) running(path string, modTime time.Time) (goplugin.ClientProtocol, bool) {
	l.mu.Lock()
	p, ok := l.procs[path]
	if ok && p.fresh(modTime) {
		l.mu.Unlock()
		return p.rpc, true
	}
	if ok {
		delete(l.procs, path)
	}
	l.mu.Unlock()

	if ok {
		l.logger.Debug("restarting plugin process", "path", path)
		p.client.Kill()
	}
	return nil, false
}

func (l *ProcessLoader) connect(md Metadata, modTime time.Time) (goplugin.ClientProtocol, error) {
	if proto, ok := l.running(md.Path, modTime); ok {
		return proto, nil
	}

	key := md.Path + "@" + strconv.FormatInt(modTime.UnixNano(), 10)
	v, err, _ := l.starting.Do(key, func() (any, error) {
		if proto, ok := l.running(md.Path, modTime); ok {
			return proto, nil
		}

		l.logger.Info("starting plugin process", "class", md.ClassName, "path", md.Path)
		client, proto, err := l.start(md)
		if err != nil {
			return nil, fmt.Errorf("starting plugin: %w", err)
		}

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			client.Kill()
			return nil, ErrLoaderClosed
		}
		old := l.procs[md.Path]
		l.procs[md.Path] = &process{client: client, rpc: proto, modTime: modTime}
		l.mu.Unlock()

		if old != nil {
			old.client.Kill()
		}
		return proto, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(goplugin.ClientProtocol), nil
}

func (l *ProcessLoader) spawn(md Metadata) (pluginProcess, goplugin.ClientProtocol, error) {
	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  remote.Handshake,
		Plugins:          remote.PluginMap(),
		Cmd:              exec.Command(md.Path),
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
		Logger:           l.logger.Named(md.ID),
	})
	proto, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, nil, err
	}
	return client, proto, nil
}

// Unload stops the process serving path, if any.
func (l *ProcessLoader) Unload(path string) {
	l.mu.Lock()
	p, ok := l.procs[path]
	delete(l.procs, path)
	l.mu.Unlock()
	if ok {
		p.client.Kill()
	}
}

// Close stops every plugin process. Later loads fail.
func (l *ProcessLoader) Close() error {
	l.mu.Lock()
	l.closed = true
	procs := l.procs
	l.procs = make(map[string]*process)
	l.mu.Unlock()

	for path, p := range procs {
		l.logger.Debug("stopping plugin process", "path", path)
		p.client.Kill()
	}
	return nil
}
