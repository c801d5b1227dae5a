package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"vividfusion/internal/state"
)

// Source publishes the raw items a repository parses: file paths,
// installed packages or prebuilt Metadata.
type Source[S any] interface {
	Load() *state.State[[]S]
}

// StaticSource publishes a fixed list.
type StaticSource[S any] struct {
	items *state.State[[]S]
}

// NewStaticSource returns a source holding items.
func NewStaticSource[S any](items []S) *StaticSource[S] {
	return &StaticSource[S]{items: state.New(items)}
}

func (s *StaticSource[S]) Load() *state.State[[]S] { return s.items }

// Refresh re-publishes the current list so dependants recompute.
func (s *StaticSource[S]) Refresh() { s.items.Set(s.items.Value()) }

// FileSource lists plugin files in {root}/plugins with a given suffix.
type FileSource struct {
	dir    string
	suffix string
	logger hclog.Logger

	once  sync.Once
	files *state.State[[]string]
}

// NewFileSource scans {root}/plugins for "*.{ext}" files.
func NewFileSource(root, ext string, logger hclog.Logger) *FileSource {
	return &FileSource{
		dir:    filepath.Join(root, "plugins"),
		suffix: "." + strings.TrimPrefix(ext, "."),
		logger: logger.Named("files"),
		files:  state.New[[]string](nil),
	}
}

// Dir is the directory being scanned.
func (s *FileSource) Dir() string { return s.dir }

// Suffix is the plugin file suffix, including the dot.
func (s *FileSource) Suffix() string { return s.suffix }

// Load returns the live file list, scanning on first use.
func (s *FileSource) Load() *state.State[[]string] {
	s.once.Do(func() {
		if err := s.Refresh(); err != nil {
			s.logger.Warn("scanning plugin directory", "dir", s.dir, "error", err)
		}
	})
	return s.files
}

// Refresh rescans the directory. A missing directory yields no plugins.
func (s *FileSource) Refresh() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", s.dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), s.suffix) {
			continue
		}
		files = append(files, filepath.Join(s.dir, e.Name()))
	}
	s.logger.Debug("scanned plugin directory", "dir", s.dir, "files", len(files))
	s.files.Set(files)
	return nil
}

// Watch rescans whenever the directory changes, until ctx is done.
func (s *FileSource) Watch(ctx context.Context) error {
	return watchDir(ctx, s.dir, s.logger, func() {
		if err := s.Refresh(); err != nil {
			s.logger.Warn("rescanning plugin directory", "error", err)
		}
	})
}

// watchDebounce batches bursts of filesystem events, such as a copy that
// writes a file in several chunks, into one rescan.
const watchDebounce = 500 * time.Millisecond

func watchDir(ctx context.Context, dir string, logger hclog.Logger, onChange func()) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	go func() {
		defer w.Close()
		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				logger.Trace("directory event", "op", ev.Op.String(), "path", ev.Name)
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, onChange)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error", "dir", dir, "error", err)
			}
		}
	}()
	return nil
}
