package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-hclog"

	"vividfusion/internal/state"
)

// PackageManager reports installed packages.
type PackageManager interface {
	InstalledPackages() ([]AppInfo, error)
}

// PackageFile is the package.toml descriptor of an installed package.
type PackageFile struct {
	Name       string         `toml:"name"`
	Executable string         `toml:"executable"`
	Features   []string       `toml:"features"`
	Metadata   map[string]any `toml:"metadata"`
}

// PackageFileName is the descriptor file inside each package directory.
const PackageFileName = "package.toml"

// DirPackageManager treats every subdirectory of Root holding a
// package.toml as an installed package.
type DirPackageManager struct {
	Root string
}

// ReadPackage decodes the descriptor in dir.
func ReadPackage(dir string) (AppInfo, error) {
	var pf PackageFile
	if _, err := toml.DecodeFile(filepath.Join(dir, PackageFileName), &pf); err != nil {
		return AppInfo{}, fmt.Errorf("reading package %s: %w", dir, err)
	}
	name := pf.Name
	if name == "" {
		name = filepath.Base(dir)
	}
	meta := make(map[string]string, len(pf.Metadata))
	for k, v := range pf.Metadata {
		meta[k] = stringify(v)
	}
	path := pf.Executable
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	return AppInfo{Package: name, Dir: dir, Path: path, Features: pf.Features, Meta: meta}, nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, stringify(e))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}

// InstalledPackages lists every readable package. Unreadable descriptors
// are reported in the joined error alongside the packages that did load.
func (m DirPackageManager) InstalledPackages() ([]AppInfo, error) {
	entries, err := os.ReadDir(m.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", m.Root, err)
	}

	var apps []AppInfo
	var errs []error
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(m.Root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, PackageFileName)); err != nil {
			continue
		}
		app, err := ReadPackage(dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		apps = append(apps, app)
	}
	return apps, errors.Join(errs...)
}

// Owner returns the directory of the installed package whose executable
// is path.
func (m DirPackageManager) Owner(path string) (string, bool) {
	apps, _ := m.InstalledPackages()
	for _, app := range apps {
		if app.Path == path {
			return app.Dir, true
		}
	}
	return "", false
}

// PackageSource publishes installed packages that declare every required
// feature.
type PackageSource struct {
	pm       PackageManager
	features []string
	logger   hclog.Logger

	once sync.Once
	apps *state.State[[]AppInfo]
}

// NewPackageSource filters pm's packages by features.
func NewPackageSource(pm PackageManager, logger hclog.Logger, features ...string) *PackageSource {
	return &PackageSource{
		pm:       pm,
		features: features,
		logger:   logger.Named("packages"),
		apps:     state.New[[]AppInfo](nil),
	}
}

func (s *PackageSource) Load() *state.State[[]AppInfo] {
	s.once.Do(func() {
		if err := s.Refresh(); err != nil {
			s.logger.Warn("listing packages", "error", err)
		}
	})
	return s.apps
}

// Refresh re-queries the package manager. Packages that failed to read are
// logged and skipped.
func (s *PackageSource) Refresh() error {
	all, err := s.pm.InstalledPackages()
	if err != nil {
		if all == nil {
			return err
		}
		s.logger.Warn("some packages could not be read", "error", err)
	}

	var apps []AppInfo
	for _, app := range all {
		if s.declares(app) {
			apps = append(apps, app)
		}
	}
	s.apps.Set(apps)
	return nil
}

func (s *PackageSource) declares(app AppInfo) bool {
	for _, f := range s.features {
		if !slices.Contains(app.Features, f) {
			return false
		}
	}
	return true
}

// Watch refreshes whenever dir changes, until ctx is done.
func (s *PackageSource) Watch(ctx context.Context, dir string) error {
	return watchDir(ctx, dir, s.logger, func() {
		if err := s.Refresh(); err != nil {
			s.logger.Warn("refreshing packages", "error", err)
		}
	})
}
