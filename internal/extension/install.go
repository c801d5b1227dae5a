package extension

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"vividfusion/internal/clients"
	"vividfusion/internal/httputil"
	"vividfusion/internal/plugin"
)

// ErrBuiltinUninstall is returned when removing a compiled-in extension.
var ErrBuiltinUninstall = errors.New("built-in extensions cannot be uninstalled")

// Install adds the extension at src. A directory holding a package.toml is
// copied into the packages directory; a plugin file is copied, together
// with its JSON manifest, into the plugins directory as
// "<className>.<ext>". The sources are rescanned afterwards.
func (m *Manager) Install(ctx context.Context, src string) (plugin.Metadata, error) {
	info, err := os.Stat(src)
	if err != nil {
		return plugin.Metadata{}, fmt.Errorf("reading %s: %w", src, err)
	}

	var md plugin.Metadata
	if info.IsDir() {
		md, err = m.installPackage(src)
	} else {
		md, err = m.installFile(src)
	}
	if err != nil {
		return plugin.Metadata{}, err
	}
	if err := ctx.Err(); err != nil {
		return md, err
	}
	m.logger.Info("installed extension", "id", md.ID, "class", md.ClassName, "import", md.ImportType)
	return md, m.Refresh()
}

func (m *Manager) installPackage(src string) (plugin.Metadata, error) {
	app, err := plugin.ReadPackage(src)
	if err != nil {
		return plugin.Metadata{}, err
	}
	md, err := plugin.AppParser{}.Parse(app)
	if err != nil {
		return plugin.Metadata{}, err
	}

	dst, err := httputil.SafeJoin(m.paths.Packages, app.Package)
	if err != nil {
		return plugin.Metadata{}, err
	}
	if err := os.RemoveAll(dst); err != nil {
		return plugin.Metadata{}, fmt.Errorf("replacing %s: %w", dst, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return plugin.Metadata{}, fmt.Errorf("creating packages dir: %w", err)
	}
	if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
		return plugin.Metadata{}, fmt.Errorf("copying package: %w", err)
	}
	return md, nil
}

func (m *Manager) installFile(src string) (plugin.Metadata, error) {
	if !strings.HasSuffix(src, m.files.Suffix()) {
		return plugin.Metadata{}, fmt.Errorf("%s is not a %s plugin", src, m.files.Suffix())
	}
	md, err := plugin.FileParser{}.Parse(src)
	if err != nil {
		return plugin.Metadata{}, err
	}

	dst, err := httputil.SafeJoin(m.files.Dir(), md.ClassName+m.files.Suffix())
	if err != nil {
		return plugin.Metadata{}, err
	}
	if err := os.MkdirAll(m.files.Dir(), 0o755); err != nil {
		return plugin.Metadata{}, fmt.Errorf("creating plugins dir: %w", err)
	}
	m.process.Unload(dst)
	if err := copyFile(src, dst, 0o755); err != nil {
		return plugin.Metadata{}, err
	}
	if err := copyFile(plugin.ManifestPath(src), plugin.ManifestPath(dst), 0o644); err != nil {
		os.Remove(dst)
		return plugin.Metadata{}, err
	}
	md.Path = dst
	return md, nil
}

// copyFile writes src to dst through a temp file and rename.
func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".install-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting mode: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming to %s: %w", dst, err)
	}
	return nil
}

// Uninstall removes an extension according to where it came from. Its
// stored settings are deleted for every type it declared.
func (m *Manager) Uninstall(ctx context.Context, md plugin.Metadata) error {
	switch md.ImportType {
	case plugin.BuiltIn:
		return fmt.Errorf("%w: %s", ErrBuiltinUninstall, md.ID)
	case plugin.File:
		m.process.Unload(md.Path)
		if err := os.Remove(md.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", md.Path, err)
		}
		if err := os.Remove(plugin.ManifestPath(md.Path)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing manifest: %w", err)
		}
	case plugin.App:
		dir, ok := m.pm.Owner(md.Path)
		if !ok {
			return fmt.Errorf("no installed package owns %s", md.Path)
		}
		m.process.Unload(md.Path)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
	default:
		return fmt.Errorf("unknown import type %v", md.ImportType)
	}

	kinds := md.Types
	if len(kinds) == 0 {
		kinds = clients.Types
	}
	for _, kind := range kinds {
		if err := m.store.DeleteScope(ctx, kind, md.ID); err != nil {
			m.logger.Warn("deleting settings", "id", md.ID, "error", err)
		}
	}
	m.logger.Info("uninstalled extension", "id", md.ID, "import", md.ImportType)
	return m.Refresh()
}

// Find looks up an extension of any type by ID.
func (m *Manager) Find(id string) (plugin.Metadata, bool) {
	for _, info := range m.List() {
		if info.Metadata.ID == id {
			return info.Metadata, true
		}
	}
	return plugin.Metadata{}, false
}
