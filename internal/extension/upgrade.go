package extension

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"vividfusion/internal/plugin"
)

// Upgrade replaces the executable of an installed extension with binary
// and records version in its manifest. An empty version leaves the
// manifest untouched.
func (m *Manager) Upgrade(ctx context.Context, md plugin.Metadata, binary, version string) error {
	var stamp func() error
	switch md.ImportType {
	case plugin.BuiltIn:
		return fmt.Errorf("%s is built in and updates with the application", md.ID)
	case plugin.File:
		stamp = func() error { return setJSONVersion(plugin.ManifestPath(md.Path), version) }
	case plugin.App:
		dir, ok := m.pm.Owner(md.Path)
		if !ok {
			return fmt.Errorf("no installed package owns %s", md.Path)
		}
		stamp = func() error { return setPackageVersion(dir, version) }
	default:
		return fmt.Errorf("unknown import type %v", md.ImportType)
	}

	m.process.Unload(md.Path)
	if err := copyFile(binary, md.Path, 0o755); err != nil {
		return err
	}
	if version != "" {
		if err := stamp(); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("updated extension", "id", md.ID, "from", md.Version, "to", version)
	return m.Refresh()
}

func setJSONVersion(path, version string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	fields["version"] = version
	out, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func setPackageVersion(dir, version string) error {
	path := filepath.Join(dir, plugin.PackageFileName)
	var pf plugin.PackageFile
	if _, err := toml.DecodeFile(path, &pf); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if pf.Metadata == nil {
		pf.Metadata = make(map[string]any)
	}
	pf.Metadata["version"] = version

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(pf); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
