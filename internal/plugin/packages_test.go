package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vividfusion/internal/clients"
)

func writePackage(t *testing.T, root, name, body string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, PackageFileName), []byte(body), 0o644))
	return dir
}

const tmdbPackage = `
name = "com.example.tmdb"
executable = "bin/tmdb"
features = ["vf.extension", "vf.extension.database"]

[metadata]
class = "tmdb.Client"
id = "tmdb"
name = "TMDB"
version = "1.0.0"
description = "Movie database"
author = "someone"
enabled = false
`

func TestDirPackageManager(t *testing.T) {
	root := t.TempDir()
	dir := writePackage(t, root, "tmdb", tmdbPackage)
	writePackage(t, root, "broken", "name = [")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	pm := DirPackageManager{Root: root}
	apps, err := pm.InstalledPackages()
	assert.Error(t, err, "broken descriptor is reported")
	require.Len(t, apps, 1)

	app := apps[0]
	assert.Equal(t, "com.example.tmdb", app.Package)
	assert.Equal(t, filepath.Join(dir, "bin", "tmdb"), app.Path)
	assert.Equal(t, "false", app.Meta["enabled"])

	md, err := AppParser{}.Parse(app)
	require.NoError(t, err)
	assert.False(t, md.Enabled)

	owner, ok := pm.Owner(app.Path)
	require.True(t, ok)
	assert.Equal(t, dir, owner)
}

func TestDirPackageManagerMissingRoot(t *testing.T) {
	apps, err := DirPackageManager{Root: filepath.Join(t.TempDir(), "nope")}.InstalledPackages()
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestPackageSourceFiltersByFeature(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "tmdb", tmdbPackage)
	writePackage(t, root, "other", `
name = "com.example.other"
executable = "run"
features = ["something.else"]
`)

	pm := DirPackageManager{Root: root}
	db := NewPackageSource(pm, hclog.NewNullLogger(), "vf.extension", clients.Database.Feature("vf"))
	stream := NewPackageSource(pm, hclog.NewNullLogger(), "vf.extension", clients.Stream.Feature("vf"))

	apps := db.Load().Value()
	require.Len(t, apps, 1)
	assert.Equal(t, "com.example.tmdb", apps[0].Package)
	assert.Empty(t, stream.Load().Value())
}
