package extension

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vividfusion/internal/clients"
	"vividfusion/internal/config"
	"vividfusion/internal/media"
	"vividfusion/internal/paging"
	"vividfusion/internal/plugin"
	"vividfusion/internal/store"
)

type fakeClient struct {
	settings clients.PrefSettings
	http     *http.Client
	inits    int
	selected int
}

func (f *fakeClient) DefaultSettings() []clients.Setting {
	return []clients.Setting{{Key: "region", Default: "us"}}
}

func (f *fakeClient) Init(s clients.PrefSettings, c *http.Client) error {
	f.settings, f.http = s, c
	f.inits++
	return nil
}

func (f *fakeClient) OnExtensionSelected(context.Context) error {
	f.selected++
	return nil
}

func (f *fakeClient) HomeTabs(context.Context) ([]media.Tab, error) { return nil, nil }

func (f *fakeClient) HomeFeed(media.Tab) paging.PagedData[media.Item] { return paging.Items[media.Item]() }

func (f *fakeClient) Search(string) paging.PagedData[media.Item] { return paging.Items[media.Item]() }

func (f *fakeClient) Seasons(context.Context, media.Item) ([]media.Season, error) { return nil, nil }

func (f *fakeClient) Episodes(context.Context, media.Item, media.Season) ([]media.Episode, error) {
	return nil, nil
}

type brokenClient struct{ fakeClient }

func (b *brokenClient) Init(clients.PrefSettings, *http.Client) error { return errors.New("no api key") }

type harness struct {
	m     *Manager
	paths config.Paths
	store *store.Store
	alpha *fakeClient
	httpc *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	paths := config.Paths{Root: root, Packages: filepath.Join(root, "packages"), Database: filepath.Join(root, "test.db")}
	require.NoError(t, paths.Ensure())

	st, err := store.Open(context.Background(), paths.Database)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h := &harness{paths: paths, store: st, alpha: &fakeClient{}, httpc: &http.Client{}}
	reg := plugin.NewRegistry()
	db := []clients.ExtensionType{clients.Database}
	reg.Register(plugin.Metadata{ClassName: "builtin.Alpha", ID: "alpha", Name: "Alpha", Enabled: true, Types: db},
		func() *fakeClient { return h.alpha })
	reg.Register(plugin.Metadata{ClassName: "builtin.Beta", ID: "beta", Name: "Beta", Enabled: true, Types: db},
		func() *fakeClient { return &fakeClient{} })
	reg.Register(plugin.Metadata{ClassName: "builtin.Broken", ID: "broken", Name: "Broken", Enabled: true, Types: db},
		func() *brokenClient { return &brokenClient{} })

	h.m = New(Options{
		Paths:         paths,
		PluginExt:     "vvf",
		FeaturePrefix: "vividfusion",
		Registry:      reg,
		Store:         st,
		HTTP:          h.httpc,
	})
	t.Cleanup(func() { h.m.Close() })
	return h
}

func ids[T any](exts []*plugin.Extension[T]) []string {
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = e.ID()
	}
	return out
}

func writeFilePlugin(t *testing.T, dir, name, manifest string) string {
	t.Helper()
	path := filepath.Join(dir, name+".vvf")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 1\n"), 0o755))
	require.NoError(t, os.WriteFile(plugin.ManifestPath(path), []byte(manifest), 0o644))
	return path
}

func TestBuiltinsListedPerType(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, []string{"alpha", "beta", "broken"}, ids(h.m.Database.List()))
	assert.Empty(t, h.m.Stream.List(), "database-only built-ins are skipped for streams")
	assert.Len(t, h.m.List(), 3)
}

func TestInstanceIsInjectedOnce(t *testing.T) {
	h := newHarness(t)
	ext, ok := h.m.Database.Get("alpha")
	require.True(t, ok)

	inst, err := ext.Instance()
	require.NoError(t, err)
	_, err = ext.Instance()
	require.NoError(t, err)

	assert.Same(t, h.alpha, inst)
	assert.Equal(t, 1, h.alpha.inits)
	assert.Same(t, h.httpc, h.alpha.http)
	assert.Equal(t, "us", clients.String(h.alpha.settings, "region", ""), "defaults are seeded")
	assert.Equal(t, map[string]string{"region": "us"}, h.m.Settings(clients.Database, "alpha").All())

	broken, _ := h.m.Database.Get("broken")
	_, err = broken.Instance()
	assert.ErrorContains(t, err, "no api key")
}

func TestEnabledStateAndSelection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	sel, err := h.m.Database.Selected(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alpha", sel.ID())

	require.NoError(t, h.m.Database.Select(ctx, "beta"))
	sel, _ = h.m.Database.Selected(ctx)
	assert.Equal(t, "beta", sel.ID())

	require.NoError(t, h.m.SetEnabled(ctx, clients.Database, "beta", false))
	assert.Equal(t, []string{"alpha", "broken"}, ids(h.m.Database.Enabled()))
	sel, _ = h.m.Database.Selected(ctx)
	assert.Equal(t, "alpha", sel.ID(), "disabled selection falls back to the first enabled")
	assert.Error(t, h.m.Database.Select(ctx, "beta"))

	for _, id := range []string{"alpha", "broken"} {
		require.NoError(t, h.m.SetEnabled(ctx, clients.Database, id, false))
	}
	_, err = h.m.Database.Selected(ctx)
	assert.ErrorIs(t, err, ErrNoExtension)

	assert.ErrorIs(t, h.m.SetEnabled(ctx, clients.Database, "nope", true), ErrUnknownExtension)
}

func TestUpdatesFollowEnabledState(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	updates := h.m.Updates(ctx)

	require.NoError(t, h.m.SetEnabled(context.Background(), clients.Database, "beta", false))

	disabled := func() bool {
		select {
		case infos := <-updates:
			for _, info := range infos {
				if info.Metadata.ID == "beta" {
					return !info.Metadata.Enabled
				}
			}
		default:
		}
		return false
	}
	assert.Eventually(t, disabled, time.Second, 5*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-updates:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)
}

func TestSelectNotifiesExtension(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.m.Database.Select(context.Background(), "alpha"))
	assert.Equal(t, 1, h.alpha.selected)
}

func TestPriority(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.m.SetPriority(ctx, clients.Database, []string{"broken", "alpha"}))
	assert.Equal(t, []string{"beta", "broken", "alpha"}, ids(h.m.Database.List()), "unlisted IDs rank first")

	assert.ErrorIs(t, h.m.SetPriority(ctx, clients.Database, []string{"ghost"}), ErrUnknownExtension)
}

func TestDiscoveryErrorsAreReported(t *testing.T) {
	h := newHarness(t)
	writeFilePlugin(t, h.paths.Plugins(), "bad", `{"id": "bad"}`)
	require.NoError(t, h.m.Refresh())

	select {
	case err := <-h.m.Errors():
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.ErrorIs(t, err, plugin.ErrMissingKey)
	case <-time.After(time.Second):
		t.Fatal("no error reported")
	}
	assert.Len(t, h.m.Database.List(), 3, "failed candidates are not listed")
}

func TestBuiltinWinsOverFileWithSameClass(t *testing.T) {
	h := newHarness(t)
	writeFilePlugin(t, h.paths.Plugins(), "alpha", `{"className": "builtin.Alpha", "id": "alpha-file"}`)
	writeFilePlugin(t, h.paths.Plugins(), "gamma", `{"className": "gamma.Client", "types": ["database"]}`)
	require.NoError(t, h.m.Refresh())

	list := h.m.Database.List()
	assert.Equal(t, []string{"alpha", "beta", "broken", "gamma.Client"}, ids(list))
	assert.Equal(t, plugin.BuiltIn, list[0].Metadata.ImportType)
	assert.Equal(t, plugin.File, list[3].Metadata.ImportType)
}

func TestInstallAndUninstallFile(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	src := writeFilePlugin(t, t.TempDir(), "download", `{"className": "sample.Subs", "id": "subs", "types": ["subtitle"]}`)

	md, err := h.m.Install(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(h.paths.Plugins(), "sample.Subs.vvf"), md.Path)
	assert.FileExists(t, md.Path)
	assert.FileExists(t, plugin.ManifestPath(md.Path))

	require.Len(t, h.m.Subtitle.List(), 1)
	listed := h.m.Subtitle.List()[0].Metadata
	assert.Equal(t, "subs", listed.ID)

	require.NoError(t, h.m.Settings(clients.Subtitle, "subs").Set("lang", "en"))
	require.NoError(t, h.m.Uninstall(ctx, listed))
	assert.NoFileExists(t, md.Path)
	assert.NoFileExists(t, plugin.ManifestPath(md.Path))
	assert.Empty(t, h.m.Subtitle.List())
	assert.Empty(t, h.m.Settings(clients.Subtitle, "subs").All())
}

func TestInstallAndUninstallPackage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	src := filepath.Join(t.TempDir(), "tmdb")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "tmdb"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, plugin.PackageFileName), []byte(`
name = "tmdb"
executable = "tmdb"
features = ["vividfusion.extension", "vividfusion.extension.database"]

[metadata]
class = "tmdb.Client"
id = "tmdb"
name = "TMDB"
version = "1.0.0"
description = "The Movie Database"
author = "someone"
`), 0o644))

	md, err := h.m.Install(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, plugin.App, md.ImportType)

	ext, ok := h.m.Database.Get("tmdb")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(h.paths.Packages, "tmdb", "tmdb"), ext.Metadata.Path)

	require.NoError(t, h.m.Uninstall(ctx, ext.Metadata))
	assert.NoDirExists(t, filepath.Join(h.paths.Packages, "tmdb"))
	_, ok = h.m.Database.Get("tmdb")
	assert.False(t, ok)
}

func TestUninstallBuiltinFails(t *testing.T) {
	h := newHarness(t)
	md, ok := h.m.Find("alpha")
	require.True(t, ok)
	assert.ErrorIs(t, h.m.Uninstall(context.Background(), md), ErrBuiltinUninstall)
}

func TestRunNotSupported(t *testing.T) {
	h := newHarness(t)
	ext, _ := h.m.Database.Get("alpha")

	_, err := Run(ext, func(c clients.SubtitleClient) ([]media.Subtitle, error) {
		return c.LoadSubtitles(context.Background(), media.Playable{})
	})
	assert.ErrorIs(t, err, clients.ErrNotSupported)

	tabs, err := Run(ext, func(c clients.DatabaseClient) ([]media.Tab, error) {
		return c.HomeTabs(context.Background())
	})
	require.NoError(t, err)
	assert.Empty(t, tabs)
}

func TestUpgradeFileAndPackage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	writeFilePlugin(t, h.paths.Plugins(), "gamma", `{"className": "gamma.Client", "id": "gamma", "version": "1.0.0"}`)
	pkg := filepath.Join(h.paths.Packages, "tmdb")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "tmdb"), []byte("old"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, plugin.PackageFileName), []byte(`
executable = "tmdb"
features = ["vividfusion.extension", "vividfusion.extension.database"]

[metadata]
class = "tmdb.Client"
id = "tmdb"
name = "TMDB"
version = "1.0.0"
description = "The Movie Database"
author = "someone"
`), 0o644))
	require.NoError(t, h.m.Refresh())

	binary := filepath.Join(t.TempDir(), "new")
	require.NoError(t, os.WriteFile(binary, []byte("new"), 0o755))

	for _, id := range []string{"gamma", "tmdb"} {
		md, ok := h.m.Find(id)
		require.True(t, ok, id)
		require.NoError(t, h.m.Upgrade(ctx, md, binary, "2.0.0"))

		md, _ = h.m.Find(id)
		assert.Equal(t, "2.0.0", md.Version, id)
		data, err := os.ReadFile(md.Path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	}

	alpha, _ := h.m.Find("alpha")
	assert.Error(t, h.m.Upgrade(ctx, alpha, binary, "2.0.0"))
}
