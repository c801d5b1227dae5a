package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vividfusion/internal/clients"
)

func validAppMeta() map[string]string {
	return map[string]string{
		"class":       "tmdb.Client",
		"id":          "tmdb",
		"name":        "TMDB",
		"version":     "1.2.0",
		"description": "Movie database",
		"author":      "someone",
	}
}

func TestAppParser(t *testing.T) {
	meta := validAppMeta()
	meta["icon_url"] = "https://example.com/icon.png"
	meta["types"] = "database, stream"

	md, err := AppParser{}.Parse(AppInfo{Package: "com.example.tmdb", Path: "/opt/tmdb/bin", Meta: meta})
	require.NoError(t, err)
	assert.Equal(t, "tmdb.Client", md.ClassName)
	assert.Equal(t, "tmdb", md.ID)
	assert.Equal(t, "TMDB", md.Name)
	assert.Equal(t, "1.2.0", md.Version)
	assert.Equal(t, "Movie database", md.Description)
	assert.Equal(t, "someone", md.Author)
	assert.Empty(t, md.AuthorURL)
	assert.Empty(t, md.RepoURL)
	assert.Empty(t, md.UpdateURL)
	assert.Equal(t, "/opt/tmdb/bin", md.Path)
	assert.Equal(t, App, md.ImportType)
	assert.Equal(t, "https://example.com/icon.png", md.IconURL)
	assert.True(t, md.Enabled)
	assert.Equal(t, []clients.ExtensionType{clients.Database, clients.Stream}, md.Types)
}

func TestAppParserTrimsValues(t *testing.T) {
	meta := validAppMeta()
	meta["id"] = "  tmdb\n"
	meta["description"] = "Movie database  with gaps "
	meta["repo_url"] = " https://github.com/x/tmdb "

	md, err := AppParser{}.Parse(AppInfo{Meta: meta})
	require.NoError(t, err)
	assert.Equal(t, "tmdb", md.ID)
	assert.Equal(t, "Movie database  with gaps", md.Description, "inner spacing is kept")
	assert.Equal(t, "https://github.com/x/tmdb", md.RepoURL)

	meta["name"] = "   "
	_, err = AppParser{}.Parse(AppInfo{Meta: meta})
	assert.ErrorIs(t, err, ErrMissingKey, "blank counts as missing")
}

func TestAppParserMissingKeys(t *testing.T) {
	for _, key := range []string{"class", "id", "name", "version", "description", "author"} {
		t.Run(key, func(t *testing.T) {
			meta := validAppMeta()
			delete(meta, key)

			md, err := AppParser{}.Parse(AppInfo{Package: "pkg", Meta: meta})
			require.Error(t, err)
			assert.Equal(t, Metadata{}, md)

			var me *ManifestError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, key, me.Key)
			assert.ErrorIs(t, err, ErrMissingKey)
		})
	}
}

func TestAppParserTypesFromFeatures(t *testing.T) {
	md, err := AppParser{}.Parse(AppInfo{
		Meta:     validAppMeta(),
		Features: []string{"vividfusion.extension", "vividfusion.extension.subtitle"},
	})
	require.NoError(t, err)
	assert.Equal(t, []clients.ExtensionType{clients.Subtitle}, md.Types)

	meta := validAppMeta()
	meta["types"] = "stream"
	md, err = AppParser{}.Parse(AppInfo{Meta: meta, Features: []string{"vividfusion.extension.subtitle"}})
	require.NoError(t, err)
	assert.Equal(t, []clients.ExtensionType{clients.Stream}, md.Types, "explicit types win")
}

func TestAppParserEnabled(t *testing.T) {
	meta := validAppMeta()
	meta["enabled"] = "false"
	md, err := AppParser{}.Parse(AppInfo{Meta: meta})
	require.NoError(t, err)
	assert.False(t, md.Enabled)

	meta["enabled"] = "sometimes"
	_, err = AppParser{}.Parse(AppInfo{Meta: meta})
	assert.ErrorIs(t, err, ErrMalformed)
}

func writePlugin(t *testing.T, dir, name, manifest string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	if manifest != "" {
		require.NoError(t, os.WriteFile(ManifestPath(path), []byte(manifest), 0o644))
	}
	return path
}

func TestFileParser(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		manifest string
		wantErr  error
		check    func(t *testing.T, md Metadata)
	}{
		{
			name:     "minimal",
			manifest: `{"className": "sample.Client"}`,
			check: func(t *testing.T, md Metadata) {
				assert.Equal(t, "sample.Client", md.ClassName)
				assert.Equal(t, "sample.Client", md.ID)
				assert.Equal(t, "sample.Client", md.Name)
				assert.Equal(t, "0.0.0", md.Version)
				assert.Equal(t, File, md.ImportType)
				assert.True(t, md.Enabled)
			},
		},
		{
			name:     "full",
			manifest: `{"className": "a.B", "id": "ab", "name": "AB", "version": "2.0", "author": ["x", "y"], "types": ["stream", "subtitle"], "repoUrl": "https://github.com/x/ab"}`,
			check: func(t *testing.T, md Metadata) {
				assert.Equal(t, "ab", md.ID)
				assert.Equal(t, "x, y", md.Author)
				assert.Equal(t, "https://github.com/x/ab", md.RepoURL)
				assert.Equal(t, []clients.ExtensionType{clients.Stream, clients.Subtitle}, md.Types)
			},
		},
		{name: "no class", manifest: `{"name": "nameless"}`, wantErr: ErrMissingKey},
		{name: "not json", manifest: `{className`, wantErr: ErrMalformed},
		{name: "bad type", manifest: `{"className": "a", "types": ["music"]}`, wantErr: ErrMalformed},
		{name: "no manifest", wantErr: ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePlugin(t, dir, tt.name+".vvf", tt.manifest)
			md, err := FileParser{}.Parse(path)
			if tt.wantErr != nil {
				require.Error(t, err)
				var me *ManifestError
				assert.True(t, errors.As(err, &me))
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, path, md.Path)
			tt.check(t, md)
		})
	}
}

func TestManifestPath(t *testing.T) {
	assert.Equal(t, "/p/plugins/tmdb.json", ManifestPath("/p/plugins/tmdb.vvf"))
}
