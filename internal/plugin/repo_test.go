package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vividfusion/internal/clients"
)

// classLoader hands out testStreams by class name and fails for the rest.
type classLoader struct {
	calls atomic.Int32
	ok    map[string]bool
}

func (l *classLoader) Load(md Metadata, _ clients.ExtensionType) (any, error) {
	l.calls.Add(1)
	if !l.ok[md.ClassName] {
		return nil, classErr(md, ErrClassNotFound)
	}
	return &testStream{testBase{name: md.ClassName}}, nil
}

func pluginDir(t *testing.T) (root, dir string) {
	t.Helper()
	root = t.TempDir()
	dir = filepath.Join(root, "plugins")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return root, dir
}

func TestLazyRepoKeepsFailures(t *testing.T) {
	root, dir := pluginDir(t)
	writePlugin(t, dir, "good.vvf", `{"className": "good.Stream"}`)
	writePlugin(t, dir, "broken.vvf", `{"name": "no class"}`)
	writePlugin(t, dir, "unloadable.vvf", `{"className": "gone.Stream"}`)
	writePlugin(t, dir, "notes.txt", `{"className": "ignored"}`)

	loader := &classLoader{ok: map[string]bool{"good.Stream": true}}
	repo := NewLazyRepo[string, clients.StreamClient](
		NewFileSource(root, "vvf", hclog.NewNullLogger()), FileParser{}, loader, clients.Stream, hclog.NewNullLogger())

	cs := repo.Load().Value()
	require.Len(t, cs, 3)
	assert.EqualValues(t, 0, loader.calls.Load(), "lazy repo must not load on discovery")

	byClass := map[string]Candidate[clients.StreamClient]{}
	var broken int
	for _, c := range cs {
		md, ok := c.Metadata()
		if !ok {
			broken++
			var me *ManifestError
			assert.True(t, errors.As(c.Err, &me))
			continue
		}
		byClass[md.ClassName] = c
	}
	assert.Equal(t, 1, broken)

	_, err := byClass["good.Stream"].Instance()
	require.NoError(t, err)

	failed := byClass["gone.Stream"]
	_, err = failed.Instance()
	assert.ErrorIs(t, err, ErrClassNotFound)
	md, ok := failed.Metadata()
	require.True(t, ok)
	assert.Equal(t, "gone.Stream", md.ClassName)
}

func TestLazyRepoInstanceIsMemoized(t *testing.T) {
	root, dir := pluginDir(t)
	writePlugin(t, dir, "good.vvf", `{"className": "good.Stream"}`)

	loader := &classLoader{ok: map[string]bool{"good.Stream": true}}
	repo := NewLazyRepo[string, clients.StreamClient](
		NewFileSource(root, "vvf", hclog.NewNullLogger()), FileParser{}, loader, clients.Stream, hclog.NewNullLogger())

	c := repo.Load().Value()[0]
	first, err := c.Instance()
	require.NoError(t, err)
	second, err := c.Instance()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, loader.calls.Load())
}

func TestLazyRepoSkipsUndeclaredTypes(t *testing.T) {
	root, dir := pluginDir(t)
	writePlugin(t, dir, "subs.vvf", `{"className": "subs.Only", "types": ["subtitle"]}`)

	repo := NewLazyRepo[string, clients.StreamClient](
		NewFileSource(root, "vvf", hclog.NewNullLogger()), FileParser{}, &classLoader{}, clients.Stream, hclog.NewNullLogger())
	assert.Empty(t, repo.Load().Value())
}

func TestFileRepoDropsFailures(t *testing.T) {
	root, dir := pluginDir(t)
	writePlugin(t, dir, "a.vvf", `{"className": "a.Stream"}`)
	writePlugin(t, dir, "b.vvf", `{"version": "1"}`)
	writePlugin(t, dir, "c.vvf", `{"className": "c.Missing"}`)

	loader := &classLoader{ok: map[string]bool{"a.Stream": true}}
	repo := NewFileRepo[clients.StreamClient](NewFileSource(root, "vvf", hclog.NewNullLogger()), loader, clients.Stream, hclog.NewNullLogger())

	exts := repo.Load().Value()
	require.Len(t, exts, 1)
	assert.Equal(t, "a.Stream", exts[0].Metadata.ClassName)
}

func TestFileRepoEmptyDirectory(t *testing.T) {
	repo := NewFileRepo[clients.StreamClient](NewFileSource(t.TempDir(), "vvf", hclog.NewNullLogger()), &classLoader{}, clients.Stream, hclog.NewNullLogger())
	assert.Empty(t, repo.Load().Value())
}

func TestFileSourceRefreshPublishes(t *testing.T) {
	root, dir := pluginDir(t)
	src := NewFileSource(root, "vvf", hclog.NewNullLogger())
	files := src.Load()
	assert.Empty(t, files.Value())

	writePlugin(t, dir, "late.vvf", `{"className": "late.Stream"}`)
	require.NoError(t, src.Refresh())
	assert.Equal(t, []string{filepath.Join(dir, "late.vvf")}, files.Value())
}

func staticRepo(items ...string) *StaticSource[string] {
	return NewStaticSource(items)
}

func TestComposeConcatenatesInOrder(t *testing.T) {
	a := staticRepo("a1", "a2")
	b := staticRepo()
	c := staticRepo("c1")

	all := Compose[string](a, b, c).Load()
	assert.Equal(t, []string{"a1", "a2", "c1"}, all.Value())

	b.Load().Set([]string{"b1", "a1"})
	assert.Equal(t, []string{"a1", "a2", "b1", "a1", "c1"}, all.Value())
}

func TestComposeEmpty(t *testing.T) {
	assert.Empty(t, Compose[string]().Load().Value())
}

func candidate(class string, typ ImportType) Candidate[string] {
	md := Metadata{ClassName: class, ImportType: typ, Path: typ.String()}
	return Candidate[string]{Source: md.Path, Ext: NewExtension(md, func() (string, error) { return md.Path, nil })}
}

func TestDedupeByClass(t *testing.T) {
	broken := Candidate[string]{Source: "bad.vvf", Err: errors.New("bad manifest")}
	in := []Candidate[string]{
		candidate("x", File),
		candidate("y", App),
		broken,
		candidate("x", BuiltIn),
		candidate("y", File),
	}

	out := DedupeByClass(in)
	require.Len(t, out, 3)
	assert.Equal(t, BuiltIn, out[0].Ext.Metadata.ImportType)
	assert.Equal(t, "x", out[0].Ext.Metadata.ClassName)
	assert.Equal(t, App, out[1].Ext.Metadata.ImportType)
	assert.Equal(t, broken.Err, out[2].Err)
}
