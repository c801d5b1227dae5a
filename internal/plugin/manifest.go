package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vividfusion/internal/clients"
)

// Parser turns a source item into Metadata. On failure it returns a
// *ManifestError and no Metadata.
type Parser[S any] interface {
	Parse(src S) (Metadata, error)
}

// FieldSource is anything that can look up a manifest value by key.
type FieldSource interface {
	Field(key string) (string, bool)
}

// fieldNames maps Metadata fields to the keys a manifest format uses.
type fieldNames struct {
	class, id, name, version, description, author string
	authorURL, iconURL, repoURL, updateURL        string
	enabled, types                                string
}

var appFields = fieldNames{
	class: "class", id: "id", name: "name", version: "version",
	description: "description", author: "author",
	authorURL: "author_url", iconURL: "icon_url", repoURL: "repo_url", updateURL: "update_url",
	enabled: "enabled", types: "types",
}

var fileFields = fieldNames{
	class: "className", id: "id", name: "name", version: "version",
	description: "description", author: "author",
	authorURL: "authorUrl", iconURL: "iconUrl", repoURL: "repoUrl", updateURL: "updateUrl",
	enabled: "enabled", types: "types",
}

// fieldReader trims surrounding whitespace from every value. A required key
// that is blank after trimming is treated as missing.
type fieldReader struct {
	src    FieldSource
	origin string
	err    error
}

func (r *fieldReader) required(key string) string {
	v, ok := r.src.Field(key)
	v = strings.TrimSpace(v)
	if (!ok || v == "") && r.err == nil {
		r.err = &ManifestError{Source: r.origin, Key: key, Err: ErrMissingKey}
	}
	return v
}

func (r *fieldReader) optional(key, def string) string {
	if v, ok := r.src.Field(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *fieldReader) boolean(key string, def bool) bool {
	v, ok := r.src.Field(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil && r.err == nil {
		r.err = &ManifestError{Source: r.origin, Key: key, Err: ErrMalformed}
	}
	return b
}

func (r *fieldReader) kinds(key string) []clients.ExtensionType {
	v, ok := r.src.Field(key)
	if !ok || v == "" {
		return nil
	}
	var out []clients.ExtensionType
	for _, part := range strings.Split(v, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := clients.ParseExtensionType(part)
		if err != nil {
			if r.err == nil {
				r.err = &ManifestError{Source: r.origin, Key: key, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
			}
			return nil
		}
		out = append(out, t)
	}
	return out
}

// AppInfo is an installed package as reported by a PackageManager.
type AppInfo struct {
	Package  string
	Dir      string // package directory
	Path     string // absolute path of the package executable
	Features []string
	Meta     map[string]string
}

func (a AppInfo) Field(key string) (string, bool) {
	v, ok := a.Meta[key]
	return v, ok
}

func (a AppInfo) String() string { return a.Package }

// AppParser reads Metadata from an installed package. Every identifying
// key is required.
type AppParser struct{}

func (AppParser) Parse(app AppInfo) (Metadata, error) {
	r := &fieldReader{src: app, origin: app.Package}
	n := appFields
	md := Metadata{
		ClassName:   r.required(n.class),
		Path:        app.Path,
		ImportType:  App,
		ID:          r.required(n.id),
		Name:        r.required(n.name),
		Version:     r.required(n.version),
		Description: r.required(n.description),
		Author:      r.required(n.author),
		AuthorURL:   r.optional(n.authorURL, ""),
		IconURL:     r.optional(n.iconURL, ""),
		RepoURL:     r.optional(n.repoURL, ""),
		UpdateURL:   r.optional(n.updateURL, ""),
		Enabled:     r.boolean(n.enabled, true),
		Types:       r.kinds(n.types),
	}
	if r.err != nil {
		return Metadata{}, r.err
	}
	if md.Types == nil {
		md.Types = featureTypes(app.Features)
	}
	return md, nil
}

// featureTypes reads extension types from "<prefix>.extension.<type>"
// feature tags.
func featureTypes(features []string) []clients.ExtensionType {
	var out []clients.ExtensionType
	for _, t := range clients.Types {
		for _, f := range features {
			if strings.HasSuffix(f, ".extension."+t.String()) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// jsonFields exposes a decoded JSON object as a FieldSource. Arrays of
// strings are joined with commas.
type jsonFields map[string]any

func (j jsonFields) Field(key string) (string, bool) {
	v, ok := j[key]
	if !ok || v == nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), true
	default:
		return fmt.Sprint(x), true
	}
}

// ManifestPath returns the JSON manifest that accompanies a plugin file:
// "tmdb.vvf" is described by "tmdb.json" in the same directory.
func ManifestPath(pluginPath string) string {
	return strings.TrimSuffix(pluginPath, filepath.Ext(pluginPath)) + ".json"
}

// FileParser reads Metadata from the JSON manifest next to a plugin file.
// Only className is required; id and name default to it.
type FileParser struct{}

func (FileParser) Parse(path string) (Metadata, error) {
	data, err := os.ReadFile(ManifestPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Metadata{}, &ManifestError{Source: path, Err: fmt.Errorf("%w: no manifest beside plugin", ErrMalformed)}
		}
		return Metadata{}, &ManifestError{Source: path, Err: err}
	}

	var fields jsonFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return Metadata{}, &ManifestError{Source: path, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}

	r := &fieldReader{src: fields, origin: path}
	n := fileFields
	class := r.required(n.class)
	md := Metadata{
		ClassName:   class,
		Path:        path,
		ImportType:  File,
		ID:          r.optional(n.id, class),
		Name:        r.optional(n.name, class),
		Version:     r.optional(n.version, "0.0.0"),
		Description: r.optional(n.description, ""),
		Author:      r.optional(n.author, ""),
		AuthorURL:   r.optional(n.authorURL, ""),
		IconURL:     r.optional(n.iconURL, ""),
		RepoURL:     r.optional(n.repoURL, ""),
		UpdateURL:   r.optional(n.updateURL, ""),
		Enabled:     r.boolean(n.enabled, true),
		Types:       r.kinds(n.types),
	}
	if r.err != nil {
		return Metadata{}, r.err
	}
	return md, nil
}

// Parsed passes already-built Metadata through, for sources that produce
// Metadata directly.
type Parsed struct{}

func (Parsed) Parse(md Metadata) (Metadata, error) {
	if md.ClassName == "" {
		return Metadata{}, &ManifestError{Source: md.ID, Key: "class", Err: ErrMissingKey}
	}
	return md, nil
}
