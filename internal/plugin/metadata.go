// Package plugin discovers, describes and loads extensions. Extensions come
// from three places: a compile-time registry of built-ins, installed
// packages, and plugin files dropped into the plugins directory. Each source
// yields Metadata; a Loader turns Metadata into a live instance on demand.
package plugin

import (
	"slices"
	"sync"

	"vividfusion/internal/clients"
)

// ImportType records where an extension came from. Lower values win when
// the same class is provided twice.
type ImportType int

const (
	BuiltIn ImportType = iota
	App
	File
)

func (t ImportType) String() string {
	switch t {
	case BuiltIn:
		return "builtin"
	case App:
		return "app"
	case File:
		return "file"
	default:
		return "unknown"
	}
}

// Metadata describes an extension without loading it. It is identified by
// (Path, ClassName) and rebuilt on every rescan.
type Metadata struct {
	ClassName   string
	Path        string
	ImportType  ImportType
	ID          string
	Name        string
	Version     string
	Description string
	Author      string
	AuthorURL   string
	IconURL     string
	RepoURL     string
	UpdateURL   string
	Enabled     bool
	Types       []clients.ExtensionType
}

// Key is the identity of the extension across rescans.
func (m Metadata) Key() string {
	return m.Path + "#" + m.ClassName
}

// Supports reports whether the extension declares kind. Metadata without
// declared types is assumed to support anything.
func (m Metadata) Supports(kind clients.ExtensionType) bool {
	return len(m.Types) == 0 || slices.Contains(m.Types, kind)
}

// Extension pairs Metadata with a lazily created instance. The instance is
// created on the first Instance call and shared afterwards, including a
// failure.
type Extension[T any] struct {
	Metadata Metadata
	instance func() (T, error)
}

// NewExtension wraps load so it runs at most once.
func NewExtension[T any](md Metadata, load func() (T, error)) *Extension[T] {
	return &Extension[T]{Metadata: md, instance: sync.OnceValues(load)}
}

// Instance returns the extension instance, creating it if needed.
func (e *Extension[T]) Instance() (T, error) {
	return e.instance()
}

// ID is a shorthand for Metadata.ID.
func (e *Extension[T]) ID() string { return e.Metadata.ID }
