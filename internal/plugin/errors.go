package plugin

import (
	"errors"
	"fmt"
)

// Manifest failures.
var (
	ErrMissingKey = errors.New("missing required key")
	ErrMalformed  = errors.New("malformed manifest")
)

// Load failures.
var (
	ErrClassNotFound      = errors.New("class not found")
	ErrNoConstructor      = errors.New("no zero-argument constructor")
	ErrCapabilityMismatch = errors.New("instance does not implement the requested capability")
	ErrPathInaccessible   = errors.New("plugin path is not accessible")
	ErrLoaderClosed       = errors.New("plugin loader is closed")
)

// ManifestError reports a manifest that could not be turned into Metadata.
type ManifestError struct {
	Source string // file path or package name
	Key    string // offending key, if any
	Err    error
}

func (e *ManifestError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("manifest %s: %v %q", e.Source, e.Err, e.Key)
	}
	return fmt.Sprintf("manifest %s: %v", e.Source, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// ClassLoadError reports Metadata that could not be instantiated.
type ClassLoadError struct {
	ClassName string
	Path      string
	Err       error
}

func (e *ClassLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("loading %s: %v", e.ClassName, e.Err)
	}
	return fmt.Sprintf("loading %s from %s: %v", e.ClassName, e.Path, e.Err)
}

func (e *ClassLoadError) Unwrap() error { return e.Err }

func classErr(md Metadata, err error) error {
	return &ClassLoadError{ClassName: md.ClassName, Path: md.Path, Err: err}
}
