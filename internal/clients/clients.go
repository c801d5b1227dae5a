// Package clients defines the capability interfaces an extension can
// implement. Every extension is a BaseClient; the other interfaces are
// optional and discovered by type assertion.
package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"vividfusion/internal/media"
	"vividfusion/internal/paging"
)

// BaseClient is implemented by every extension.
type BaseClient interface {
	// DefaultSettings lists the settings the extension understands.
	DefaultSettings() []Setting
	// Init hands the extension its persisted settings and the shared
	// HTTP client. It runs once, before any other call.
	Init(settings PrefSettings, client *http.Client) error
	// OnExtensionSelected is called when the user makes this extension
	// the active one for its type.
	OnExtensionSelected(ctx context.Context) error
}

// DatabaseClient provides catalog browsing and search.
type DatabaseClient interface {
	BaseClient
	HomeTabs(ctx context.Context) ([]media.Tab, error)
	HomeFeed(tab media.Tab) paging.PagedData[media.Item]
	Search(query string) paging.PagedData[media.Item]
	Seasons(ctx context.Context, item media.Item) ([]media.Season, error)
	Episodes(ctx context.Context, item media.Item, season media.Season) ([]media.Episode, error)
}

// StreamClient resolves playable links.
type StreamClient interface {
	BaseClient
	LoadLinks(ctx context.Context, p media.Playable) (media.Links, error)
}

// SubtitleClient finds subtitle tracks.
type SubtitleClient interface {
	BaseClient
	LoadSubtitles(ctx context.Context, p media.Playable) ([]media.Subtitle, error)
}

// ErrNotSupported is matched by every NotSupportedError.
var ErrNotSupported = errors.New("not supported")

// NotSupportedError reports an extension that lacks a capability at call
// time.
type NotSupportedError struct {
	Extension  string
	Capability string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("extension %s does not support %s", e.Extension, e.Capability)
}

func (e *NotSupportedError) Is(target error) bool { return target == ErrNotSupported }

// Supports reports whether c implements the interface for kind.
func Supports(c any, kind ExtensionType) bool {
	switch kind {
	case Database:
		_, ok := c.(DatabaseClient)
		return ok
	case Stream:
		_, ok := c.(StreamClient)
		return ok
	case Subtitle:
		_, ok := c.(SubtitleClient)
		return ok
	}
	return false
}
