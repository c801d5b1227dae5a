package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"vividfusion/internal/clients"
	"vividfusion/internal/media"
)

// ClassName must match the manifest.
const ClassName = "sample.Direct"

var mediaExts = []string{".m3u8", ".mp4", ".mkv", ".webm"}

// ErrNotMedia is returned for items whose URL is not a media file.
var ErrNotMedia = errors.New("item URL is not a media file")

// Client is a stream and subtitle extension.
type Client struct {
	referer  string
	template string
	language string
}

func (c *Client) DefaultSettings() []clients.Setting {
	return []clients.Setting{
		{Key: "referer", Title: "Referer", Summary: "Referer header sent with streams"},
		{
			Key:     "subtitle_template",
			Title:   "Subtitle URL template",
			Summary: "Placeholders: {id} {season} {episode} {lang}",
		},
		{Key: "language", Title: "Subtitle language", Default: "English"},
	}
}

func (c *Client) Init(settings clients.PrefSettings, _ *http.Client) error {
	c.referer = clients.String(settings, "referer", "")
	c.template = clients.String(settings, "subtitle_template", "")
	c.language = clients.String(settings, "language", "English")
	if c.template != "" && !strings.HasPrefix(c.template, "https://") {
		return fmt.Errorf("subtitle_template must be an https URL")
	}
	return nil
}

func (c *Client) OnExtensionSelected(context.Context) error { return nil }

// LoadLinks returns the item URL as a single stream when it names a media
// file.
func (c *Client) LoadLinks(_ context.Context, p media.Playable) (media.Links, error) {
	u, err := url.Parse(p.Item.URL)
	if err != nil || u.Scheme != "https" {
		return media.Links{}, fmt.Errorf("%w: %q", ErrNotMedia, p.Item.URL)
	}
	ext := strings.ToLower(path.Ext(u.Path))
	known := false
	for _, e := range mediaExts {
		known = known || e == ext
	}
	if !known {
		return media.Links{}, fmt.Errorf("%w: %q", ErrNotMedia, p.Item.URL)
	}

	s := media.Stream{Name: "Direct", URL: u.String()}
	if c.referer != "" {
		s.Headers = map[string]string{"Referer": c.referer}
	}
	return media.Links{Streams: []media.Stream{s}}, nil
}

// LoadSubtitles fills the configured template. Without a template there
// are no tracks.
func (c *Client) LoadSubtitles(_ context.Context, p media.Playable) ([]media.Subtitle, error) {
	if c.template == "" {
		return nil, nil
	}
	r := strings.NewReplacer(
		"{id}", url.PathEscape(p.Item.ID),
		"{season}", strconv.Itoa(p.Season.Number),
		"{episode}", strconv.Itoa(p.Episode.Number),
		"{lang}", url.PathEscape(strings.ToLower(c.language)),
	)
	return []media.Subtitle{{
		Language: c.language,
		Label:    c.language,
		URL:      r.Replace(c.template),
	}}, nil
}
