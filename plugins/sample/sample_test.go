package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vividfusion/internal/clients"
	"vividfusion/internal/media"
)

func initClient(t *testing.T, values map[string]string) *Client {
	t.Helper()
	c := &Client{}
	require.NoError(t, c.Init(clients.NewMapSettings(values), nil))
	return c
}

func TestImplementsCapabilities(t *testing.T) {
	var c any = &Client{}
	assert.True(t, clients.Supports(c, clients.Stream))
	assert.True(t, clients.Supports(c, clients.Subtitle))
	assert.False(t, clients.Supports(c, clients.Database))
}

func TestLoadLinks(t *testing.T) {
	c := initClient(t, map[string]string{"referer": "https://example.com/"})
	ctx := context.Background()

	links, err := c.LoadLinks(ctx, media.Playable{Item: media.Item{URL: "https://cdn.example.com/a/movie.MP4"}})
	require.NoError(t, err)
	require.Len(t, links.Streams, 1)
	assert.Equal(t, "https://cdn.example.com/a/movie.MP4", links.Streams[0].URL)
	assert.Equal(t, "https://example.com/", links.Streams[0].Headers["Referer"])

	for _, u := range []string{"https://example.com/watch/1", "http://cdn.example.com/a.mp4", ""} {
		_, err := c.LoadLinks(ctx, media.Playable{Item: media.Item{URL: u}})
		assert.ErrorIs(t, err, ErrNotMedia, u)
	}
}

func TestLoadSubtitles(t *testing.T) {
	ctx := context.Background()
	p := media.Playable{
		Item:    media.Item{ID: "tv/show 1"},
		Season:  media.Season{Number: 2},
		Episode: media.Episode{Number: 7},
	}

	subs, err := initClient(t, nil).LoadSubtitles(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, subs)

	c := initClient(t, map[string]string{"subtitle_template": "https://subs.example.com/{id}/{season}x{episode}.{lang}.vtt", "language": "Spanish"})
	subs, err = c.LoadSubtitles(ctx, p)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://subs.example.com/tv%2Fshow%201/2x7.spanish.vtt", subs[0].URL)
	assert.Equal(t, "Spanish", subs[0].Language)
}

func TestInitRejectsInsecureTemplate(t *testing.T) {
	c := &Client{}
	assert.Error(t, c.Init(clients.NewMapSettings(map[string]string{"subtitle_template": "http://x/{id}.vtt"}), nil))
}
