// Package subtitle picks subtitle tracks and stages them in a private temp
// directory for the player.
package subtitle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"vividfusion/internal/httputil"
	"vividfusion/internal/media"
)

// maxSize caps a downloaded subtitle file.
const maxSize = 10 << 20

// Filter returns subtitles whose language or label contains language,
// case-insensitively. An empty language matches everything.
func Filter(subtitles []media.Subtitle, language string) []media.Subtitle {
	if language == "" {
		return subtitles
	}

	lang := strings.ToLower(language)
	var matched []media.Subtitle
	for _, sub := range subtitles {
		if strings.Contains(strings.ToLower(sub.Language), lang) ||
			strings.Contains(strings.ToLower(sub.Label), lang) {
			matched = append(matched, sub)
		}
	}
	return matched
}

// BestMatch returns the preferred track for language: a non-SDH match if
// there is one, otherwise the first match.
func BestMatch(subtitles []media.Subtitle, language string) (media.Subtitle, bool) {
	filtered := Filter(subtitles, language)
	if len(filtered) == 0 {
		return media.Subtitle{}, false
	}

	lang := strings.ToLower(language)
	for _, sub := range filtered {
		label := strings.ToLower(sub.Label)
		if strings.Contains(label, lang) && !strings.Contains(label, "sdh") {
			return sub, true
		}
	}
	return filtered[0], true
}

// Merge concatenates track lists, dropping repeated URLs.
func Merge(lists ...[]media.Subtitle) []media.Subtitle {
	seen := make(map[string]bool)
	var out []media.Subtitle
	for _, l := range lists {
		for _, sub := range l {
			if sub.URL == "" || seen[sub.URL] {
				continue
			}
			seen[sub.URL] = true
			out = append(out, sub)
		}
	}
	return out
}

// TempDir is a randomized directory holding downloaded subtitle files.
type TempDir struct {
	path   string
	client *http.Client
	n      int
}

// NewTempDir creates the directory. Downloads go through client.
func NewTempDir(client *http.Client) (*TempDir, error) {
	dir, err := os.MkdirTemp("", "vividfusion-subs-*")
	if err != nil {
		return nil, fmt.Errorf("creating subtitle temp dir: %w", err)
	}
	return &TempDir{path: dir, client: client}, nil
}

// Path is the directory location.
func (t *TempDir) Path() string { return t.path }

// Cleanup removes the directory and everything in it.
func (t *TempDir) Cleanup() {
	if t.path != "" {
		os.RemoveAll(t.path)
	}
}

// Download fetches sub into the directory and returns the local path.
func (t *TempDir) Download(ctx context.Context, sub media.Subtitle) (string, error) {
	resp, err := httputil.Get(ctx, t.client, sub.URL)
	if err != nil {
		return "", fmt.Errorf("downloading subtitle: %w", err)
	}
	defer resp.Body.Close()

	t.n++
	local, err := httputil.SafeJoin(t.path, fmt.Sprintf("%02d-%s", t.n, fileName(sub.URL)))
	if err != nil {
		return "", err
	}
	f, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("creating subtitle file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxSize)); err != nil {
		return "", fmt.Errorf("writing subtitle file: %w", err)
	}
	return local, nil
}

func fileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "subtitle.vtt"
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "subtitle.vtt"
	}
	return httputil.SanitizeFilename(name)
}
