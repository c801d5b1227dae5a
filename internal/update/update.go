// Package update finds and downloads newer extension builds: GitHub
// release lookups for installed extensions and the remote extension list
// used to discover new ones.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"vividfusion/internal/httputil"
	"vividfusion/internal/plugin"
)

const githubAPI = "https://api.github.com"

// ErrNoAsset means the newest release carries no file with the plugin
// suffix.
var ErrNoAsset = errors.New("release has no matching asset")

// Release is the subset of a GitHub release the checker reads.
type Release struct {
	TagName    string    `json:"tag_name"`
	CreatedAt  time.Time `json:"created_at"`
	Prerelease bool      `json:"prerelease"`
	Assets     []Asset   `json:"assets"`
}

// Asset is a downloadable release file.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

// Version returns the part of the tag after its first "v", so both
// "v1.2.0" and "release-v1.2.0" yield "1.2.0".
func (r Release) Version() string {
	if _, after, ok := strings.Cut(r.TagName, "v"); ok {
		return after
	}
	return r.TagName
}

// Listing is one entry of a remote extension list.
type Listing struct {
	Name        string   `json:"name"`
	ClassName   string   `json:"className"`
	Version     string   `json:"version"`
	URL         string   `json:"url"`
	Status      int      `json:"status"`
	RepoURL     string   `json:"repoUrl,omitempty"`
	IconURL     string   `json:"iconUrl,omitempty"`
	Description string   `json:"description,omitempty"`
	Author      []string `json:"author,omitempty"`
	FileSize    int64    `json:"fileSize,omitempty"`
}

// Manifest converts a listing into the JSON manifest written beside a
// downloaded plugin file.
func (l Listing) Manifest() map[string]any {
	m := map[string]any{
		"className": l.ClassName,
		"name":      l.Name,
		"version":   l.Version,
	}
	if l.Description != "" {
		m["description"] = l.Description
	}
	if len(l.Author) > 0 {
		m["author"] = strings.Join(l.Author, ", ")
	}
	if l.RepoURL != "" {
		m["repoUrl"] = l.RepoURL
	}
	if l.IconURL != "" {
		m["iconUrl"] = l.IconURL
	}
	return m
}

// Checker talks to update servers.
type Checker struct {
	github string
	client *http.Client
	suffix string
	logger hclog.Logger
}

// NewChecker returns a checker matching release assets by suffix, e.g.
// ".vvf".
func NewChecker(client *http.Client, suffix string, logger hclog.Logger) *Checker {
	return &Checker{github: githubAPI, client: client, suffix: suffix, logger: logger.Named("update")}
}

// Update is a newer build of an installed extension. Version is empty
// when the update URL is not a release listing.
type Update struct {
	URL     string
	Version string
}

// Check looks for a newer build of md. It returns the zero Update when md
// is current or declares no update URL. GitHub release API URLs are
// resolved to the newest release's asset; any other URL is returned as is.
func (c *Checker) Check(ctx context.Context, md plugin.Metadata) (Update, error) {
	if md.UpdateURL == "" {
		return Update{}, nil
	}
	if !strings.HasPrefix(md.UpdateURL, c.github) {
		return Update{URL: md.UpdateURL}, nil
	}

	rel, ok, err := c.LatestRelease(ctx, md.UpdateURL)
	if err != nil || !ok {
		return Update{}, err
	}
	if rel.Version() == md.Version {
		c.logger.Debug("extension is current", "id", md.ID, "version", md.Version)
		return Update{}, nil
	}
	for _, a := range rel.Assets {
		if strings.HasSuffix(a.Name, c.suffix) {
			return Update{URL: a.DownloadURL, Version: rel.Version()}, nil
		}
	}
	return Update{}, fmt.Errorf("%w: %s %s", ErrNoAsset, md.ID, rel.TagName)
}

// LatestRelease fetches a GitHub releases listing and returns the most
// recently created release.
func (c *Checker) LatestRelease(ctx context.Context, url string) (Release, bool, error) {
	var releases []Release
	if err := httputil.GetJSON(ctx, c.client, url, &releases); err != nil {
		return Release{}, false, fmt.Errorf("listing releases: %w", err)
	}
	if len(releases) == 0 {
		return Release{}, false, nil
	}
	latest := releases[0]
	for _, r := range releases[1:] {
		if r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return latest, true, nil
}

// ExtensionList fetches a remote list of available extensions.
func (c *Checker) ExtensionList(ctx context.Context, url string) ([]Listing, error) {
	var list []Listing
	if err := httputil.GetJSON(ctx, c.client, url, &list); err != nil {
		return nil, fmt.Errorf("invalid extension list: %w", err)
	}
	return list, nil
}

// Download saves url into dir and returns the file path. The file name
// comes from the Content-Disposition header, then the URL path, then
// "update.bin".
func (c *Checker) Download(ctx context.Context, url, dir string) (string, error) {
	resp, err := httputil.Get(ctx, c.client, url)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	name := filenameFrom(resp)
	path, err := httputil.SafeJoin(dir, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	c.logger.Debug("downloaded", "url", url, "path", path, "bytes", n)
	return path, nil
}

func filenameFrom(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	if base := filepath.Base(resp.Request.URL.Path); base != "/" && base != "." && base != "" {
		return base
	}
	return "update.bin"
}

// WriteManifest writes l's manifest beside the plugin file at path.
func WriteManifest(path string, l Listing) error {
	data, err := json.MarshalIndent(l.Manifest(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(plugin.ManifestPath(path), data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
