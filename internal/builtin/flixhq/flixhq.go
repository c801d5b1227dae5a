// Package flixhq is the built-in database and stream extension backed by
// the FlixHQ catalog site.
package flixhq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"vividfusion/internal/clients"
	"vividfusion/internal/httputil"
	"vividfusion/internal/media"
	"vividfusion/internal/paging"
)

// ID is the extension ID; ClassName is its registry key.
const (
	ID        = "flixhq"
	ClassName = "builtin.FlixHQ"
)

// Home tab IDs.
const (
	TabTrendingMovies = "trending-movies"
	TabTrendingTV     = "trending-tv"
	TabRecentMovies   = "movie"
	TabRecentTV       = "tv-show"
)

// Client implements clients.DatabaseClient and clients.StreamClient.
type Client struct {
	defaultBase string

	base     string // e.g., "flixhq.to"
	server   string
	client   *http.Client
	settings clients.PrefSettings
}

var (
	_ clients.DatabaseClient = (*Client)(nil)
	_ clients.StreamClient   = (*Client)(nil)
)

// New creates a client for the given domain. Init may override it from
// the user's settings.
func New(base string) *Client {
	return &Client{
		defaultBase: base,
		base:        base,
		server:      "Vidcloud",
		client:      httputil.NewClient(),
	}
}

func (c *Client) DefaultSettings() []clients.Setting {
	return []clients.Setting{
		{Key: "base", Title: "Domain", Summary: "Mirror domain to scrape", Kind: clients.SettingText, Default: c.defaultBase},
		{Key: "server", Title: "Preferred server", Kind: clients.SettingList, Default: "Vidcloud", Options: []string{"Vidcloud", "UpCloud"}},
	}
}

func (c *Client) Init(settings clients.PrefSettings, client *http.Client) error {
	c.settings = settings
	if client != nil {
		c.client = client
	}
	c.base = strings.TrimSuffix(clients.String(settings, "base", c.defaultBase), "/")
	c.server = clients.String(settings, "server", c.server)
	if c.base == "" {
		return errors.New("flixhq: empty base domain")
	}
	return nil
}

func (c *Client) OnExtensionSelected(context.Context) error { return nil }

func (c *Client) baseURL() string {
	return "https://" + c.base
}

func (c *Client) HomeTabs(context.Context) ([]media.Tab, error) {
	return []media.Tab{
		{ID: TabTrendingMovies, Title: "Trending Movies"},
		{ID: TabTrendingTV, Title: "Trending Shows"},
		{ID: TabRecentMovies, Title: "Recent Movies"},
		{ID: TabRecentTV, Title: "Recent Shows"},
	}, nil
}

// HomeFeed returns the trending panels as a single page and the recent
// listings as paged data.
func (c *Client) HomeFeed(tab media.Tab) paging.PagedData[media.Item] {
	switch tab.ID {
	case TabTrendingMovies, TabTrendingTV:
		return paging.NewSingle(func(ctx context.Context) ([]media.Item, error) {
			return c.trending(ctx, tab.ID)
		})
	case TabRecentTV:
		return c.listing("/tv-show")
	default:
		return c.listing("/movie")
	}
}

// Search returns paged results for query.
func (c *Client) Search(query string) paging.PagedData[media.Item] {
	return c.listing("/search/" + searchSlug(query))
}

func (c *Client) trending(ctx context.Context, panel string) ([]media.Item, error) {
	doc, err := c.fetchDocument(ctx, c.baseURL()+"/home")
	if err != nil {
		return nil, fmt.Errorf("getting trending: %w", err)
	}
	return c.absolute(parseItems(doc.Find("#" + panel))), nil
}

// listing pages through path with ?page=N. The continuation token is the
// next page number.
func (c *Client) listing(path string) *paging.Continuous[media.Item] {
	return paging.NewContinuous(func(ctx context.Context, token *string) (paging.Page[media.Item], error) {
		page := 1
		if token != nil {
			n, err := strconv.Atoi(*token)
			if err != nil || n < 1 {
				return paging.Page[media.Item]{}, fmt.Errorf("invalid page token %q", *token)
			}
			page = n
		}

		doc, err := c.fetchDocument(ctx, fmt.Sprintf("%s%s?page=%d", c.baseURL(), path, page))
		if err != nil {
			return paging.Page[media.Item]{}, fmt.Errorf("loading %s page %d: %w", path, page, err)
		}

		items := c.absolute(parseItems(doc.Selection))
		out := paging.Page[media.Item]{Data: items}
		if len(items) > 0 && page < parseLastPage(doc) {
			out.Continuation = paging.Token(strconv.Itoa(page + 1))
		}
		return out, nil
	})
}

func (c *Client) absolute(items []media.Item) []media.Item {
	for i := range items {
		if !strings.HasPrefix(items[i].URL, "http") {
			items[i].URL = c.baseURL() + items[i].URL
		}
	}
	return items
}

func (c *Client) Seasons(ctx context.Context, item media.Item) ([]media.Season, error) {
	if err := httputil.ValidateID(item.ID); err != nil {
		return nil, fmt.Errorf("invalid content ID: %w", err)
	}
	numID := extractNumericID(item.ID)
	if numID == "" {
		return nil, fmt.Errorf("cannot extract numeric ID from %q", item.ID)
	}

	doc, err := c.fetchDocument(ctx, fmt.Sprintf("%s/ajax/v2/tv/seasons/%s", c.baseURL(), numID))
	if err != nil {
		return nil, fmt.Errorf("getting seasons: %w", err)
	}
	return parseSeasons(doc), nil
}

func (c *Client) Episodes(ctx context.Context, _ media.Item, season media.Season) ([]media.Episode, error) {
	if err := httputil.ValidateID(season.ID); err != nil {
		return nil, fmt.Errorf("invalid season ID: %w", err)
	}

	doc, err := c.fetchDocument(ctx, fmt.Sprintf("%s/ajax/v2/season/episodes/%s", c.baseURL(), season.ID))
	if err != nil {
		return nil, fmt.Errorf("getting episodes: %w", err)
	}
	return parseEpisodes(doc), nil
}

// LoadLinks resolves every server for p to its embed URL. The preferred
// server is listed first. Servers that fail to resolve are skipped.
func (c *Client) LoadLinks(ctx context.Context, p media.Playable) (media.Links, error) {
	servers, err := c.servers(ctx, p)
	if err != nil {
		return media.Links{}, err
	}
	slices.SortStableFunc(servers, func(a, b server) int {
		return boolRank(strings.EqualFold(b.Name, c.server)) - boolRank(strings.EqualFold(a.Name, c.server))
	})

	var (
		links media.Links
		errs  []error
	)
	for _, s := range servers {
		link, err := c.embedURL(ctx, s.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("server %s: %w", s.Name, err))
			continue
		}
		links.Streams = append(links.Streams, media.Stream{
			Name:    s.Name,
			URL:     link,
			Embed:   true,
			Headers: map[string]string{"Referer": c.baseURL() + "/"},
		})
	}
	if len(links.Streams) == 0 {
		if len(errs) == 0 {
			return links, fmt.Errorf("no servers found for %s", p.Title())
		}
		return links, errors.Join(errs...)
	}
	return links, nil
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (c *Client) servers(ctx context.Context, p media.Playable) ([]server, error) {
	var endpoint string
	if p.Item.Type == media.TV {
		if err := httputil.ValidateID(p.Episode.ID); err != nil {
			return nil, fmt.Errorf("invalid episode ID: %w", err)
		}
		endpoint = fmt.Sprintf("%s/ajax/v2/episode/servers/%s", c.baseURL(), p.Episode.ID)
	} else {
		if err := httputil.ValidateID(p.Item.ID); err != nil {
			return nil, fmt.Errorf("invalid content ID: %w", err)
		}
		numID := extractNumericID(p.Item.ID)
		if numID == "" {
			return nil, fmt.Errorf("cannot extract numeric ID from %q", p.Item.ID)
		}
		endpoint = fmt.Sprintf("%s/ajax/movie/episodes/%s", c.baseURL(), numID)
	}

	doc, err := c.fetchDocument(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("getting servers: %w", err)
	}
	return parseServers(doc), nil
}

// embedURL asks the sources endpoint for a server's embed page. The
// response looks like {"type":"iframe","link":"https://...","sources":[],"tracks":[]}.
func (c *Client) embedURL(ctx context.Context, serverID string) (string, error) {
	if err := httputil.ValidateID(serverID); err != nil {
		return "", fmt.Errorf("invalid server ID: %w", err)
	}
	var result struct {
		Link string `json:"link"`
	}
	if err := httputil.GetJSON(ctx, c.client, fmt.Sprintf("%s/ajax/episode/sources/%s", c.baseURL(), serverID), &result); err != nil {
		return "", fmt.Errorf("getting embed URL: %w", err)
	}
	if result.Link == "" {
		return "", fmt.Errorf("no embed URL found for server %s", serverID)
	}
	if err := httputil.ValidateURL(result.Link); err != nil {
		return "", fmt.Errorf("embed URL rejected: %w", err)
	}
	return result.Link, nil
}

func (c *Client) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	resp, err := httputil.Get(ctx, c.client, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, httputil.MaxBody))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}
