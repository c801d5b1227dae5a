package flixhq

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"vividfusion/internal/media"
)

type server struct {
	Name string
	ID   string
}

// parseItems extracts catalog cards below sel. Titles are taken from DOM
// text, never from raw HTML.
func parseItems(sel *goquery.Selection) []media.Item {
	var items []media.Item

	sel.Find(".film_list-wrap .flw-item").Each(func(_ int, s *goquery.Selection) {
		link := s.Find(".film-name a").First()
		href, _ := link.Attr("href")
		it := media.Item{
			ID:        extractID(href),
			Title:     strings.TrimSpace(link.Text()),
			URL:       href,
			Type:      media.Movie,
			Extension: ID,
		}
		if strings.Contains(href, "/tv/") {
			it.Type = media.TV
		}

		s.Find(".fd-infor span").Each(func(_ int, span *goquery.Selection) {
			text := strings.TrimSpace(span.Text())
			if _, err := strconv.Atoi(text); err == nil && len(text) == 4 {
				it.Year = text
			}
		})

		if it.Title != "" && it.ID != "" {
			items = append(items, it)
		}
	})

	return items
}

// parseLastPage returns the highest page number linked from the
// pagination bar, or 1 when there is none.
func parseLastPage(doc *goquery.Document) int {
	last := 1
	doc.Find(".pagination a.page-link").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if n, err := strconv.Atoi(u.Query().Get("page")); err == nil && n > last {
			last = n
		}
	})
	return last
}

func parseSeasons(doc *goquery.Document) []media.Season {
	var seasons []media.Season

	doc.Find(".dropdown-menu-model .dropdown-item a").Each(func(i int, s *goquery.Selection) {
		id, ok := s.Attr("data-id")
		if !ok || id == "" {
			return
		}
		num := i + 1
		if f := strings.Fields(s.Text()); len(f) >= 2 {
			if n, err := strconv.Atoi(f[len(f)-1]); err == nil {
				num = n
			}
		}
		seasons = append(seasons, media.Season{Number: num, ID: id})
	})

	return seasons
}

var episodeNumber = regexp.MustCompile(`(?i)^eps?\s*(\d+)\s*:?\s*`)

func parseEpisodes(doc *goquery.Document) []media.Episode {
	var episodes []media.Episode

	doc.Find(".nav-item a[data-id]").Each(func(i int, s *goquery.Selection) {
		title := strings.TrimSpace(s.AttrOr("title", ""))
		if title == "" {
			title = strings.TrimSpace(s.Text())
		}

		ep := media.Episode{Number: i + 1, Title: title, ID: s.AttrOr("data-id", "")}
		if m := episodeNumber.FindStringSubmatch(title); m != nil {
			ep.Number, _ = strconv.Atoi(m[1])
			ep.Title = strings.TrimSpace(title[len(m[0]):])
		}
		episodes = append(episodes, ep)
	})

	return episodes
}

// parseServers extracts server options. Movie endpoints use data-linkid,
// episode endpoints use data-id.
func parseServers(doc *goquery.Document) []server {
	var servers []server

	doc.Find(".link-item, .server-item a").Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr("data-linkid")
		if !ok {
			id, ok = s.Attr("data-id")
		}
		if !ok || id == "" {
			return
		}

		name := strings.TrimSpace(s.Text())
		if name == "" {
			name = s.AttrOr("title", "Unknown")
		}
		servers = append(servers, server{Name: name, ID: id})
	})

	return servers
}

// extractID turns a URL path into a content ID.
// e.g., "/movie/free-the-exorcist-hd-75043" -> "movie/free-the-exorcist-hd-75043"
func extractID(urlPath string) string {
	id := strings.TrimPrefix(urlPath, "/")
	if idx := strings.IndexAny(id, "?#"); idx != -1 {
		id = id[:idx]
	}
	return id
}

// extractNumericID returns the trailing number of a content ID.
// e.g., "movie/free-the-exorcist-hd-75043" -> "75043"
func extractNumericID(id string) string {
	i := strings.LastIndexByte(id, '-')
	if i == -1 {
		return ""
	}
	if _, err := strconv.Atoi(id[i+1:]); err != nil {
		return ""
	}
	return id[i+1:]
}

// searchSlug converts a query into the path segment the site expects.
func searchSlug(query string) string {
	return url.PathEscape(strings.ToLower(strings.Join(strings.Fields(query), "-")))
}
