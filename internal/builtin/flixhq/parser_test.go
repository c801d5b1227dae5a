package flixhq

import (
	"os"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"vividfusion/internal/media"
)

func loadTestDoc(t *testing.T, filename string) *goquery.Document {
	t.Helper()
	f, err := os.Open("testdata/" + filename)
	if err != nil {
		t.Fatalf("reading test fixture %s: %v", filename, err)
	}
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		t.Fatalf("parsing test fixture %s: %v", filename, err)
	}
	return doc
}

func TestParseItems(t *testing.T) {
	doc := loadTestDoc(t, "search_results.html")
	items := parseItems(doc.Selection)

	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	if items[0].Title != "The Exorcist" {
		t.Errorf("items[0].Title = %q, want 'The Exorcist'", items[0].Title)
	}
	if items[0].Type != media.Movie {
		t.Errorf("items[0].Type = %v, want Movie", items[0].Type)
	}
	if items[0].Year != "1973" {
		t.Errorf("items[0].Year = %q, want '1973'", items[0].Year)
	}
	if items[0].ID != "movie/free-the-exorcist-hd-75043" {
		t.Errorf("items[0].ID = %q", items[0].ID)
	}
	if items[0].Extension != ID {
		t.Errorf("items[0].Extension = %q, want %q", items[0].Extension, ID)
	}

	if items[1].Title != "Breaking Bad" || items[1].Type != media.TV {
		t.Errorf("items[1] = %+v, want Breaking Bad [TV]", items[1])
	}
	if items[1].Year != "" {
		t.Errorf("items[1].Year = %q, want empty", items[1].Year)
	}
	if items[2].ID != "movie/free-exorcist-believer-hd-99012" {
		t.Errorf("query string should be stripped, got %q", items[2].ID)
	}
}

func TestParseItemsMalicious(t *testing.T) {
	items := parseItems(loadTestDoc(t, "search_malicious.html").Selection)

	if len(items) < 2 {
		t.Fatalf("expected at least 2 items from malicious HTML, got %d", len(items))
	}
	if items[0].Title != "'; rm -rf / #" {
		t.Errorf("shell injection title = %q, want literal string", items[0].Title)
	}
	if items[1].Title != "$(whoami)" {
		t.Errorf("command substitution title = %q, want literal string", items[1].Title)
	}
}

func TestParseTrendingPanels(t *testing.T) {
	doc := loadTestDoc(t, "home_trending.html")

	movies := parseItems(doc.Find("#" + TabTrendingMovies))
	if len(movies) != 2 {
		t.Fatalf("expected 2 trending movies, got %d", len(movies))
	}
	if movies[0].Title != "Dune: Part Two" || movies[0].Year != "2024" {
		t.Errorf("movies[0] = %+v", movies[0])
	}
	if movies[1].Title != "Oppenheimer" {
		t.Errorf("movies[1].Title = %q, want 'Oppenheimer'", movies[1].Title)
	}

	shows := parseItems(doc.Find("#" + TabTrendingTV))
	if len(shows) != 2 {
		t.Fatalf("expected 2 trending shows, got %d", len(shows))
	}
	if shows[0].Title != "The Last of Us" || shows[0].Type != media.TV {
		t.Errorf("shows[0] = %+v", shows[0])
	}

	if got := parseItems(loadTestDoc(t, "search_results.html").Find("#" + TabTrendingMovies)); len(got) != 0 {
		t.Errorf("expected 0 items for missing panel, got %d", len(got))
	}
}

func TestParseLastPage(t *testing.T) {
	if got := parseLastPage(loadTestDoc(t, "search_results.html")); got != 4 {
		t.Errorf("parseLastPage() = %d, want 4", got)
	}
	if got := parseLastPage(loadTestDoc(t, "home_trending.html")); got != 1 {
		t.Errorf("parseLastPage() without pagination = %d, want 1", got)
	}
}

func TestParseSeasonsAndEpisodes(t *testing.T) {
	seasons := parseSeasons(loadTestDoc(t, "seasons.html"))
	if len(seasons) != 2 {
		t.Fatalf("expected 2 seasons, got %d", len(seasons))
	}
	if seasons[1] != (media.Season{Number: 2, ID: "1002"}) {
		t.Errorf("seasons[1] = %+v", seasons[1])
	}

	episodes := parseEpisodes(loadTestDoc(t, "episodes.html"))
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(episodes))
	}
	if episodes[0] != (media.Episode{Number: 1, Title: "Pilot", ID: "5001"}) {
		t.Errorf("episodes[0] = %+v", episodes[0])
	}
	if episodes[1].Title != "Cat's in the Bag..." {
		t.Errorf("episodes[1].Title = %q", episodes[1].Title)
	}
}

func TestParseServers(t *testing.T) {
	servers := parseServers(loadTestDoc(t, "servers_movie.html"))
	if len(servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(servers))
	}
	if servers[0] != (server{Name: "UpCloud", ID: "7001"}) {
		t.Errorf("servers[0] = %+v", servers[0])
	}

	servers = parseServers(loadTestDoc(t, "servers_episode.html"))
	if len(servers) != 1 || servers[0].ID != "8001" {
		t.Errorf("episode servers = %+v", servers)
	}
}

func TestExtractID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/movie/free-the-exorcist-hd-75043", "movie/free-the-exorcist-hd-75043"},
		{"/tv/watch-breaking-bad-39516", "tv/watch-breaking-bad-39516"},
		{"/movie/test-123?ref=home", "movie/test-123"},
		{"movie/test", "movie/test"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := extractID(tt.input); got != tt.expected {
				t.Errorf("extractID(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtractNumericID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"movie/free-the-exorcist-hd-75043", "75043"},
		{"tv/watch-breaking-bad-39516", "39516"},
		{"no-number-here", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := extractNumericID(tt.input); got != tt.expected {
				t.Errorf("extractNumericID(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSearchSlug(t *testing.T) {
	tests := map[string]string{
		"The Exorcist":       "the-exorcist",
		"  breaking   bad  ": "breaking-bad",
		"what/if?":           "what%2Fif%3F",
	}
	for in, want := range tests {
		if got := searchSlug(in); got != want {
			t.Errorf("searchSlug(%q) = %q, want %q", in, got, want)
		}
	}
}
