// Package media defines the catalog and playback types shared between the
// host and its extensions. Every type here crosses the plugin RPC boundary,
// so fields stay exported and gob-encodable.
package media

import "time"

// MediaType represents whether content is a movie or TV show.
type MediaType int

const (
	Movie MediaType = iota
	TV
)

func (m MediaType) String() string {
	switch m {
	case Movie:
		return "movie"
	case TV:
		return "tv"
	default:
		return "unknown"
	}
}

// Item is a single catalog entry produced by a database extension.
type Item struct {
	ID        string    // Extension-specific ID (e.g., "movie/free-the-exorcist-hd-75043")
	Title     string    // Display title
	Type      MediaType // Movie or TV
	Year      string    // Release year
	URL       string    // Full URL to the content page
	Extension string    // ID of the extension that produced the item
	Extras    map[string]string
}

// Tab is a named section of an extension's home feed.
type Tab struct {
	ID    string
	Title string
}

// Season represents a TV show season.
type Season struct {
	Number int
	ID     string // Extension-specific season ID
}

// Episode represents a TV show episode.
type Episode struct {
	Number int
	Title  string
	ID     string // Extension-specific episode ID
}

// Playable identifies what a stream or subtitle extension should resolve.
// Season and Episode are zero for movies.
type Playable struct {
	Item    Item
	Season  Season
	Episode Episode
}

// Title returns the display title, with an SxxEyy suffix for episodes.
func (p Playable) Title() string {
	if p.Item.Type != TV || p.Episode.Number == 0 {
		return p.Item.Title
	}
	return p.Item.Title + " " + formatEpisode(p.Season.Number, p.Episode.Number)
}

// Stream is one playable source returned by a stream extension.
type Stream struct {
	Name    string            // Server or source label, e.g. "Vidcloud"
	URL     string            // m3u8, direct video or embed URL
	Quality string            // Resolved quality, empty when unknown
	Headers map[string]string // Request headers the player must send
	Embed   bool              // URL is an embed page rather than media
}

// Subtitle represents a subtitle track.
type Subtitle struct {
	Language string // e.g., "English"
	Label    string // Display label, e.g., "English - SDH"
	URL      string // URL to the subtitle file (usually VTT)
}

// Links is the result of resolving a Playable.
type Links struct {
	Streams   []Stream
	Subtitles []Subtitle
}

// HistoryEntry represents a single entry in the watch history.
type HistoryEntry struct {
	ID        string    // Item ID
	Extension string    // Database extension that produced the item
	Title     string    // Display title
	Type      MediaType // Movie or TV
	Season    int       // Season number (TV only, 0 for movies)
	Episode   int       // Episode number (TV only, 0 for movies)
	Position  float64   // Last playback position in seconds
	Duration  float64   // Total duration in seconds
	UpdatedAt time.Time
}
