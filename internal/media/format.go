package media

import (
	"fmt"
	"strings"
)

func formatEpisode(season, episode int) string {
	return fmt.Sprintf("S%02dE%02d", season, episode)
}

// DisplayTitle creates a display string for fzf selection.
func DisplayTitle(it Item) string {
	parts := []string{it.Title}
	if it.Year != "" {
		parts = append(parts, fmt.Sprintf("(%s)", it.Year))
	}
	if it.Type == TV {
		parts = append(parts, "[TV]")
	} else {
		parts = append(parts, "[Movie]")
	}
	return strings.Join(parts, " ")
}

// FormatPosition formats seconds as H:MM:SS or M:SS.
func FormatPosition(seconds float64) string {
	s := int(seconds)
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

// HistoryLine renders a history entry for selection lists.
func HistoryLine(e HistoryEntry) string {
	title := e.Title
	if e.Type == TV && e.Episode > 0 {
		title += " " + formatEpisode(e.Season, e.Episode)
	}
	if e.Position > 0 {
		title += " [" + FormatPosition(e.Position) + "]"
	}
	return title
}
