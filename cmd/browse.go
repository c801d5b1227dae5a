package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vividfusion/internal/media"
	"vividfusion/internal/ui"
)

var browseCmd = &cobra.Command{
	Use:   "browse [tab]",
	Short: "Browse the home feed of the selected database extension",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		tab := ""
		if len(args) == 1 {
			tab = args[0]
		}
		return browseTab(ctx, a, tab)
	}),
}

var trendingCmd = &cobra.Command{
	Use:   "trending [movies|tv]",
	Short: "Browse trending content",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		if parseMediaTypeArg(args) == media.TV {
			return browseTab(ctx, a, "trending-tv")
		}
		return browseTab(ctx, a, "trending-movies")
	}),
}

var recentCmd = &cobra.Command{
	Use:   "recent [movies|tv]",
	Short: "Browse recently added content",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		if parseMediaTypeArg(args) == media.TV {
			return browseTab(ctx, a, "tv-show")
		}
		return browseTab(ctx, a, "movie")
	}),
}

// browseTab opens the home tab with the given ID, or asks for one when id
// is empty or unknown to the extension.
func browseTab(ctx context.Context, a *app, id string) error {
	db, client, err := selectedDatabase(ctx, a)
	if err != nil {
		return err
	}
	tabs, err := client.HomeTabs(ctx)
	if err != nil {
		return fmt.Errorf("loading home tabs: %w", err)
	}
	if len(tabs) == 0 {
		return browseFeed(ctx, a, db, db.Metadata.Name, client.HomeFeed(media.Tab{}))
	}

	tab, ok := findTab(tabs, id)
	if !ok {
		if id != "" {
			a.logger.Debug("unknown tab, asking", "tab", id, "extension", db.ID())
		}
		tab, err = ui.Choose(ctx, "Tab", tabs, func(t media.Tab) string { return t.Title })
		if err != nil {
			return err
		}
	}
	return browseFeed(ctx, a, db, tab.Title, client.HomeFeed(tab))
}

func findTab(tabs []media.Tab, id string) (media.Tab, bool) {
	for _, t := range tabs {
		if id != "" && strings.EqualFold(t.ID, id) {
			return t, true
		}
	}
	return media.Tab{}, false
}

func parseMediaTypeArg(args []string) media.MediaType {
	if len(args) == 0 {
		return media.Movie
	}
	switch strings.ToLower(args[0]) {
	case "tv", "shows", "series":
		return media.TV
	default:
		return media.Movie
	}
}
