package cmd

import (
	"context"
	"fmt"
	"strings"

	"vividfusion/internal/clients"
	"vividfusion/internal/media"
	"vividfusion/internal/paging"
	"vividfusion/internal/plugin"
	"vividfusion/internal/ui"
)

const loadMore = "Load more..."

// searchRun is the default command: vividfusion <query>
func searchRun(ctx context.Context, a *app, args []string) error {
	query := strings.Join(args, " ")
	if query == "" {
		if !ui.Interactive() {
			return fmt.Errorf("no search query provided")
		}
		var err error
		query, err = ui.Input(ctx, "Search")
		if err != nil {
			return fmt.Errorf("no search query provided")
		}
	}

	db, client, err := selectedDatabase(ctx, a)
	if err != nil {
		return err
	}
	a.logger.Debug("searching", "extension", db.ID(), "query", query)
	return browseFeed(ctx, a, db, "Select", client.Search(query))
}

func selectedDatabase(ctx context.Context, a *app) (*plugin.Extension[clients.DatabaseClient], clients.DatabaseClient, error) {
	db, err := a.ext.Database.Selected(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("choosing a database extension: %w", err)
	}
	client, err := db.Instance()
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", db.ID(), err)
	}
	return db, client, nil
}

// browseFeed lets the user pick an item from paged data and plays it.
// Continuous feeds get a trailing entry that loads the next page.
func browseFeed(ctx context.Context, a *app, db *plugin.Extension[clients.DatabaseClient], prompt string, data paging.PagedData[media.Item]) error {
	cont, paged := data.(*paging.Continuous[media.Item])

	var items []media.Item
	var next *string
	if paged {
		page, err := cont.LoadPage(ctx, nil)
		if err != nil {
			return fmt.Errorf("loading results: %w", err)
		}
		items, next = page.Data, page.Continuation
	} else {
		var err error
		if items, err = data.LoadFirst(ctx); err != nil {
			return fmt.Errorf("loading results: %w", err)
		}
	}

	if len(items) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for {
		labels := make([]string, len(items), len(items)+1)
		for i, it := range items {
			labels[i] = media.DisplayTitle(it)
		}
		if next != nil {
			labels = append(labels, loadMore)
		}

		idx, err := ui.Select(ctx, prompt, labels)
		if err != nil {
			return err
		}
		if idx < len(items) {
			item := items[idx]
			if item.Extension == "" {
				item.Extension = db.ID()
			}
			a.logger.Debug("selected", "title", item.Title, "id", item.ID, "type", item.Type)
			return playItem(ctx, a, item, 0, 0)
		}

		page, err := cont.LoadPage(ctx, next)
		if err != nil {
			return fmt.Errorf("loading more results: %w", err)
		}
		items = append(items, page.Data...)
		next = page.Continuation
	}
}
