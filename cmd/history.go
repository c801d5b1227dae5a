package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"vividfusion/internal/media"
	"vividfusion/internal/ui"
)

var flagHistoryRemove bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Resume from watch history",
	RunE:  withApp(historyRun),
}

func init() {
	historyCmd.Flags().BoolVar(&flagHistoryRemove, "remove", false, "Remove the selected entry instead of playing it")
}

func historyRun(ctx context.Context, a *app, args []string) error {
	entries, err := a.store.History(ctx)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No history entries found.")
		return nil
	}

	selected, err := ui.Choose(ctx, "History", entries, media.HistoryLine)
	if err != nil {
		return err
	}

	if flagHistoryRemove {
		if err := a.store.RemoveHistory(ctx, selected); err != nil {
			return fmt.Errorf("removing history entry: %w", err)
		}
		fmt.Printf("Removed %s\n", media.HistoryLine(selected))
		return nil
	}

	a.logger.Debug("resuming", "title", selected.Title, "id", selected.ID, "extension", selected.Extension)
	item := media.Item{
		ID:        selected.ID,
		Title:     selected.Title,
		Type:      selected.Type,
		Extension: selected.Extension,
	}
	flagContinue = true
	return playItem(ctx, a, item, selected.Season, selected.Episode)
}
