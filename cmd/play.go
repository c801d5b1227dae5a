package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"vividfusion/internal/clients"
	"vividfusion/internal/download"
	"vividfusion/internal/extension"
	"vividfusion/internal/media"
	"vividfusion/internal/player"
	"vividfusion/internal/subtitle"
	"vividfusion/internal/ui"
)

// playItem resolves season and episode for shows, loads links through the
// selected stream extension and plays the first stream. A non-zero season
// or episode skips the corresponding prompt.
func playItem(ctx context.Context, a *app, item media.Item, season, episode int) error {
	db, ok := a.ext.Database.Get(item.Extension)
	if !ok {
		return fmt.Errorf("%w: %s", extension.ErrUnknownExtension, item.Extension)
	}
	client, err := db.Instance()
	if err != nil {
		return fmt.Errorf("loading %s: %w", db.ID(), err)
	}

	p := media.Playable{Item: item}
	if item.Type == media.TV {
		if p.Season, err = pickSeason(ctx, client, item, season); err != nil {
			return err
		}
		if p.Episode, err = pickEpisode(ctx, client, item, p.Season, episode); err != nil {
			return err
		}
		a.logger.Debug("episode", "season", p.Season.Number, "episode", p.Episode.Number, "id", p.Episode.ID)
	}

	st, err := a.ext.Stream.Selected(ctx)
	if err != nil {
		return fmt.Errorf("choosing a stream extension: %w", err)
	}
	stream, err := st.Instance()
	if err != nil {
		return fmt.Errorf("loading %s: %w", st.ID(), err)
	}
	links, err := stream.LoadLinks(ctx, p)
	if err != nil {
		return fmt.Errorf("loading links: %w", err)
	}
	if len(links.Streams) == 0 {
		return fmt.Errorf("no streams found for %s", p.Title())
	}
	chosen := links.Streams[0]
	if flagDownload != "" {
		// ffmpeg needs media, not an embed page.
		if i := slices.IndexFunc(links.Streams, func(s media.Stream) bool { return !s.Embed }); i >= 0 {
			chosen = links.Streams[i]
		}
	}
	a.logger.Debug("stream", "extension", st.ID(), "server", chosen.Name, "url", chosen.URL)

	var subs []media.Subtitle
	if !flagNoSubs {
		subs = collectSubtitles(ctx, a, p, links.Subtitles)
	}

	if flagJSON {
		out := map[string]any{
			"title":     p.Title(),
			"url":       chosen.URL,
			"server":    chosen.Name,
			"quality":   chosen.Quality,
			"embed":     chosen.Embed,
			"headers":   chosen.Headers,
			"subtitles": subs,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	var subFiles []string
	if best, ok := subtitle.BestMatch(subs, cfg.SubsLanguage); ok {
		tmp, err := subtitle.NewTempDir(a.http)
		if err == nil {
			defer tmp.Cleanup()
			if path, err := tmp.Download(ctx, best); err != nil {
				a.logger.Warn("subtitle download failed", "error", err)
			} else {
				subFiles = append(subFiles, path)
			}
		}
	}

	if flagDownload != "" {
		req := download.Request{Stream: chosen, Title: p.Title(), Dir: flagDownload}
		if len(subFiles) > 0 {
			req.Subtitle = subFiles[0]
		}
		path, err := download.Download(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", path)
		return nil
	}

	pl := player.New(cfg.Player)
	if !pl.Available() {
		return fmt.Errorf("player %q not found in PATH", cfg.Player)
	}

	req := player.Request{Stream: chosen, Title: p.Title(), Start: resumePosition(ctx, a, p), Subtitles: subFiles}
	res, err := pl.Play(ctx, req)
	if err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}

	if cfg.History {
		entry := media.HistoryEntry{
			ID:        item.ID,
			Extension: item.Extension,
			Title:     item.Title,
			Type:      item.Type,
			Season:    p.Season.Number,
			Episode:   p.Episode.Number,
			Position:  res.Position,
			Duration:  res.Duration,
			UpdatedAt: time.Now(),
		}
		if err := a.store.SaveHistory(ctx, entry); err != nil {
			a.logger.Warn("saving history failed", "error", err)
		}
	}
	return nil
}

func pickSeason(ctx context.Context, client clients.DatabaseClient, item media.Item, number int) (media.Season, error) {
	seasons, err := client.Seasons(ctx, item)
	if err != nil {
		return media.Season{}, fmt.Errorf("getting seasons: %w", err)
	}
	if len(seasons) == 0 {
		return media.Season{}, fmt.Errorf("no seasons found")
	}
	for _, s := range seasons {
		if number > 0 && s.Number == number {
			return s, nil
		}
	}
	return ui.Choose(ctx, "Season", seasons, func(s media.Season) string {
		return fmt.Sprintf("Season %d", s.Number)
	})
}

func pickEpisode(ctx context.Context, client clients.DatabaseClient, item media.Item, season media.Season, number int) (media.Episode, error) {
	episodes, err := client.Episodes(ctx, item, season)
	if err != nil {
		return media.Episode{}, fmt.Errorf("getting episodes: %w", err)
	}
	if len(episodes) == 0 {
		return media.Episode{}, fmt.Errorf("no episodes found")
	}
	for _, ep := range episodes {
		if number > 0 && ep.Number == number {
			return ep, nil
		}
	}
	return ui.Choose(ctx, "Episode", episodes, func(ep media.Episode) string {
		if ep.Title != "" {
			return fmt.Sprintf("Episode %d: %s", ep.Number, ep.Title)
		}
		return fmt.Sprintf("Episode %d", ep.Number)
	})
}

// collectSubtitles merges the stream's own tracks with those of every
// enabled subtitle extension. Extensions that fail are skipped.
func collectSubtitles(ctx context.Context, a *app, p media.Playable, own []media.Subtitle) []media.Subtitle {
	lists := [][]media.Subtitle{own}
	for _, ext := range a.ext.Subtitle.Enabled() {
		subs, err := extension.Run(ext, func(c clients.SubtitleClient) ([]media.Subtitle, error) {
			return c.LoadSubtitles(ctx, p)
		})
		if err != nil {
			a.logger.Warn("loading subtitles", "extension", ext.ID(), "error", err)
			continue
		}
		lists = append(lists, subs)
	}
	return subtitle.Merge(lists...)
}

func resumePosition(ctx context.Context, a *app, p media.Playable) float64 {
	if !flagContinue || !cfg.History {
		return 0
	}
	e, ok, err := a.store.LastWatched(ctx, p.Item.Extension, p.Item.ID)
	if err != nil {
		a.logger.Warn("reading history", "error", err)
		return 0
	}
	if !ok || e.Season != p.Season.Number || e.Episode != p.Episode.Number {
		return 0
	}
	a.logger.Debug("resuming", "position", e.Position)
	return e.Position
}
