package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vividfusion/internal/media"
)

// SaveHistory inserts or updates an entry. Entries are keyed by extension,
// item ID, season and episode.
func (s *Store) SaveHistory(ctx context.Context, e media.HistoryEntry) error {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (extension, id, title, type, season, episode, position, duration, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (extension, id, season, episode) DO UPDATE SET
			title = excluded.title,
			position = excluded.position,
			duration = excluded.duration,
			updated_at = excluded.updated_at`,
		e.Extension, e.ID, e.Title, e.Type.String(), e.Season, e.Episode,
		e.Position, e.Duration, e.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// History returns every entry, most recently watched first.
func (s *Store) History(ctx context.Context) ([]media.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT extension, id, title, type, season, episode, position, duration, updated_at
		FROM history ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer rows.Close()

	var entries []media.HistoryEntry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LastWatched returns the most recent entry for an item, across episodes.
func (s *Store) LastWatched(ctx context.Context, extension, id string) (media.HistoryEntry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT extension, id, title, type, season, episode, position, duration, updated_at
		FROM history WHERE extension = ? AND id = ?
		ORDER BY updated_at DESC LIMIT 1`, extension, id)
	e, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return media.HistoryEntry{}, false, nil
	}
	if err != nil {
		return media.HistoryEntry{}, false, err
	}
	return e, true, nil
}

// RemoveHistory deletes one entry.
func (s *Store) RemoveHistory(ctx context.Context, e media.HistoryEntry) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM history WHERE extension = ? AND id = ? AND season = ? AND episode = ?`,
		e.Extension, e.ID, e.Season, e.Episode)
	if err != nil {
		return fmt.Errorf("removing history: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHistory(r scanner) (media.HistoryEntry, error) {
	var (
		e       media.HistoryEntry
		typ     string
		updated int64
	)
	if err := r.Scan(&e.Extension, &e.ID, &e.Title, &typ, &e.Season, &e.Episode,
		&e.Position, &e.Duration, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scanning history: %w", err)
	}
	if typ == media.TV.String() {
		e.Type = media.TV
	}
	e.UpdatedAt = time.UnixMilli(updated)
	return e, nil
}
