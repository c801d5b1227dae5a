package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vividfusion/internal/clients"
)

// ExtensionEnabled returns the stored enabled flag for an extension. ok is
// false when the user never toggled it.
func (s *Store) ExtensionEnabled(ctx context.Context, kind clients.ExtensionType, id string) (enabled, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT enabled FROM extensions WHERE type = ? AND id = ?`, kind.String(), id,
	).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("reading extension state: %w", err)
	}
	return enabled, true, nil
}

// SetExtensionEnabled records the enabled flag for an extension.
func (s *Store) SetExtensionEnabled(ctx context.Context, kind clients.ExtensionType, id string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extensions (type, id, enabled) VALUES (?, ?, ?)
		ON CONFLICT (type, id) DO UPDATE SET enabled = excluded.enabled`,
		kind.String(), id, enabled)
	if err != nil {
		return fmt.Errorf("saving extension state: %w", err)
	}
	return nil
}

// Priority returns the user's ordering of extension IDs for kind, first
// preferred.
func (s *Store) Priority(ctx context.Context, kind clients.ExtensionType) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM priority WHERE type = ? ORDER BY position`, kind.String())
	if err != nil {
		return nil, fmt.Errorf("reading priority: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning priority: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetPriority replaces the ordering for kind.
func (s *Store) SetPriority(ctx context.Context, kind clients.ExtensionType, ids []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM priority WHERE type = ?`, kind.String()); err != nil {
			return fmt.Errorf("clearing priority: %w", err)
		}
		for i, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO priority (type, id, position) VALUES (?, ?, ?)`, kind.String(), id, i); err != nil {
				return fmt.Errorf("saving priority: %w", err)
			}
		}
		return nil
	})
}

const appScope = "app"

// Selected returns the ID of the active extension for kind, or "".
func (s *Store) Selected(ctx context.Context, kind clients.ExtensionType) (string, error) {
	v, _, err := s.setting(ctx, appScope, "selected."+kind.String())
	return v, err
}

// SetSelected records the active extension for kind.
func (s *Store) SetSelected(ctx context.Context, kind clients.ExtensionType, id string) error {
	return s.setSetting(ctx, appScope, "selected."+kind.String(), id)
}
