package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vividfusion/internal/clients"
)

// SettingsScope is the key space of one extension's preferences.
func SettingsScope(kind clients.ExtensionType, id string) string {
	return "plugin_settings/" + kind.String() + "/" + id
}

// Settings is a clients.PrefSettings backed by the settings table.
type Settings struct {
	store *Store
	scope string
}

// Settings returns the preference store for one extension.
func (s *Store) Settings(kind clients.ExtensionType, id string) *Settings {
	return &Settings{store: s, scope: SettingsScope(kind, id)}
}

var _ clients.PrefSettings = (*Settings)(nil)

func (p *Settings) Get(key string) (string, bool) {
	v, ok, err := p.store.setting(context.Background(), p.scope, key)
	if err != nil {
		return "", false
	}
	return v, ok
}

func (p *Settings) Set(key, value string) error {
	return p.store.setSetting(context.Background(), p.scope, key, value)
}

func (p *Settings) All() map[string]string {
	out, err := p.store.scope(context.Background(), p.scope)
	if err != nil {
		return map[string]string{}
	}
	return out
}

// SeedDefaults stores the default of every setting that has no value yet.
func (p *Settings) SeedDefaults(defs []clients.Setting) error {
	for _, d := range defs {
		if _, ok := p.Get(d.Key); ok || d.Default == "" {
			continue
		}
		if err := p.Set(d.Key, d.Default); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) setting(ctx context.Context, scope, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE scope = ? AND key = ?`, scope, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %s/%s: %w", scope, key, err)
	}
	return v, true, nil
}

func (s *Store) setSetting(ctx context.Context, scope, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (scope, key, value) VALUES (?, ?, ?)
		ON CONFLICT (scope, key) DO UPDATE SET value = excluded.value`,
		scope, key, value)
	if err != nil {
		return fmt.Errorf("saving setting %s/%s: %w", scope, key, err)
	}
	return nil
}

func (s *Store) scope(ctx context.Context, scope string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings WHERE scope = ?`, scope)
	if err != nil {
		return nil, fmt.Errorf("reading settings %s: %w", scope, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// DeleteScope removes every setting of an extension.
func (s *Store) DeleteScope(ctx context.Context, kind clients.ExtensionType, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE scope = ?`, SettingsScope(kind, id)); err != nil {
		return fmt.Errorf("deleting settings: %w", err)
	}
	return nil
}
