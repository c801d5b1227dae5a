package clients

import (
	"maps"
	"strconv"
	"sync"
)

// SettingKind selects how a setting is edited.
type SettingKind int

const (
	SettingText SettingKind = iota
	SettingSwitch
	SettingList
)

// Setting describes one preference an extension exposes.
type Setting struct {
	Key     string
	Title   string
	Summary string
	Kind    SettingKind
	Default string
	Options []string // SettingList only
}

// PrefSettings is an extension's persisted preference store. Values are
// strings; use Bool and Int for typed reads.
type PrefSettings interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	All() map[string]string
}

// Bool reads key as a boolean, falling back to def.
func Bool(s PrefSettings, key string, def bool) bool {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Int reads key as an integer, falling back to def.
func Int(s PrefSettings, key string, def int) int {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// String reads key, falling back to def when unset or empty.
func String(s PrefSettings, key, def string) string {
	if v, ok := s.Get(key); ok && v != "" {
		return v
	}
	return def
}

// MapSettings is an in-memory PrefSettings.
type MapSettings struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMapSettings copies values into a new MapSettings.
func NewMapSettings(values map[string]string) *MapSettings {
	m := &MapSettings{values: make(map[string]string, len(values))}
	maps.Copy(m.values, values)
	return m
}

func (m *MapSettings) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MapSettings) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MapSettings) All() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.values)
}
