package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Player != "mpv" {
		t.Errorf("default player = %q, want mpv", cfg.Player)
	}
	if cfg.PluginExtension != "vvf" {
		t.Errorf("default plugin_extension = %q, want vvf", cfg.PluginExtension)
	}
	if cfg.FeaturePrefix != "vividfusion" {
		t.Errorf("default feature_prefix = %q, want vividfusion", cfg.FeaturePrefix)
	}
	if !cfg.History {
		t.Error("default history should be true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"invalid player", func(c *Config) { c.Player = "notepad" }, true},
		{"valid vlc", func(c *Config) { c.Player = "VLC" }, false},
		{"empty extension", func(c *Config) { c.PluginExtension = "" }, true},
		{"extension with dot", func(c *Config) { c.PluginExtension = ".so" }, true},
		{"custom extension", func(c *Config) { c.PluginExtension = "eapk" }, false},
		{"prefix with space", func(c *Config) { c.FeaturePrefix = "my app" }, true},
		{"dotted prefix", func(c *Config) { c.FeaturePrefix = "dev.brahmkshatriya.echo" }, false},
		{"empty base", func(c *Config) { c.FlixHQBase = "" }, true},
		{"json logs", func(c *Config) { c.LogFormat = "json" }, false},
		{"xml logs", func(c *Config) { c.LogFormat = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromTOML(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	content := `
data_dir = "/srv/media"
player = "vlc"
plugin_extension = "eapk"
history = false
watch = true
log_format = "json"
`
	dir := filepath.Join(tmpDir, "vividfusion")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DataDir != "/srv/media" {
		t.Errorf("data_dir = %q, want /srv/media", cfg.DataDir)
	}
	if cfg.Player != "vlc" {
		t.Errorf("player = %q, want vlc", cfg.Player)
	}
	if cfg.PluginExtension != "eapk" {
		t.Errorf("plugin_extension = %q, want eapk", cfg.PluginExtension)
	}
	if cfg.History {
		t.Error("history should be false")
	}
	if !cfg.Watch {
		t.Error("watch should be true")
	}
	if cfg.FeaturePrefix != "vividfusion" {
		t.Errorf("unset keys should keep defaults, got feature_prefix = %q", cfg.FeaturePrefix)
	}
}

func TestLoadInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	dir := filepath.Join(tmpDir, "vividfusion")
	os.MkdirAll(dir, 0o755)
	os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`player = "notepad"`), 0o644)

	if _, err := Load(); err == nil {
		t.Error("Load() should reject an invalid player")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() should not error on missing file: %v", err)
	}
	if cfg.Player != "mpv" {
		t.Errorf("missing file should return defaults, got player = %q", cfg.Player)
	}
}

func TestPaths(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	p, err := Default().Paths()
	if err != nil {
		t.Fatalf("Paths() error: %v", err)
	}
	root := filepath.Join(dataHome, "vividfusion")
	if p.Root != root {
		t.Errorf("root = %q, want %q", p.Root, root)
	}
	if p.Plugins() != filepath.Join(root, "plugins") {
		t.Errorf("plugins = %q", p.Plugins())
	}
	if p.Database != filepath.Join(root, "vividfusion.db") {
		t.Errorf("database = %q", p.Database)
	}

	if err := p.Ensure(); err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	for _, dir := range []string{p.Plugins(), p.Packages} {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("%s not created", dir)
		}
	}
}

func TestResolveDataDirExplicit(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/tmp/vf-data"

	dir, err := cfg.ResolveDataDir()
	if err != nil {
		t.Fatalf("ResolveDataDir() error: %v", err)
	}
	if dir != "/tmp/vf-data" {
		t.Errorf("got %q, want /tmp/vf-data", dir)
	}
}
