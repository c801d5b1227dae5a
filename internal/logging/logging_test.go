package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"vividfusion/internal/config"
)

func TestLevelFollowsDebug(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	log := NewWithOutput(cfg, &buf)
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line written without debug enabled: %q", buf.String())
	}

	cfg.Debug = true
	log = NewWithOutput(cfg, &buf)
	log.Named("plugin").Debug("scanning", "dir", "/tmp/plugins")
	if !strings.Contains(buf.String(), "vividfusion.plugin: scanning") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.LogFormat = "json"
	NewWithOutput(cfg, &buf).Warn("load failed", "class", "sample.Client")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if line["class"] != "sample.Client" || line["@message"] != "load failed" {
		t.Errorf("unexpected fields %v", line)
	}
}
