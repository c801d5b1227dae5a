// Package logging builds the root hclog logger from configuration.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"vividfusion/internal/config"
)

// New returns the root logger writing to stderr.
func New(cfg *config.Config) hclog.Logger {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput returns the root logger writing to w.
func NewWithOutput(cfg *config.Config, w io.Writer) hclog.Logger {
	level := hclog.Warn
	if cfg.Debug {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "vividfusion",
		Level:      level,
		Output:     w,
		JSONFormat: cfg.LogFormat == "json",
	})
}
