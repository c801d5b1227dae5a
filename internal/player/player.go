// Package player launches external media players. Every invocation uses an
// explicit argument slice; nothing goes through a shell.
package player

import (
	"context"
	"errors"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"

	"vividfusion/internal/media"
)

// Request describes one playback.
type Request struct {
	Stream    media.Stream
	Title     string
	Start     float64  // resume position in seconds
	Subtitles []string // local paths or URLs, preferred first
}

// Result is what the player reported when it exited. Players without
// position tracking return the zero Result.
type Result struct {
	Position float64
	Duration float64
}

// Player is a media player implementation.
type Player interface {
	// Play blocks until the player exits or ctx ends.
	Play(ctx context.Context, req Request) (Result, error)
	Name() string
	// Available checks if the player binary exists in PATH.
	Available() bool
}

// New creates a player by name, defaulting to mpv.
func New(name string) Player {
	switch name {
	case "vlc":
		return &VLC{}
	case "iina", "celluloid":
		return &Generic{name: name}
	default:
		return &MPV{}
	}
}

func available(bin string) bool {
	_, err := exec.LookPath(bin)
	return err == nil
}

// run starts bin attached to the terminal and waits. A non-zero exit is how
// most players report a user quit, so it is not an error.
func run(ctx context.Context, bin string, args []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	err := cmd.Run()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return err
	}
	return ctx.Err()
}

// headerFields renders stream headers in a stable order as "Key: Value".
func headerFields(h map[string]string) []string {
	keys := slices.Sorted(maps.Keys(h))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+h[k])
	}
	return out
}

func header(h map[string]string, name string) string {
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
