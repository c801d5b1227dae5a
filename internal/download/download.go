// Package download saves streams to disk with ffmpeg. The output path is
// validated against directory traversal and ffmpeg gets an explicit
// argument slice.
package download

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"vividfusion/internal/httputil"
	"vividfusion/internal/media"
)

// ErrEmbed is returned for streams that point at an embed page rather
// than media ffmpeg can read.
var ErrEmbed = errors.New("embed pages cannot be downloaded")

// Request describes one download.
type Request struct {
	Stream   media.Stream
	Title    string
	Dir      string
	Subtitle string // optional local subtitle file to mux in
}

// Download fetches req.Stream into req.Dir as "<title>.mkv" and returns
// the file path. A partial file is removed on failure.
func Download(ctx context.Context, req Request) (string, error) {
	if req.Stream.Embed {
		return "", fmt.Errorf("%w: %s", ErrEmbed, req.Stream.URL)
	}
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	absDir, err := filepath.Abs(req.Dir)
	if err != nil {
		return "", fmt.Errorf("resolving output directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	outputPath, err := httputil.SafeJoin(absDir, httputil.SanitizeFilename(req.Title)+".mkv")
	if err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}

	cmd := exec.CommandContext(ctx, ffmpegPath, ffmpegArgs(req, outputPath)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fmt.Fprintf(os.Stderr, "Downloading to: %s\n", outputPath)
	if err := cmd.Run(); err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("ffmpeg download failed: %w", err)
	}
	return outputPath, nil
}

func ffmpegArgs(req Request, outputPath string) []string {
	args := []string{"-y"}
	if len(req.Stream.Headers) > 0 {
		var b strings.Builder
		for _, h := range sortedHeaders(req.Stream.Headers) {
			b.WriteString(h)
			b.WriteString("\r\n")
		}
		// -headers applies to the next input only.
		args = append(args, "-headers", b.String())
	}
	args = append(args, "-i", req.Stream.URL)

	if req.Subtitle != "" {
		args = append(args, "-i", req.Subtitle)
	}
	args = append(args, "-c:v", "copy", "-c:a", "copy")
	if req.Subtitle != "" {
		args = append(args,
			"-c:s", "srt",
			"-map", "0:v",
			"-map", "0:a",
			"-map", "1:s",
		)
	}
	return append(args, "-metadata", "title="+req.Title, outputPath)
}

func sortedHeaders(h map[string]string) []string {
	out := make([]string, 0, len(h))
	for _, k := range slices.Sorted(maps.Keys(h)) {
		out = append(out, k+": "+h[k])
	}
	return out
}
