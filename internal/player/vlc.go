package player

import (
	"context"
	"fmt"
)

// VLC plays through VLC. It has no position tracking.
type VLC struct{}

func (v *VLC) Name() string { return "vlc" }

func (v *VLC) Available() bool { return available("vlc") }

func (v *VLC) Play(ctx context.Context, req Request) (Result, error) {
	if err := run(ctx, "vlc", vlcArgs(req)); err != nil {
		return Result{}, fmt.Errorf("running vlc: %w", err)
	}
	return Result{}, nil
}

func vlcArgs(req Request) []string {
	args := []string{
		req.Stream.URL,
		"--meta-title", req.Title,
		"--play-and-exit",
	}
	if req.Start > 0 {
		args = append(args, fmt.Sprintf("--start-time=%.0f", req.Start))
	}
	if ref := header(req.Stream.Headers, "Referer"); ref != "" {
		args = append(args, "--http-referrer="+ref)
	}
	if ua := header(req.Stream.Headers, "User-Agent"); ua != "" {
		args = append(args, "--http-user-agent="+ua)
	}
	// VLC takes a single external subtitle.
	if len(req.Subtitles) > 0 {
		args = append(args, "--sub-file", req.Subtitles[0])
	}
	return args
}
