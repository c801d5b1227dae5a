package player

import (
	"context"
	"fmt"
)

// Generic drives players like iina and celluloid that accept mpv-style
// flags. Position tracking is not supported.
type Generic struct {
	name string
}

func (g *Generic) Name() string { return g.name }

func (g *Generic) Available() bool { return available(g.name) }

func (g *Generic) Play(ctx context.Context, req Request) (Result, error) {
	if err := run(ctx, g.name, genericArgs(req)); err != nil {
		return Result{}, fmt.Errorf("running %s: %w", g.name, err)
	}
	return Result{}, nil
}

func genericArgs(req Request) []string {
	args := []string{req.Stream.URL, "--force-media-title=" + req.Title}
	if req.Start > 0 {
		args = append(args, fmt.Sprintf("--start=+%.0f", req.Start))
	}
	if ref := header(req.Stream.Headers, "Referer"); ref != "" {
		args = append(args, "--referrer="+ref)
	}
	for _, sub := range req.Subtitles {
		args = append(args, "--sub-file="+sub)
	}
	return args
}
