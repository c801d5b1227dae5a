package player

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MPV plays through mpv and tracks the position over its JSON IPC socket,
// created at a randomized temp path.
type MPV struct{}

func (m *MPV) Name() string { return "mpv" }

func (m *MPV) Available() bool { return available("mpv") }

// Play launches mpv and returns the last observed position and duration.
func (m *MPV) Play(ctx context.Context, req Request) (Result, error) {
	socketDir, err := os.MkdirTemp("", "vividfusion-mpv-*")
	if err != nil {
		return Result{}, fmt.Errorf("creating temp dir for mpv socket: %w", err)
	}
	defer os.RemoveAll(socketDir)
	socketPath := filepath.Join(socketDir, "socket")

	trackCtx, stopTracking := context.WithCancel(ctx)
	defer stopTracking()
	tracked := make(chan Result, 1)
	go func() { tracked <- trackPosition(trackCtx, socketPath) }()

	if err := run(ctx, "mpv", mpvArgs(req, socketPath)); err != nil {
		return Result{}, fmt.Errorf("running mpv: %w", err)
	}

	// mpv closes the socket on exit, which ends the tracker.
	select {
	case res := <-tracked:
		return res, nil
	case <-time.After(2 * time.Second):
		stopTracking()
		return <-tracked, nil
	}
}

func mpvArgs(req Request, socketPath string) []string {
	args := []string{
		req.Stream.URL,
		"--force-media-title=" + req.Title,
		"--input-ipc-server=" + socketPath,
		"--really-quiet",
	}
	if req.Start > 0 {
		args = append(args, fmt.Sprintf("--start=+%.0f", req.Start))
	}
	if ref := header(req.Stream.Headers, "Referer"); ref != "" {
		args = append(args, "--referrer="+ref)
	}
	if fields := headerFields(req.Stream.Headers); len(fields) > 0 {
		args = append(args, "--http-header-fields="+strings.Join(fields, ","))
	}
	for _, sub := range req.Subtitles {
		args = append(args, "--sub-file="+sub)
	}
	return args
}

// trackPosition observes time-pos and duration until the socket closes or
// ctx ends.
func trackPosition(ctx context.Context, socketPath string) Result {
	var conn net.Conn
	for i := 0; i < 50 && conn == nil; i++ {
		var d net.Dialer
		c, err := d.DialContext(ctx, "unix", socketPath)
		if err == nil {
			conn = c
			break
		}
		select {
		case <-ctx.Done():
			return Result{}
		case <-time.After(100 * time.Millisecond):
		}
	}
	if conn == nil {
		return Result{}
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for id, prop := range []string{"time-pos", "duration"} {
		data, _ := json.Marshal(map[string]any{"command": []any{"observe_property", id + 1, prop}})
		if _, err := conn.Write(append(data, '\n')); err != nil {
			return Result{}
		}
	}
	return readEvents(conn)
}

// readEvents folds mpv property-change events into a Result.
func readEvents(r io.Reader) Result {
	var res Result
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var event struct {
			Event string   `json:"event"`
			Name  string   `json:"name"`
			Data  *float64 `json:"data"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}
		if event.Event != "property-change" || event.Data == nil {
			continue
		}
		switch event.Name {
		case "time-pos":
			if *event.Data > 0 {
				res.Position = *event.Data
			}
		case "duration":
			if *event.Data > 0 {
				res.Duration = *event.Data
			}
		}
	}
	return res
}
