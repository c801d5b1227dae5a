package player

import (
	"slices"
	"strings"
	"testing"

	"vividfusion/internal/media"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"mpv", "mpv"},
		{"vlc", "vlc"},
		{"iina", "iina"},
		{"celluloid", "celluloid"},
		{"unknown", "mpv"},
	}
	for _, tt := range tests {
		if got := New(tt.name).Name(); got != tt.want {
			t.Errorf("New(%q).Name() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func request() Request {
	return Request{
		Stream: media.Stream{
			URL:     "https://cdn.example.com/master.m3u8",
			Headers: map[string]string{"Referer": "https://flixhq.to/", "User-Agent": "ua"},
		},
		Title:     "Heat",
		Start:     90,
		Subtitles: []string{"/tmp/en.vtt", "/tmp/es.vtt"},
	}
}

func TestMPVArgs(t *testing.T) {
	got := mpvArgs(request(), "/tmp/sock")
	want := []string{
		"https://cdn.example.com/master.m3u8",
		"--force-media-title=Heat",
		"--input-ipc-server=/tmp/sock",
		"--really-quiet",
		"--start=+90",
		"--referrer=https://flixhq.to/",
		"--http-header-fields=Referer: https://flixhq.to/,User-Agent: ua",
		"--sub-file=/tmp/en.vtt",
		"--sub-file=/tmp/es.vtt",
	}
	if !slices.Equal(got, want) {
		t.Errorf("mpvArgs() =\n%q\nwant\n%q", got, want)
	}
}

func TestMPVArgsMinimal(t *testing.T) {
	got := mpvArgs(Request{Stream: media.Stream{URL: "https://x/v.mp4"}, Title: "t"}, "/s")
	if len(got) != 4 {
		t.Errorf("mpvArgs() = %q, want only the fixed arguments", got)
	}
}

func TestVLCArgs(t *testing.T) {
	got := vlcArgs(request())
	want := []string{
		"https://cdn.example.com/master.m3u8",
		"--meta-title", "Heat",
		"--play-and-exit",
		"--start-time=90",
		"--http-referrer=https://flixhq.to/",
		"--http-user-agent=ua",
		"--sub-file", "/tmp/en.vtt",
	}
	if !slices.Equal(got, want) {
		t.Errorf("vlcArgs() =\n%q\nwant\n%q", got, want)
	}
}

func TestGenericArgs(t *testing.T) {
	got := genericArgs(request())
	if got[0] != "https://cdn.example.com/master.m3u8" || !slices.Contains(got, "--sub-file=/tmp/es.vtt") {
		t.Errorf("genericArgs() = %q", got)
	}
	if slices.ContainsFunc(got, func(a string) bool { return strings.HasPrefix(a, "--input-ipc-server") }) {
		t.Error("generic players get no IPC socket")
	}
}

func TestReadEvents(t *testing.T) {
	events := strings.Join([]string{
		`{"request_id":0,"error":"success"}`,
		`{"event":"property-change","id":1,"name":"time-pos","data":12.5}`,
		`{"event":"property-change","id":2,"name":"duration","data":5400}`,
		`not json`,
		`{"event":"property-change","id":1,"name":"time-pos","data":null}`,
		`{"event":"property-change","id":1,"name":"time-pos","data":61.25}`,
		`{"event":"end-file"}`,
	}, "\n")

	got := readEvents(strings.NewReader(events))
	if got.Position != 61.25 || got.Duration != 5400 {
		t.Errorf("readEvents() = %+v", got)
	}
}
