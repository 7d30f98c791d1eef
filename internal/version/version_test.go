package version

import (
	"strings"
	"testing"
	"time"
)

func TestInfo_String(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"unknown commit", Info{Version: "1.0.0", Commit: "unknown"}, "1.0.0"},
		{"short commit", Info{Version: "1.0.0", Commit: "abc"}, "1.0.0"},
		{"full commit", Info{Version: "1.0.0", Commit: "0123456789abcdef"}, "1.0.0 (0123456)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInfo_Full(t *testing.T) {
	info := Info{Version: "1.2.3", Commit: "abc", GoVersion: "go1.24", OS: "linux", Arch: "amd64"}
	if !strings.Contains(info.Full(), "Build Time: unknown") {
		t.Errorf("expected unknown build time in %q", info.Full())
	}

	info.BuildTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !strings.Contains(info.Full(), "Build Time: 2024-01-01T00:00:00Z") {
		t.Errorf("expected build time in %q", info.Full())
	}
}

func TestGet(t *testing.T) {
	old := BuildTime
	t.Cleanup(func() { BuildTime = old })

	BuildTime = "2024-06-01T12:00:00Z"
	info := Get()
	if info.Version != Version {
		t.Errorf("expected version %q, got %q", Version, info.Version)
	}
	if info.BuildTime.Year() != 2024 {
		t.Errorf("expected ldflags build time, got %v", info.BuildTime)
	}
	if info.GoVersion == "" || info.OS == "" || info.Arch == "" {
		t.Errorf("expected runtime fields, got %+v", info)
	}
}
