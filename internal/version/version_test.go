package version

import (
	"strings"
	"testing"
)

func TestInfoString(t *testing.T) {
	out := Info{Version: "1.2.0", Commit: "abc123", BuildDate: "2024-06-30"}.String()
	for _, want := range []string{"version: 1.2.0", "commit: abc123", "built: 2024-06-30"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "go:") {
		t.Fatalf("go line should be omitted when unknown: %q", out)
	}
}

func TestGetKeepsLdflagsVersion(t *testing.T) {
	if got := Get().Version; got != Version {
		t.Fatalf("expected %q, got %q", Version, got)
	}
}
