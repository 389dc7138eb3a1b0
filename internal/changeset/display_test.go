package changeset

import (
	"strings"
	"testing"
)

func TestRenderNoChanges(t *testing.T) {
	if got := Render(nil, 10); got != "No changes in the workspace." {
		t.Errorf("Render() = %q", got)
	}
}

func TestRenderCountsAndMarkers(t *testing.T) {
	changes := []Change{
		{Path: "a.txt", Type: Created, NewSize: 12},
		{Path: "b.txt", Type: Modified, OldSize: 1024, NewSize: 2048},
		{Path: "c.txt", Type: Deleted, OldSize: 5},
	}

	out := Render(changes, 10)

	if !strings.HasPrefix(out, "Workspace changes: 1 created, 1 modified, 1 deleted") {
		t.Errorf("Render() counts line wrong:\n%s", out)
	}
	for _, want := range []string{
		"  + a.txt (12 B)",
		"  ~ b.txt (1.0 KB → 2.0 KB)",
		"  - c.txt",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
}

func TestRenderHonorsLimit(t *testing.T) {
	changes := []Change{
		{Path: "a", Type: Created},
		{Path: "b", Type: Created},
		{Path: "c", Type: Created},
		{Path: "d", Type: Created},
		{Path: "e", Type: Created},
	}

	out := Render(changes, 2)
	if !strings.Contains(out, "... and 3 more") {
		t.Errorf("Render() should fold the overflow:\n%s", out)
	}
	if strings.Contains(out, "+ c") {
		t.Errorf("Render() printed past the limit:\n%s", out)
	}

	out = Render(changes, 0)
	if strings.Contains(out, "more") {
		t.Errorf("Render() with no limit should print everything:\n%s", out)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.bytes); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
