package changeset

import (
	"fmt"
	"strings"
)

// Render formats changes as the post-session summary: a counts line
// followed by up to limit per-file lines. The remainder is folded into
// a trailing count. A limit of zero or less shows everything.
func Render(changes []Change, limit int) string {
	if len(changes) == 0 {
		return "No changes in the workspace."
	}

	created, modified, deleted := categorize(changes)

	var b strings.Builder
	fmt.Fprintf(&b, "Workspace changes: %d created, %d modified, %d deleted\n",
		len(created), len(modified), len(deleted))

	shown := 0
	for _, c := range changes {
		if limit > 0 && shown >= limit {
			fmt.Fprintf(&b, "  ... and %d more\n", len(changes)-shown)
			break
		}
		b.WriteString(renderChange(c))
		shown++
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderChange prints a single change line
func renderChange(c Change) string {
	switch c.Type {
	case Created:
		return fmt.Sprintf("  + %s (%s)\n", c.Path, formatSize(c.NewSize))
	case Modified:
		return fmt.Sprintf("  ~ %s (%s → %s)\n", c.Path, formatSize(c.OldSize), formatSize(c.NewSize))
	case Deleted:
		return fmt.Sprintf("  - %s\n", c.Path)
	}
	return ""
}

// categorize splits changes into created/modified/deleted slices
func categorize(changes []Change) (created, modified, deleted []Change) {
	for _, c := range changes {
		switch c.Type {
		case Created:
			created = append(created, c)
		case Modified:
			modified = append(modified, c)
		case Deleted:
			deleted = append(deleted, c)
		}
	}
	return
}

// formatSize returns a human-readable file size
func formatSize(bytes int64) string {
	switch {
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
