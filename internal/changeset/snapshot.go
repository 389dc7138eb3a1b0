// Package changeset snapshots the project tree around a session and
// reports what changed.
package changeset

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// skipDirs are never descended into. Their top-level entry still lands
// in the snapshot so wholesale changes remain visible.
var skipDirs = map[string]bool{
	".git":         true,
	".cj":          true,
	"node_modules": true,
}

// maxDirChildren caps how large a directory may be before it is
// summarized instead of walked.
const maxDirChildren = 500

// FileInfo records one path's metadata at snapshot time.
type FileInfo struct {
	Size    int64
	ModTime time.Time
}

// Snapshot maps root-relative paths to their metadata.
type Snapshot map[string]FileInfo

// Take walks root and snapshots the regular files under it. Directories
// in skipDirs and directories with more than maxDirChildren direct
// children are recorded as a single entry and not walked.
func Take(root string) (Snapshot, error) {
	snap := make(Snapshot)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			summarize := skipDirs[d.Name()]
			if !summarize {
				children, err := os.ReadDir(path)
				if err != nil {
					return err
				}
				summarize = len(children) > maxDirChildren
			}
			if summarize {
				if info, err := d.Info(); err == nil {
					snap[rel] = FileInfo{Size: info.Size(), ModTime: info.ModTime()}
				}
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		snap[rel] = FileInfo{Size: info.Size(), ModTime: info.ModTime()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// Change types
const (
	Created  = "created"
	Modified = "modified"
	Deleted  = "deleted"
)

// Change represents a single file change.
type Change struct {
	Path    string
	Type    string
	OldSize int64
	NewSize int64
}

// Diff compares two snapshots and returns changes sorted by path.
// - Paths in after but not before = "created"
// - Paths in before but not after = "deleted"
// - Paths in both with different size or modtime = "modified"
func Diff(before, after Snapshot) []Change {
	var changes []Change

	// Check for created and modified
	for path, afterEntry := range after {
		beforeEntry, exists := before[path]
		if !exists {
			changes = append(changes, Change{
				Path:    path,
				Type:    Created,
				NewSize: afterEntry.Size,
			})
			continue
		}
		if beforeEntry.Size != afterEntry.Size || !beforeEntry.ModTime.Equal(afterEntry.ModTime) {
			changes = append(changes, Change{
				Path:    path,
				Type:    Modified,
				OldSize: beforeEntry.Size,
				NewSize: afterEntry.Size,
			})
		}
	}

	// Check for deleted
	for path, beforeEntry := range before {
		if _, exists := after[path]; !exists {
			changes = append(changes, Change{
				Path:    path,
				Type:    Deleted,
				OldSize: beforeEntry.Size,
			})
		}
	}

	// Sort by path for deterministic output
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})

	return changes
}
