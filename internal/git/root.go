package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// FindRoot returns the git repository root for the given directory,
// or an empty string if the directory is not inside a git repository.
func FindRoot(dir string) string {
	cmd := exec.Command("git", "-C", dir, "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Dir returns the .git directory under root, or an empty string when
// there is none. Worktrees and submodules keep a .git file instead of a
// directory; those return empty because a file cannot be bind-mounted
// as the repository metadata.
func Dir(root string) string {
	path := filepath.Join(root, ".git")
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return ""
	}
	return path
}
