package mount

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Validator rejects mounts whose host path is a protected directory or
// lives inside one. Protected entries and candidate paths are compared in
// symlink-resolved form, so a link into a protected tree is caught too.
type Validator struct {
	blocked []string
}

// NewValidator builds a Validator from the configured blocked paths.
// Entries may use ~ for the home directory; empty entries are ignored.
func NewValidator(paths []string) (*Validator, error) {
	v := &Validator{blocked: make([]string, 0, len(paths))}
	for _, p := range paths {
		if p == "" {
			continue
		}
		resolved, err := resolvePath(p)
		if err != nil {
			return nil, fmt.Errorf("invalid blocked path '%s': %w", p, err)
		}
		v.blocked = append(v.blocked, resolved)
	}
	return v, nil
}

// Validate returns an error when the mount's host path falls under a
// blocked path.
func (v *Validator) Validate(m *Mount) error {
	if m == nil {
		return fmt.Errorf("mount cannot be nil")
	}

	abs, err := expandPath(m.HostPath)
	if err != nil {
		abs = filepath.Clean(m.HostPath)
	}
	real := abs
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		real = r
	}

	for _, blocked := range v.blocked {
		if !underOrEqual(real, blocked) {
			continue
		}
		if real != abs {
			return fmt.Errorf("mount blocked: %s resolves to protected path %s", m.HostPath, blocked)
		}
		return fmt.Errorf("mount blocked: %s is a protected path", blocked)
	}
	return nil
}

// resolvePath normalizes a path the way Validate compares them: ~ is
// expanded, the path made absolute, and symlinks resolved. A path that
// does not exist yet keeps its cleaned absolute form.
func resolvePath(path string) (string, error) {
	abs, err := expandPath(path)
	if err != nil {
		return "", err
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return abs, nil
}

// underOrEqual reports whether path is base itself or inside it. A bare
// string prefix is not enough: /home/u/.sshrc is not under /home/u/.ssh.
func underOrEqual(path, base string) bool {
	if path == base {
		return true
	}
	if !strings.HasSuffix(base, string(filepath.Separator)) {
		base += string(filepath.Separator)
	}
	return strings.HasPrefix(path, base)
}
