package mount

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bjoernd/cj/internal/bridge"
	"github.com/mitchellh/go-homedir"
)

// Mount represents a host path mounted into the container.
type Mount struct {
	HostPath      string // Expanded absolute host path
	ContainerPath string // Absolute path inside the container
	ReadOnly      bool   // Default false, matching the container CLI's -v
}

// Parse parses a mount specification string into a Mount.
//
// Formats:
//   - "/path:/container/path"    -> read-write mount
//   - "/path:/container/path:ro" -> read-only mount
//   - "/path:/container/path:rw" -> read-write mount
//
// The host path may use ~ for the home directory.
func Parse(spec string) (*Mount, error) {
	if spec == "" {
		return nil, fmt.Errorf("mount specification cannot be empty")
	}

	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("invalid mount specification '%s': want host:container[:ro|rw]", spec)
	}

	hostPath, err := expandPath(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid host path: %w", err)
	}

	containerPath := parts[1]
	if !strings.HasPrefix(containerPath, "/") {
		return nil, fmt.Errorf("container path '%s' must be absolute", containerPath)
	}

	mount := &Mount{
		HostPath:      hostPath,
		ContainerPath: filepath.Clean(containerPath),
	}

	if len(parts) == 3 {
		switch parts[2] {
		case "ro":
			mount.ReadOnly = true
		case "rw":
			mount.ReadOnly = false
		default:
			return nil, fmt.Errorf("invalid mode '%s': must be 'ro' or 'rw'", parts[2])
		}
	}

	return mount, nil
}

// String renders the mount as a container CLI -v argument.
func (m *Mount) String() string {
	s := m.HostPath + ":" + m.ContainerPath
	if m.ReadOnly {
		s += ":ro"
	}
	return s
}

// Mappings derives the bridge's path mappings from the mount table. Paths
// mounted under /tmp are transport plumbing, not project content, and are
// excluded so they never win a prefix match.
func Mappings(mounts []Mount) []bridge.MountMapping {
	mappings := make([]bridge.MountMapping, 0, len(mounts))
	for _, m := range mounts {
		if strings.HasPrefix(m.ContainerPath, "/tmp") {
			continue
		}
		mappings = append(mappings, bridge.MountMapping{
			HostPath:      m.HostPath,
			ContainerPath: m.ContainerPath,
		})
	}
	return mappings
}

// expandPath expands ~ to home directory and returns an absolute path
func expandPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	// Expand ~ to home directory
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand path: %w", err)
	}

	// Convert to absolute path and normalize
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to convert to absolute path: %w", err)
	}

	// Clean the path (resolve .., ., remove duplicate slashes)
	return filepath.Clean(abs), nil
}
