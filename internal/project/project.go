// Package project manages the per-project .cj directory: image name,
// extra packages, the generated Dockerfile, and the directories shared
// with the container.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirName is the per-project state directory created by setup.
const DirName = ".cj"

const (
	imageNameFile     = "image-name"
	extraPackagesFile = "extra-packages"
	dockerfileName    = "Dockerfile"
	claudeDirName     = "claude"
	sshDirName        = "ssh"
	buildLogName      = "build.log"
	updateLogName     = "update.log"
)

var (
	// ErrConfigExists is returned by Create when the project is already set up.
	ErrConfigExists = errors.New("project already set up")

	// ErrImageNameNotFound is returned when no image name has been stored yet.
	ErrImageNameNotFound = errors.New("image name not found")
)

// Project is a handle on one project root and its .cj directory.
type Project struct {
	root string
}

// New returns a Project rooted at baseDir.
func New(baseDir string) (*Project, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	return &Project{root: abs}, nil
}

// Root returns the project root directory.
func (p *Project) Root() string { return p.root }

// Dir returns the .cj directory path.
func (p *Project) Dir() string { return filepath.Join(p.root, DirName) }

// DockerfilePath returns the generated Dockerfile's path.
func (p *Project) DockerfilePath() string { return filepath.Join(p.Dir(), dockerfileName) }

// ClaudeDir returns the directory mounted at /root/.claude in the container.
func (p *Project) ClaudeDir() string { return filepath.Join(p.Dir(), claudeDirName) }

// SSHDir returns the directory holding the bridge's SSH key pair.
func (p *Project) SSHDir() string { return filepath.Join(p.Dir(), sshDirName) }

// BuildLogPath returns where setup writes the image build output.
func (p *Project) BuildLogPath() string { return filepath.Join(p.Dir(), buildLogName) }

// UpdateLogPath returns where update writes the image rebuild output.
func (p *Project) UpdateLogPath() string { return filepath.Join(p.Dir(), updateLogName) }

// Exists reports whether the project has a .cj directory.
func (p *Project) Exists() bool {
	info, err := os.Stat(p.Dir())
	return err == nil && info.IsDir()
}

// Create makes the .cj directory. It fails with ErrConfigExists when the
// project is already set up.
func (p *Project) Create() error {
	if p.Exists() {
		return ErrConfigExists
	}
	if err := os.MkdirAll(p.Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", p.Dir(), err)
	}
	return nil
}

// Remove deletes the .cj directory and everything in it.
func (p *Project) Remove() error {
	return os.RemoveAll(p.Dir())
}

// EnsureClaudeDir creates the claude state directory if missing.
func (p *Project) EnsureClaudeDir() error {
	if err := os.MkdirAll(p.ClaudeDir(), 0755); err != nil {
		return fmt.Errorf("failed to create claude directory: %w", err)
	}
	return nil
}

// EnsureSSHDir creates the SSH key directory if missing.
func (p *Project) EnsureSSHDir() error {
	if err := os.MkdirAll(p.SSHDir(), 0700); err != nil {
		return fmt.Errorf("failed to create ssh directory: %w", err)
	}
	return nil
}

// HasDockerfile reports whether setup has generated a Dockerfile.
func (p *Project) HasDockerfile() bool {
	info, err := os.Stat(p.DockerfilePath())
	return err == nil && !info.IsDir()
}

// ReadImageName returns the stored container image name.
func (p *Project) ReadImageName() (string, error) {
	data, err := os.ReadFile(filepath.Join(p.Dir(), imageNameFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrImageNameNotFound
		}
		return "", fmt.Errorf("failed to read image name: %w", err)
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", ErrImageNameNotFound
	}
	return name, nil
}

// WriteImageName stores the container image name.
func (p *Project) WriteImageName(name string) error {
	path := filepath.Join(p.Dir(), imageNameFile)
	if err := os.WriteFile(path, []byte(name+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write image name: %w", err)
	}
	return nil
}

// ReadExtraPackages returns the stored extra Ubuntu packages, one per
// line. A missing file means no extras.
func (p *Project) ReadExtraPackages() ([]string, error) {
	data, err := os.ReadFile(filepath.Join(p.Dir(), extraPackagesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read extra packages: %w", err)
	}

	var packages []string
	for _, line := range strings.Split(string(data), "\n") {
		if pkg := strings.TrimSpace(line); pkg != "" {
			packages = append(packages, pkg)
		}
	}
	return packages, nil
}

// WriteExtraPackages stores the extra package list, one per line.
func (p *Project) WriteExtraPackages(packages []string) error {
	path := filepath.Join(p.Dir(), extraPackagesFile)
	content := ""
	if len(packages) > 0 {
		content = strings.Join(packages, "\n") + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write extra packages: %w", err)
	}
	return nil
}
