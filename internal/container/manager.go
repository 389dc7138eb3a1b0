// Package container wraps the external container CLI that builds and
// runs the sandbox image.
package container

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNotAvailable is returned when the container CLI is not installed.
var ErrNotAvailable = errors.New("'container' command not found, install the macOS container tool")

// debugLog writes container command traces when CJ_DEBUG is set
func debugLog(format string, args ...interface{}) {
	if os.Getenv("CJ_DEBUG") == "1" {
		fmt.Printf("[DEBUG:CONTAINER] "+format+"\n", args...)
	}
}

// BuildError reports a failed image build with a pointer at the full log.
type BuildError struct {
	Tag     string
	LogPath string
	Excerpt string
	Err     error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("failed to build image '%s': %v (full log: %s)", e.Tag, e.Err, e.LogPath)
	if e.Excerpt != "" {
		msg += "\n" + e.Excerpt
	}
	return msg
}

func (e *BuildError) Unwrap() error { return e.Err }

// PortForward publishes a container port on the host.
type PortForward struct {
	Host      int
	Container int
}

// RunOptions describes one interactive container run.
type RunOptions struct {
	Image   string
	WorkDir string
	Mounts  []string
	Ports   []PortForward
	Env     []string
	Command []string
}

// Manager executes the container CLI.
type Manager struct {
	binary string
}

// NewManager returns a Manager using the given CLI binary name; empty
// selects the default "container".
func NewManager(binary string) *Manager {
	if binary == "" {
		binary = "container"
	}
	return &Manager{binary: binary}
}

// Available reports whether the container CLI is on PATH.
func (m *Manager) Available() bool {
	_, err := exec.LookPath(m.binary)
	return err == nil
}

// BuildImage builds the image from dockerfile with the given tag,
// writing the combined build output to logPath.
func (m *Manager) BuildImage(ctx context.Context, dockerfile, tag, contextDir, logPath string) error {
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("failed to create build log: %w", err)
	}
	defer logFile.Close()

	args := []string{"build", "-t", tag, "-f", dockerfile, contextDir}
	debugLog("%s %s", m.binary, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, m.binary, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Run(); err != nil {
		return &BuildError{Tag: tag, LogPath: logPath, Excerpt: logTail(logPath), Err: err}
	}
	return nil
}

// ImageExists reports whether an image with the given tag is present.
func (m *Manager) ImageExists(ctx context.Context, tag string) bool {
	out, err := exec.CommandContext(ctx, m.binary, "image", "list").Output()
	if err != nil {
		return false
	}
	return strings.Contains(string(out), tag)
}

// RemoveImage deletes the image. Best effort; a missing image is not an
// error.
func (m *Manager) RemoveImage(ctx context.Context, tag string) {
	debugLog("%s image delete %s", m.binary, tag)
	_ = exec.CommandContext(ctx, m.binary, "image", "delete", tag).Run()
}

// BuildRunArgs constructs the argument list for an interactive run.
func BuildRunArgs(opts RunOptions) []string {
	args := []string{"run", "-it", "--rm"}
	for _, p := range opts.Ports {
		args = append(args, "-p", fmt.Sprintf("%d:%d", p.Host, p.Container))
	}
	for _, mount := range opts.Mounts {
		args = append(args, "-v", mount)
	}
	for _, env := range opts.Env {
		args = append(args, "-e", env)
	}
	args = append(args, "-w", opts.WorkDir, opts.Image)
	args = append(args, opts.Command...)
	return args
}

// Run runs the container in the foreground with stdio attached and
// returns its exit code.
func (m *Manager) Run(ctx context.Context, opts RunOptions) (int, error) {
	args := BuildRunArgs(opts)
	debugLog("%s %s", m.binary, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, m.binary, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("failed to run container: %w", err)
	}
	return 0, nil
}

// logTail returns the last few lines of the build log for error reports.
func logTail(logPath string) string {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	const keep = 10
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.Join(lines, "\n")
}
