package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/bjoernd/cj/internal/config"
	"github.com/bjoernd/cj/internal/container"
	"github.com/bjoernd/cj/internal/mount"
	"github.com/bjoernd/cj/internal/project"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var shellMounts []string

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open a bash shell in the project container",
	Long: `Open an interactive bash shell in the current project's container,
for example to inspect the image or try packages before baking them in.
The workspace is mounted read-write and .cj read-only. No browser bridge
is started and no change summary is printed.`,
	RunE: runShell,
}

func init() {
	shellCmd.Flags().StringArrayVarP(&shellMounts, "mount", "m", []string{}, "additional mount (host:container[:ro|rw], repeatable)")
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("shell mode requires an interactive terminal")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	proj, err := project.New(cwd)
	if err != nil {
		return fmt.Errorf("failed to resolve project directory: %w", err)
	}
	if !proj.Exists() {
		return fmt.Errorf("%s directory not found, run 'cj setup' first", project.DirName)
	}

	mgr := container.NewManager(cfg.Container.Binary)
	if !mgr.Available() {
		return container.ErrNotAvailable
	}

	imageName, err := proj.ReadImageName()
	if errors.Is(err, project.ErrImageNameNotFound) {
		return fmt.Errorf("image name not found, run 'cj setup' first")
	}
	if err != nil {
		return err
	}
	if !mgr.ImageExists(ctx, imageName) {
		return fmt.Errorf("container image '%s' not found, run 'cj setup' first", imageName)
	}

	if err := proj.EnsureClaudeDir(); err != nil {
		return err
	}

	specs := []string{
		proj.Root() + ":" + containerWorkspace,
		proj.Dir() + ":" + containerWorkspace + "/" + project.DirName + ":ro",
		proj.ClaudeDir() + ":" + containerClaudeDir,
	}
	specs = append(specs, shellMounts...)

	validator, err := mount.NewValidator(cfg.BlockedPaths)
	if err != nil {
		return fmt.Errorf("failed to create mount validator: %w", err)
	}

	opts := container.RunOptions{
		Image:   imageName,
		WorkDir: containerWorkspace,
		Command: []string{"/bin/bash"},
	}
	for _, spec := range specs {
		m, err := mount.Parse(spec)
		if err != nil {
			return fmt.Errorf("invalid mount '%s': %w", spec, err)
		}
		// Mounts derived from .cj skip blocked-path validation.
		if m.HostPath != proj.Dir() && m.HostPath != proj.ClaudeDir() {
			if err := validator.Validate(m); err != nil {
				return fmt.Errorf("mount validation failed: %w", err)
			}
		}
		opts.Mounts = append(opts.Mounts, m.String())
	}

	// Preserve TERM for color support.
	termValue := os.Getenv("TERM")
	if termValue == "" {
		termValue = "xterm-256color"
	}
	opts.Env = append(opts.Env, "TERM="+termValue)

	exitCode, err := mgr.Run(ctx, opts)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return &exitError{code: exitCode}
	}
	return nil
}
