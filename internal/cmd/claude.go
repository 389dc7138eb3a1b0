package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/bjoernd/cj/internal/bridge"
	"github.com/bjoernd/cj/internal/changeset"
	"github.com/bjoernd/cj/internal/config"
	"github.com/bjoernd/cj/internal/container"
	"github.com/bjoernd/cj/internal/git"
	"github.com/bjoernd/cj/internal/mount"
	"github.com/bjoernd/cj/internal/namegen"
	"github.com/bjoernd/cj/internal/project"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Paths inside the container.
const (
	containerWorkspace = "/workspace"
	containerClaudeDir = "/root/.claude"
	containerSSHDir    = "/tmp/host-ssh"
	containerSSHPort   = 22
)

// changeSummaryLimit caps the per-file lines in the post-session summary.
const changeSummaryLimit = 20

var claudeMounts []string

func init() {
	rootCmd.Flags().StringArrayVarP(&claudeMounts, "mount", "m", []string{}, "additional mount (host:container[:ro|rw], repeatable)")
}

func runClaude(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("claude mode requires an interactive terminal")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	Debug("Config loaded successfully")

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

	imageName, err := ensureImage(ctx, mgr, proj)
	if err != nil {
		return err
	}

	// Claude credentials and the bridge SSH keys live under .cj so they
	// survive across sessions.
	if err := proj.EnsureClaudeDir(); err != nil {
		return err
	}
	if err := proj.EnsureSSHDir(); err != nil {
		return err
	}

	mounts, err := claudeModeMounts(proj, cfg)
	if err != nil {
		return err
	}

	opts := container.RunOptions{
		Image:   imageName,
		WorkDir: containerWorkspace,
		Command: []string{"claude"},
	}
	for _, m := range mounts {
		opts.Mounts = append(opts.Mounts, m.String())
	}
	Debug("Mounts: %d configured", len(opts.Mounts))
	for _, m := range opts.Mounts {
		Debug("  %s", m)
	}

	// The reverse tunnel can only connect once the container's sshd is
	// reachable through the forwarded port, so the bridge establishes in
	// the background while the container starts.
	stopBridge := func() {}
	if cfg.BridgeEnabled() {
		opts.Ports = append(opts.Ports, container.PortForward{Host: cfg.Bridge.SSHPort, Container: containerSSHPort})
		opts.Env = append(opts.Env, fmt.Sprintf("BROWSER_BRIDGE_PORT=%d", cfg.Bridge.Port))

		bridgeCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		var sess *bridge.Session

		go func() {
			defer close(done)
			s, warnings, err := bridge.StartSession(bridgeCtx, bridge.SessionConfig{
				ForwardPort:   cfg.Bridge.Port,
				SSHEndpoint:   bridge.Endpoint{Host: "localhost", Port: cfg.Bridge.SSHPort},
				Mappings:      mount.Mappings(mounts),
				KeyDir:        proj.SSHDir(),
				TunnelTimeout: cfg.TunnelTimeout(),
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: browser bridge unavailable: %v\n", err)
				return
			}
			sess = s
			if bridgeCtx.Err() != nil {
				return
			}
			for _, w := range warnings {
				fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
			}
			Debug("Browser bridge %s listening on port %d", s.ID(), s.Port())
		}()

		stopBridge = func() {
			cancel()
			<-done
			if sess != nil {
				for _, stopErr := range sess.Stop() {
					Debug("Bridge shutdown: %v", stopErr)
				}
			}
		}
		defer stopBridge()
	}

	var before changeset.Snapshot
	trackChanges := cfg.SessionSummaryEnabled()
	if trackChanges {
		before, err = changeset.Take(proj.Root())
		if err != nil {
			Debug("Failed to snapshot workspace: %v", err)
			trackChanges = false
		}
	}

	exitCode, err := mgr.Run(ctx, opts)
	if err != nil {
		return err
	}

	stopBridge()

	if trackChanges {
		after, err := changeset.Take(proj.Root())
		if err != nil {
			Debug("Failed to snapshot workspace: %v", err)
		} else {
			fmt.Println()
			fmt.Println(changeset.Render(changeset.Diff(before, after), changeSummaryLimit))
		}
	}

	if exitCode != 0 {
		return &exitError{code: exitCode}
	}
	return nil
}

// ensureImage returns the project's image tag, rebuilding the image when
// the runtime no longer has it.
func ensureImage(ctx context.Context, mgr *container.Manager, proj *project.Project) (string, error) {
	name, err := proj.ReadImageName()
	if errors.Is(err, project.ErrImageNameNotFound) {
		name = namegen.Generate()
	} else if err != nil {
		return "", err
	}

	if mgr.ImageExists(ctx, name) {
		return name, nil
	}

	fmt.Println("Container image not found. Rebuilding...")
	if !proj.HasDockerfile() {
		packages, err := proj.ReadExtraPackages()
		if err != nil {
			return "", err
		}
		if err := proj.WriteDockerfile(packages); err != nil {
			return "", err
		}
	}
	if err := mgr.BuildImage(ctx, proj.DockerfilePath(), name, proj.Root(), proj.BuildLogPath()); err != nil {
		return "", err
	}
	if err := proj.WriteImageName(name); err != nil {
		return "", err
	}
	fmt.Printf("Container image '%s' rebuilt.\n", name)
	return name, nil
}

// claudeModeMounts assembles the claude mode mount set: the workspace,
// claude state, bridge SSH keys, the repository's .git directory when the
// workspace sits below it, config auto-mounts, and --mount flags.
func claudeModeMounts(proj *project.Project, cfg *config.Config) ([]mount.Mount, error) {
	specs := []string{
		proj.Root() + ":" + containerWorkspace,
		proj.ClaudeDir() + ":" + containerClaudeDir,
		proj.SSHDir() + ":" + containerSSHDir + ":ro",
	}

	if gitRoot := git.FindRoot(proj.Root()); gitRoot != "" && gitRoot != proj.Root() {
		if gitDir := git.Dir(gitRoot); gitDir != "" {
			specs = append(specs, gitDir+":"+gitDir+":ro")
			Debug("Git root detected: %s (mounting .git read-only)", gitRoot)
		}
	}

	specs = append(specs, cfg.Mounts...)
	specs = append(specs, claudeMounts...)

	validator, err := mount.NewValidator(cfg.BlockedPaths)
	if err != nil {
		return nil, fmt.Errorf("failed to create mount validator: %w", err)
	}

	var mounts []mount.Mount
	for _, spec := range specs {
		m, err := mount.Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid mount '%s': %w", spec, err)
		}
		// Mounts derived from .cj skip blocked-path validation.
		if m.HostPath != proj.ClaudeDir() && m.HostPath != proj.SSHDir() {
			if err := validator.Validate(m); err != nil {
				return nil, fmt.Errorf("mount validation failed: %w", err)
			}
		}
		mounts = append(mounts, *m)
	}
	return mounts, nil
}
