package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bjoernd/cj/internal/config"
	"github.com/bjoernd/cj/internal/container"
	"github.com/bjoernd/cj/internal/namegen"
	"github.com/bjoernd/cj/internal/project"
	"github.com/spf13/cobra"
)

var setupExtraPackages string

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create project configuration and build the container image",
	Long: `Create the .cj directory for the current project, generate a
Dockerfile, and build the container image under a random name.

Extra Ubuntu packages can be baked into the image:

  cj setup --extra-packages "htop jq postgresql-client"

The package list is remembered, so later 'cj update' runs keep it.`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().StringVar(&setupExtraPackages, "extra-packages", "", "additional Ubuntu packages to install (space-separated)")
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

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
	if proj.HasDockerfile() {
		return fmt.Errorf("container setup already exists, run 'cj update' to rebuild")
	}

	mgr := container.NewManager(cfg.Container.Binary)
	if !mgr.Available() {
		return container.ErrNotAvailable
	}

	// .cj may already exist from an aborted run.
	if !proj.Exists() {
		if err := proj.Create(); err != nil {
			return fmt.Errorf("failed to create project directory: %w", err)
		}
	}

	packages := mergePackages(cfg.Build.ExtraPackages, strings.Fields(setupExtraPackages))
	if err := setupProject(ctx, mgr, proj, packages); err != nil {
		if cleanupErr := proj.Remove(); cleanupErr != nil {
			Debug("Cleanup failed: %v", cleanupErr)
		}
		return err
	}
	return nil
}

func setupProject(ctx context.Context, mgr *container.Manager, proj *project.Project, packages []string) error {
	imageName := namegen.Generate()

	if len(packages) > 0 {
		if err := proj.WriteExtraPackages(packages); err != nil {
			return err
		}
		fmt.Printf("Extra packages to install: %s\n", strings.Join(packages, " "))
	}

	if err := proj.WriteDockerfile(packages); err != nil {
		return err
	}
	fmt.Printf("Generated Dockerfile at %s\n", proj.DockerfilePath())

	claudeMD := filepath.Join(proj.Root(), "CLAUDE.md")
	if _, err := os.Stat(claudeMD); os.IsNotExist(err) {
		if err := os.WriteFile(claudeMD, []byte(project.DefaultClaudeMD), 0644); err != nil {
			return fmt.Errorf("failed to write CLAUDE.md: %w", err)
		}
		fmt.Printf("Generated default CLAUDE.md at %s\n", claudeMD)
	}

	fmt.Printf("Building container image '%s'...\n", imageName)
	if err := mgr.BuildImage(ctx, proj.DockerfilePath(), imageName, proj.Root(), proj.BuildLogPath()); err != nil {
		return err
	}

	if err := proj.WriteImageName(imageName); err != nil {
		return err
	}
	fmt.Printf("Build log saved to %s\n", proj.BuildLogPath())

	fmt.Printf("Successfully created container image '%s'\n", imageName)
	fmt.Println("Run 'cj' to start Claude Code in the container")
	return nil
}

// mergePackages unions package lists into a sorted, deduplicated slice.
func mergePackages(lists ...[]string) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, list := range lists {
		for _, pkg := range list {
			pkg = strings.TrimSpace(pkg)
			if pkg == "" || seen[pkg] {
				continue
			}
			seen[pkg] = true
			merged = append(merged, pkg)
		}
	}
	sort.Strings(merged)
	return merged
}
