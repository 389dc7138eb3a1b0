package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bjoernd/cj/internal/config"
	"github.com/bjoernd/cj/internal/container"
	"github.com/bjoernd/cj/internal/project"
	"github.com/spf13/cobra"
)

var updateExtraPackages string

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Rebuild the container image with the latest base image",
	Long: `Regenerate the current project's Dockerfile and rebuild its image
under the same tag, pulling in the latest base image and package versions.
Stored extra packages are kept and can be extended:

  cj update --extra-packages "tmux"`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateExtraPackages, "extra-packages", "", "additional Ubuntu packages to install (space-separated)")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
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

	stored, err := proj.ReadExtraPackages()
	if err != nil {
		return err
	}

	packages := mergePackages(stored, cfg.Build.ExtraPackages, strings.Fields(updateExtraPackages))
	if len(packages) > 0 {
		if err := proj.WriteExtraPackages(packages); err != nil {
			return err
		}
		fmt.Printf("Extra packages to install: %s\n", strings.Join(packages, " "))
	}

	if err := proj.WriteDockerfile(packages); err != nil {
		return err
	}
	fmt.Printf("Regenerated Dockerfile at %s\n", proj.DockerfilePath())

	fmt.Printf("Rebuilding container image '%s'...\n", imageName)
	if err := mgr.BuildImage(ctx, proj.DockerfilePath(), imageName, proj.Root(), proj.UpdateLogPath()); err != nil {
		return err
	}

	fmt.Printf("Successfully updated container image '%s'\n", imageName)
	fmt.Printf("Update log saved to %s\n", proj.UpdateLogPath())
	fmt.Println("Run 'cj' to start Claude Code in the updated container")
	return nil
}
