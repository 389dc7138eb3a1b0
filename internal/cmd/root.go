package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

// Debug prints a debug message when --debug is enabled.
func Debug(format string, args ...interface{}) {
	if debug {
		fmt.Printf("[DEBUG] "+format+"\n", args...)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cj",
	Short: "CJ (Claude Jailer) - Run Claude Code in an isolated container",
	Long: `CJ (Claude Jailer) runs Claude Code inside a per-project container.

Called without a subcommand, cj starts Claude Code in the image built for
the current project, with the working directory mounted at /workspace.
URLs opened inside the container travel back through a reverse SSH tunnel
and open in the browser on the host.

Examples:
  cj setup                                  # one-time per project
  cj                                        # start Claude Code
  cj update --extra-packages "htop jq"      # rebuild with more packages
  cj shell                                  # poke around with bash`,
	RunE:          runClaude,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cj/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
}

// initLogging runs after flag parsing and before any RunE.
func initLogging() {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
		_ = os.Setenv("CJ_DEBUG", "1")
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// exitError carries a container exit status through the error path so
// main can pass it on without printing anything.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// ExitCode reports the container exit status carried by err, if any.
func ExitCode(err error) (int, bool) {
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code, true
	}
	return 0, false
}
