package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// HardcodedBlockedPaths are security-critical paths that CANNOT be overridden by user config.
// These paths contain credentials and secrets that should never be mounted into containers.
var HardcodedBlockedPaths = []string{
	"~/.ssh",
	"~/.aws",
	"~/.config/gcloud",
	"~/.gnupg",
	"~/.password-store",
	"~/.docker/config.json",
}

// Config represents the CJ configuration
type Config struct {
	Bridge         Bridge    `mapstructure:"bridge"`
	Container      Container `mapstructure:"container"`
	Build          Build     `mapstructure:"build"`
	Mounts         []string  `mapstructure:"mounts"`
	BlockedPaths   []string  `mapstructure:"blocked_paths"`
	SessionSummary *bool     `mapstructure:"session_summary"`
}

// Bridge contains browser-bridge configuration
type Bridge struct {
	Enabled       *bool  `mapstructure:"enabled"`
	Port          int    `mapstructure:"port"`
	SSHPort       int    `mapstructure:"ssh_port"`
	TunnelTimeout string `mapstructure:"tunnel_timeout"`
}

// Container selects the container runtime CLI
type Container struct {
	Binary string `mapstructure:"binary"`
}

// Build contains image build configuration
type Build struct {
	ExtraPackages []string `mapstructure:"extra_packages"`
}

// BridgeEnabled returns whether the browser bridge runs with a session.
// Defaults to true when not explicitly set.
func (c *Config) BridgeEnabled() bool {
	if c.Bridge.Enabled == nil {
		return true
	}
	return *c.Bridge.Enabled
}

// SessionSummaryEnabled returns whether the post-session workspace change
// summary is printed. Defaults to true when not explicitly set.
func (c *Config) SessionSummaryEnabled() bool {
	if c.SessionSummary == nil {
		return true
	}
	return *c.SessionSummary
}

// TunnelTimeout returns the tunnel establishment budget, falling back to
// 30s when the configured value does not parse.
func (c *Config) TunnelTimeout() time.Duration {
	d, err := time.ParseDuration(c.Bridge.TunnelTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Load loads the configuration from cfgFile, or from ~/.cj/config.yaml
// when cfgFile is empty. A missing default config file is fine; defaults
// apply.
func Load(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir)
	}

	// Set defaults
	setDefaults()

	// Try to read config file, but don't fail if it doesn't exist
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error occurred
			return nil, err
		}
		// Config file not found, use defaults
	}

	// Unmarshal into config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Expand ~ in paths
	cfg.Mounts = expandPaths(cfg.Mounts)
	cfg.BlockedPaths = expandPaths(cfg.BlockedPaths)

	// Merge hardcoded blocked paths (security-critical, cannot be overridden)
	cfg.BlockedPaths = mergeBlockedPaths(cfg.BlockedPaths, expandPaths(HardcodedBlockedPaths))

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("bridge.enabled", true)
	viper.SetDefault("bridge.port", 9999)
	viper.SetDefault("bridge.ssh_port", 2222)
	viper.SetDefault("bridge.tunnel_timeout", "30s")
	viper.SetDefault("container.binary", "container")
	viper.SetDefault("build.extra_packages", []string{})
	viper.SetDefault("mounts", []string{})
	viper.SetDefault("session_summary", true)

	// Blocked paths (SECURITY CRITICAL)
	blockedPaths := []string{
		"~/.ssh",
		"~/.aws",
		"~/.config/gcloud",
		"~/.gnupg",
		"~/.password-store",
		"~/.mozilla",
		"~/.config/google-chrome",
		"~/.docker",
		// Additional credential stores
		"~/.netrc",
		"~/.npmrc",
		"~/.pypirc",
		"~/.m2/settings.xml",
		"~/.gradle/gradle.properties",
		"~/.kube",
		"~/.config/gh",
		"~/.config/hub",
		"~/.azure",
	}

	// Add platform-specific blocked paths
	switch runtime.GOOS {
	case "darwin":
		blockedPaths = append(blockedPaths, "~/Library/Keychains")
	case "linux":
		blockedPaths = append(blockedPaths, "~/.local/share/keyrings")
	}

	viper.SetDefault("blocked_paths", blockedPaths)
}

// expandPaths expands ~ in paths to home directory
func expandPaths(paths []string) []string {
	expanded := make([]string, len(paths))
	for i, path := range paths {
		// Handle mount syntax (path:ro or path:rw)
		mountOpts := ""
		if colonIdx := len(path) - 3; colonIdx > 0 &&
			(path[colonIdx:] == ":ro" || path[colonIdx:] == ":rw") {
			mountOpts = path[colonIdx:]
			path = path[:colonIdx]
		}

		expandedPath, err := homedir.Expand(path)
		if err != nil {
			// If expansion fails, use original path
			expanded[i] = paths[i]
			continue
		}

		// Re-attach mount options if present
		if mountOpts != "" {
			expandedPath += mountOpts
		}

		expanded[i] = expandedPath
	}
	return expanded
}

// ConfigDir returns the CJ configuration directory path
func ConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cj"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	configDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(configDir, 0755)
}

// mergeBlockedPaths merges two lists of blocked paths, removing duplicates.
// The hardcoded paths are always included regardless of user config.
func mergeBlockedPaths(userPaths, hardcodedPaths []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(userPaths)+len(hardcodedPaths))

	// Add hardcoded paths first (they take priority)
	for _, path := range hardcodedPaths {
		if !seen[path] {
			seen[path] = true
			result = append(result, path)
		}
	}

	// Add user paths that aren't duplicates
	for _, path := range userPaths {
		if !seen[path] {
			seen[path] = true
			result = append(result, path)
		}
	}

	return result
}
