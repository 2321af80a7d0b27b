// Package cli implements the gclient command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/tapcart/gclient/pkg/buildinfo"
	"github.com/tapcart/gclient/pkg/cache"
	gerrors "github.com/tapcart/gclient/pkg/errors"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "gclient"

	// defaultJobs is the default fetch parallelism when --jobs is unset (0).
	defaultJobs = 0 // resolved to runtime.NumCPU() by pkg/gclient/fetch.NewEngine
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "gclient",
		Short:        "gclient fetches and synchronizes multi-repository workspaces",
		Long:         `gclient reads a .gclient workspace config and the DEPS files it names, resolving conditional Git and CIPD package dependencies into a reproducible checkout.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.syncCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Cache Factory
// =============================================================================

// newCache builds the file-backed registry response cache used by sync,
// honoring --no-cache and --cache-dir. The Redis backend is chosen in
// newCacheWithBackend.
func newCache(noCache bool, dir string) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if dir == "" {
		var err error
		dir, err = cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
	}
	return cache.NewFileCache(dir)
}

// newCacheWithBackend extends newCache with an explicit backend choice
// ("file", the default, or "redis" addressed by redisAddr).
func newCacheWithBackend(noCache bool, backend, dir, redisAddr string) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch backend {
	case "redis":
		if redisAddr == "" {
			return nil, gerrors.New(gerrors.CodeConfig, "--cache-backend=redis requires --redis-addr")
		}
		return cache.NewRedisCache(redisAddr)
	case "", "file":
		return newCache(noCache, dir)
	default:
		return nil, gerrors.New(gerrors.CodeConfig, "unknown --cache-backend %q (want \"file\" or \"redis\")", backend)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/gclient/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
