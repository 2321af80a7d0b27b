package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	gerrors "github.com/tapcart/gclient/pkg/errors"
	"github.com/tapcart/gclient/pkg/gclient/condition"
	"github.com/tapcart/gclient/pkg/gclient/fetch"
	"github.com/tapcart/gclient/pkg/gclient/recurse"
	"github.com/tapcart/gclient/pkg/gclient/registry"
	"github.com/tapcart/gclient/pkg/gclient/workspace"
)

// syncCommand drives the recursion driver over the workspace named by
// .gclient (or --config), the way `gclient sync` does upstream.
func (c *CLI) syncCommand() *cobra.Command {
	var (
		configPath           string
		jobs                 int
		gitJobs              int
		noHistory            bool
		noCache              bool
		cacheDir             string
		cacheBackend         string
		redisAddr            string
		registryURL          string
		cipdIgnorePlatformed bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch or update every solution in the workspace and their dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			base, err := os.Getwd()
			if err != nil {
				return gerrors.Wrap(gerrors.CodeIO, err, "getting working directory")
			}

			path := configPath
			if path == "" {
				path = filepath.Join(base, ".gclient")
			}

			ws, err := workspace.ReadFile(path)
			if err != nil {
				return err
			}

			cch, err := newCacheWithBackend(noCache, cacheBackend, cacheDir, redisAddr)
			if err != nil {
				return err
			}

			reg := registry.NewClient(registryURL, cch)
			eng := fetch.NewEngine(base, reg, fetch.Options{
				Jobs:      jobs,
				GitJobs:   gitJobs,
				NoHistory: noHistory,
			})

			driver := recurse.NewDriver(base, eng)
			driver.FilterOpts = condition.FilterOptions{CIPDIgnorePlatformed: cipdIgnorePlatformed}
			driver.Log = func(format string, args ...any) {
				c.Logger.Debugf(format, args...)
			}

			p := newProgress(c.Logger)
			if err := driver.Run(ctx, ws); err != nil {
				return err
			}
			p.done("sync complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the .gclient or .gclient.toml workspace config (default: ./.gclient)")
	cmd.Flags().IntVar(&jobs, "jobs", defaultJobs, "maximum concurrent fetch operations (default: number of CPUs)")
	cmd.Flags().IntVar(&gitJobs, "git-jobs", 1, "value passed to `git fetch --jobs`")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "fetch with --depth=1, omitting history")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the registry response cache")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "registry response cache directory (default: XDG cache dir)")
	cmd.Flags().StringVar(&cacheBackend, "cache-backend", "file", `registry response cache backend: "file" or "redis"`)
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "redis host:port, required when --cache-backend=redis")
	cmd.Flags().StringVar(&registryURL, "registry-url", "", "override the CIPD-like registry base URL")
	cmd.Flags().BoolVar(&cipdIgnorePlatformed, "cipd-ignore-platformed", false, "drop CIPD entries whose package name carries an unresolved ${...} placeholder")

	return cmd
}
