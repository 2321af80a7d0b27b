package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	gerrors "github.com/tapcart/gclient/pkg/errors"
	"github.com/tapcart/gclient/pkg/gclient/workspace"
)

// configCommand writes or inspects the workspace's .gclient file, per
// SPEC_FULL.md §C.1 and original_source/src/bin/gclient.rs's Config
// subcommand: with --spec it writes the literal text verbatim; without
// it, it parses and prints the existing file.
func (c *CLI) configCommand() *cobra.Command {
	var (
		spec       string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or inspect the .gclient workspace config",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := os.Getwd()
			if err != nil {
				return gerrors.Wrap(gerrors.CodeIO, err, "getting working directory")
			}

			path := configPath
			if path == "" {
				path = filepath.Join(base, ".gclient")
			}

			if spec != "" {
				if err := os.WriteFile(path, []byte(spec), 0o644); err != nil {
					return gerrors.Wrap(gerrors.CodeIO, err, "writing %q", path)
				}
				c.Logger.Infof("wrote %s", path)
				return nil
			}

			ws, err := workspace.ReadFile(path)
			if err != nil {
				return err
			}
			for _, sol := range ws.Solutions {
				fmt.Printf("%s: %s (deps_file=%s, no_checkout=%v)\n", sol.Name, sol.URL, sol.DepsFileName(), sol.NoCheckout)
			}
			fmt.Printf("target_os=%v target_cpu=%v\n", ws.TargetOS, ws.TargetCPU)
			return nil
		},
	}

	cmd.Flags().StringVar(&spec, "spec", "", "literal .gclient file contents to write (Python-expression syntax)")
	cmd.Flags().StringVar(&configPath, "config", "", "path to the .gclient file (default: ./.gclient)")

	return cmd
}
