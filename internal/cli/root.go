// Package cli implements the wasmedgeup command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/wasmedge/wasmedgeup/internal/platform"
	"github.com/wasmedge/wasmedgeup/internal/shell"
)

var (
	configPath  string
	installPath string
	tmpDir      string
	verbose     bool
	quiet       bool
)

// Host probes, replaced in tests.
var (
	detector platform.Detector = platform.NewDetector()
	shellEnv                   = shell.EnvFromOS
)

// Execute runs the root cobra command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("error:"), describeError(err, verbose))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wasmedgeup",
		Short:         "Install and manage WasmEdge runtime versions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.lua (default $XDG_CONFIG_HOME/wasmedgeup/config.lua)")
	cmd.PersistentFlags().StringVarP(&installPath, "path", "p", "", "Install root (default $HOME/.wasmedge)")
	cmd.PersistentFlags().StringVar(&tmpDir, "tmpdir", "", "Directory for downloads and staging (default OS temp dir)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors and hide progress")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newUseCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newPluginCmd())
	cmd.AddCommand(newPlatformCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}
