package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wasmedge/wasmedgeup/internal/plugin"
	"github.com/wasmedge/wasmedgeup/internal/release"
	"github.com/wasmedge/wasmedgeup/internal/toolchain"
)

var (
	installPlugins  []string
	installNoVerify bool
	installNoUse    bool
)

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [VERSION|latest]",
		Short: "Install a WasmEdge version and make it current",
		Long: "Install downloads the WasmEdge release archive for this platform, verifies its\n" +
			"SHA-256 checksum, installs it under the install root and switches to it.\n" +
			"VERSION defaults to the latest stable release.",
		Args: cobra.MaximumNArgs(1),
		RunE: runInstall,
	}

	cmd.Flags().StringArrayVar(&installPlugins, "plugin", nil, "Plugin to install with the runtime, as name or name@version (repeatable)")
	cmd.Flags().BoolVar(&installNoVerify, "no-verify", false, "Skip checksum verification")
	cmd.Flags().BoolVar(&installNoUse, "no-use", false, "Install without switching the current version")

	return cmd
}

func runInstall(cmd *cobra.Command, args []string) error {
	token := release.LatestToken
	if len(args) == 1 {
		token = args[0]
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	specs, err := mergePluginSpecs(a.cfg.Plugins, installPlugins)
	if err != nil {
		return err
	}

	bar := newDownloadBar(cmd.ErrOrStderr(), "Downloading", quiet)
	res, err := a.toolchain.Install(cmd.Context(), toolchain.InstallOptions{
		Version:    token,
		Plugins:    specs,
		SkipVerify: installNoVerify || !a.cfg.VerifyChecksum,
		NoUse:      installNoUse,
		Progress:   bar.Func(),
	})
	bar.Done()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s WasmEdge %s (%s)\n", successStyle.Render("installed"), res.Version, res.Asset.ArchiveName)
	for _, p := range res.Plugins {
		if len(p.Copied) == 0 {
			fmt.Fprintf(out, "%s plugin %s: no library found for %s\n", warnStyle.Render("skipped"), p.Name, p.Key)
			continue
		}
		fmt.Fprintf(out, "%s plugin %s %s (%s)\n", successStyle.Render("installed"), p.Name, p.Version, p.Key)
	}

	if !res.Current {
		fmt.Fprintf(out, "Run %s to switch to it.\n", highlightStyle.Render("wasmedgeup use "+res.Version.String()))
		return nil
	}
	fmt.Fprintf(out, "Now using WasmEdge %s\n", res.Version)
	return a.configureShell(cmd)
}

// mergePluginSpecs combines plugins from the config file with those given
// on the command line. A name given on the command line overrides the
// config entry for the same plugin.
func mergePluginSpecs(fromConfig, fromFlags []string) ([]plugin.Spec, error) {
	cfgSpecs, err := plugin.ParseSpecs(fromConfig)
	if err != nil {
		return nil, err
	}
	flagSpecs, err := plugin.ParseSpecs(fromFlags)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var out []plugin.Spec
	for _, s := range append(cfgSpecs, flagSpecs...) {
		if i, ok := index[s.Name]; ok {
			out[i] = s
			continue
		}
		index[s.Name] = len(out)
		out = append(out, s)
	}
	return out, nil
}
