package cli

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/blang/semver"
	"github.com/spf13/cobra"

	"github.com/wasmedge/wasmedgeup/internal/plugin"
)

var (
	pluginRuntime   string
	pluginInstalled bool
)

func newPluginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Manage plugins of an installed WasmEdge version",
	}

	cmd.PersistentFlags().StringVar(&pluginRuntime, "runtime", "", "WasmEdge version to operate on (default newest installed)")

	cmd.AddCommand(newPluginInstallCmd())
	cmd.AddCommand(newPluginRemoveCmd())
	cmd.AddCommand(newPluginListCmd())

	return cmd
}

func newPluginInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install NAME[@VERSION]...",
		Short: "Install plugins",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPluginInstall,
	}
}

func newPluginRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME...",
		Aliases: []string{"uninstall"},
		Short:   "Remove plugins",
		Args:    cobra.MinimumNArgs(1),
		RunE:    runPluginRemove,
	}
}

func newPluginListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List plugins published for a version and which are installed",
		Args:    cobra.NoArgs,
		RunE:    runPluginList,
	}
	cmd.Flags().BoolVar(&pluginInstalled, "installed", false, "Only list installed plugins")
	return cmd
}

func runPluginInstall(cmd *cobra.Command, args []string) error {
	specs, err := plugin.ParseSpecs(args)
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	results, err := a.toolchain.InstallPlugins(cmd.Context(), pluginRuntime, specs)
	out := cmd.OutOrStdout()
	for _, p := range results {
		if len(p.Copied) == 0 {
			fmt.Fprintf(out, "%s plugin %s: no library found for %s\n", warnStyle.Render("skipped"), p.Name, p.Key)
			continue
		}
		fmt.Fprintf(out, "%s plugin %s %s (%s)\n", successStyle.Render("installed"), p.Name, p.Version, p.Key)
	}
	return err
}

func runPluginRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	res, err := a.toolchain.RemovePlugins(cmd.Context(), pluginRuntime, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, path := range res.Removed {
		fmt.Fprintf(out, "%s %s\n", successStyle.Render("removed"), path)
	}
	for _, name := range res.Missing {
		fmt.Fprintf(out, "%s plugin %s is not installed\n", warnStyle.Render("skipped"), name)
	}
	return nil
}

func runPluginList(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	runtime, err := a.runtimeVersion()
	if err != nil {
		return err
	}
	installed, err := a.plugins.Installed(runtime)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Plugins for WasmEdge %s\n", runtime)

	if pluginInstalled {
		if len(installed) == 0 {
			fmt.Fprintln(out, "No plugins installed.")
			return nil
		}
		for _, name := range installed {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	available, err := a.plugins.Available(cmd.Context(), runtime)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPLATFORM\tSTATUS")
	for _, p := range available {
		status := "-"
		if slices.ContainsFunc(installed, func(name string) bool { return plugin.SameName(name, p.Name) }) {
			status = successStyle.Render("installed")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.Key, status)
	}
	return tw.Flush()
}

// runtimeVersion resolves --runtime, defaulting to the newest installed
// version.
func (a *app) runtimeVersion() (semver.Version, error) {
	return a.toolchain.PluginRuntime(pluginRuntime)
}
