package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use VERSION|latest",
		Short: "Switch the current WasmEdge version",
		Long:  "Use points the install root's bin, lib, include and plugin links at an\ninstalled version. \"latest\" selects the newest installed version.",
		Args:  cobra.ExactArgs(1),
		RunE:  runUse,
	}
}

func runUse(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	v, err := a.toolchain.Use(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s WasmEdge %s\n", successStyle.Render("now using"), v)
	return a.configureShell(cmd)
}
