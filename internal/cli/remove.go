package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var removeAll bool

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove VERSION... | --all",
		Aliases: []string{"uninstall"},
		Short:   "Remove installed WasmEdge versions",
		Long: "Remove deletes installed versions. Removing the current version switches to\n" +
			"the newest remaining one. Removing the last version, or passing --all, deletes\n" +
			"the install root and the shell integration that points at it.",
		RunE: runRemove,
	}

	cmd.Flags().BoolVar(&removeAll, "all", false, "Remove every version and the install root")

	return cmd
}

func runRemove(cmd *cobra.Command, args []string) error {
	switch {
	case removeAll && len(args) > 0:
		return errors.New("pass either versions or --all, not both")
	case !removeAll && len(args) == 0:
		return errors.New("no versions given; pass VERSION... or --all")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if removeAll {
		if err := a.toolchain.RemoveAll(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", successStyle.Render("removed"), a.root)
		return nil
	}

	for _, token := range args {
		res, err := a.toolchain.Remove(cmd.Context(), token)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s WasmEdge %s\n", successStyle.Render("removed"), res.Removed)
		if res.NewCurrent != nil {
			fmt.Fprintf(out, "%s WasmEdge %s\n", successStyle.Render("now using"), res.NewCurrent)
		}
		if res.RootRemoved {
			fmt.Fprintf(out, "%s %s (no versions left)\n", successStyle.Render("removed"), a.root)
			break
		}
	}
	return nil
}
