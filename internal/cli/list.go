package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/blang/semver"
	"github.com/spf13/cobra"

	"github.com/wasmedge/wasmedgeup/internal/release"
)

var (
	listInstalled bool
	listAll       bool
	listLimit     int
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List available or installed WasmEdge versions",
		Args:    cobra.NoArgs,
		RunE:    runList,
	}

	cmd.Flags().BoolVar(&listInstalled, "installed", false, "List installed versions instead of releases")
	cmd.Flags().BoolVar(&listAll, "all", false, "Include pre-releases")
	cmd.Flags().IntVar(&listLimit, "limit", release.DefaultListLimit, "Maximum number of releases to list")

	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	installed, current, err := a.toolchain.Installed()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if listInstalled {
		if len(installed) == 0 {
			fmt.Fprintln(out, "No WasmEdge versions installed.")
			return nil
		}
		writeVersions(out, installed, nil, current)
		return nil
	}

	if listLimit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", listLimit)
	}
	versions, err := a.toolchain.ListRemote(cmd.Context(), release.ListOptions{All: listAll, Limit: listLimit})
	if err != nil {
		return err
	}

	var latest *semver.Version
	for i := range versions {
		if release.IsStable(versions[i]) {
			latest = &versions[i]
			break
		}
	}
	writeVersions(out, versions, latest, current)
	return nil
}

func writeVersions(out io.Writer, versions []semver.Version, latest, current *semver.Version) {
	for _, v := range versions {
		var marks []string
		if latest != nil && v.Equals(*latest) {
			marks = append(marks, highlightStyle.Render("<- latest"))
		}
		if current != nil && v.Equals(*current) {
			marks = append(marks, successStyle.Render("<- current"))
		}
		if len(marks) == 0 {
			fmt.Fprintln(out, v)
			continue
		}
		fmt.Fprintf(out, "%-12s %s\n", v, strings.Join(marks, " "))
	}
}
