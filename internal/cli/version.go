package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/wasmedge/wasmedgeup/internal/binary"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the wasmedgeup version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "wasmedgeup %s (%s, %s/%s)\n", binary.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
