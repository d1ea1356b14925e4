package cli

import (
	"fmt"

	"github.com/javanstorm/sve/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print the version, commit hash, and build date of sve.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "sve %s\n", version.Version)
			fmt.Fprintf(a.out, "  Commit:     %s\n", version.Commit)
			fmt.Fprintf(a.out, "  Build Date: %s\n", version.BuildDate)
		},
	}
}
