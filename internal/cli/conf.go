package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "conf",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConf()
		},
	}
}

func (a *app) runConf() error {
	fmt.Fprintln(a.out, a.paths.ConfigFile)
	return nil
}
