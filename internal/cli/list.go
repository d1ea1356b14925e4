package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured VPN profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show port and last connection")
	return cmd
}

func (a *app) runList(verbose bool) error {
	m, err := a.connectManager()
	if err != nil {
		return err
	}

	if !verbose {
		for _, name := range m.ListConnections() {
			fmt.Fprintln(a.out, name)
		}
		return nil
	}

	statuses, err := m.Status()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%-20s %-6s %-17s %-21s %s\n", "NAME", "PORT", "LAST OUTCOME", "LAST CONNECT", "CONNECTS")
	for _, st := range statuses {
		port, outcome, last, count := "-", "-", "-", 0
		if st.Port != "" {
			port = st.Port
		}
		if st.Record != nil && st.Record.Profile == st.Name {
			outcome = st.Record.LastOutcome
			last = st.Record.LastConnect.Local().Format("2006-01-02 15:04:05")
			count = st.Record.ConnectCount
		}
		fmt.Fprintf(a.out, "%-20s %-6s %-17s %-21s %d\n", st.Name, port, outcome, last, count)
	}
	return nil
}
