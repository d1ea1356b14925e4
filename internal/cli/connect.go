package cli

import (
	"errors"

	"github.com/javanstorm/sve/internal/connect"
	"github.com/spf13/cobra"
)

func newConnectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "connect NAME",
		Short: "Connect to a VPN profile",
		Long: `Start the VM for the profile, wait for its SSH server, fetch an OTP and
hand the generated negotiation script to the configured launcher.

The VM keeps running after sve exits and is reused by the next connect on
the same port.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConnect(cmd, args[0])
		},
	}
}

func (a *app) runConnect(cmd *cobra.Command, name string) error {
	m, err := a.connectManager()
	if err != nil {
		return err
	}

	if err := m.Connect(cmd.Context(), name); err != nil {
		if hint := connect.Guidance(err); hint != "" {
			a.logger.Warn(hint)
		}
		// A bad profile name is reported, not treated as a failure
		if errors.Is(err, connect.ErrExampleProfile) || errors.Is(err, connect.ErrUnknownProfile) {
			return nil
		}
		return err
	}
	return nil
}
