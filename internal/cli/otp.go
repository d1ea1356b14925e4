package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newOTPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "otp",
		Short: "Print a one-time passcode",
		Long: `Run the configured token generator and print the passcode on stdout.

The token PIN is read from sve.otp_pin, or asked for once when empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOTP(cmd)
		},
	}
}

func (a *app) runOTP(cmd *cobra.Command) error {
	m, err := a.connectManager()
	if err != nil {
		return err
	}

	res, err := m.GetOTP(cmd.Context())
	if err != nil {
		return err
	}
	if !res.IsCode() {
		return errors.New(res.Message())
	}

	// Printed even when silenced
	fmt.Fprintln(a.out, res.Code())
	return nil
}
