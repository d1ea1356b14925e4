// Package cli provides the command-line interface for sve.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/javanstorm/sve/internal/config"
	"github.com/javanstorm/sve/internal/connect"
	"github.com/javanstorm/sve/internal/terminal"
	"github.com/javanstorm/sve/internal/timing"
	"github.com/spf13/cobra"
)

// app carries the state shared by all commands of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	silence    bool
	debug      bool
	configFile string

	logger  *log.Logger
	paths   *config.Paths
	cfg     *config.Config
	manager *connect.Manager

	// newManager defaults to connect.New.
	newManager func(connect.Options) (*connect.Manager, error)
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout, errOut: os.Stderr}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func newRootCmd(a *app) *cobra.Command {
	var (
		otpFlag  bool
		getConf  bool
		list     bool
		connName string
	)

	root := &cobra.Command{
		Use:   "sve",
		Short: "sve - SNX VPN emulator",
		Long: `sve runs a legacy Check Point SNX VPN client inside a QEMU VM.

It starts the VM for a configured VPN profile, waits for its SSH server,
generates a one-time passcode with stoken and writes an expect script that
logs in, starts the VPN client and answers its OTP challenge.

Without a command sve prints a fresh OTP.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.setupLogging()

			// Skip config loading for commands that don't need it
			switch cmd.Name() {
			case "version", "conf", "completion", "help":
				return a.resolvePaths()
			}
			if cmd == cmd.Root() && getConf {
				return a.resolvePaths()
			}
			return a.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case getConf:
				return a.runConf()
			case list:
				return a.runList(false)
			case connName != "":
				return a.runConnect(cmd, connName)
			default:
				// --otp or no flag at all
				return a.runOTP(cmd)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.silence, "silence", "s", false, "hide progress messages (the OTP and the PIN prompt are still shown)")
	pf.BoolVarP(&a.debug, "debug", "d", false, "verbose logging and emulator output")
	pf.StringVar(&a.configFile, "config", "", "config file (default $SVE_HOME/config.yaml)")

	f := root.Flags()
	f.BoolVarP(&otpFlag, "otp", "p", false, "print an OTP (default)")
	f.BoolVar(&getConf, "get-conf", false, "print the config file path")
	f.BoolVarP(&list, "list", "l", false, "list configured VPN profiles")
	f.StringVarP(&connName, "connect", "c", "", "connect to the named VPN profile")
	root.MarkFlagsMutuallyExclusive("otp", "get-conf", "list", "connect")

	root.AddCommand(
		newOTPCmd(a),
		newListCmd(a),
		newConnectCmd(a),
		newConfCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setupLogging installs the log handler on stderr. Silence hides
// everything but fatal entries; debug shows everything.
func (a *app) setupLogging() {
	level := log.InfoLevel
	switch {
	case a.debug:
		level = log.DebugLevel
	case a.silence:
		level = log.FatalLevel
	}
	a.logger = &log.Logger{Handler: &logHandler{w: a.errOut}, Level: level}
}

func (a *app) resolvePaths() error {
	paths, err := config.GetPaths()
	if err != nil {
		return fmt.Errorf("failed to determine paths: %w", err)
	}
	if a.configFile != "" {
		paths.ConfigFile = a.configFile
	}
	a.paths = paths
	return nil
}

// load reads and validates the configuration. A missing file is created
// and then fails validation, pointing the operator at it.
func (a *app) load() error {
	if err := a.resolvePaths(); err != nil {
		return err
	}

	cfg, created, err := config.Load(a.paths)
	if err != nil {
		return err
	}
	if created {
		a.logger.Info("Default config file was created")
	}
	if err := config.Validate(cfg, a.paths.ConfigFile); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// connectManager builds the Manager on first use.
func (a *app) connectManager() (*connect.Manager, error) {
	if a.manager != nil {
		return a.manager, nil
	}
	if a.cfg == nil {
		return nil, errors.New("configuration not loaded")
	}

	opts := connect.Options{
		Config:    a.cfg,
		Paths:     a.paths,
		Debug:     a.debug,
		Logger:    a.logger,
		PinPrompt: terminal.Current().PinPrompter(),
	}
	if timing.Enabled() {
		opts.Timer = timing.New()
	}

	newManager := a.newManager
	if newManager == nil {
		newManager = connect.New
	}
	m, err := newManager(opts)
	if err != nil {
		return nil, err
	}
	a.manager = m
	return m, nil
}
