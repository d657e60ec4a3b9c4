package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/NotCoffee418/uniden_interface/pkg/config"
	"github.com/NotCoffee418/uniden_interface/pkg/logging"
	"github.com/NotCoffee418/uniden_interface/pkg/scannersim"
	"github.com/NotCoffee418/uniden_interface/pkg/serialport"
	"github.com/NotCoffee418/uniden_interface/pkg/uniden"
)

type rootFlags struct {
	configPath string
	device     string
	simulate   bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "unidenctl",
		Short:         "Control a Uniden scanner over its serial command protocol.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(flags)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to scanner.toml (default: config directory)")
	pf.StringVarP(&flags.device, "device", "d", "", "Serial device, overrides serial_device from the config")
	pf.BoolVar(&flags.simulate, "simulate", false, "Talk to a built-in scanner emulator instead of hardware")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level, overrides log_level from the config")

	rootCmd.AddCommand(
		newInfoCmd(flags),
		newLevelCmd(flags, "volume", "Show or set the volume (0-15)", (*uniden.Scanner).Volume, (*uniden.Scanner).SetVolume),
		newLevelCmd(flags, "squelch", "Show or set the squelch (0-15)", (*uniden.Scanner).Squelch, (*uniden.Scanner).SetSquelch),
		newChannelCmd(flags),
		newDumpCmd(flags),
		newScreenCmd(flags),
		newKeyCmd(flags),
		newChargeTimeCmd(flags),
		newClearMemoryCmd(flags),
		newExecCmd(flags),
		newRemoteCmd(),
		newPruneCmd(),
	)
	return rootCmd
}

func setup(flags *rootFlags) error {
	var err error
	if flags.configPath != "" {
		err = config.LoadScannerConfigFrom(flags.configPath)
	} else {
		err = config.LoadScannerConfig()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := config.ActiveScannerConfig.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	logging.Configure(logging.Config{
		App:   "unidenctl",
		Level: level,
		File:  config.ActiveScannerConfig.LogFile,
	})
	return nil
}

// connect opens a session with the scanner selected by the flags and config.
// The caller must Disconnect it.
func connect(flags *rootFlags) (*uniden.Scanner, error) {
	cfg := config.ActiveScannerConfig
	device := cfg.SerialDevice
	if flags.device != "" {
		device = flags.device
	}

	open := serialport.Opener(cfg.Baudrate, cfg.ReadTimeout())
	if flags.simulate {
		open = scannersim.New().Open
		device = "simulator"
	}

	sc := uniden.NewScanner(open, cfg.ScannerOptions())
	if err := sc.Connect(device); err != nil {
		return nil, err
	}
	return sc, nil
}

// withScanner runs fn against a fresh session and always disconnects afterwards.
func withScanner(flags *rootFlags, fn func(sc *uniden.Scanner) error) (err error) {
	sc, err := connect(flags)
	if err != nil {
		return err
	}
	defer func() {
		if disconnectErr := sc.Disconnect(); disconnectErr != nil {
			log.Warn().Err(disconnectErr).Msg("Disconnect failed")
			if err == nil {
				err = disconnectErr
			}
		}
	}()
	return fn(sc)
}
