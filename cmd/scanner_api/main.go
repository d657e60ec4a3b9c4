// Scanner API owns the serial connection to the scanner and shares it over HTTP and WebSocket.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/NotCoffee418/uniden_interface/pkg/api"
	"github.com/NotCoffee418/uniden_interface/pkg/config"
	"github.com/NotCoffee418/uniden_interface/pkg/logging"
	"github.com/NotCoffee418/uniden_interface/pkg/pathing"
	"github.com/NotCoffee418/uniden_interface/pkg/scannersim"
	"github.com/NotCoffee418/uniden_interface/pkg/serialport"
	"github.com/NotCoffee418/uniden_interface/pkg/uniden"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var simulate bool
	rootCmd := &cobra.Command{
		Use:           "scanner_api",
		Short:         "Share one Uniden scanner over HTTP and WebSocket.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(simulate)
		},
	}
	rootCmd.Flags().BoolVar(&simulate, "simulate", false, "Serve a built-in scanner emulator instead of hardware")
	return rootCmd
}

func serve(simulate bool) error {
	if err := pathing.EnsureDirs(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	// Load config
	if err := config.LoadScannerConfig(); err != nil {
		return fmt.Errorf("load scanner config: %w", err)
	}
	cfg := config.ActiveScannerConfig

	logging.Configure(logging.Config{
		App:   "scanner_api",
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
	})

	open := serialport.Opener(cfg.Baudrate, cfg.ReadTimeout())
	device := cfg.SerialDevice
	if simulate {
		open = scannersim.New().Open
		device = "simulator"
	}

	scanner := uniden.NewScanner(open, cfg.ScannerOptions())
	if err := scanner.Connect(device); err != nil {
		return fmt.Errorf("connect to scanner on %s: %w", device, err)
	}

	server := api.NewServer(scanner)
	listener := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	httpServer := &http.Server{
		Addr:              listener,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Shut down on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("listen", listener).Msg("Starting Uniden Scanner API")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	server.CloseClients()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown incomplete")
	}

	if err := scanner.Disconnect(); err != nil {
		log.Error().Err(err).Msg("Failed to disconnect scanner cleanly")
	}
	return nil
}
