package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AazimAnish/HarMonad/internal/app"
	"github.com/AazimAnish/HarMonad/pkg/config"
	"github.com/AazimAnish/HarMonad/pkg/logger"
)

var (
	serverPort int
	serverHost string
	logLevel   string
	sensorURL  string
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the angle-to-swap pipeline",
	Long: `Start the HarMonad pipeline daemon.

This will start all components:
• Lid-angle sensor bridge client (WebSocket)
• Stability debouncer and token resolver
• Swap request queue and execution engine
• Status and authorization REST API with a WebSocket status stream

Examples:
  harmonad server                      # Start with default settings
  harmonad server --port 9090          # Status API on a custom port
  harmonad server --sensor-url ws://host:8765
  harmonad server --log-level debug    # Enable debug logging`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Status API port")
	serverCmd.Flags().StringVarP(&serverHost, "host", "H", "0.0.0.0", "Status API host")
	serverCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "Log level (debug, info, warn, error)")
	serverCmd.Flags().StringVar(&sensorURL, "sensor-url", "", "Lid-angle bridge WebSocket URL")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load .env file first
	if err := config.LoadDotEnv(); err != nil {
		// Log but don't fail, the .env file is optional
		fmt.Printf("Note: .env file not loaded: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override config with command line flags if provided
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if sensorURL != "" {
		cfg.Sensor.URL = sensorURL
	}

	log, _ := logger.New(&cfg.Logging)
	entry := logger.WithComponent(log, "server")
	entry.Info("Starting HarMonad pipeline")

	application := app.New(cfg, log)

	if err := application.Initialize(); err != nil {
		entry.WithError(err).Error("Failed to initialize application")
		return err
	}

	if err := application.Start(); err != nil {
		entry.WithError(err).Error("Failed to start application")
		return err
	}

	// Wait for interrupt signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-interrupt
	entry.WithField("signal", sig.String()).Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	shutdownComplete := make(chan struct{})

	go func() {
		if err := application.Stop(); err != nil {
			entry.WithError(err).Error("Application shutdown error")
		}
		close(shutdownComplete)
	}()

	select {
	case <-shutdownComplete:
		entry.Info("Application shutdown complete")
	case <-shutdownCtx.Done():
		entry.Warn("Shutdown timeout - forcing exit")
		os.Exit(1)
	}

	return nil
}
