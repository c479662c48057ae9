// stubd CLI - serve stub fixture files over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/getstubd/stubd/pkg/config"
	"github.com/getstubd/stubd/pkg/engine"
	"github.com/getstubd/stubd/pkg/logging"
	"github.com/getstubd/stubd/pkg/registry"
)

// Build-time variables set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	configPath string
	addr       string
	logLevel   string
	logFormat  string
	printURL   bool
}

var rootCmd = &cobra.Command{
	Use:           "stubd",
	Short:         "Serve canned HTTP responses from stub fixture files",
	Version:       fmt.Sprintf("%s (%s)", Version, Commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stubs from a fixture file until interrupted",
	Example: `  # Serve a fixture file
  stubd serve --config stubs.yaml

  # Auto-assign a port and print the URL
  stubd serve --config stubs.yaml --addr :0 --print-url

  # JSON logs for CI parsing
  stubd serve --config stubs.yaml --log-format json`,
	RunE: runServe,
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a fixture file without serving it",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		collection, err := config.LoadFromFile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d stubs OK\n", args[0], len(collection.Stubs))
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.configPath, "config", "c", "stubs.yaml", "fixture file to serve")
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", ":4280", "listen address (:0 picks a free port)")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&serveFlags.logFormat, "log-format", "text", "log format (text, json)")
	serveCmd.Flags().BoolVar(&serveFlags.printURL, "print-url", false, "print the listen URL on startup")

	rootCmd.AddCommand(serveCmd, validateCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	collection, err := config.LoadFromFile(serveFlags.configPath)
	if err != nil {
		return fmt.Errorf("failed to load fixtures: %w", err)
	}
	stubs, err := collection.Build()
	if err != nil {
		return fmt.Errorf("failed to build stubs: %w", err)
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(serveFlags.logLevel),
		Format: logging.ParseFormat(serveFlags.logFormat),
	})

	reg := registry.New(registry.WithLogger(log))
	for _, s := range stubs {
		reg.Add(s)
	}

	srv := engine.NewServer(engine.Config{Addr: serveFlags.addr, Logger: log}, reg)
	if err := srv.Start(); err != nil {
		return err
	}
	if serveFlags.printURL {
		fmt.Printf("http://%s\n", srv.Addr())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
