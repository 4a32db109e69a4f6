package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/pulse-sync/internal/config"
	"github.com/oshokin/pulse-sync/internal/service/monitor"
	"github.com/oshokin/pulse-sync/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// entityStateFile path where entity state is persisted.
	entityStateFile string

	// rootCmd represents the base command for running the monitor.
	rootCmd = &cobra.Command{
		Use:   "pulse-monitor [gateway-url]",
		Short: "Synchronize the local alarm model with a Pulse security gateway.",
		Long: `Connects to a Pulse security gateway over websocket and keeps a local
model of the alarm panel and its zones synchronized.

The gateway URL is taken from the configuration file unless provided as an
argument (e.g., ws://panel.local:8780/ws). Entity state is persisted to a
JSON file so the last known states survive restarts. The monitor exits on
credential rejection or an unrecognized gateway failure; transient outages
are retried with exponential backoff.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use gateway URL argument if provided, otherwise rely on config.
			var gatewayURL string
			if len(args) > 0 {
				gatewayURL = args[0]
			}

			options := &monitor.Options{
				ConfigPath:      configPath,
				GatewayURL:      gatewayURL,
				EntityStateFile: entityStateFile,
			}

			return monitor.Run(ctx, options)
		},
	}
)

// Execute runs the pulse-monitor CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().
		StringVarP(&entityStateFile, "state-file", "s", "", "path to persist entity state (defaults to config value)")
}
