package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/pulse-sync/internal/domain/panel"
	"github.com/oshokin/pulse-sync/internal/service/simulator"
	"github.com/oshokin/pulse-sync/internal/version"
)

// defaultListenAddress is used when no listen address argument is given.
const defaultListenAddress = ":8780"

var (
	// authToken required from connecting clients, empty disables auth.
	authToken string
	// zoneCount of closed zones the simulated site starts with.
	zoneCount int
	// rejectCommands makes the simulator refuse every arm and disarm request.
	rejectCommands bool

	// rootCmd represents the base command for running the simulator.
	rootCmd = &cobra.Command{
		Use:   "pulse-simulator [listen-address]",
		Short: "Run a fake Pulse security gateway for local development.",
		Long: `Starts a websocket server that mimics a Pulse security gateway.

Clients receive a hello message with the simulated site and zone list, can
arm and disarm the panel, and get state updates pushed whenever the panel
changes. The listen address can be provided as argument to override the
default (e.g., :9780, 0.0.0.0:8780).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			listenAddress := defaultListenAddress
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &simulator.Options{
				ListenAddress:  listenAddress,
				AuthToken:      authToken,
				Zones:          makeZones(zoneCount),
				RejectCommands: rejectCommands,
			}

			return simulator.Run(ctx, options)
		},
	}
)

// makeZones builds a list of closed, untripped zones for the simulated site.
func makeZones(count int) []panel.Zone {
	zones := make([]panel.Zone, 0, count)
	for i := 1; i <= count; i++ {
		zones = append(zones, panel.Zone{ID: i, Name: zoneName(i)})
	}

	return zones
}

func zoneName(id int) string {
	names := []string{"Front Door", "Back Door", "Garage", "Kitchen Window", "Motion Sensor"}
	if id <= len(names) {
		return names[id-1]
	}

	return fmt.Sprintf("Zone %d", id)
}

// Execute runs the pulse-simulator CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&authToken, "token", "t", "", "auth token required from clients (empty disables auth)")
	rootCmd.Flags().IntVarP(&zoneCount, "zones", "z", 3, "number of simulated zones")
	rootCmd.Flags().
		BoolVar(&rejectCommands, "reject-commands", false, "refuse every arm and disarm request")
}
