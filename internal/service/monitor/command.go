package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/pulse-sync/internal/config"
	"github.com/oshokin/pulse-sync/internal/coordinator"
	"github.com/oshokin/pulse-sync/internal/gateway/pulse"
	"github.com/oshokin/pulse-sync/internal/host"
	"github.com/oshokin/pulse-sync/internal/logger"
	"github.com/oshokin/pulse-sync/internal/repository/entitystate"
	"github.com/oshokin/pulse-sync/internal/service/alarmpanel"
)

// Options controls the monitor behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// GatewayURL provides an optional gateway URL override.
	GatewayURL string
	// EntityStateFile provides an optional entity-state file override.
	EntityStateFile string
}

// Verb names exposed as host-level command actions.
const (
	// ForceStayVerb arms home with open zones bypassed.
	ForceStayVerb = "force_stay"
	// ForceAwayVerb arms away with open zones bypassed.
	ForceAwayVerb = "force_away"
)

// stopTimeout bounds the coordinator shutdown on exit.
const stopTimeout = 5 * time.Second

// Run connects to the gateway, registers the alarm entity and observers,
// and keeps the local model synchronized until the context is cancelled or
// the coordinator dies fatally.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "pulse-monitor")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	// Command line arguments override config.
	gatewayURL := cfg.GatewayURL
	if opts.GatewayURL != "" {
		gatewayURL = opts.GatewayURL
	}

	stateFile := cfg.EntityStateFile
	if opts.EntityStateFile != "" {
		stateFile = opts.EntityStateFile
	}

	// Establish the gateway connection; the hello exchange populates the
	// site metadata and zone list used for wiring below.
	client, err := pulse.Dial(ctx, gatewayURL, cfg.AuthToken,
		pulse.WithDialTimeout(cfg.Timeout), pulse.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	session := host.NewSession(func(ctx context.Context) {
		logger.Error(ctx, "Gateway credentials rejected, update the auth token and restart")
	})

	registry := host.NewRegistry(entitystate.NewFileRepository(stateFile))
	coord := coordinator.New(client, session)

	panelEntity := alarmpanel.New(client)
	panelEntity.BindPublisher(func(ctx context.Context) {
		registry.Publish(ctx, panelEntity)
	})

	if err = registry.AddEntity(ctx, panelEntity); err != nil {
		return fmt.Errorf("register alarm entity: %w", err)
	}

	if err = wireVerbs(registry, panelEntity); err != nil {
		return fmt.Errorf("register service verbs: %w", err)
	}

	wireTopics(coord, client, panelEntity)

	if err = coord.Start(ctx); err != nil {
		return fmt.Errorf("start coordinator: %w", err)
	}

	site := client.Site()
	logger.InfoKV(ctx, "Monitoring site",
		"site_id", site.ID, "name", site.Name, "gateway_url", gatewayURL)

	select {
	case <-ctx.Done():
		logger.Info(ctx, "Context canceled, exiting")
	case <-coord.Done():
	}

	session.RequestStop()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err = coord.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop coordinator: %w", err)
	}

	if err = coord.Err(); err != nil {
		return fmt.Errorf("coordinator failed: %w", err)
	}

	return nil
}

// wireVerbs exposes the force arm variants as host-level command actions.
func wireVerbs(registry *host.Registry, panelEntity *alarmpanel.Panel) error {
	if err := registry.RegisterVerb(ForceStayVerb, panelEntity, panelEntity.ArmHomeBypass); err != nil {
		return err
	}

	return registry.RegisterVerb(ForceAwayVerb, panelEntity, panelEntity.ArmAwayBypass)
}

// wireTopics registers a listener for every topic that can appear in a
// snapshot. The coordinator fails loudly on unregistered topics, so this
// must cover the full set before Start.
func wireTopics(coord *coordinator.Coordinator, client *pulse.Client, panelEntity *alarmpanel.Panel) {
	coord.Register(coordinator.AlarmTopic(), panelEntity.HandleCoordinatorUpdate)

	for _, zone := range client.Zones() {
		zoneID := zone.ID
		zoneName := zone.Name

		coord.Register(coordinator.ZoneTopic(zoneID), func(ctx context.Context) {
			logger.DebugKV(ctx, "Zone changed", "zone_id", zoneID, "zone_name", zoneName)
		})
		coord.Register(coordinator.ZoneTroubleTopic(zoneID), func(ctx context.Context) {
			logger.DebugKV(ctx, "Zone trouble state changed", "zone_id", zoneID, "zone_name", zoneName)
		})
	}

	coord.Register(coordinator.ConnectionStatusTopic(), func(ctx context.Context) {
		logger.DebugKV(ctx, "Gateway connection status", "online", client.Online())
	})
	coord.Register(coordinator.NextRefreshTopic(), func(ctx context.Context) {
		logger.DebugKV(ctx, "Panel state refreshed", "last_update", client.LastUpdate().Local())
	})
}
