package alarmpanel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/pulse-sync/internal/domain/panel"
	"github.com/oshokin/pulse-sync/internal/gateway"
	"github.com/oshokin/pulse-sync/internal/host"
	"github.com/oshokin/pulse-sync/internal/logger"
)

// Panel is the alarm command state machine: it translates the remote panel
// status into the public alarm state and drives optimistic transitions for
// user-issued arm and disarm commands.
//
// The assumed state is the only mutable state shared between command
// execution and the display path. It is non-absent only while a command is
// outstanding or while the gateway is offline, and it is always cleared
// before a command call returns.
type Panel struct {
	// client is the remote panel service.
	client gateway.Client
	// site is the read-through site metadata.
	site panel.Site
	// name is the human-readable entity label.
	name string
	// uniqueID identifies the entity across restarts.
	uniqueID string

	// mu protects assumed.
	mu sync.RWMutex
	// assumed is the optimistic state overriding the remote status;
	// empty when absent.
	assumed panel.State

	// publish pushes the current state to observers; bound by the host
	// wiring, invoked immediately after every assumed-state write.
	publish func(ctx context.Context)
}

// alarmAction is one command variant: the target state, the transient marker
// assumed while the command is outstanding, whether open zones are bypassed,
// and the gateway operation to invoke.
type alarmAction struct {
	// target is the state the command drives toward.
	target panel.State
	// marker is the transient assumed state while the gateway is online.
	marker panel.State
	// bypass skips the opened/tripped zone precondition.
	bypass bool
	// invoke issues the remote command and reports acceptance.
	invoke func(ctx context.Context) (bool, error)
}

// New creates the alarm entity for the client's site.
func New(client gateway.Client) *Panel {
	site := client.Site()

	return &Panel{
		client:   client,
		site:     site,
		name:     fmt.Sprintf("Alarm Panel - Site %s", site.ID),
		uniqueID: fmt.Sprintf("alarm_%s", site.ID),
	}
}

// BindPublisher sets the callback used to push state changes to observers.
func (p *Panel) BindPublisher(publish func(ctx context.Context)) {
	p.publish = publish
}

// UniqueID implements host.Entity.
func (p *Panel) UniqueID() string {
	return p.uniqueID
}

// Name implements host.Entity.
func (p *Panel) Name() string {
	return p.name
}

// State returns the resolved state: the assumed state if present, else the
// remote status mapped to the public domain.
func (p *Panel) State() string {
	return string(p.resolvedState())
}

// AssumedState reports whether the displayed state is optimistic rather
// than remote-confirmed.
func (p *Panel) AssumedState() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.assumed != ""
}

// SupportedCommands lists the command set exposed to the host.
func (p *Panel) SupportedCommands() []string {
	return []string{"arm_away", "arm_home", "arm_night", "arm_away_bypass"}
}

// CodeRequired reports whether commands need a code. They never do.
func (p *Panel) CodeRequired() bool {
	return false
}

// Available implements host.Entity. The entity is always available even when
// the gateway is offline; only the resolved state reflects connectivity.
func (p *Panel) Available() bool {
	return true
}

// Attributes implements host.Entity: the localized last-update timestamp and
// the raw remote status string.
func (p *Panel) Attributes() map[string]any {
	return map[string]any{
		"last_update_time": p.client.LastUpdate().Local().Format(time.RFC3339),
		"alarm_state":      string(p.client.Status()),
	}
}

// DeviceInfo implements host.Entity.
//
// The identifiers are set to the site ID since it is unique across all
// sites; zones can be identified by site ID and zone name.
func (p *Panel) DeviceInfo() host.DeviceInfo {
	return host.DeviceInfo{
		Identifiers:  []string{p.site.ID},
		Manufacturer: p.site.Manufacturer,
		Model:        p.site.Model,
		Name:         p.name,
		ViaDevice:    p.site.GatewayID,
	}
}

// HandleCoordinatorUpdate re-renders the entity after an alarm-topic cycle.
func (p *Panel) HandleCoordinatorUpdate(ctx context.Context) {
	logger.DebugKV(ctx, "Updating alarm state",
		"site_id", p.site.ID, "state", p.State())
	p.publishState(ctx)
}

// Disarm sends the disarm command.
func (p *Panel) Disarm(ctx context.Context) error {
	return p.performAlarmAction(ctx, alarmAction{
		target: panel.StateDisarmed,
		marker: panel.StateDisarming,
		invoke: p.client.Disarm,
	})
}

// ArmHome sends the arm home command.
func (p *Panel) ArmHome(ctx context.Context) error {
	return p.performAlarmAction(ctx, alarmAction{
		target: panel.StateArmedHome,
		marker: panel.StateArming,
		invoke: p.armFunc(panel.ModeHome, false),
	})
}

// ArmAway sends the arm away command.
func (p *Panel) ArmAway(ctx context.Context) error {
	return p.performAlarmAction(ctx, alarmAction{
		target: panel.StateArmedAway,
		marker: panel.StateArming,
		invoke: p.armFunc(panel.ModeAway, false),
	})
}

// ArmNight sends the arm night command.
func (p *Panel) ArmNight(ctx context.Context) error {
	return p.performAlarmAction(ctx, alarmAction{
		target: panel.StateArmedNight,
		marker: panel.StateArming,
		invoke: p.armFunc(panel.ModeNight, false),
	})
}

// ArmAwayBypass sends the force arm away command, bypassing open zones.
func (p *Panel) ArmAwayBypass(ctx context.Context) error {
	return p.performAlarmAction(ctx, alarmAction{
		target: panel.StateArmedCustomBypass,
		marker: panel.StateArming,
		bypass: true,
		invoke: p.armFunc(panel.ModeAway, true),
	})
}

// ArmHomeBypass sends the force arm stay command, bypassing open zones.
func (p *Panel) ArmHomeBypass(ctx context.Context) error {
	return p.performAlarmAction(ctx, alarmAction{
		target: panel.StateArmedHome,
		marker: panel.StateArming,
		bypass: true,
		invoke: p.armFunc(panel.ModeHome, true),
	})
}

// armFunc binds an arm mode and force flag into an alarmAction invoke.
func (p *Panel) armFunc(mode panel.ArmMode, force bool) func(ctx context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		return p.client.Arm(ctx, mode, force)
	}
}

// performAlarmAction is the single generic command driver.
func (p *Panel) performAlarmAction(ctx context.Context, action alarmAction) error {
	logger.DebugKV(ctx, "Setting alarm state", "site_id", p.site.ID, "target", action.target)

	if action.target != panel.StateDisarmed {
		if err := p.checkArmable(action); err != nil {
			return err
		}
	}

	if p.resolvedState() == action.target {
		logger.Warn(ctx, "Attempting to set alarm to same state, ignoring")

		return nil
	}

	// No command can be confirmed while the gateway is offline, so the
	// target state is assumed directly instead of a transient marker.
	if !p.client.Online() {
		p.setAssumed(action.target)
	} else {
		p.setAssumed(action.marker)
	}

	p.publishState(ctx)

	accepted, err := action.invoke(ctx)
	if err != nil || !accepted {
		logger.WarnKV(ctx, "Could not set alarm state",
			"site_id", p.site.ID, "target", action.target, "error", err)
	}

	// Cleared before returning regardless of the command outcome.
	p.setAssumed("")
	p.publishState(ctx)

	if err != nil || !accepted {
		return &CommandRejectedError{Target: action.target, Err: err}
	}

	return nil
}

// checkArmable verifies the panel may transition to an armed state: the
// resolved state must be disarmed, and without a bypass no zone may be open
// or tripped.
func (p *Panel) checkArmable(action alarmAction) error {
	if current := p.resolvedState(); current != panel.StateDisarmed {
		return &ConflictingStateError{Requested: action.target, Current: current}
	}

	if !action.bypass && !panel.CanArm(p.client.Zones()) {
		return ErrCannotArm
	}

	return nil
}

// resolvedState computes the externally visible state.
func (p *Panel) resolvedState() panel.State {
	p.mu.RLock()
	assumed := p.assumed
	p.mu.RUnlock()

	if assumed != "" {
		return assumed
	}

	status := p.client.Status()

	state, ok := panel.StateFromStatus(status)
	if !ok {
		// The mapping is total over the remote domain and the gateway layer
		// rejects unknown wire statuses, so this is a defect.
		panic(fmt.Sprintf("remote status %q outside the panel domain", status))
	}

	return state
}

// setAssumed writes the assumed state; empty means absent.
func (p *Panel) setAssumed(state panel.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.assumed = state
}

// publishState pushes the current state to observers, if bound.
func (p *Panel) publishState(ctx context.Context) {
	if p.publish != nil {
		p.publish(ctx)
	}
}
