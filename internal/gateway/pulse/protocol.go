package pulse

import (
	"time"

	"github.com/oshokin/pulse-sync/internal/domain/panel"
)

// Message types pushed by the gateway.
const (
	// TypeHello is the first message after a successful handshake: site
	// metadata plus the full panel state.
	TypeHello = "hello"
	// TypeUpdate carries the full panel state after a change or keepalive.
	TypeUpdate = "update"
	// TypeResult answers one command by correlation ID.
	TypeResult = "result"
	// TypeError reports an asynchronous failure (auth, throttling).
	TypeError = "error"
)

// Message types sent by the client.
const (
	// TypeArm requests arming in a mode, optionally with bypass.
	TypeArm = "arm"
	// TypeDisarm requests disarming.
	TypeDisarm = "disarm"
)

// Error codes carried by TypeError messages.
const (
	// CodeAuth means the credentials were rejected.
	CodeAuth = "auth"
	// CodeThrottled means the service is rate limiting; RetryAt names the
	// earliest next attempt.
	CodeThrottled = "throttled"
)

// Site is the wire form of the site metadata.
type Site struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	GatewayID    string `json:"gateway_id"`
}

// Zone is the wire form of one zone.
type Zone struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Open    bool   `json:"open"`
	Tripped bool   `json:"tripped"`
	Trouble bool   `json:"trouble"`
}

// State is the wire form of the full panel state.
type State struct {
	Status     string    `json:"status"`
	Online     bool      `json:"online"`
	LastUpdate time.Time `json:"last_update"`
	Zones      []Zone    `json:"zones"`
}

// ServerMessage is any message pushed by the gateway.
type ServerMessage struct {
	Type string `json:"type"`
	// Site is set for hello messages.
	Site *Site `json:"site,omitempty"`
	// State is set for hello and update messages.
	State *State `json:"state,omitempty"`
	// ID correlates a result with its command.
	ID int64 `json:"id,omitempty"`
	// Success reports command acceptance for result messages.
	Success bool `json:"success,omitempty"`
	// Code is the error code for error messages.
	Code string `json:"code,omitempty"`
	// Message is the human-readable error cause.
	Message string `json:"message,omitempty"`
	// RetryAt is the earliest next attempt for throttled errors.
	RetryAt *time.Time `json:"retry_at,omitempty"`
}

// ClientMessage is any message sent by the client.
type ClientMessage struct {
	Type string `json:"type"`
	// ID correlates the command with its result.
	ID int64 `json:"id"`
	// Mode is the arm mode for arm commands.
	Mode string `json:"mode,omitempty"`
	// Force is the bypass flag for arm commands.
	Force bool `json:"force,omitempty"`
}

// EncodeState converts domain state into its wire form.
func EncodeState(status panel.Status, online bool, lastUpdate time.Time, zones []panel.Zone) *State {
	wire := &State{
		Status:     string(status),
		Online:     online,
		LastUpdate: lastUpdate,
		Zones:      make([]Zone, 0, len(zones)),
	}

	for _, z := range zones {
		wire.Zones = append(wire.Zones, Zone{
			ID:      z.ID,
			Name:    z.Name,
			Open:    z.Open,
			Tripped: z.Tripped,
			Trouble: z.Trouble,
		})
	}

	return wire
}

// EncodeSite converts domain site metadata into its wire form.
func EncodeSite(site panel.Site) *Site {
	return &Site{
		ID:           site.ID,
		Name:         site.Name,
		Manufacturer: site.Manufacturer,
		Model:        site.Model,
		GatewayID:    site.GatewayID,
	}
}

// decodeSite converts wire site metadata into the domain form.
func decodeSite(site *Site) panel.Site {
	return panel.Site{
		ID:           site.ID,
		Name:         site.Name,
		Manufacturer: site.Manufacturer,
		Model:        site.Model,
		GatewayID:    site.GatewayID,
	}
}

// decodeZones converts wire zones into the domain form.
func decodeZones(zones []Zone) []panel.Zone {
	decoded := make([]panel.Zone, 0, len(zones))
	for _, z := range zones {
		decoded = append(decoded, panel.Zone{
			ID:      z.ID,
			Name:    z.Name,
			Open:    z.Open,
			Tripped: z.Tripped,
			Trouble: z.Trouble,
		})
	}

	return decoded
}
