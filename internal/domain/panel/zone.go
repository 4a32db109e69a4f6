package panel

// Zone describes a single monitored zone of a site.
type Zone struct {
	// ID is the panel-assigned zone number, unique within a site.
	ID int
	// Name is the human-readable zone label.
	Name string
	// Open indicates the zone sensor is currently open.
	Open bool
	// Tripped indicates the zone has been violated.
	Tripped bool
	// Trouble indicates a supervisory problem (low battery, tamper, ...).
	Trouble bool
}

// CanArm reports whether the panel may be armed without a bypass:
// no zone may be open or tripped.
func CanArm(zones []Zone) bool {
	for _, z := range zones {
		if z.Open || z.Tripped {
			return false
		}
	}

	return true
}

// Site holds the read-through metadata of a monitored site.
type Site struct {
	// ID uniquely identifies the site across the remote service.
	ID string
	// Name is the human-readable site label.
	Name string
	// Manufacturer of the alarm panel.
	Manufacturer string
	// Model of the alarm panel.
	Model string
	// GatewayID identifies the gateway device the panel is reached through.
	GatewayID string
}
