package panel

// Status is the raw alarm status reported by the remote panel.
type Status string

const (
	// StatusOff means the panel is disarmed.
	StatusOff Status = "off"
	// StatusAway means the panel is armed in away mode.
	StatusAway Status = "away"
	// StatusHome means the panel is armed in stay/home mode.
	StatusHome Status = "home"
	// StatusNight means the panel is armed in night mode.
	StatusNight Status = "night"
	// StatusArming means an arm command is being carried out by the panel.
	StatusArming Status = "arming"
	// StatusDisarming means a disarm command is being carried out by the panel.
	StatusDisarming Status = "disarming"
)

// Valid reports whether the status belongs to the remote panel domain.
func (s Status) Valid() bool {
	switch s {
	case StatusOff, StatusAway, StatusHome, StatusNight, StatusArming, StatusDisarming:
		return true
	default:
		return false
	}
}

// ArmMode selects the arming mode for a gateway arm command.
type ArmMode string

const (
	// ModeAway arms the panel with nobody home.
	ModeAway ArmMode = "away"
	// ModeHome arms the panel in stay mode.
	ModeHome ArmMode = "home"
	// ModeNight arms the panel in night mode.
	ModeNight ArmMode = "night"
)
