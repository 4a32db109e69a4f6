package panel

// State is the externally visible alarm state.
// Arming and disarming are transient: they are only ever observed as either
// the remote-reported status or a locally assumed state while a command is
// in flight.
type State string

const (
	// StateDisarmed means the alarm is off.
	StateDisarmed State = "disarmed"
	// StateArmedAway means the alarm is armed in away mode.
	StateArmedAway State = "armed_away"
	// StateArmedHome means the alarm is armed in home mode.
	StateArmedHome State = "armed_home"
	// StateArmedNight means the alarm is armed in night mode.
	StateArmedNight State = "armed_night"
	// StateArmedCustomBypass means the alarm is armed with open zones bypassed.
	StateArmedCustomBypass State = "armed_custom_bypass"
	// StateArming means an arm command is outstanding.
	StateArming State = "arming"
	// StateDisarming means a disarm command is outstanding.
	StateDisarming State = "disarming"
)

// stateByStatus maps every remote status to its public state.
// It must stay total over the remote domain.
var stateByStatus = map[Status]State{
	StatusOff:       StateDisarmed,
	StatusAway:      StateArmedAway,
	StatusHome:      StateArmedHome,
	StatusNight:     StateArmedNight,
	StatusArming:    StateArming,
	StatusDisarming: StateDisarming,
}

// StateFromStatus maps a remote panel status to the public alarm state.
// The second return value is false for statuses outside the remote domain,
// which indicates a defect in the gateway layer rather than a runtime
// condition.
func StateFromStatus(s Status) (State, bool) {
	state, ok := stateByStatus[s]

	return state, ok
}
