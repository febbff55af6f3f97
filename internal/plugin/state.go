package plugin

// State is the global lifecycle state of the controller. There is no
// per-module state: enable and disable are broadcasts.
type State int

// Controller states.
const (
	// StateStopped - the runtime is down and no module is loaded.
	StateStopped State = iota

	// StateEnabled - modules are loaded and receive every event.
	StateEnabled

	// StateDisabled - modules are loaded but disabled by command; messages
	// are dropped.
	StateDisabled
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateEnabled:
		return "enabled"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// IsRunning returns true if the runtime is up.
func (s State) IsRunning() bool {
	return s == StateEnabled || s == StateDisabled
}
