package plugin

// Hook names every guest instance may implement.
const (
	HookStart          = "XPluginStart"
	HookEnable         = "XPluginEnable"
	HookDisable        = "XPluginDisable"
	HookStop           = "XPluginStop"
	HookReceiveMessage = "XPluginReceiveMessage"
)

// Identity is what a module reports from XPluginStart.
type Identity struct {
	Name        string
	Signature   string
	Description string
}

// Guest is a live module instance. Start is mandatory and validated by the
// loader; an implementation lacking any other hook treats it as a no-op.
//
// A hook that runs but returns the wrong shape reports a *ProtocolViolation.
// Any other error is a fault raised by the guest.
type Guest interface {
	Start() (Identity, error)
	Enable() error
	Disable() error
	Stop() error
	ReceiveMessage(from, message int, param any) error
}
