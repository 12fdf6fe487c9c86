package lifecycle

// State is a step of the bot process lifecycle. States only move forward.
type State int32

const (
	Disconnected State = iota
	Connecting
	Ready
	Routing
	ShuttingDown
	Terminated
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Routing:
		return "routing"
	case ShuttingDown:
		return "shutting-down"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}
