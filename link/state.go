package link

// State is the connection state of a Link.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateDiscoveringService
	StateReadingVersion
	StateSubscribing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateDiscoveringService:
		return "DISCOVERING_SERVICE"
	case StateReadingVersion:
		return "READING_VERSION"
	case StateSubscribing:
		return "SUBSCRIBING"
	case StateReady:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

// connected reports whether a transport connection exists in this state.
func (s State) connected() bool {
	return s != StateDisconnected
}
