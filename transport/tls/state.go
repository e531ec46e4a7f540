package tls

// State is the lifecycle of a session. Failed is terminal; Closed follows Close from
// any state.
type State uint8

const (
	StateUnstarted State = iota
	StateHandshaking
	StateEstablished
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateHandshaking:
		return "handshaking"
	case StateEstablished:
		return "established"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
