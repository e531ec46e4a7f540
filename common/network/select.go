package network

// SelectMax bounds the number of streams in one Select call.
const SelectMax = 64

// SelectIndexNone is reported when the wake signal or the timeout ended the wait.
const SelectIndexNone = -1

type Event uint8

const (
	EventUnknown Event = iota
	EventTimeout
	EventWake
	EventRead
	EventWrite
	EventAccept
	EventConnect
	EventClose
)

func (e Event) String() string {
	switch e {
	case EventTimeout:
		return "timeout"
	case EventWake:
		return "wake"
	case EventRead:
		return "read"
	case EventWrite:
		return "write"
	case EventAccept:
		return "accept"
	case EventConnect:
		return "connect"
	case EventClose:
		return "close"
	default:
		return "unknown"
	}
}

type SelectResult struct {
	Index int
	Event Event
}

func (r SelectResult) IsTimeout() bool {
	return r.Event == EventTimeout
}

func (r SelectResult) IsWake() bool {
	return r.Event == EventWake
}

// Waker interrupts a blocked Select from another goroutine. Wake may be called from
// any goroutine; a pending wake is consumed by the Select it interrupts.
type Waker interface {
	Wake() error
	Close() error
}
