package log

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a time ordered identifier correlating the log lines of one stream.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
