package exceptions_test

import (
	"errors"
	"io"
	"syscall"
	"testing"

	E "github.com/sagernet/sing-stream/common/exceptions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = errors.New("sentinel")

func TestCause(t *testing.T) {
	err := E.Cause(syscall.ECONNRESET, "read")
	assert.Equal(t, "read: "+syscall.ECONNRESET.Error(), err.Error())
	assert.ErrorIs(t, err, syscall.ECONNRESET)
}

func TestExtend(t *testing.T) {
	err := E.Extend(errSentinel, syscall.ECONNREFUSED, "connect")
	assert.ErrorIs(t, err, errSentinel)
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.Contains(t, err.Error(), "connect")

	err = E.Extend(errSentinel, nil, "no cause")
	assert.ErrorIs(t, err, errSentinel)
}

func TestErrors(t *testing.T) {
	require.NoError(t, E.Errors(nil, nil))
	assert.Equal(t, io.EOF, E.Errors(nil, io.EOF))

	err := E.Errors(io.EOF, syscall.EPIPE)
	assert.ErrorIs(t, err, io.EOF)
	assert.ErrorIs(t, err, syscall.EPIPE)
	assert.True(t, E.IsMulti(err, io.EOF, syscall.EPIPE))
	assert.False(t, E.IsMulti(err, errSentinel))
	assert.True(t, E.IsClosed(err))
}

type timeoutError struct{}

func (timeoutError) Error() string { return "timeout" }
func (timeoutError) Timeout() bool { return true }

func TestCast(t *testing.T) {
	err := E.Cause(timeoutError{}, "select")
	cast, loaded := E.Cast[E.TimeoutError](err)
	require.True(t, loaded)
	assert.True(t, cast.Timeout())
	assert.True(t, E.IsTimeout(err))
	assert.False(t, E.IsTimeout(io.EOF))
}
