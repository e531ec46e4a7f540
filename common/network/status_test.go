package network_test

import (
	"context"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	E "github.com/sagernet/sing-stream/common/exceptions"
	N "github.com/sagernet/sing-stream/common/network"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	for _, testCase := range []struct {
		err    error
		status N.Status
	}{
		{nil, N.StatusSuccess},
		{io.EOF, N.StatusEndOfStream},
		{E.Cause(N.ErrClosed, "read"), N.StatusClosed},
		{net.ErrClosed, N.StatusClosed},
		{N.ErrNoNewConnection, N.StatusNoNewConnection},
		{E.Cause(syscall.ECONNREFUSED, "connect"), N.StatusConnectionRefused},
		{E.Cause(syscall.ECONNRESET, "read"), N.StatusConnectionReset},
		{syscall.EPIPE, N.StatusConnectionReset},
		{syscall.EMFILE, N.StatusMemoryExhausted},
		{E.Extend(N.ErrAddressInvalid, E.New("bad port"), "open"), N.StatusAddressInvalid},
		{&net.AddrError{Err: "bad", Addr: "x"}, N.StatusAddressInvalid},
		{&net.DNSError{Err: "timeout", Name: "x", IsTimeout: true}, N.StatusTimeout},
		{&net.DNSError{Err: "no such host", Name: "x", IsNotFound: true}, N.StatusAddressInvalid},
		{E.Cause(os.ErrDeadlineExceeded, "wait"), N.StatusTimeout},
		{context.DeadlineExceeded, N.StatusTimeout},
		{E.Extend(N.ErrMulticastJoinFailed, E.New("no interface"), "join"), N.StatusMulticastJoinFailed},
		{E.Extend(N.ErrSendMulticastFailed, E.Errors(E.New("a"), E.New("b"))), N.StatusSendMulticastFailed},
		{E.Cause(N.ErrCertificateRejected, "verify"), N.StatusCertificateRejected},
		{N.ErrHandshakeFailed, N.StatusHandshakeFailed},
		{N.ErrNotInitialized, N.StatusNotSupported},
		{E.New("something else"), N.StatusFailed},
	} {
		assert.Equal(t, testCase.status, N.Classify(testCase.err), "%v", testCase.err)
	}
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, N.StatusPending, N.StatusOf(0, nil))
	assert.Equal(t, N.StatusSuccess, N.StatusOf(3, nil))
	assert.Equal(t, N.StatusEndOfStream, N.StatusOf(0, io.EOF))
}

func TestStatusRecoverable(t *testing.T) {
	assert.True(t, N.StatusPending.IsRecoverable())
	assert.True(t, N.StatusNoNewConnection.IsRecoverable())
	assert.False(t, N.StatusConnectionReset.IsRecoverable())
	assert.Equal(t, "end of stream", N.StatusEndOfStream.String())
}
