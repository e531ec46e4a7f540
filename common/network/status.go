package network

import (
	"errors"
	"io"
	"net"
	"syscall"

	E "github.com/sagernet/sing-stream/common/exceptions"
)

var (
	ErrNotInitialized      = E.New("transport context not initialized")
	ErrClosed              = E.New("use of closed stream")
	ErrNotSupported        = E.New("operation not supported")
	ErrNoNewConnection     = E.New("no new connection")
	ErrConnectionRefused   = E.New("connection refused")
	ErrConnectionReset     = E.New("connection reset")
	ErrMemoryExhausted     = E.New("resources exhausted")
	ErrAddressInvalid      = E.New("invalid address")
	ErrMulticastJoinFailed = E.New("multicast group join failed")
	ErrSendMulticastFailed = E.New("send multicast failed")
	ErrCertificateRejected = E.New("certificate rejected")
	ErrHandshakeFailed     = E.New("handshake failed")
)

// Status is the caller facing classification of an operation outcome.
type Status int

const (
	StatusSuccess Status = iota
	StatusPending
	StatusEndOfStream
	StatusConnectionRefused
	StatusConnectionReset
	StatusTimeout
	StatusNoNewConnection
	StatusMemoryExhausted
	StatusAddressInvalid
	StatusMulticastJoinFailed
	StatusSendMulticastFailed
	StatusCertificateRejected
	StatusHandshakeFailed
	StatusNotSupported
	StatusClosed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusPending:
		return "pending"
	case StatusEndOfStream:
		return "end of stream"
	case StatusConnectionRefused:
		return "connection refused"
	case StatusConnectionReset:
		return "connection reset"
	case StatusTimeout:
		return "timeout"
	case StatusNoNewConnection:
		return "no new connection"
	case StatusMemoryExhausted:
		return "memory exhausted"
	case StatusAddressInvalid:
		return "address invalid"
	case StatusMulticastJoinFailed:
		return "multicast group join failed"
	case StatusSendMulticastFailed:
		return "send multicast failed"
	case StatusCertificateRejected:
		return "certificate rejected"
	case StatusHandshakeFailed:
		return "handshake failed"
	case StatusNotSupported:
		return "not supported"
	case StatusClosed:
		return "closed"
	default:
		return "failed"
	}
}

// IsRecoverable reports whether the caller should simply retry after the next Select.
func (s Status) IsRecoverable() bool {
	switch s {
	case StatusSuccess, StatusPending, StatusTimeout, StatusNoNewConnection:
		return true
	default:
		return false
	}
}

// StatusOf classifies the result of a transfer, mapping (0, nil) to StatusPending.
func StatusOf(n int, err error) Status {
	if err == nil && n == 0 {
		return StatusPending
	}
	return Classify(err)
}

func Classify(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, io.EOF):
		return StatusEndOfStream
	case errors.Is(err, ErrClosed), errors.Is(err, net.ErrClosed):
		return StatusClosed
	case errors.Is(err, ErrNoNewConnection):
		return StatusNoNewConnection
	case errors.Is(err, ErrCertificateRejected):
		return StatusCertificateRejected
	case errors.Is(err, ErrHandshakeFailed):
		return StatusHandshakeFailed
	case errors.Is(err, ErrMulticastJoinFailed):
		return StatusMulticastJoinFailed
	case errors.Is(err, ErrSendMulticastFailed):
		return StatusSendMulticastFailed
	case errors.Is(err, ErrNotSupported), errors.Is(err, ErrNotInitialized):
		return StatusNotSupported
	case errors.Is(err, ErrConnectionRefused), errors.Is(err, syscall.ECONNREFUSED):
		return StatusConnectionRefused
	case E.IsMulti(err, ErrConnectionReset, syscall.ECONNRESET, syscall.ECONNABORTED, syscall.EPIPE):
		return StatusConnectionReset
	case E.IsMulti(err, ErrMemoryExhausted, syscall.ENOMEM, syscall.ENOBUFS, syscall.EMFILE, syscall.ENFILE):
		return StatusMemoryExhausted
	case errors.Is(err, ErrAddressInvalid), errors.Is(err, syscall.EADDRNOTAVAIL):
		return StatusAddressInvalid
	case errors.Is(err, syscall.ETIMEDOUT), E.IsTimeout(err):
		return StatusTimeout
	}
	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return StatusAddressInvalid
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return StatusTimeout
		}
		return StatusAddressInvalid
	}
	return StatusFailed
}
