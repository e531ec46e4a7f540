package tls

import (
	"context"
	"errors"
	"io"

	E "github.com/sagernet/sing-stream/common/exceptions"
	"github.com/sagernet/sing-stream/common/log"
	N "github.com/sagernet/sing-stream/common/network"

	"github.com/sirupsen/logrus"
)

const carrierReadSize = 16 * 1024

var (
	_ N.Stream         = (*Session)(nil)
	_ N.BufferedStream = (*Session)(nil)
)

// Session is a TLS connection over a carrier stream. The engine runs in its own
// goroutine behind a bridge; every Session method moves what the carrier has ready
// through the engine and returns without waiting on the network.
type Session struct {
	N.Header
	N.UnsupportedStream
	logger  logrus.FieldLogger
	carrier N.Stream
	bridge  *bridge
	conn    engineConn

	state         State
	peerConnected bool
	carrierEOF    bool
	readBuffer    []byte
}

func newSession(iface *Interface, logger logrus.FieldLogger, carrier N.Stream, b *bridge, conn engineConn) *Session {
	s := &Session{
		logger:     logger,
		carrier:    carrier,
		bridge:     b,
		conn:       conn,
		readBuffer: make([]byte, carrierReadSize),
	}
	s.Init(iface)
	return s
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Carrier() N.Stream {
	return s.carrier
}

func (s *Session) check() error {
	if err := s.Check(); err != nil {
		return err
	}
	if s.state == StateFailed {
		return N.ErrConnectionRefused
	}
	return nil
}

func (s *Session) run() {
	err := s.conn.HandshakeContext(context.Background())
	s.bridge.finishHandshake(err)
	if err == nil {
		buffer := make([]byte, carrierReadSize)
		for s.bridge.waitSpace() {
			n, err := s.conn.Read(buffer)
			s.bridge.pushPlaintext(buffer[:n], err)
			if err != nil {
				break
			}
		}
	}
	s.bridge.exit()
}

// handshake advances the handshake by one step. Waiting for the peer is not an error;
// the state stays Handshaking until the engine completes.
func (s *Session) handshake() error {
	if s.state == StateUnstarted {
		s.state = StateHandshaking
		go s.run()
	}
	err := s.pump()
	if err != nil {
		return s.fail(err)
	}
	done, err := s.bridge.handshakeResult()
	if !done {
		return nil
	}
	if err != nil {
		return s.fail(err)
	}
	s.state = StateEstablished
	s.peerConnected = true
	s.logger.Debug("handshake completed")
	return nil
}

// pump feeds carrier input to the engine, waits for the engine to settle and writes
// its output to the carrier.
func (s *Session) pump() error {
	for !s.carrierEOF && s.bridge.inboundLen() < maxInbound {
		n, err := s.carrier.Read(s.readBuffer)
		if n > 0 {
			s.bridge.feed(s.readBuffer[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return E.Cause(err, "read carrier")
			}
			s.carrierEOF = true
			s.bridge.feedEOF()
		}
		if n == 0 {
			break
		}
	}
	s.bridge.settle()
	return s.flushOutbound()
}

func (s *Session) flushOutbound() error {
	for {
		pending := s.bridge.peekOutbound()
		if len(pending) == 0 {
			break
		}
		n, err := s.carrier.Write(pending)
		if n > 0 {
			s.bridge.consumeOutbound(n)
		}
		if err != nil {
			return E.Cause(err, "write carrier")
		}
		if n == 0 {
			break
		}
	}
	return s.carrier.Flush()
}

// fail moves the session to Failed. The returned error carries the cause; every
// later operation reports ErrConnectionRefused.
func (s *Session) fail(err error) error {
	if s.state != StateEstablished && !errors.Is(err, N.ErrCertificateRejected) {
		err = E.Extend(N.ErrHandshakeFailed, err, "handshake")
	}
	flushErr := s.flushOutbound()
	if flushErr != nil {
		s.logger.WithError(flushErr).Debug("flush alert")
	}
	s.state = StateFailed
	s.bridge.Close()
	s.logger.WithFields(log.ErrorFields(err)).Error("session failed")
	return err
}

func (s *Session) establish() (bool, error) {
	if s.state == StateEstablished {
		return true, nil
	}
	err := s.handshake()
	if err != nil {
		return false, err
	}
	return s.state == StateEstablished, nil
}

func (s *Session) Read(p []byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	established, err := s.establish()
	if !established || err != nil {
		return 0, err
	}
	err = s.pump()
	if err != nil {
		return 0, s.fail(err)
	}
	n, err := s.bridge.takePlaintext(p)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, s.fail(E.Cause(err, "read"))
	}
	return n, nil
}

// Write encrypts all of p once the previous records have left for the carrier, and
// reports (0, nil) while they have not.
func (s *Session) Write(p []byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	established, err := s.establish()
	if !established || err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	err = s.flushOutbound()
	if err != nil {
		return 0, s.fail(err)
	}
	if s.bridge.outboundLen() > 0 {
		return 0, nil
	}
	n, err := s.conn.Write(p)
	if err != nil {
		return 0, s.fail(E.Cause(err, "write"))
	}
	err = s.flushOutbound()
	if err != nil {
		return n, s.fail(err)
	}
	return n, nil
}

func (s *Session) Flush() error {
	if err := s.check(); err != nil {
		return err
	}
	if s.state != StateEstablished {
		return s.handshake()
	}
	err := s.flushOutbound()
	if err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *Session) Buffered() int {
	buffered := s.bridge.outboundLen()
	if carrier, isBuffered := s.carrier.(N.BufferedStream); isBuffered {
		buffered += carrier.Buffered()
	}
	return buffered
}

// Close sends close notify when the handshake ever completed, then releases the
// engine and closes the carrier.
func (s *Session) Close() error {
	if err := s.Check(); err != nil {
		return err
	}
	s.Release()
	if s.peerConnected && s.state == StateEstablished {
		s.conn.Close()
		err := s.flushOutbound()
		if err != nil {
			s.logger.WithError(err).Debug("send close notify")
		}
	}
	s.bridge.Close()
	s.state = StateClosed
	return s.carrier.Close()
}

// ready settles the engine and reports the event a buffered session can serve
// without the carrier.
func (s *Session) ready() (N.Event, bool) {
	if s.state == StateFailed {
		return N.EventClose, true
	}
	if s.state != StateEstablished {
		return N.EventUnknown, false
	}
	s.bridge.settle()
	if s.bridge.readable() {
		return N.EventRead, true
	}
	return N.EventUnknown, false
}
