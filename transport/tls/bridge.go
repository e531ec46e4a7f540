package tls

import (
	"io"
	"net"
	"sync"
	"time"
)

const (
	maxInbound   = 64 * 1024
	maxPlaintext = 64 * 1024
)

var _ net.Conn = (*bridge)(nil)

// bridge is the engine's view of the carrier. The engine goroutine reads and writes it
// as a blocking net.Conn; the session feeds and drains it without blocking, then waits
// in settle until the engine has nothing left to do with what it was given.
type bridge struct {
	access sync.Mutex
	cond   sync.Cond
	local  net.Addr
	remote net.Addr

	inbound   []byte
	outbound  []byte
	plaintext []byte
	eof       bool
	closed    bool

	readWaiting   bool
	spaceWaiting  bool
	handshakeDone bool
	handshakeErr  error
	readErr       error
	exited        bool
}

func newBridge(local net.Addr, remote net.Addr) *bridge {
	b := &bridge{local: local, remote: remote}
	b.cond.L = &b.access
	return b
}

func (b *bridge) Read(p []byte) (int, error) {
	b.access.Lock()
	defer b.access.Unlock()
	for len(b.inbound) == 0 && !b.eof && !b.closed {
		b.readWaiting = true
		b.cond.Broadcast()
		b.cond.Wait()
		b.readWaiting = false
	}
	if b.closed {
		return 0, net.ErrClosed
	}
	if len(b.inbound) == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.inbound)
	b.inbound = b.inbound[n:]
	return n, nil
}

func (b *bridge) Write(p []byte) (int, error) {
	b.access.Lock()
	defer b.access.Unlock()
	if b.closed {
		return 0, net.ErrClosed
	}
	b.outbound = append(b.outbound, p...)
	return len(p), nil
}

func (b *bridge) Close() error {
	b.access.Lock()
	defer b.access.Unlock()
	b.closed = true
	b.cond.Broadcast()
	return nil
}

func (b *bridge) LocalAddr() net.Addr {
	return b.local
}

func (b *bridge) RemoteAddr() net.Addr {
	return b.remote
}

func (b *bridge) SetDeadline(t time.Time) error {
	return nil
}

func (b *bridge) SetReadDeadline(t time.Time) error {
	return nil
}

func (b *bridge) SetWriteDeadline(t time.Time) error {
	return nil
}

func (b *bridge) feed(p []byte) {
	b.access.Lock()
	defer b.access.Unlock()
	b.inbound = append(b.inbound, p...)
	b.cond.Broadcast()
}

func (b *bridge) feedEOF() {
	b.access.Lock()
	defer b.access.Unlock()
	b.eof = true
	b.cond.Broadcast()
}

func (b *bridge) inboundLen() int {
	b.access.Lock()
	defer b.access.Unlock()
	return len(b.inbound)
}

func (b *bridge) idleLocked() bool {
	return b.exited || b.closed || b.spaceWaiting || b.readWaiting && len(b.inbound) == 0 && !b.eof
}

// settle blocks until the engine waits for input or plaintext space, or has exited.
func (b *bridge) settle() {
	b.access.Lock()
	defer b.access.Unlock()
	for !b.idleLocked() {
		b.cond.Wait()
	}
}

func (b *bridge) peekOutbound() []byte {
	b.access.Lock()
	defer b.access.Unlock()
	return b.outbound
}

func (b *bridge) consumeOutbound(n int) {
	b.access.Lock()
	defer b.access.Unlock()
	b.outbound = b.outbound[n:]
	if len(b.outbound) == 0 {
		b.outbound = nil
	}
}

func (b *bridge) outboundLen() int {
	b.access.Lock()
	defer b.access.Unlock()
	return len(b.outbound)
}

func (b *bridge) finishHandshake(err error) {
	b.access.Lock()
	defer b.access.Unlock()
	b.handshakeDone = true
	b.handshakeErr = err
	b.cond.Broadcast()
}

func (b *bridge) handshakeResult() (bool, error) {
	b.access.Lock()
	defer b.access.Unlock()
	return b.handshakeDone, b.handshakeErr
}

// waitSpace parks the engine while the plaintext buffer is full. It reports false once
// the bridge is closed.
func (b *bridge) waitSpace() bool {
	b.access.Lock()
	defer b.access.Unlock()
	for len(b.plaintext) >= maxPlaintext && !b.closed {
		b.spaceWaiting = true
		b.cond.Broadcast()
		b.cond.Wait()
	}
	b.spaceWaiting = false
	return !b.closed
}

func (b *bridge) pushPlaintext(p []byte, err error) {
	b.access.Lock()
	defer b.access.Unlock()
	b.plaintext = append(b.plaintext, p...)
	if err != nil {
		b.readErr = err
	}
	b.cond.Broadcast()
}

// takePlaintext copies decrypted bytes into p. The engine's read error is returned
// once the buffered plaintext is drained.
func (b *bridge) takePlaintext(p []byte) (int, error) {
	b.access.Lock()
	defer b.access.Unlock()
	if len(b.plaintext) == 0 {
		return 0, b.readErr
	}
	n := copy(p, b.plaintext)
	b.plaintext = b.plaintext[n:]
	if len(b.plaintext) == 0 {
		b.plaintext = nil
	}
	if b.spaceWaiting && len(b.plaintext) < maxPlaintext {
		b.spaceWaiting = false
		b.cond.Broadcast()
	}
	return n, nil
}

// readable reports buffered plaintext or a pending read error.
func (b *bridge) readable() bool {
	b.access.Lock()
	defer b.access.Unlock()
	return len(b.plaintext) > 0 || b.readErr != nil
}

func (b *bridge) exit() {
	b.access.Lock()
	defer b.access.Unlock()
	b.exited = true
	b.cond.Broadcast()
}

type bridgeAddr string

func (a bridgeAddr) Network() string {
	return "stream"
}

func (a bridgeAddr) String() string {
	return string(a)
}
