package network

import (
	"io"
	"os"
	"time"

	E "github.com/sagernet/sing-stream/common/exceptions"
)

var _ io.ReadWriteCloser = (*Conn)(nil)

// Conn adapts a non-blocking Stream to blocking io semantics by waiting in Select
// between partial operations. Timeout bounds each call; zero waits indefinitely.
type Conn struct {
	stream  Stream
	waker   Waker
	timeout time.Duration
}

func NewConn(stream Stream, waker Waker, timeout time.Duration) *Conn {
	return &Conn{stream: stream, waker: waker, timeout: timeout}
}

func (c *Conn) Stream() Stream {
	return c.stream
}

func (c *Conn) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	deadline := c.deadline()
	for {
		n, err := c.stream.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
		err = c.wait(deadline)
		if err != nil {
			return 0, err
		}
	}
}

func (c *Conn) Write(p []byte) (int, error) {
	deadline := c.deadline()
	var written int
	for written < len(p) {
		n, err := c.stream.Write(p[written:])
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			err = c.stream.Flush()
			if err != nil {
				return written, err
			}
			err = c.wait(deadline)
			if err != nil {
				return written, err
			}
		}
	}
	return written, c.drain(deadline)
}

func (c *Conn) Close() error {
	return c.stream.Close()
}

func (c *Conn) drain(deadline time.Time) error {
	for {
		err := c.stream.Flush()
		if err != nil {
			return err
		}
		buffered, isBuffered := c.stream.(BufferedStream)
		if !isBuffered || buffered.Buffered() == 0 {
			return nil
		}
		err = c.wait(deadline)
		if err != nil {
			return err
		}
	}
}

func (c *Conn) deadline() time.Time {
	if c.timeout == 0 {
		return time.Time{}
	}
	return time.Now().Add(c.timeout)
}

func (c *Conn) wait(deadline time.Time) error {
	var timeout time.Duration
	if !deadline.IsZero() {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return E.Cause(os.ErrDeadlineExceeded, "wait")
		}
	}
	result, err := Select([]Stream{c.stream}, c.waker, timeout)
	if err != nil {
		return err
	}
	switch result.Event {
	case EventTimeout:
		return E.Cause(os.ErrDeadlineExceeded, "wait")
	case EventWake:
		return E.Cause(ErrClosed, "wait interrupted")
	}
	return nil
}
