package main

import (
	"bufio"
	"errors"
	"io"
	"os"

	E "github.com/sagernet/sing-stream/common/exceptions"
	N "github.com/sagernet/sing-stream/common/network"
)

const bufferSize = 16 * 1024

func (e *environment) listen(endpoint string) error {
	listener, err := e.iface.Open(e.ctx, endpoint, e.flags|N.FlagListen)
	if err != nil {
		return err
	}
	defer listener.Close()
	e.logger.Info("listening on ", endpoint)
	for {
		result, err := N.Select([]N.Stream{listener}, e.waker, 0)
		if err != nil {
			return err
		}
		if result.IsWake() {
			if e.stopped.Load() {
				return nil
			}
			continue
		}
		conn, remote, err := listener.Accept(N.FlagDefault)
		if errors.Is(err, N.ErrNoNewConnection) {
			continue
		}
		if err != nil {
			return err
		}
		e.logger.Info("accepted ", remote)
		return e.bridge(conn)
	}
}

func (e *environment) connect(endpoint string) error {
	conn, err := e.iface.Open(e.ctx, endpoint, e.flags|N.FlagConnect)
	if err != nil {
		return err
	}
	return e.bridge(conn)
}

// readInput forwards stdin in chunks, waking the bridge loop after each one. The channel
// is closed on end of input.
func (e *environment) readInput() <-chan []byte {
	input := make(chan []byte, 16)
	go func() {
		defer close(input)
		defer e.waker.Wake()
		for {
			buffer := make([]byte, bufferSize)
			n, err := os.Stdin.Read(buffer)
			if n > 0 {
				input <- buffer[:n]
				e.waker.Wake()
			}
			if err != nil {
				return
			}
		}
	}()
	return input
}

// bridge copies stdin to conn and conn to stdout from a single goroutine until the peer
// closes the stream or a signal arrives.
func (e *environment) bridge(conn N.Stream) error {
	defer conn.Close()
	input := e.readInput()
	var pending []byte
	buffer := make([]byte, bufferSize)
	for {
		if len(pending) > 0 {
			n, err := conn.Write(pending)
			if err != nil {
				return E.Cause(err, "write")
			}
			pending = pending[n:]
		}
		err := conn.Flush()
		if err != nil {
			return E.Cause(err, "flush")
		}
		result, err := N.Select([]N.Stream{conn}, e.waker, 0)
		if err != nil {
			return err
		}
		switch result.Event {
		case N.EventWake:
			if e.stopped.Load() {
				return nil
			}
		drain:
			for {
				select {
				case chunk, loaded := <-input:
					if !loaded {
						input = nil
						break drain
					}
					pending = append(pending, chunk...)
				default:
					break drain
				}
			}
		case N.EventRead, N.EventClose:
			n, err := conn.Read(buffer)
			if n > 0 {
				_, writeErr := os.Stdout.Write(buffer[:n])
				if writeErr != nil {
					return writeErr
				}
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return E.Cause(err, "read")
			}
		}
	}
}

func (e *environment) multicastSend(endpoint string) error {
	conn, err := e.iface.Open(e.ctx, endpoint, e.flags|N.FlagMulticast)
	if err != nil {
		return err
	}
	defer conn.Close()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if e.stopped.Load() {
			return nil
		}
		_, err = conn.SendPacket(scanner.Bytes())
		if err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (e *environment) multicastReceive(endpoint string) error {
	conn, err := e.iface.Open(e.ctx, endpoint, e.flags|N.FlagMulticast|N.FlagListen)
	if err != nil {
		return err
	}
	defer conn.Close()
	buffer := make([]byte, 64*1024)
	for {
		result, err := N.Select([]N.Stream{conn}, e.waker, 0)
		if err != nil {
			return err
		}
		if result.IsWake() {
			if e.stopped.Load() {
				return nil
			}
			continue
		}
		n, source, err := conn.ReceivePacket(buffer)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		e.logger.Debug("datagram from ", source)
		_, err = os.Stdout.Write(append(buffer[:n:n], '\n'))
		if err != nil {
			return err
		}
	}
}
