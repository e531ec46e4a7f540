package network_test

import (
	"io"
	"net/netip"
	"os"
	"testing"
	"time"

	"github.com/sagernet/sing-stream/common/log"
	N "github.com/sagernet/sing-stream/common/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryInterface struct {
	name    string
	results []N.SelectResult
}

func (i *memoryInterface) Name() string {
	return i.name
}

func (i *memoryInterface) Flags() N.InterfaceFlags {
	return 0
}

func (i *memoryInterface) Open(ctx *N.Context, endpoint string, flags N.Flags) (N.Stream, error) {
	stream := &memoryStream{flags: flags}
	stream.Init(i)
	return stream, nil
}

func (i *memoryInterface) Select(streams []N.Stream, waker N.Waker, timeout time.Duration) (N.SelectResult, error) {
	if len(i.results) == 0 {
		return N.SelectResult{Index: N.SelectIndexNone, Event: N.EventTimeout}, nil
	}
	result := i.results[0]
	i.results = i.results[1:]
	return result, nil
}

// memoryStream accepts at most quota bytes per Write and serves input in chunks of
// one byte, so every blocking call has to wait in between.
type memoryStream struct {
	N.Header
	N.UnsupportedStream
	flags  N.Flags
	input  []byte
	output []byte
	quota  int
}

func (s *memoryStream) Close() error {
	if err := s.Check(); err != nil {
		return err
	}
	s.Release()
	return nil
}

func (s *memoryStream) Read(p []byte) (int, error) {
	if err := s.Check(); err != nil {
		return 0, err
	}
	if s.input == nil {
		return 0, io.EOF
	}
	if len(s.input) == 0 || len(p) == 0 {
		return 0, nil
	}
	n := copy(p[:1], s.input)
	s.input = s.input[n:]
	return n, nil
}

func (s *memoryStream) Write(p []byte) (int, error) {
	if err := s.Check(); err != nil {
		return 0, err
	}
	n := min(len(p), s.quota)
	s.output = append(s.output, p[:n]...)
	s.quota = 4
	return n, nil
}

func newMemoryStream(t *testing.T, iface *memoryInterface, flags N.Flags) *memoryStream {
	ctx := N.NewContext(N.WithLogger(log.Discard()), N.WithNoDelay(true))
	stream, err := N.Open(ctx, iface, "memory", flags)
	require.NoError(t, err)
	return stream.(*memoryStream)
}

func TestOpen(t *testing.T) {
	iface := &memoryInterface{name: "memory"}
	_, err := N.Open(nil, iface, "memory", N.FlagDefault)
	assert.ErrorIs(t, err, N.ErrNotInitialized)

	stream := newMemoryStream(t, iface, N.FlagConnect|N.FlagUseGlobalSettings)
	assert.Equal(t, N.FlagConnect|N.FlagNoDelay, stream.flags)
	stream = newMemoryStream(t, iface, N.FlagConnect|N.FlagNoDelay)
	assert.Equal(t, N.FlagConnect|N.FlagNoDelay, stream.flags)
}

func TestUnsupportedOperations(t *testing.T) {
	stream := newMemoryStream(t, &memoryInterface{}, N.FlagDefault)
	assert.NoError(t, stream.Flush())
	_, _, err := stream.Accept(N.FlagDefault)
	assert.ErrorIs(t, err, N.ErrNotSupported)
	_, err = stream.SendPacket(nil)
	assert.ErrorIs(t, err, N.ErrNotSupported)
	_, source, err := stream.ReceivePacket(nil)
	assert.ErrorIs(t, err, N.ErrNotSupported)
	assert.Equal(t, netip.AddrPort{}, source)

	_, err = N.UnsupportedSelect{}.Select(nil, nil, 0)
	assert.ErrorIs(t, err, N.ErrNotSupported)
}

func TestHeaderRelease(t *testing.T) {
	iface := &memoryInterface{}
	stream := newMemoryStream(t, iface, N.FlagDefault)
	assert.Equal(t, N.Interface(iface), stream.Interface())
	require.NoError(t, stream.Close())
	assert.Nil(t, stream.Interface())
	assert.ErrorIs(t, stream.Close(), N.ErrClosed)
	_, err := stream.Read(make([]byte, 1))
	assert.ErrorIs(t, err, N.ErrClosed)
}

func TestSelectDispatch(t *testing.T) {
	first := &memoryInterface{results: []N.SelectResult{{Index: 1, Event: N.EventRead}}}
	second := &memoryInterface{}
	a := newMemoryStream(t, first, N.FlagDefault)
	b := newMemoryStream(t, first, N.FlagDefault)
	c := newMemoryStream(t, second, N.FlagDefault)

	result, err := N.Select([]N.Stream{a, b, nil}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, N.SelectResult{Index: 1, Event: N.EventRead}, result)

	_, err = N.Select([]N.Stream{a, c}, nil, 0)
	assert.ErrorIs(t, err, N.ErrNotSupported)
	_, err = N.Select([]N.Stream{nil}, nil, 0)
	assert.ErrorIs(t, err, N.ErrNotSupported)

	require.NoError(t, b.Close())
	result, err = N.Select([]N.Stream{a, b}, nil, 0)
	assert.ErrorIs(t, err, N.ErrClosed)
	assert.Equal(t, N.SelectIndexNone, result.Index)
}

func TestFlagsString(t *testing.T) {
	assert.Equal(t, "default", N.FlagDefault.String())
	assert.Equal(t, "listen|multicast", (N.FlagListen | N.FlagMulticast).String())
	assert.True(t, (N.FlagConnect | N.FlagNoDelay).Has(N.FlagNoDelay))
	assert.False(t, N.FlagConnect.Has(N.FlagConnect|N.FlagNoDelay))
}

func TestContextMulticastNICs(t *testing.T) {
	ctx := N.NewContext(N.WithLogger(log.Discard()), N.WithNICs(
		N.NIC{Name: "eth0", SendMulticast: true},
		N.NIC{Name: "eth1", ReceiveMulticast: true},
		N.NIC{Name: "eth2", SendMulticast: true, ReceiveMulticast: true},
	))
	names := func(nics []N.NIC) []string {
		var result []string
		for _, nic := range nics {
			result = append(result, nic.Name)
		}
		return result
	}
	assert.Equal(t, []string{"eth0", "eth2"}, names(ctx.MulticastNICs(false)))
	assert.Equal(t, []string{"eth1", "eth2"}, names(ctx.MulticastNICs(true)))
	assert.NotNil(t, ctx.InterfaceFinder)
}

func TestConn(t *testing.T) {
	iface := &memoryInterface{results: []N.SelectResult{
		{Index: 0, Event: N.EventWrite},
		{Index: 0, Event: N.EventWrite},
		{Index: 0, Event: N.EventRead},
	}}
	stream := newMemoryStream(t, iface, N.FlagDefault)
	stream.input = []byte{}
	conn := N.NewConn(stream, nil, time.Second)

	n, err := conn.Write([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, "hello world", string(stream.output))

	stream.input = []byte("hi")
	buffer := make([]byte, 2)
	_, err = io.ReadFull(conn, buffer)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(buffer))

	_, err = conn.Read(buffer)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)

	stream.input = nil
	_, err = conn.Read(buffer)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, conn.Close())
}
