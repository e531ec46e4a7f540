//go:build unix

package socket

import (
	"net/netip"
	"testing"

	"github.com/sagernet/sing-stream/common/log"
	N "github.com/sagernet/sing-stream/common/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func openTestMulticast(t *testing.T, endpoint string, flags N.Flags) *Socket {
	ctx := N.NewContext(N.WithLogger(log.Discard()))
	stream, err := Interface.Open(ctx, endpoint, N.FlagMulticast|flags)
	if err != nil {
		t.Skip("multicast unavailable: ", err)
	}
	t.Cleanup(func() {
		stream.Close()
	})
	return stream.(*Socket)
}

func TestSendPacketContinuesAfterFailure(t *testing.T) {
	sender := openTestMulticast(t, "239.255.77.2:6368", N.FlagDefault)
	sender.interfaces = []multicastInterface{
		{Index: 999},
		{Addr: netip.MustParseAddr("127.0.0.1")},
	}
	n, err := sender.SendPacket([]byte("ping"))
	require.ErrorIs(t, err, N.ErrSendMulticastFailed)
	assert.Equal(t, 4, n)
	assert.Equal(t, N.StatusSendMulticastFailed, N.Classify(err))
	assert.Contains(t, err.Error(), "index 999")
}

func TestSendPacketWouldBlock(t *testing.T) {
	sender := openTestMulticast(t, "239.255.77.3:6368", N.FlagDefault)
	sender.interfaces = []multicastInterface{
		{Addr: netip.MustParseAddr("127.0.0.1")},
		{},
	}
	var calls int
	sysSendto = func(fd int, p []byte, flags int, to unix.Sockaddr) error {
		calls++
		if calls == 1 {
			return unix.EAGAIN
		}
		return nil
	}
	t.Cleanup(func() {
		sysSendto = unix.Sendto
	})

	n, err := sender.SendPacket([]byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	sysSendto = func(fd int, p []byte, flags int, to unix.Sockaddr) error {
		return unix.EAGAIN
	}
	n, err = sender.SendPacket([]byte("ping"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestJoinGroupTwice(t *testing.T) {
	receiver := openTestMulticast(t, "239.255.77.4:0,interface=127.0.0.1", N.FlagListen)
	require.NotEmpty(t, receiver.interfaces)
	require.NoError(t, receiver.joinGroup())
}
