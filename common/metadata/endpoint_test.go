package metadata_test

import (
	"context"
	"net/netip"
	"testing"

	M "github.com/sagernet/sing-stream/common/metadata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {
	testCases := []struct {
		spec string
		host string
		addr string
		port uint16
		ipv6 bool
	}{
		{spec: "127.0.0.1:8080", host: "127.0.0.1", addr: "127.0.0.1", port: 8080},
		{spec: "[::1]:8080", host: "::1", addr: "::1", port: 8080, ipv6: true},
		{spec: "[::1]", host: "::1", addr: "::1", port: 6368, ipv6: true},
		{spec: "fe80::1", host: "fe80::1", addr: "fe80::1", port: 6368, ipv6: true},
		{spec: "example.com:443", host: "example.com", port: 443},
		{spec: "example.com", host: "example.com", port: 6368},
		{spec: "8817", port: 8817},
		{spec: ":0", port: 0},
		{spec: "*:*", port: 6368},
		{spec: "*", port: 6368},
		{spec: "", port: 6368},
		{spec: "[]:7000", port: 7000, ipv6: true},
		{spec: "[::ffff:10.0.0.1]:1", host: "::ffff:10.0.0.1", addr: "10.0.0.1", port: 1},
	}
	for _, testCase := range testCases {
		t.Run(testCase.spec, func(t *testing.T) {
			endpoint, err := M.ParseEndpoint(testCase.spec, 6368)
			require.NoError(t, err)
			assert.Equal(t, testCase.host, endpoint.Host)
			assert.Equal(t, testCase.port, endpoint.Port)
			assert.Equal(t, testCase.ipv6, endpoint.IPv6)
			if testCase.addr == "" {
				assert.False(t, endpoint.Addr.IsValid())
			} else {
				assert.Equal(t, netip.MustParseAddr(testCase.addr), endpoint.Addr)
			}
		})
	}
}

func TestParseEndpointOptions(t *testing.T) {
	endpoint, err := M.ParseEndpoint("239.0.0.1:6000,interface=eth0, interface=192.168.1.2,loop", 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(6000), endpoint.Port)
	assert.Equal(t, []string{"eth0", "192.168.1.2"}, endpoint.OptionValues("interface"))
	value, loaded := endpoint.Option("loop")
	assert.True(t, loaded)
	assert.Empty(t, value)
	_, loaded = endpoint.Option("baud")
	assert.False(t, loaded)
	assert.Equal(t, "239.0.0.1:6000,interface=eth0,interface=192.168.1.2,loop", endpoint.String())
}

func TestParseEndpointInvalid(t *testing.T) {
	for _, spec := range []string{
		"[::1:80",
		"[::1]x",
		"host:port",
		"host:70000",
		"[1.2.3.4]:80",
		"bad host:1",
	} {
		_, err := M.ParseEndpoint(spec, 0)
		assert.Error(t, err, spec)
	}
}

func TestEmbedDefaultPort(t *testing.T) {
	assert.Equal(t, "127.0.0.1:6369", M.EmbedDefaultPort("127.0.0.1", 6369))
	assert.Equal(t, "[::1]:6369", M.EmbedDefaultPort("[::1]", 6369))
	assert.Equal(t, "127.0.0.1:80", M.EmbedDefaultPort("127.0.0.1:80", 6369))
	assert.Equal(t, ":0", M.EmbedDefaultPort(":0", 6369))
	assert.Equal(t, "localhost:6369,a=b", M.EmbedDefaultPort("localhost,a=b", 6369))
}

func TestEndpointResolve(t *testing.T) {
	ctx := context.Background()

	endpoint, err := M.ParseEndpoint(":1", 0)
	require.NoError(t, err)
	addr, err := endpoint.Resolve(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, netip.IPv4Unspecified(), addr)
	addr, err = endpoint.Resolve(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("127.0.0.1"), addr)

	endpoint, err = M.ParseEndpoint("[]:1", 0)
	require.NoError(t, err)
	addr, err = endpoint.Resolve(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, netip.IPv6Unspecified(), addr)
	addr, err = endpoint.Resolve(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, netip.IPv6Loopback(), addr)

	endpoint, err = M.ParseEndpoint("localhost:1", 0)
	require.NoError(t, err)
	addr, err = endpoint.Resolve(ctx, false)
	require.NoError(t, err)
	assert.True(t, addr.IsLoopback())
}
