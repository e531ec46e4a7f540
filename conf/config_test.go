package conf

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	N "github.com/sagernet/sing-stream/common/network"
	"github.com/sagernet/sing-stream/transport/socket"
	"github.com/sagernet/sing-stream/transport/tls"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{
  // transport settings
  "log": {"level": "warn"},
  "no_delay": true,
  "nics": [
    {"name": "eth0", "receive_multicast": true},
    # sender
    {"address": "192.168.1.10", "send_multicast": true}
  ],
  "tls": {
    "engine": "utls",
    "fingerprint": "firefox",
    "server_name": "example.org // not a comment",
    "insecure": true
  }
}`

func TestParse(t *testing.T) {
	config, err := Parse([]byte(testConfig))
	require.NoError(t, err)
	assert.Equal(t, "warn", config.Log.Level)
	assert.True(t, config.NoDelay)
	assert.Equal(t, []N.NIC{
		{Name: "eth0", ReceiveMulticast: true},
		{Address: netip.MustParseAddr("192.168.1.10"), SendMulticast: true},
	}, config.NICs)
	require.NotNil(t, config.TLS)
	assert.Equal(t, "example.org // not a comment", config.TLS.ServerName)
	assert.Equal(t, tls.EngineUTLS, config.TLS.Engine)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`{"no_delay": true, "nodelay": true}`))
	assert.Error(t, err)
}

func TestStripComments(t *testing.T) {
	for _, testCase := range []struct {
		input  string
		expect string
	}{
		{input: "{} // trailing", expect: "{} "},
		{input: "# line\n{}", expect: "\n{}"},
		{input: `{"a": "#b"}`, expect: `{"a": "#b"}`},
		{input: `{"a": "\"//"} //x`, expect: `{"a": "\"//"} `},
		{input: "{\"a\": 1 / 2}", expect: "{\"a\": 1 / 2}"},
	} {
		assert.Equal(t, testCase.expect, string(stripComments([]byte(testCase.input))), testCase.input)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))
	config, err := Load(path)
	require.NoError(t, err)
	assert.True(t, config.NoDelay)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	config := &Config{
		Log:     &LogConfig{Disabled: true},
		NoDelay: true,
		NICs:    []N.NIC{{Name: "eth0", SendMulticast: true}},
	}
	ctx, err := config.Build()
	require.NoError(t, err)
	assert.True(t, ctx.NoDelay)
	assert.Equal(t, config.NICs, ctx.NICs)
	assert.Equal(t, N.FlagNoDelay, ctx.ResolveFlags(N.FlagUseGlobalSettings))

	_, err = (&Config{Log: &LogConfig{Level: "loud"}}).Build()
	assert.Error(t, err)

	_, err = (&Config{NICs: []N.NIC{{SendMulticast: true}}}).Build()
	assert.Error(t, err)
}

func TestInterface(t *testing.T) {
	config := &Config{TLS: &TLSConfig{Insecure: true}}
	iface, err := config.Interface("socket")
	require.NoError(t, err)
	assert.Equal(t, socket.Interface, iface)

	iface, err = config.Interface("tls")
	require.NoError(t, err)
	assert.Equal(t, "tls", iface.Name())
	assert.NotZero(t, iface.Flags()&N.InterfaceSecure)

	_, err = (&Config{TLS: &TLSConfig{Engine: "openssl"}}).Interface("tls")
	assert.Error(t, err)

	_, err = (&Config{TLS: &TLSConfig{TrustedChain: filepath.Join(t.TempDir(), "missing.pem")}}).Interface("tls")
	assert.Error(t, err)

	_, err = config.Interface("quic")
	assert.Error(t, err)
}
