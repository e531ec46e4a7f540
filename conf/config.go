package conf

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/sagernet/sing-stream/common/control"
	E "github.com/sagernet/sing-stream/common/exceptions"
	"github.com/sagernet/sing-stream/common/log"
	N "github.com/sagernet/sing-stream/common/network"
	"github.com/sagernet/sing-stream/transport/socket"
	"github.com/sagernet/sing-stream/transport/tls"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Log     *LogConfig `json:"log,omitempty"`
	NoDelay bool       `json:"no_delay,omitempty"`
	NICs    []N.NIC    `json:"nics,omitempty"`
	TLS     *TLSConfig `json:"tls,omitempty"`
}

type LogConfig struct {
	Level    string `json:"level,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

type TLSConfig struct {
	Engine       string   `json:"engine,omitempty"`
	Fingerprint  string   `json:"fingerprint,omitempty"`
	ServerName   string   `json:"server_name,omitempty"`
	Insecure     bool     `json:"insecure,omitempty"`
	Certificate  string   `json:"certificate,omitempty"`
	Key          string   `json:"key,omitempty"`
	TrustedChain string   `json:"trusted_chain,omitempty"`
	Hosts        []string `json:"hosts,omitempty"`
}

// Load reads a JSON configuration file. Line comments starting with // or # are
// allowed outside strings.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, E.Cause(err, "read config file")
	}
	return Parse(content)
}

func Parse(content []byte) (*Config, error) {
	decoder := json.NewDecoder(bytes.NewReader(stripComments(content)))
	decoder.DisallowUnknownFields()
	config := new(Config)
	err := decoder.Decode(config)
	if err != nil {
		return nil, E.Cause(err, "decode config")
	}
	return config, nil
}

// Build creates the transport context described by the configuration.
func (c *Config) Build() (*N.Context, error) {
	options := []N.ContextOption{
		N.WithNoDelay(c.NoDelay),
		N.WithNICs(c.NICs...),
		N.WithInterfaceFinder(control.NewInterfaceFinder()),
	}
	if c.Log != nil {
		logger, err := c.Log.Build()
		if err != nil {
			return nil, err
		}
		options = append(options, N.WithLogger(logger))
	}
	for _, nic := range c.NICs {
		if nic.Name == "" && !nic.Address.IsValid() {
			return nil, E.New("nic without name or address")
		}
	}
	return N.NewContext(options...), nil
}

func (c LogConfig) Build() (logrus.FieldLogger, error) {
	if c.Disabled {
		return log.Discard(), nil
	}
	logger := log.NewLogger("stream")
	if c.Level != "" {
		level, err := logrus.ParseLevel(c.Level)
		if err != nil {
			return nil, E.Cause(err, "parse log level")
		}
		logger.Logger.SetLevel(level)
	}
	return logger, nil
}

// Interface returns the named backend: "socket", or "tls" over sockets.
func (c *Config) Interface(name string) (N.Interface, error) {
	switch name {
	case "", "socket":
		return socket.Interface, nil
	case "tls":
		var tlsConfig TLSConfig
		if c.TLS != nil {
			tlsConfig = *c.TLS
		}
		return tlsConfig.Build(socket.Interface)
	default:
		return nil, E.New("unknown interface: ", name)
	}
}

func (c TLSConfig) Build(carrier N.Interface) (*tls.Interface, error) {
	return tls.NewInterface(tls.Options{
		Carrier: carrier,
		Certificates: tls.FileProvider{
			ServerCertificate: c.Certificate,
			ServerKey:         c.Key,
			TrustedChain:      c.TrustedChain,
		},
		ServerName:  c.ServerName,
		Insecure:    c.Insecure,
		Engine:      c.Engine,
		Fingerprint: c.Fingerprint,
		Hosts:       c.Hosts,
	})
}
