package metadata

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"strings"

	E "github.com/sagernet/sing-stream/common/exceptions"

	"golang.org/x/net/idna"
)

type EndpointOption struct {
	Key   string
	Value string
}

// Endpoint is a parsed endpoint specification:
//
//	[host]:port  host:port  host  port  *:port  :port
//
// optionally followed by ",key=value,..." options. Brackets or a colon containing
// literal force IPv6. An empty or "*" host and port select the defaults.
type Endpoint struct {
	Host    string
	Addr    netip.Addr
	Port    uint16
	IPv6    bool
	Options []EndpointOption

	explicitPort bool
}

func ParseEndpoint(spec string, defaultPort uint16) (Endpoint, error) {
	var endpoint Endpoint
	address, options, _ := strings.Cut(strings.TrimSpace(spec), ",")
	if options != "" {
		for _, option := range strings.Split(options, ",") {
			option = strings.TrimSpace(option)
			if option == "" {
				continue
			}
			key, value, _ := strings.Cut(option, "=")
			endpoint.Options = append(endpoint.Options, EndpointOption{
				Key:   strings.TrimSpace(key),
				Value: strings.TrimSpace(value),
			})
		}
	}

	var host, port string
	switch {
	case strings.HasPrefix(address, "["):
		closing := strings.IndexByte(address, ']')
		if closing < 0 {
			return Endpoint{}, E.New("missing ']' in endpoint: ", spec)
		}
		host = address[1:closing]
		rest := address[closing+1:]
		if rest != "" {
			if rest[0] != ':' {
				return Endpoint{}, E.New("unexpected text after ']' in endpoint: ", spec)
			}
			port = rest[1:]
		}
		endpoint.IPv6 = true
	case strings.Count(address, ":") > 1:
		host = address
		endpoint.IPv6 = true
	case strings.Contains(address, ":"):
		host, port, _ = strings.Cut(address, ":")
	case isDigits(address):
		port = address
	default:
		host = address
	}

	if host != "" && host != "*" {
		if addr, err := netip.ParseAddr(host); err == nil {
			if endpoint.IPv6 && !addr.Is6() {
				return Endpoint{}, E.New("not an IPv6 address: ", host)
			}
			endpoint.Addr = addr.Unmap()
			endpoint.IPv6 = addr.Is6() && !addr.Is4In6()
		} else if endpoint.IPv6 && strings.Contains(host, ":") {
			return Endpoint{}, E.Cause(err, "parse IPv6 address")
		} else if !IsDomainName(host) {
			return Endpoint{}, E.New("invalid host: ", host)
		}
		endpoint.Host = host
	}

	if port == "" || port == "*" {
		endpoint.Port = defaultPort
	} else {
		portNumber, err := strconv.ParseUint(port, 10, 16)
		if err != nil {
			return Endpoint{}, E.Cause(err, "parse port")
		}
		endpoint.Port = uint16(portNumber)
		endpoint.explicitPort = true
	}
	return endpoint, nil
}

// EmbedDefaultPort returns spec with port filled in when spec names none.
func EmbedDefaultPort(spec string, port uint16) string {
	endpoint, err := ParseEndpoint(spec, 0)
	if err != nil || endpoint.explicitPort {
		return spec
	}
	endpoint.Port = port
	return endpoint.String()
}

func (e Endpoint) Option(key string) (string, bool) {
	for _, option := range e.Options {
		if option.Key == key {
			return option.Value, true
		}
	}
	return "", false
}

func (e Endpoint) OptionValues(key string) []string {
	var values []string
	for _, option := range e.Options {
		if option.Key == key {
			values = append(values, option.Value)
		}
	}
	return values
}

func (e Endpoint) String() string {
	var builder strings.Builder
	switch {
	case e.Addr.IsValid() && e.IPv6:
		builder.WriteString("[" + e.Addr.String() + "]")
	case e.Addr.IsValid():
		builder.WriteString(e.Addr.String())
	case e.IPv6 && e.Host != "":
		builder.WriteString("[" + e.Host + "]")
	case e.IPv6:
		builder.WriteString("[::]")
	default:
		builder.WriteString(e.Host)
	}
	builder.WriteString(":")
	builder.WriteString(strconv.Itoa(int(e.Port)))
	for _, option := range e.Options {
		builder.WriteString("," + option.Key)
		if option.Value != "" {
			builder.WriteString("=" + option.Value)
		}
	}
	return builder.String()
}

// Resolve returns the address to bind or connect to. An omitted host means any
// interface for listeners and loopback for connectors.
func (e Endpoint) Resolve(ctx context.Context, listen bool) (netip.Addr, error) {
	if e.Addr.IsValid() {
		return e.Addr, nil
	}
	if e.Host == "" {
		switch {
		case listen && e.IPv6:
			return netip.IPv6Unspecified(), nil
		case listen:
			return netip.IPv4Unspecified(), nil
		case e.IPv6:
			return netip.IPv6Loopback(), nil
		default:
			return netip.AddrFrom4([4]byte{127, 0, 0, 1}), nil
		}
	}
	host, err := idna.Lookup.ToASCII(e.Host)
	if err != nil {
		return netip.Addr{}, E.Cause(err, "normalize host ", e.Host)
	}
	network := "ip"
	if e.IPv6 {
		network = "ip6"
	}
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, network, host)
	if err != nil {
		return netip.Addr{}, E.Cause(err, "lookup ", host)
	}
	for _, addr := range addrs {
		if addr.Unmap().Is4() {
			return addr.Unmap(), nil
		}
	}
	if len(addrs) == 0 {
		return netip.Addr{}, E.New("lookup ", host, ": no addresses")
	}
	return addrs[0], nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
