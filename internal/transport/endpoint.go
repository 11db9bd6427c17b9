package transport

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Endpoint is a parsed connection name
type Endpoint struct {
	Raw    string
	Scheme string
	Host   string
	Port   int
	Path   string
}

// ParseEndpoint parses "<scheme>://[host]:port[/path]"
func ParseEndpoint(connection string) (Endpoint, error) {
	if strings.ContainsAny(connection, "\t\n\r") {
		return Endpoint{}, fmt.Errorf("%w: control characters in %q", ErrInvalidConnection, connection)
	}

	u, err := url.Parse(connection)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidConnection, err)
	}
	if u.Scheme == "" {
		return Endpoint{}, fmt.Errorf("%w: missing scheme in %q", ErrInvalidConnection, connection)
	}
	if u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return Endpoint{}, fmt.Errorf("%w: unexpected userinfo, query or fragment in %q", ErrInvalidConnection, connection)
	}

	portStr := u.Port()
	if portStr == "" {
		return Endpoint{}, fmt.Errorf("%w: missing port in %q", ErrInvalidConnection, connection)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("%w: bad port %q", ErrInvalidConnection, portStr)
	}

	return Endpoint{
		Raw:    connection,
		Scheme: strings.ToLower(u.Scheme),
		Host:   u.Hostname(),
		Port:   port,
		Path:   strings.TrimPrefix(u.Path, "/"),
	}, nil
}

// Address returns host:port suitable for net.Listen or a broker dial
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}
