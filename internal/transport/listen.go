package transport

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ListenError maps "address in use" failures to ErrBusy
func ListenError(ep Endpoint, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.EADDRINUSE) || strings.Contains(err.Error(), "address already in use") {
		return fmt.Errorf("%w: %s: %v", ErrBusy, ep.Address(), err)
	}
	return fmt.Errorf("reserve %s: %w", ep.Raw, err)
}

// RemoteHost returns the IP part of a remote address for filter matching
func RemoteHost(addr net.Addr) string {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP.String()
	case *net.UDPAddr:
		return a.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// ValidatePort rejects port 0. A port chosen by the kernel could not be
// taken back by Bootstrap after a restart.
func ValidatePort(ep Endpoint) error {
	if ep.Port == 0 {
		return fmt.Errorf("%w: %s needs a fixed port", ErrInvalidConnection, ep.Scheme)
	}
	return nil
}

// ValidateListen rejects listen endpoints that carry a path or port 0
func ValidateListen(ep Endpoint) error {
	if err := ValidatePort(ep); err != nil {
		return err
	}
	if ep.Path != "" {
		return fmt.Errorf("%w: %s does not take a path", ErrInvalidConnection, ep.Scheme)
	}
	return nil
}

// ValidateBroker requires a topic or channel path for broker endpoints
func ValidateBroker(ep Endpoint) error {
	if ep.Host == "" {
		return fmt.Errorf("%w: %s needs a broker host", ErrInvalidConnection, ep.Scheme)
	}
	if ep.Path == "" {
		return fmt.Errorf("%w: %s needs a topic", ErrInvalidConnection, ep.Scheme)
	}
	return nil
}
