// Package transporttest holds helpers shared by transport driver tests.
package transporttest

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// FreePort returns a loopback port that is free for network ("tcp" or "udp")
// at the time of the call.
func FreePort(t testing.TB, network string) string {
	t.Helper()

	var addr net.Addr
	switch network {
	case "udp":
		pc, err := net.ListenPacket("udp", "127.0.0.1:0")
		require.NoError(t, err)
		addr = pc.LocalAddr()
		_ = pc.Close()
	default:
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr = ln.Addr()
		_ = ln.Close()
	}

	_, port, err := net.SplitHostPort(addr.String())
	require.NoError(t, err)
	return port
}
