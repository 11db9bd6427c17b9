package datagram

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport/transporttest"
)

func TestDatagramBufferedAndSignaled(t *testing.T) {
	f := transport.NewDrivers(New(2, nil))
	connection := "datagram://127.0.0.1:" + transporttest.FreePort(t, "udp")
	d, err := f.Descriptor(connection, "127.0.0.1", transport.AllowAll)
	require.NoError(t, err)

	signals := make(chan transport.Signal, 4)
	h, err := d.Reserve(context.Background(), 3, "sms.Reader", signals)
	require.NoError(t, err)
	defer h.Cancel()

	inner := transport.Unwrap(h).(*Handle)
	conn, err := net.Dial("udp", inner.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("hello"))
	require.NoError(t, err)

	select {
	case sig := <-signals:
		assert.Equal(t, connection, sig.Connection)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a data signal")
	}

	assert.True(t, h.HasData())
	got := inner.Take()
	require.Len(t, got, 1)
	assert.Equal(t, []byte("hello"), got[0].Data)
}

func TestDatagramRejectsPath(t *testing.T) {
	f := transport.NewDrivers(New(2, nil))
	_, err := f.Descriptor("datagram://:5000/x", "", transport.AllowAll)
	assert.ErrorIs(t, err, transport.ErrInvalidConnection)
}

func TestDatagramOverflowStillSignals(t *testing.T) {
	f := transport.NewDrivers(New(1, nil))
	d, err := f.Descriptor("datagram://127.0.0.1:"+transporttest.FreePort(t, "udp"), "", transport.AllowAll)
	require.NoError(t, err)

	signals := make(chan transport.Signal, 4)
	h, err := d.Reserve(context.Background(), 3, "sms.Reader", signals)
	require.NoError(t, err)
	defer h.Cancel()

	inner := transport.Unwrap(h).(*Handle)
	conn, err := net.Dial("udp", inner.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	for _, msg := range []string{"one", "two"} {
		_, err = conn.Write([]byte(msg))
		require.NoError(t, err)
		select {
		case <-signals:
		case <-time.After(2 * time.Second):
			t.Fatalf("datagram %q raised no signal", msg)
		}
	}

	items := h.(transport.Drainer).Drain()
	require.Len(t, items, 1)
	assert.Equal(t, "one", string(items[0].Payload))
	assert.False(t, h.HasData())
}
