package ws

import (
	"context"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport/transporttest"
)

func TestFrameSignalsDataAvailable(t *testing.T) {
	f := transport.NewDrivers(New(4, nil))
	d, err := f.Descriptor("ws://127.0.0.1:"+transporttest.FreePort(t, "tcp")+"/push", "", transport.AllowAll)
	require.NoError(t, err)

	signals := make(chan transport.Signal, 4)
	h, err := d.Reserve(context.Background(), 9, "chat", signals)
	require.NoError(t, err)
	defer h.Cancel()

	inner := transport.Unwrap(h).(*Handle)
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+inner.Addr().String()+"/push", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))

	select {
	case <-signals:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a data signal")
	}

	items := h.(transport.Drainer).Drain()
	require.Len(t, items, 1)
	assert.Equal(t, "ping", string(items[0].Payload))
	assert.False(t, inner.HasData())
}

func TestEphemeralPortRejected(t *testing.T) {
	f := transport.NewDrivers(New(4, nil))
	_, err := f.Descriptor("ws://127.0.0.1:0/push", "", transport.AllowAll)
	assert.ErrorIs(t, err, transport.ErrInvalidConnection)
}

func TestCancelClosesPeers(t *testing.T) {
	f := transport.NewDrivers(New(4, nil))
	d, err := f.Descriptor("ws://127.0.0.1:"+transporttest.FreePort(t, "tcp"), "", transport.AllowAll)
	require.NoError(t, err)

	h, err := d.Reserve(context.Background(), 9, "chat", nil)
	require.NoError(t, err)

	inner := transport.Unwrap(h).(*Handle)
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+inner.Addr().String()+"/", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, h.Cancel())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
