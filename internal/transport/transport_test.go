package transport

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
)

type fakeDriver struct {
	opened   atomic.Int32
	canceled atomic.Int32
	notify   func()
	openErr  error
	data     atomic.Bool
}

func (f *fakeDriver) Scheme() string { return "fake" }

func (f *fakeDriver) Validate(ep Endpoint, _ Filter) error { return ValidateListen(ep) }

func (f *fakeDriver) Open(_ context.Context, p OpenParams) (Handle, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened.Add(1)
	f.notify = p.Notify
	return &fakeHandle{driver: f}, nil
}

type fakeHandle struct{ driver *fakeDriver }

func (h *fakeHandle) HasData() bool { return h.driver.data.Load() }
func (h *fakeHandle) Cancel() error { h.driver.canceled.Add(1); return nil }

func (h *fakeHandle) Drain() []Item {
	if !h.driver.data.Swap(false) {
		return nil
	}
	return []Item{{Sender: "10.0.0.1", Payload: []byte("x")}}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Endpoint
		wantErr bool
	}{
		{name: "listen without host", in: "socket://:5000", want: Endpoint{Raw: "socket://:5000", Scheme: "socket", Port: 5000}},
		{name: "broker with topic", in: "mqtt://broker:1883/sensors/a", want: Endpoint{Raw: "mqtt://broker:1883/sensors/a", Scheme: "mqtt", Host: "broker", Port: 1883, Path: "sensors/a"}},
		{name: "scheme is lowered", in: "DATAGRAM://127.0.0.1:9", want: Endpoint{Raw: "DATAGRAM://127.0.0.1:9", Scheme: "datagram", Host: "127.0.0.1", Port: 9}},
		{name: "missing port", in: "socket://host", wantErr: true},
		{name: "missing scheme", in: "localhost:80", wantErr: true},
		{name: "bad port", in: "socket://:99999", wantErr: true},
		{name: "query rejected", in: "socket://:80?x=1", wantErr: true},
		{name: "tab rejected", in: "socket://:80/\t", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEndpoint(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConnection)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterMatch(t *testing.T) {
	tests := []struct {
		pattern string
		sender  string
		want    bool
	}{
		{"", "10.0.0.1", true},
		{"*", "10.0.0.1", true},
		{"10.0.*.*", "10.0.3.4", true},
		{"10.0.*.*", "10.1.3.4", false},
		{"192.168.1.?", "192.168.1.7", true},
		{"192.168.1.?", "192.168.1.70", false},
		{"sensors/*/alarm", "sensors/k1/alarm", true},
		{"sensors/*/alarm", "sensors/k1/x/alarm", false},
	}

	for _, tt := range tests {
		f, err := ParseFilter(tt.pattern)
		require.NoError(t, err)
		assert.Equal(t, tt.want, f.Match(tt.sender), "pattern %q sender %q", tt.pattern, tt.sender)
	}
}

func TestParseFilterRejectsInvalid(t *testing.T) {
	_, err := ParseFilter("10.0.[.1")
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = ParseFilter("a\tb")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestDescriptorValidation(t *testing.T) {
	f := NewDrivers(&fakeDriver{})

	_, err := f.Descriptor("nope://:1", "", AllowAll)
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, err = f.Descriptor("fake://:1/path", "", AllowAll)
	assert.ErrorIs(t, err, ErrInvalidConnection)

	_, err = f.Descriptor("fake://:0", "", AllowAll)
	assert.ErrorIs(t, err, ErrInvalidConnection)

	_, err = f.Descriptor("fake://:1", "[", AllowAll)
	assert.ErrorIs(t, err, ErrInvalidFilter)

	d, err := f.Descriptor("fake://:1", "10.*", AllowAll)
	require.NoError(t, err)
	assert.Equal(t, "fake://:1", d.Connection())
	assert.Equal(t, "10.*", d.Filter())
	assert.Equal(t, []string{"fake"}, f.Schemes())
}

func TestDescriptorPermissionCheck(t *testing.T) {
	f := NewDrivers(&fakeDriver{})

	var gotScheme, gotConn string
	deny := func(scheme, connection string) error {
		gotScheme, gotConn = scheme, connection
		return errors.New("not granted")
	}

	_, err := f.Descriptor("fake://:1", "", deny)
	assert.ErrorIs(t, err, ErrPermission)
	assert.Equal(t, "fake", gotScheme)
	assert.Equal(t, "fake://:1", gotConn)
}

func TestReserveSignalsAndCancel(t *testing.T) {
	drv := &fakeDriver{}
	f := NewDrivers(drv)

	d, err := f.Descriptor("fake://:1", "", AllowAll)
	require.NoError(t, err)

	signals := make(chan Signal, 1)
	h, err := d.Reserve(context.Background(), types.OwnerID(1), "app", signals)
	require.NoError(t, err)
	assert.EqualValues(t, 1, drv.opened.Load())

	drv.data.Store(true)
	assert.True(t, h.HasData())

	drv.notify()
	select {
	case sig := <-signals:
		assert.Equal(t, "fake://:1", sig.Connection)
		assert.Same(t, h, sig.Handle)
	case <-time.After(time.Second):
		t.Fatal("no signal delivered")
	}

	require.NoError(t, h.Cancel())
	require.NoError(t, h.Cancel())
	assert.EqualValues(t, 1, drv.canceled.Load())
	assert.False(t, h.HasData())

	// notify after cancel must neither block nor deliver
	drv.notify()
	assert.Len(t, signals, 0)
	assert.IsType(t, &fakeHandle{}, Unwrap(h))
}

func TestReserveOpenFailure(t *testing.T) {
	drv := &fakeDriver{openErr: ErrBusy}
	f := NewDrivers(drv)

	d, err := f.Descriptor("fake://:1", "", AllowAll)
	require.NoError(t, err)

	_, err = d.Reserve(context.Background(), 1, "app", nil)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestPendingBounded(t *testing.T) {
	p := NewPending[int](2)

	assert.True(t, p.Push(1))
	assert.True(t, p.Push(2))
	assert.False(t, p.Push(3))
	assert.Equal(t, 2, p.Len())
	assert.EqualValues(t, 1, p.Dropped())

	assert.Equal(t, []int{1, 2}, p.Drain())
	assert.Equal(t, 0, p.Len())
}

func TestDrainForwardsUntilCanceled(t *testing.T) {
	drv := &fakeDriver{}
	f := NewDrivers(drv)

	d, err := f.Descriptor("fake://:1", "", AllowAll)
	require.NoError(t, err)
	h, err := d.Reserve(context.Background(), 1, "app", nil)
	require.NoError(t, err)

	dr, ok := h.(Drainer)
	require.True(t, ok)

	drv.data.Store(true)
	assert.Equal(t, []Item{{Sender: "10.0.0.1", Payload: []byte("x")}}, dr.Drain())
	assert.False(t, h.HasData())

	drv.data.Store(true)
	require.NoError(t, h.Cancel())
	assert.Nil(t, dr.Drain())
}
