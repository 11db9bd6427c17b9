package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/GriffinCanCode/AgentOS/push/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/push/internal/domain/app"
	"github.com/GriffinCanCode/AgentOS/push/internal/domain/push"
	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/push/internal/store"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

type nopDriver struct{}

func (nopDriver) Scheme() string { return "nop" }
func (nopDriver) Validate(ep transport.Endpoint, _ transport.Filter) error {
	return transport.ValidateListen(ep)
}
func (nopDriver) Open(context.Context, transport.OpenParams) (transport.Handle, error) {
	return nopHandle{}, nil
}

type nopHandle struct{}

func (nopHandle) HasData() bool { return false }
func (nopHandle) Cancel() error { return nil }

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conns := store.NewConnectionStore(store.NewMemoryTree(), store.DefaultRoot)
	apps := app.NewManager(app.NewLogSpawner(nil))
	ctrl := push.NewController(conns, transport.NewDrivers(nopDriver{}), apps, push.Options{})
	t.Cleanup(ctrl.Shutdown)

	h := apihttp.NewHandlers(ctrl, apps, apihttp.NewGrants([]string{"nop"}, "grant"), nil, nil)
	srv := httptest.NewServer(apihttp.NewRouter(h, apihttp.RouterConfig{Development: true}))
	t.Cleanup(srv.Close)

	return New(srv.URL, opts)
}

func TestClientRoundTrip(t *testing.T) {
	opts := DefaultOptions()
	opts.Grant = "grant"
	c := newTestClient(t, opts)
	ctx := context.Background()

	rec, err := c.Register(ctx, 7, RegisterRequest{Connection: "nop://:9000", Target: "com.example.chat"})
	require.NoError(t, err)
	assert.Equal(t, types.ConnectionRecord{Owner: 7, LaunchTarget: "com.example.chat", Connection: "nop://:9000"}, rec)

	conns, err := c.List(ctx, 7, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"nop://:9000"}, conns)

	items, err := c.Take(ctx, 7, "nop://:9000")
	require.NoError(t, err)
	assert.Empty(t, items)

	owners, err := c.Owners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.OwnerID{7}, owners)

	got, ok, err := c.Lookup(ctx, "nop://:9000")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, rec, got)

	raw, err := c.Stats(ctx)
	require.NoError(t, err)
	var stats map[string]any
	require.NoError(t, sonic.Unmarshal(raw, &stats))
	assert.Contains(t, stats, "push")

	removed, err := c.Unregister(ctx, 7, "nop://:9000")
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok, err = c.Lookup(ctx, "nop://:9000")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := c.RemoveOwner(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClientAPIErrors(t *testing.T) {
	c := newTestClient(t, DefaultOptions())
	ctx := context.Background()

	_, err := c.Register(ctx, 1, RegisterRequest{Connection: "nop://:9001", Target: "a"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "permission_denied", apiErr.Code)

	_, err = c.Take(ctx, 1, "nop://:9002")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not_found", apiErr.Code)
}
