package push

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
)

const manifestYAML = `
registrations:
  - owner: 10
    target: com.example.mail
    connection: socket://x:25
    filter: "10.0.*"
  - owner: 11
    target: com.example.chat
    connection: ws://x:8081/chat
`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(manifestYAML))
	require.NoError(t, err)
	require.Len(t, m.Registrations, 2)
	assert.Equal(t, types.ConnectionRecord{
		Owner: 10, LaunchTarget: "com.example.mail", Connection: "socket://x:25", Filter: "10.0.*",
	}, m.Registrations[0].Record())
}

func TestParseManifest_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing target": "registrations:\n  - owner: 1\n    connection: socket://x:1\n",
		"negative owner": "registrations:\n  - owner: -1\n    target: t\n    connection: socket://x:1\n",
		"unknown key":    "registrations:\n  - owner: 1\n    target: t\n    connection: socket://x:1\n    port: 3\n",
		"duplicate":      "registrations:\n  - owner: 1\n    target: t\n    connection: socket://x:1\n  - owner: 2\n    target: u\n    connection: socket://x:1\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseManifest([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyManifest(t *testing.T) {
	h := newHarness(t)
	m, err := ParseManifest([]byte(manifestYAML))
	require.NoError(t, err)

	res := h.ctrl.ApplyManifest(context.Background(), m)
	assert.Equal(t, ApplyResult{Registered: 2}, res)
	assert.Equal(t, []string{"socket://x:25"}, h.ctrl.ListConnections(10, false))

	res = h.ctrl.ApplyManifest(context.Background(), m)
	assert.Equal(t, ApplyResult{Unchanged: 2}, res)
	assert.Equal(t, 2, h.ctrl.Stats().LiveReservations)
}

func TestApplyManifest_SkipsConflicts(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.register(t, 99, "socket://x:25"))

	m, err := ParseManifest([]byte(manifestYAML))
	require.NoError(t, err)

	res := h.ctrl.ApplyManifest(context.Background(), m)
	assert.Equal(t, ApplyResult{Registered: 1, Failed: 1}, res)

	rec, ok := h.ctrl.Lookup("socket://x:25")
	require.True(t, ok)
	assert.Equal(t, types.OwnerID(99), rec.Owner)
}

func TestManifestWatcher_Reloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "push.yaml")
	require.NoError(t, os.WriteFile(path, []byte("registrations: []\n"), 0o600))

	applied := make(chan *Manifest, 4)
	w := NewManifestWatcher(path, func(_ context.Context, m *Manifest) { applied <- m }, nil)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(manifestYAML), 0o600))

	select {
	case m := <-applied:
		assert.Len(t, m.Registrations, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("manifest change not applied")
	}

	cancel()
	assert.NoError(t, <-done)
}
