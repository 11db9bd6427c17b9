package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/push/internal/store"
	"github.com/GriffinCanCode/AgentOS/push/internal/store/storetest"
)

func TestTree(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Tree {
		tree, err := Open(InMemoryConfig())
		require.NoError(t, err)
		t.Cleanup(func() { tree.Close() })
		return tree
	})
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestTree_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Path = dir
	cfg.GCInterval = time.Hour

	tree, err := Open(cfg)
	require.NoError(t, err)

	cs := store.NewConnectionStore(tree, store.DefaultRoot)
	rec := types.ConnectionRecord{Owner: 5, LaunchTarget: "mail", Connection: "socket://:7000"}
	require.NoError(t, cs.AddConnection(context.Background(), rec))
	require.NoError(t, tree.Close())

	tree, err = Open(cfg)
	require.NoError(t, err)
	defer tree.Close()

	recs, err := store.NewConnectionStore(tree, store.DefaultRoot).Connections(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []types.ConnectionRecord{rec}, recs)
}
