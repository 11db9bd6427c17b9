package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/push/internal/store"
	"github.com/GriffinCanCode/AgentOS/push/internal/store/storetest"
)

func TestTree(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Tree {
		mr := miniredis.RunT(t)
		tree, err := Open(Config{Addr: mr.Addr()})
		require.NoError(t, err)
		t.Cleanup(func() { tree.Close() })
		return tree
	})
}

func TestOpen_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Open(Config{Addr: addr})
	assert.Error(t, err)
}

func TestTree_KeyLayout(t *testing.T) {
	mr := miniredis.RunT(t)
	tree := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:")
	defer tree.Close()

	cs := store.NewConnectionStore(tree, store.DefaultRoot)
	rec := types.ConnectionRecord{Owner: 31, LaunchTarget: "feed", Connection: "kafka://broker:9092/feed"}
	require.NoError(t, cs.AddConnection(context.Background(), rec))

	got, err := mr.Get("test:push/1f")
	require.NoError(t, err)
	assert.Equal(t, "kafka://broker:9092/feed\tfeed\t\n", got)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\*b\?\[c\]`, escapeGlob("a*b?[c]"))
}
