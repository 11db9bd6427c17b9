// Package storetest holds the behavior suite shared by every store.Tree backend.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/push/internal/store"
)

// Run exercises a fresh Tree from newTree against the store.Tree contract
func Run(t *testing.T, newTree func(t *testing.T) store.Tree) {
	t.Helper()

	t.Run("CreateGet", func(t *testing.T) {
		tree := newTree(t)
		ctx := context.Background()

		_, ok, err := tree.GetNode(ctx, "push/1")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, tree.CreateDataNode(ctx, "push/1", []byte("a")))
		n, ok, err := tree.GetNode(ctx, "push/1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "push/1", n.URI)
		assert.Equal(t, []byte("a"), n.Data)

		err = tree.CreateDataNode(ctx, "push/1", []byte("b"))
		assert.True(t, errors.Is(err, store.ErrNodeExists))
	})

	t.Run("Update", func(t *testing.T) {
		tree := newTree(t)
		ctx := context.Background()

		err := tree.UpdateDataNode(ctx, "push/2", []byte("x"))
		assert.True(t, errors.Is(err, store.ErrNodeNotFound))

		require.NoError(t, tree.CreateDataNode(ctx, "push/2", []byte("x")))
		require.NoError(t, tree.UpdateDataNode(ctx, "push/2", []byte("y")))
		n, _, err := tree.GetNode(ctx, "push/2")
		require.NoError(t, err)
		assert.Equal(t, []byte("y"), n.Data)
	})

	t.Run("Delete", func(t *testing.T) {
		tree := newTree(t)
		ctx := context.Background()

		assert.True(t, errors.Is(tree.DeleteNode(ctx, "push/3"), store.ErrNodeNotFound))
		require.NoError(t, tree.CreateDataNode(ctx, "push/3", []byte("z")))
		require.NoError(t, tree.DeleteNode(ctx, "push/3"))
		_, ok, err := tree.GetNode(ctx, "push/3")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("WalkOrderedByPrefix", func(t *testing.T) {
		tree := newTree(t)
		ctx := context.Background()

		for _, uri := range []string{"push/b", "other/a", "push/a", "push/c"} {
			require.NoError(t, tree.CreateDataNode(ctx, uri, []byte(uri)))
		}

		var seen []string
		require.NoError(t, tree.Walk(ctx, "push/", func(n store.Node) error {
			seen = append(seen, n.URI)
			assert.Equal(t, []byte(n.URI), n.Data)
			return nil
		}))
		assert.Equal(t, []string{"push/a", "push/b", "push/c"}, seen)
	})

	t.Run("WalkStopsOnError", func(t *testing.T) {
		tree := newTree(t)
		ctx := context.Background()
		require.NoError(t, tree.CreateDataNode(ctx, "push/a", nil))
		require.NoError(t, tree.CreateDataNode(ctx, "push/b", nil))

		stop := errors.New("stop")
		calls := 0
		err := tree.Walk(ctx, "push/", func(store.Node) error {
			calls++
			return stop
		})
		assert.True(t, errors.Is(err, stop))
		assert.Equal(t, 1, calls)
	})

	t.Run("ConnectionStore", func(t *testing.T) {
		cs := store.NewConnectionStore(newTree(t), store.DefaultRoot)
		ctx := context.Background()
		rec := types.ConnectionRecord{Owner: 42, LaunchTarget: "app", Connection: "socket://:9001", Filter: "10.*"}

		require.NoError(t, cs.AddConnection(ctx, rec))
		got, err := cs.Connections(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, []types.ConnectionRecord{rec}, got)

		removed, err := cs.RemoveConnection(ctx, 42, rec.Connection)
		require.NoError(t, err)
		assert.True(t, removed)

		_, ok, err := cs.Tree().GetNode(ctx, cs.OwnerURI(42))
		require.NoError(t, err)
		assert.False(t, ok, "empty owner node should be deleted")
	})
}
