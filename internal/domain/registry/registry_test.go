package registry

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
)

type stubHandle struct {
	data     atomic.Bool
	canceled atomic.Int32
}

func (s *stubHandle) HasData() bool { return s.data.Load() }
func (s *stubHandle) Cancel() error { s.canceled.Add(1); return nil }

func reservation(owner types.OwnerID, name string) *Reservation {
	return NewReservation(types.ConnectionRecord{
		Owner:        owner,
		LaunchTarget: "app",
		Connection:   name,
	}, &stubHandle{})
}

func names(seq func(func(*Reservation) bool)) []string {
	var out []string
	for r := range seq {
		out = append(out, r.Record.Connection)
	}
	return out
}

func TestAddIndexesBothWays(t *testing.T) {
	g := New()
	r := reservation(1, "socket://:1")

	require.NoError(t, g.Add(r))

	got, ok := g.FindByConnection("socket://:1")
	require.True(t, ok)
	assert.Same(t, r, got)
	assert.Equal(t, []string{"socket://:1"}, names(g.FindByOwner(1)))
	assert.Equal(t, []types.OwnerID{1}, g.Owners())
	assert.Equal(t, 1, g.Len())
}

func TestAddRejectsDuplicateConnection(t *testing.T) {
	g := New()
	first := reservation(1, "socket://:1")
	require.NoError(t, g.Add(first))

	err := g.Add(reservation(2, "socket://:1"))
	assert.ErrorIs(t, err, ErrConflict)

	// same owner is still a conflict at this layer
	err = g.Add(reservation(1, "socket://:1"))
	assert.ErrorIs(t, err, ErrConflict)

	got, _ := g.FindByConnection("socket://:1")
	assert.Same(t, first, got)
	assert.Empty(t, names(g.FindByOwner(2)))
}

func TestRemoveIsAtomicAndIdempotent(t *testing.T) {
	g := New()
	r := reservation(1, "socket://:1")
	require.NoError(t, g.Add(r))

	assert.True(t, g.Remove(r))
	assert.False(t, g.Remove(r))

	_, ok := g.FindByConnection("socket://:1")
	assert.False(t, ok)
	assert.Empty(t, names(g.FindByOwner(1)))
	assert.Empty(t, g.Owners())
}

func TestRemoveIgnoresStaleReservation(t *testing.T) {
	g := New()
	old := reservation(1, "socket://:1")
	require.NoError(t, g.Add(old))
	require.True(t, g.Remove(old))

	replacement := reservation(1, "socket://:1")
	require.NoError(t, g.Add(replacement))

	assert.False(t, g.Remove(old))
	got, ok := g.FindByConnection("socket://:1")
	require.True(t, ok)
	assert.Same(t, replacement, got)
}

func TestFindByOwnerSnapshot(t *testing.T) {
	g := New()
	require.NoError(t, g.Add(reservation(1, "socket://:2")))
	require.NoError(t, g.Add(reservation(1, "socket://:1")))
	require.NoError(t, g.Add(reservation(2, "socket://:3")))

	seq := g.FindByOwner(1)
	require.NoError(t, g.Add(reservation(1, "socket://:4")))
	r, _ := g.FindByConnection("socket://:1")
	g.Remove(r)

	// snapshot is ordered and restartable
	assert.Equal(t, []string{"socket://:1", "socket://:2"}, names(seq))
	assert.Equal(t, []string{"socket://:1", "socket://:2"}, names(seq))
	assert.Equal(t, []string{"socket://:2", "socket://:4"}, names(g.FindByOwner(1)))
}

func TestFindByOwnerEarlyBreak(t *testing.T) {
	g := New()
	for _, n := range []string{"a://:1", "a://:2", "a://:3"} {
		require.NoError(t, g.Add(reservation(1, n)))
	}

	var seen int
	for range g.FindByOwner(1) {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestConcurrentAddKeepsUniqueness(t *testing.T) {
	g := New()

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for owner := types.OwnerID(1); owner <= 32; owner++ {
		wg.Add(1)
		go func(o types.OwnerID) {
			defer wg.Done()
			if g.Add(reservation(o, "socket://:80")) == nil {
				wins.Add(1)
			}
		}(owner)
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
	assert.Equal(t, 1, g.Len())
	assert.Len(t, g.Owners(), 1)
}

func TestReservationCancelOnce(t *testing.T) {
	h := &stubHandle{}
	r := NewReservation(types.ConnectionRecord{Owner: 1, Connection: "a://:1"}, h)

	h.data.Store(true)
	assert.True(t, r.HasData())

	require.NoError(t, r.Cancel())
	require.NoError(t, r.Cancel())

	assert.True(t, r.Canceled())
	assert.False(t, r.HasData())
	assert.EqualValues(t, 1, h.canceled.Load())
	assert.True(t, strings.HasPrefix(r.ID.String(), "rsv_"))
}
