package registry

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"

	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
)

// ErrConflict is returned when a connection name is already held
var ErrConflict = errors.New("connection already reserved")

// Registry indexes live reservations by connection name and by owner
type Registry struct {
	mu           sync.RWMutex
	byConnection map[string]*Reservation                    // Protected by mu
	byOwner      map[types.OwnerID]map[string]*Reservation // Protected by mu
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		byConnection: make(map[string]*Reservation),
		byOwner:      make(map[types.OwnerID]map[string]*Reservation),
	}
}

// Add inserts r into both indices, failing with ErrConflict if its connection is held
func (g *Registry) Add(r *Reservation) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	name := r.Record.Connection
	if existing, ok := g.byConnection[name]; ok {
		return fmt.Errorf("%w: %s held by owner %s", ErrConflict, name, existing.Record.Owner)
	}

	g.byConnection[name] = r
	owned, ok := g.byOwner[r.Record.Owner]
	if !ok {
		owned = make(map[string]*Reservation)
		g.byOwner[r.Record.Owner] = owned
	}
	owned[name] = r
	return nil
}

// Remove deletes r from both indices. It is a no-op when r is absent or when
// the name is now held by a different reservation.
func (g *Registry) Remove(r *Reservation) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	name := r.Record.Connection
	if current, ok := g.byConnection[name]; !ok || current != r {
		return false
	}

	delete(g.byConnection, name)
	if owned, ok := g.byOwner[r.Record.Owner]; ok {
		delete(owned, name)
		if len(owned) == 0 {
			delete(g.byOwner, r.Record.Owner)
		}
	}
	return true
}

// FindByConnection returns the reservation holding name
func (g *Registry) FindByConnection(name string) (*Reservation, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.byConnection[name]
	return r, ok
}

// FindByOwner returns a snapshot of the owner's reservations ordered by
// connection name. The sequence can be ranged over any number of times and
// is unaffected by later mutations.
func (g *Registry) FindByOwner(owner types.OwnerID) iter.Seq[*Reservation] {
	g.mu.RLock()
	snapshot := sortedValues(g.byOwner[owner])
	g.mu.RUnlock()

	return func(yield func(*Reservation) bool) {
		for _, r := range snapshot {
			if !yield(r) {
				return
			}
		}
	}
}

// All returns a snapshot of every reservation ordered by connection name
func (g *Registry) All() iter.Seq[*Reservation] {
	g.mu.RLock()
	snapshot := sortedValues(g.byConnection)
	g.mu.RUnlock()

	return func(yield func(*Reservation) bool) {
		for _, r := range snapshot {
			if !yield(r) {
				return
			}
		}
	}
}

// Owners lists owners holding at least one reservation
func (g *Registry) Owners() []types.OwnerID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	owners := make([]types.OwnerID, 0, len(g.byOwner))
	for o := range g.byOwner {
		owners = append(owners, o)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners
}

// Len returns the number of live reservations
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byConnection)
}

func sortedValues(m map[string]*Reservation) []*Reservation {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Reservation, 0, len(names))
	for _, name := range names {
		out = append(out, m[name])
	}
	return out
}
