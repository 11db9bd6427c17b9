package push

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/push/internal/store"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

// clock orders events across goroutines
type clock struct{ n atomic.Int64 }

func (c *clock) tick() int64 { return c.n.Add(1) }

type fakeHandle struct {
	connection string
	clock      *clock
	hasData    atomic.Bool
	canceledAt atomic.Int64
}

func (h *fakeHandle) HasData() bool { return h.hasData.Load() }

func (h *fakeHandle) Cancel() error {
	h.canceledAt.CompareAndSwap(0, h.clock.tick())
	return nil
}

func (h *fakeHandle) canceled() bool { return h.canceledAt.Load() != 0 }

// fakeFactory reserves endpoints exclusively, like a real listener would
type fakeFactory struct {
	mu         sync.Mutex
	clock      *clock
	reserveErr map[string]error
	live       map[string]*fakeHandle
	all        []*fakeHandle
}

func newFakeFactory(c *clock) *fakeFactory {
	return &fakeFactory{clock: c, reserveErr: make(map[string]error), live: make(map[string]*fakeHandle)}
}

func (f *fakeFactory) failReserve(connection string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserveErr[connection] = err
}

func (f *fakeFactory) handle(connection string) *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live[connection]
}

func (f *fakeFactory) Descriptor(connection, filter string, check transport.PermissionFunc) (transport.Descriptor, error) {
	ep, err := transport.ParseEndpoint(connection)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(ep.Scheme, connection); err != nil {
			return nil, err
		}
	}
	return &fakeDescriptor{factory: f, connection: connection, filter: filter}, nil
}

type fakeDescriptor struct {
	factory    *fakeFactory
	connection string
	filter     string
}

func (d *fakeDescriptor) Connection() string { return d.connection }
func (d *fakeDescriptor) Filter() string     { return d.filter }

func (d *fakeDescriptor) Reserve(_ context.Context, _ types.OwnerID, _ string, _ chan<- transport.Signal) (transport.Handle, error) {
	f := d.factory
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.reserveErr[d.connection]; err != nil {
		return nil, err
	}
	if h, ok := f.live[d.connection]; ok && !h.canceled() {
		return nil, transport.ErrBusy
	}
	h := &fakeHandle{connection: d.connection, clock: f.clock}
	f.live[d.connection] = h
	f.all = append(f.all, h)
	return h, nil
}

type launch struct {
	owner  types.OwnerID
	target string
	at     int64
}

type fakeLauncher struct {
	mu       sync.Mutex
	clock    *clock
	err      error
	launches []launch
}

func (l *fakeLauncher) Launch(_ context.Context, owner types.OwnerID, target string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches = append(l.launches, launch{owner: owner, target: target, at: l.clock.tick()})
	return l.err
}

func (l *fakeLauncher) all() []launch {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]launch(nil), l.launches...)
}

var errDiskFull = errors.New("disk full")

// flakyStore fails writes on demand
type flakyStore struct {
	*store.ConnectionStore
	failAdd    atomic.Bool
	failRemove atomic.Bool
}

func (s *flakyStore) AddConnection(ctx context.Context, rec types.ConnectionRecord) error {
	if s.failAdd.Load() {
		return errDiskFull
	}
	return s.ConnectionStore.AddConnection(ctx, rec)
}

func (s *flakyStore) RemoveConnection(ctx context.Context, owner types.OwnerID, connection string) (bool, error) {
	if s.failRemove.Load() {
		return false, errDiskFull
	}
	return s.ConnectionStore.RemoveConnection(ctx, owner, connection)
}

func (s *flakyStore) RemoveOwner(ctx context.Context, owner types.OwnerID) error {
	if s.failRemove.Load() {
		return errDiskFull
	}
	return s.ConnectionStore.RemoveOwner(ctx, owner)
}
