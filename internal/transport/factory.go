package transport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
)

// Driver binds one connection scheme to a real transport
type Driver interface {
	Scheme() string
	// Validate rejects endpoints the driver can never serve
	Validate(ep Endpoint, filter Filter) error
	// Open reserves the endpoint; Notify must be called whenever new data is buffered
	Open(ctx context.Context, p OpenParams) (Handle, error)
}

// OpenParams carries everything a driver needs to reserve an endpoint
type OpenParams struct {
	Endpoint Endpoint
	Filter   Filter
	Owner    types.OwnerID
	Target   string
	Notify   func()
}

// Drivers is a Factory dispatching on the connection scheme
type Drivers struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewDrivers creates a factory with the given drivers registered
func NewDrivers(drivers ...Driver) *Drivers {
	d := &Drivers{drivers: make(map[string]Driver, len(drivers))}
	for _, drv := range drivers {
		d.Register(drv)
	}
	return d
}

// Register adds or replaces the driver for its scheme
func (d *Drivers) Register(drv Driver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drivers[drv.Scheme()] = drv
}

// Schemes lists registered schemes in sorted order
func (d *Drivers) Schemes() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.drivers))
	for s := range d.drivers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Descriptor validates a connection name and filter and runs the permission check
func (d *Drivers) Descriptor(connection, filter string, check PermissionFunc) (Descriptor, error) {
	ep, err := ParseEndpoint(connection)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	drv, ok := d.drivers[ep.Scheme]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, ep.Scheme)
	}

	f, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	if err := drv.Validate(ep, f); err != nil {
		return nil, err
	}

	if check != nil {
		if err := check(ep.Scheme, connection); err != nil {
			if !errors.Is(err, ErrPermission) {
				err = fmt.Errorf("%w: %v", ErrPermission, err)
			}
			return nil, err
		}
	}

	return &descriptor{endpoint: ep, filter: f, driver: drv}, nil
}

type descriptor struct {
	endpoint Endpoint
	filter   Filter
	driver   Driver
}

func (d *descriptor) Connection() string { return d.endpoint.Raw }
func (d *descriptor) Filter() string     { return d.filter.String() }

func (d *descriptor) Reserve(ctx context.Context, owner types.OwnerID, target string, signals chan<- Signal) (Handle, error) {
	b := &binding{
		connection: d.endpoint.Raw,
		signals:    signals,
		done:       make(chan struct{}),
	}

	inner, err := d.driver.Open(ctx, OpenParams{
		Endpoint: d.endpoint,
		Filter:   d.filter,
		Owner:    owner,
		Target:   target,
		Notify:   b.notify,
	})
	if err != nil {
		close(b.done)
		return nil, err
	}
	b.inner = inner
	return b, nil
}

// binding is the Handle returned to callers; its identity is what Signals carry
type binding struct {
	connection string
	signals    chan<- Signal
	inner      Handle
	done       chan struct{}
	once       sync.Once
}

func (b *binding) notify() {
	if b.signals == nil {
		return
	}
	select {
	case <-b.done:
		return
	default:
	}
	select {
	case b.signals <- Signal{Connection: b.connection, Handle: b}:
	case <-b.done:
	}
}

func (b *binding) HasData() bool {
	select {
	case <-b.done:
		return false
	default:
	}
	return b.inner.HasData()
}

func (b *binding) Drain() []Item {
	select {
	case <-b.done:
		return nil
	default:
	}
	if d, ok := b.inner.(Drainer); ok {
		return d.Drain()
	}
	return nil
}

func (b *binding) Cancel() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		err = b.inner.Cancel()
	})
	return err
}

// Unwrap returns the driver-level handle
func (b *binding) Unwrap() Handle { return b.inner }

// Unwrap returns the driver handle behind h, or h itself
func Unwrap(h Handle) Handle {
	if u, ok := h.(interface{ Unwrap() Handle }); ok {
		return u.Unwrap()
	}
	return h
}
