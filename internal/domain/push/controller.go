package push

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/push/internal/store"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

// DefaultSignalBuffer is the signal channel capacity when Options leaves it unset
const DefaultSignalBuffer = 64

// Store is the durable side of the controller
type Store interface {
	AddConnection(ctx context.Context, rec types.ConnectionRecord) error
	RemoveConnection(ctx context.Context, owner types.OwnerID, connection string) (bool, error)
	RemoveOwner(ctx context.Context, owner types.OwnerID) error
	ForEach(ctx context.Context, fn func(store.OwnerRecords) error) error
}

// Launcher starts or resumes an owner's application
type Launcher interface {
	Launch(ctx context.Context, owner types.OwnerID, target string) error
}

// Options configures a Controller
type Options struct {
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	// Tracer records a span per dispatched signal; nil disables tracing
	Tracer *tracing.Tracer
	// SignalBuffer sizes the data-arrival channel
	SignalBuffer int
}

// Controller orchestrates registration, unregistration, recovery and dispatch
type Controller struct {
	mu       sync.Mutex
	registry *registry.Registry
	closed   bool

	store    Store
	factory  transport.Factory
	launcher Launcher
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer

	signals chan transport.Signal
	done    chan struct{}
	once    sync.Once

	launches       atomic.Uint64
	launchFailures atomic.Uint64
	dropped        atomic.Uint64
}

// NewController creates a controller. Call Bootstrap before serving requests
// and Run to start dispatching data-arrival signals.
func NewController(st Store, factory transport.Factory, launcher Launcher, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SignalBuffer <= 0 {
		opts.SignalBuffer = DefaultSignalBuffer
	}
	return &Controller{
		registry: registry.New(),
		store:    st,
		factory:  factory,
		launcher: launcher,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		signals:  make(chan transport.Signal, opts.SignalBuffer),
		done:     make(chan struct{}),
	}
}

// RegisterConnection builds a descriptor for connection and registers it.
// check decides whether owner may use the connection; nil allows everything.
func (c *Controller) RegisterConnection(ctx context.Context, owner types.OwnerID, target, connection, filter string, check transport.PermissionFunc) (types.ConnectionRecord, error) {
	desc, err := c.factory.Descriptor(connection, filter, check)
	if err != nil {
		c.metrics.RecordRegistration(scheme(connection), err)
		c.logger.Info("registration rejected", logging.Owner(owner), logging.Connection(connection), zap.Error(err))
		return types.ConnectionRecord{}, fmt.Errorf("%w: %w", ErrReservationFailure, err)
	}
	return c.Register(ctx, owner, target, desc)
}

// Register reserves desc for owner and persists the record.
// Registering a connection the owner already holds replaces it.
func (c *Controller) Register(ctx context.Context, owner types.OwnerID, target string, desc transport.Descriptor) (types.ConnectionRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.registerLocked(ctx, owner, target, desc, true)
	c.metrics.RecordRegistration(scheme(desc.Connection()), err)
	if err != nil {
		c.logger.Info("registration failed", logging.Owner(owner), logging.Connection(desc.Connection()), zap.Error(err))
		return types.ConnectionRecord{}, err
	}
	c.logger.Info("registered", logging.Record(rec))
	return rec, nil
}

// registerLocked must be called with mu held. persist is false when the
// record is being restored from the store it already lives in.
func (c *Controller) registerLocked(ctx context.Context, owner types.OwnerID, target string, desc transport.Descriptor, persist bool) (types.ConnectionRecord, error) {
	if c.closed {
		return types.ConnectionRecord{}, ErrClosed
	}

	name := desc.Connection()
	if existing, ok := c.registry.FindByConnection(name); ok {
		if existing.Record.Owner != owner {
			return types.ConnectionRecord{}, fmt.Errorf("%w: %s held by %s", ErrOwnershipConflict, name, existing.Record.Owner)
		}
		if persist {
			if err := c.unregisterLocked(ctx, existing); err != nil {
				return types.ConnectionRecord{}, err
			}
		} else {
			c.releaseLocked(existing)
		}
	}

	rec := types.ConnectionRecord{
		Owner:        owner,
		LaunchTarget: target,
		Connection:   name,
		Filter:       desc.Filter(),
	}

	h, err := desc.Reserve(ctx, owner, target, c.signals)
	if err != nil {
		return types.ConnectionRecord{}, fmt.Errorf("%w: %w", ErrReservationFailure, err)
	}
	r := registry.NewReservation(rec, h)

	if persist {
		timer := monitoring.NewTimer(c.metrics, "add_connection")
		err := c.store.AddConnection(ctx, rec)
		timer.Stop(err)
		if err != nil {
			c.cancel(r)
			return types.ConnectionRecord{}, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
		}
	}

	if err := c.registry.Add(r); err != nil {
		// unreachable while mu serializes every Add
		c.cancel(r)
		return types.ConnectionRecord{}, fmt.Errorf("%w: %w", ErrOwnershipConflict, err)
	}
	c.publishSizes()
	return rec, nil
}

// Unregister removes owner's registration of connection. It reports false
// when no live registration exists for the name.
func (c *Controller) Unregister(ctx context.Context, owner types.OwnerID, connection string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.registry.FindByConnection(connection)
	if !ok {
		return false, nil
	}
	if r.Record.Owner != owner {
		err := fmt.Errorf("%w: %s is held by %s", ErrPermissionDenied, connection, r.Record.Owner)
		c.metrics.RecordUnregistration(err)
		return false, err
	}

	err := c.unregisterLocked(ctx, r)
	c.metrics.RecordUnregistration(err)
	if err != nil {
		c.logger.Warn("unregister failed", logging.Owner(owner), logging.Connection(connection), zap.Error(err))
		return false, err
	}
	c.logger.Info("unregistered", logging.Owner(owner), logging.Connection(connection))
	return true, nil
}

// unregisterLocked deletes the durable record, then releases the reservation.
// On a store failure the reservation is left live.
func (c *Controller) unregisterLocked(ctx context.Context, r *registry.Reservation) error {
	timer := monitoring.NewTimer(c.metrics, "remove_connection")
	_, err := c.store.RemoveConnection(ctx, r.Record.Owner, r.Record.Connection)
	timer.Stop(err)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}
	c.releaseLocked(r)
	return nil
}

// releaseLocked cancels r and drops it from the registry without touching the store
func (c *Controller) releaseLocked(r *registry.Reservation) {
	c.cancel(r)
	c.registry.Remove(r)
	c.publishSizes()
}

func (c *Controller) cancel(r *registry.Reservation) {
	if err := r.Cancel(); err != nil {
		c.logger.Warn("transport release failed", logging.Record(r.Record), zap.Error(err))
	}
}

// UnregisterOwner removes every registration held by owner, as when the
// application is uninstalled. It returns the number of live reservations released.
func (c *Controller) UnregisterOwner(ctx context.Context, owner types.OwnerID) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := monitoring.NewTimer(c.metrics, "remove_owner")
	err := c.store.RemoveOwner(ctx, owner)
	timer.Stop(err)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}

	n := 0
	for r := range c.registry.FindByOwner(owner) {
		c.releaseLocked(r)
		n++
	}
	c.logger.Info("owner removed", logging.Owner(owner), zap.Int("released", n))
	return n, nil
}

// ListConnections returns owner's live connection names in sorted order.
// With onlyAvailable set, only reservations with buffered data are returned.
func (c *Controller) ListConnections(owner types.OwnerID, onlyAvailable bool) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for r := range c.registry.FindByOwner(owner) {
		if onlyAvailable && !r.HasData() {
			continue
		}
		out = append(out, r.Record.Connection)
	}
	return out
}

// Take hands owner the arrivals buffered on connection, emptying the buffer.
// The launched application calls it once started; until then every arrival
// keeps raising a signal so failed launches are retried.
func (c *Controller) Take(owner types.OwnerID, connection string) ([]transport.Item, error) {
	c.mu.Lock()
	r, ok := c.registry.FindByConnection(connection)
	c.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, connection)
	}
	if r.Record.Owner != owner {
		return nil, fmt.Errorf("%w: %s is held by %s", ErrPermissionDenied, connection, r.Record.Owner)
	}

	// drained outside mu: socket handoff reads from the peer
	items := r.Drain()
	c.logger.Debug("pending data taken", logging.Owner(owner), logging.Connection(connection), zap.Int("items", len(items)))
	return items, nil
}

// Lookup returns the record currently holding connection
func (c *Controller) Lookup(connection string) (types.ConnectionRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.registry.FindByConnection(connection)
	if !ok {
		return types.ConnectionRecord{}, false
	}
	return r.Record, true
}

// Owners lists owners with at least one live registration
func (c *Controller) Owners() []types.OwnerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Owners()
}

// Stats returns registry and dispatch counters
func (c *Controller) Stats() types.ControllerStats {
	c.mu.Lock()
	live, owners := c.registry.Len(), len(c.registry.Owners())
	c.mu.Unlock()

	return types.ControllerStats{
		LiveReservations: live,
		Owners:           owners,
		Launches:         c.launches.Load(),
		LaunchFailures:   c.launchFailures.Load(),
		DroppedSignals:   c.dropped.Load(),
	}
}

// Shutdown releases every live reservation, leaving durable records in place
// for the next Bootstrap, and stops Run. Later registrations fail with ErrClosed.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	n := 0
	for r := range c.registry.All() {
		c.releaseLocked(r)
		n++
	}
	c.once.Do(func() { close(c.done) })
	c.logger.Info("controller shut down", zap.Int("released", n))
}

func (c *Controller) publishSizes() {
	c.metrics.SetReservations(c.registry.Len(), len(c.registry.Owners()))
}

func scheme(connection string) string {
	ep, err := transport.ParseEndpoint(connection)
	if err != nil {
		return "invalid"
	}
	return ep.Scheme
}
