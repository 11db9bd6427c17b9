package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/AgentOS/push/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

// Reservation is a live registration: the durable record plus the transport handle
type Reservation struct {
	ID        id.ReservationID
	Record    types.ConnectionRecord
	Handle    transport.Handle
	CreatedAt time.Time

	canceled atomic.Bool
	once     sync.Once
	err      error
}

// NewReservation binds a record to its live transport handle
func NewReservation(rec types.ConnectionRecord, h transport.Handle) *Reservation {
	return &Reservation{
		ID:        id.NewReservationID(),
		Record:    rec,
		Handle:    h,
		CreatedAt: time.Now(),
	}
}

// Cancel marks the reservation canceled and releases the transport exactly once
func (r *Reservation) Cancel() error {
	r.once.Do(func() {
		r.canceled.Store(true)
		if r.Handle != nil {
			r.err = r.Handle.Cancel()
		}
	})
	return r.err
}

// Canceled reports whether Cancel has been called
func (r *Reservation) Canceled() bool {
	return r.canceled.Load()
}

// Drain collects the arrivals buffered by the transport
func (r *Reservation) Drain() []transport.Item {
	if r.Canceled() || r.Handle == nil {
		return nil
	}
	if d, ok := r.Handle.(transport.Drainer); ok {
		return d.Drain()
	}
	return nil
}

// HasData polls the transport for buffered data without blocking
func (r *Reservation) HasData() bool {
	if r.Canceled() || r.Handle == nil {
		return false
	}
	return r.Handle.HasData()
}
