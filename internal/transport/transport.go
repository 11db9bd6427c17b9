package transport

import (
	"context"
	"errors"

	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported connection scheme")
	ErrInvalidConnection = errors.New("invalid connection name")
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrPermission        = errors.New("permission denied")
	ErrBusy              = errors.New("transport endpoint busy")
	ErrCanceled          = errors.New("reservation canceled")
)

// Signal reports that a reserved endpoint has data available.
// Handle identifies the exact reservation that raised it.
type Signal struct {
	Connection string
	Handle     Handle
}

// Handle is a live transport-level reservation
type Handle interface {
	// HasData polls the pending buffer without blocking
	HasData() bool
	// Cancel releases the endpoint; safe to call more than once
	Cancel() error
}

// Item is one buffered arrival handed over to the owning application
type Item struct {
	Sender  string `json:"sender"`
	Payload []byte `json:"payload,omitempty"`
}

// Drainer is implemented by handles whose buffered arrivals can be collected
type Drainer interface {
	// Drain removes and returns every buffered arrival
	Drain() []Item
}

// PermissionFunc decides whether a connection may be reserved
type PermissionFunc func(scheme, connection string) error

// AllowAll is the permission check used for previously approved registrations
func AllowAll(string, string) error { return nil }

// Factory produces validated descriptors for connection names
type Factory interface {
	Descriptor(connection, filter string, check PermissionFunc) (Descriptor, error)
}

// Descriptor is a validated, not yet reserved, connection
type Descriptor interface {
	Connection() string
	Filter() string
	Reserve(ctx context.Context, owner types.OwnerID, target string, signals chan<- Signal) (Handle, error)
}
