package push

import "errors"

var (
	// ErrOwnershipConflict: the connection is reserved by a different owner
	ErrOwnershipConflict = errors.New("connection owned by another application")
	// ErrPermissionDenied: unregister attempted by a non-owner
	ErrPermissionDenied = errors.New("permission denied")
	// ErrReservationFailure: the transport could not be reserved
	ErrReservationFailure = errors.New("reservation failed")
	// ErrPersistenceFailure: the durable store rejected a write or delete
	ErrPersistenceFailure = errors.New("persistence failed")
	// ErrNotFound: no live registration holds the connection
	ErrNotFound = errors.New("connection not registered")
	// ErrClosed: the controller has been shut down
	ErrClosed = errors.New("controller closed")
)
