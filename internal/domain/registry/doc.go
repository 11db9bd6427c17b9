// Package registry is the in-memory index of live push reservations.
//
// The Registry is the sole arbiter of which owner holds a connection name.
// Every Reservation is indexed twice, by connection name and by owner, and
// both indices change together under one lock.
//
// Components:
//   - Reservation: a ConnectionRecord bound to a live transport handle
//   - Registry: uniqueness-enforcing index with snapshot iteration
//
// Example Usage:
//
//	reg := registry.New()
//	r := registry.NewReservation(rec, handle)
//	if err := reg.Add(r); errors.Is(err, registry.ErrConflict) {
//	    // someone else holds rec.Connection
//	}
//	for r := range reg.FindByOwner(rec.Owner) {
//	    fmt.Println(r.Record.Connection)
//	}
package registry
