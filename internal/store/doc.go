// Package store persists push registrations in a tree-structured node store.
//
// A Tree is a minimal key/value store addressed by URIs ("push/2a"). The
// ConnectionStore keeps one data node per owner, holding that owner's
// records as newline-separated "connection\ttarget\tfilter" lines.
//
// Backends:
//   - MemoryTree: in-process, for tests and the "memory" backend
//   - badger.Tree: embedded BadgerDB
//   - sqlite.Tree: SQLite via modernc.org/sqlite
//   - redis.Tree: shared Redis
//
// Example Usage:
//
//	cs := store.NewConnectionStore(store.NewMemoryTree(), store.DefaultRoot)
//	err := cs.AddConnection(ctx, rec)
//	err = cs.ForEach(ctx, func(o store.OwnerRecords) error { ... })
package store
