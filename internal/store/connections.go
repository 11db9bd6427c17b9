package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
)

// DefaultRoot is the URI prefix for owner nodes
const DefaultRoot = "push"

// OwnerRecords is one owner node read back during enumeration.
// Err is set when the node could not be decoded.
type OwnerRecords struct {
	Owner   types.OwnerID
	URI     string
	Records []types.ConnectionRecord
	Err     error
}

// ConnectionStore persists connection records, one node per owner.
// A node that no longer decodes is replaced by the next write to it.
type ConnectionStore struct {
	tree   Tree
	root   string
	logger *zap.Logger
	mu     sync.Mutex // serializes read-modify-write of owner nodes
}

// Option configures a ConnectionStore
type Option func(*ConnectionStore)

// WithLogger sets the logger used to report corrupt nodes
func WithLogger(logger *zap.Logger) Option {
	return func(s *ConnectionStore) { s.logger = logger }
}

// NewConnectionStore creates a ConnectionStore rooted at root
func NewConnectionStore(tree Tree, root string, opts ...Option) *ConnectionStore {
	if root == "" {
		root = DefaultRoot
	}
	s := &ConnectionStore{tree: tree, root: strings.TrimSuffix(root, "/"), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OwnerURI returns the node URI for owner
func (s *ConnectionStore) OwnerURI(owner types.OwnerID) string {
	return s.root + "/" + owner.Hex()
}

// Tree returns the underlying node store
func (s *ConnectionStore) Tree() Tree { return s.tree }

// AddConnection writes rec into its owner's node, replacing any record with
// the same connection name
func (s *ConnectionStore) AddConnection(ctx context.Context, rec types.ConnectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uri := s.OwnerURI(rec.Owner)
	recs, exists, err := s.read(ctx, rec.Owner, uri)
	if errors.Is(err, ErrCorruptNode) {
		s.logger.Warn("replacing corrupt owner node", zap.String("uri", uri), zap.Error(err))
		recs, err = nil, nil
	}
	if err != nil {
		return err
	}

	replaced := false
	for i := range recs {
		if recs[i].Connection == rec.Connection {
			recs[i] = rec
			replaced = true
		}
	}
	if !replaced {
		recs = append(recs, rec)
	}

	data, err := EncodeRecords(recs)
	if err != nil {
		return err
	}
	if exists {
		return s.tree.UpdateDataNode(ctx, uri, data)
	}
	return s.tree.CreateDataNode(ctx, uri, data)
}

// RemoveConnection deletes the record for connection from owner's node.
// The node is deleted when it becomes empty.
func (s *ConnectionStore) RemoveConnection(ctx context.Context, owner types.OwnerID, connection string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uri := s.OwnerURI(owner)
	recs, exists, err := s.read(ctx, owner, uri)
	if errors.Is(err, ErrCorruptNode) {
		// nothing in it can be restored, so nothing is lost
		s.logger.Warn("deleting corrupt owner node", zap.String("uri", uri), zap.Error(err))
		return false, s.tree.DeleteNode(ctx, uri)
	}
	if err != nil || !exists {
		return false, err
	}

	kept := recs[:0]
	for _, r := range recs {
		if r.Connection != connection {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(recs) {
		return false, nil
	}

	if len(kept) == 0 {
		return true, s.tree.DeleteNode(ctx, uri)
	}
	data, err := EncodeRecords(kept)
	if err != nil {
		return false, err
	}
	return true, s.tree.UpdateDataNode(ctx, uri, data)
}

// RemoveOwner deletes the owner's node; a missing node is not an error
func (s *ConnectionStore) RemoveOwner(ctx context.Context, owner types.OwnerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.tree.DeleteNode(ctx, s.OwnerURI(owner))
	if errors.Is(err, ErrNodeNotFound) {
		return nil
	}
	return err
}

// Connections returns the persisted records for owner
func (s *ConnectionStore) Connections(ctx context.Context, owner types.OwnerID) ([]types.ConnectionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, _, err := s.read(ctx, owner, s.OwnerURI(owner))
	return recs, err
}

// ForEach streams every owner node under the root. A node that fails to
// decode is delivered with Err set; returning an error from fn stops the walk.
func (s *ConnectionStore) ForEach(ctx context.Context, fn func(OwnerRecords) error) error {
	prefix := s.root + "/"
	return s.tree.Walk(ctx, prefix, func(n Node) error {
		key := strings.TrimPrefix(n.URI, prefix)
		if strings.Contains(key, "/") {
			return nil
		}

		out := OwnerRecords{URI: n.URI}
		owner, err := types.ParseOwnerHex(key)
		if err != nil {
			out.Err = err
			return fn(out)
		}
		out.Owner = owner
		out.Records, out.Err = DecodeRecords(owner, n.Data)
		return fn(out)
	})
}

func (s *ConnectionStore) read(ctx context.Context, owner types.OwnerID, uri string) ([]types.ConnectionRecord, bool, error) {
	node, ok, err := s.tree.GetNode(ctx, uri)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", uri, err)
	}
	if !ok {
		return nil, false, nil
	}
	recs, err := DecodeRecords(owner, node.Data)
	if err != nil {
		return nil, true, err
	}
	return recs, true, nil
}
