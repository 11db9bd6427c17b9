package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryTree is a Tree held in process memory
type MemoryTree struct {
	mu    sync.RWMutex
	nodes map[string][]byte
}

// NewMemoryTree creates an empty in-memory tree
func NewMemoryTree() *MemoryTree {
	return &MemoryTree{nodes: make(map[string][]byte)}
}

func (m *MemoryTree) GetNode(_ context.Context, uri string) (Node, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.nodes[uri]
	if !ok {
		return Node{}, false, nil
	}
	return Node{URI: uri, Data: clone(data)}, true, nil
}

func (m *MemoryTree) CreateDataNode(_ context.Context, uri string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[uri]; ok {
		return ErrNodeExists
	}
	m.nodes[uri] = clone(data)
	return nil
}

func (m *MemoryTree) UpdateDataNode(_ context.Context, uri string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[uri]; !ok {
		return ErrNodeNotFound
	}
	m.nodes[uri] = clone(data)
	return nil
}

func (m *MemoryTree) DeleteNode(_ context.Context, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[uri]; !ok {
		return ErrNodeNotFound
	}
	delete(m.nodes, uri)
	return nil
}

func (m *MemoryTree) Walk(ctx context.Context, prefix string, fn func(Node) error) error {
	m.mu.RLock()
	snapshot := make([]Node, 0, len(m.nodes))
	for uri, data := range m.nodes {
		if strings.HasPrefix(uri, prefix) {
			snapshot = append(snapshot, Node{URI: uri, Data: clone(data)})
		}
	}
	m.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].URI < snapshot[j].URI })
	for _, n := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(n); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryTree) Close() error { return nil }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
