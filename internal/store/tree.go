package store

import (
	"context"
	"errors"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrNodeExists   = errors.New("node already exists")
)

// Node is one data node of the tree
type Node struct {
	URI  string
	Data []byte
}

// Tree is the durable node store consumed by ConnectionStore
type Tree interface {
	// GetNode returns the node at uri; ok is false when it does not exist
	GetNode(ctx context.Context, uri string) (node Node, ok bool, err error)
	// CreateDataNode fails with ErrNodeExists if uri is taken
	CreateDataNode(ctx context.Context, uri string, data []byte) error
	// UpdateDataNode fails with ErrNodeNotFound if uri is absent
	UpdateDataNode(ctx context.Context, uri string, data []byte) error
	// DeleteNode fails with ErrNodeNotFound if uri is absent
	DeleteNode(ctx context.Context, uri string) error
	// Walk visits nodes whose URI starts with prefix in ascending URI order
	Walk(ctx context.Context, prefix string, fn func(Node) error) error
	Close() error
}
