// Package redis provides a store.Tree backed by Redis string keys.
//
// Each node is stored at KeyPrefix+URI. Walk uses SCAN, so enumeration does
// not block the server; results are sorted client-side.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GriffinCanCode/AgentOS/push/internal/store"
)

// DefaultKeyPrefix namespaces node keys
const DefaultKeyPrefix = "pushd:node:"

// Config holds Redis connection configuration
type Config struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// Tree is a store.Tree over Redis
type Tree struct {
	client    *redis.Client
	keyPrefix string
}

var _ store.Tree = (*Tree)(nil)

// Open connects to Redis and verifies the connection
func Open(cfg Config) (*Tree, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewWithClient(client, cfg.KeyPrefix), nil
}

// NewWithClient wraps an existing client; the tree takes ownership of it
func NewWithClient(client *redis.Client, keyPrefix string) *Tree {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Tree{client: client, keyPrefix: keyPrefix}
}

func (t *Tree) key(uri string) string {
	return t.keyPrefix + uri
}

func (t *Tree) GetNode(ctx context.Context, uri string) (store.Node, bool, error) {
	data, err := t.client.Get(ctx, t.key(uri)).Bytes()
	if errors.Is(err, redis.Nil) {
		return store.Node{}, false, nil
	}
	if err != nil {
		return store.Node{}, false, err
	}
	return store.Node{URI: uri, Data: data}, true, nil
}

func (t *Tree) CreateDataNode(ctx context.Context, uri string, data []byte) error {
	ok, err := t.client.SetNX(ctx, t.key(uri), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNodeExists
	}
	return nil
}

func (t *Tree) UpdateDataNode(ctx context.Context, uri string, data []byte) error {
	ok, err := t.client.SetXX(ctx, t.key(uri), data, redis.KeepTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNodeNotFound
	}
	return nil
}

func (t *Tree) DeleteNode(ctx context.Context, uri string) error {
	n, err := t.client.Del(ctx, t.key(uri)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNodeNotFound
	}
	return nil
}

func (t *Tree) Walk(ctx context.Context, prefix string, fn func(store.Node) error) error {
	var keys []string
	var cursor uint64
	pattern := escapeGlob(t.keyPrefix+prefix) + "*"

	for {
		batch, next, err := t.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("scan keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	// SCAN may return a key more than once
	sort.Strings(keys)
	keys = compact(keys)

	for _, key := range keys {
		data, err := t.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // deleted between SCAN and GET
		}
		if err != nil {
			return err
		}
		if err := fn(store.Node{URI: strings.TrimPrefix(key, t.keyPrefix), Data: data}); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) Close() error { return t.client.Close() }

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func compact(sorted []string) []string {
	out := sorted[:0]
	for i, k := range sorted {
		if i == 0 || k != sorted[i-1] {
			out = append(out, k)
		}
	}
	return out
}
