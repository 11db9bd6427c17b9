// Package badger provides a store.Tree backed by an embedded BadgerDB.
//
// Node URIs are used directly as keys, so prefix iteration yields nodes in
// ascending URI order.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/store"
)

// Config configures a BadgerDB-backed tree
type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string

	InMemory   bool
	SyncWrites bool

	// Logger receives Badger's internal logs; nil silences them
	Logger *zap.Logger

	// GCInterval is the value log GC period; zero disables it
	GCInterval     time.Duration
	GCDiscardRatio float64
}

// DefaultConfig returns durable settings for a persistent database
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns settings for a throwaway database
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type badgerLogger struct {
	sugar *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.sugar.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.sugar.Infof(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.sugar.Debugf(format, args...) }

// Tree is a store.Tree over BadgerDB
type Tree struct {
	db *badger.DB
	gc *gcRunner
}

var _ store.Tree = (*Tree)(nil)

// Open opens or creates the database described by cfg
func Open(cfg Config) (*Tree, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{sugar: cfg.Logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	t := &Tree{db: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		t.gc = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		t.gc.start()
	}
	return t, nil
}

func (t *Tree) GetNode(_ context.Context, uri string) (store.Node, bool, error) {
	var data []byte
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(uri))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.Node{}, false, nil
	}
	if err != nil {
		return store.Node{}, false, err
	}
	return store.Node{URI: uri, Data: data}, true, nil
}

func (t *Tree) CreateDataNode(_ context.Context, uri string, data []byte) error {
	return t.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(uri))
		if err == nil {
			return store.ErrNodeExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set([]byte(uri), data)
	})
}

func (t *Tree) UpdateDataNode(_ context.Context, uri string, data []byte) error {
	return t.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(uri)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrNodeNotFound
			}
			return err
		}
		return txn.Set([]byte(uri), data)
	})
}

func (t *Tree) DeleteNode(_ context.Context, uri string) error {
	return t.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(uri)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrNodeNotFound
			}
			return err
		}
		return txn.Delete([]byte(uri))
	})
}

func (t *Tree) Walk(ctx context.Context, prefix string, fn func(store.Node) error) error {
	var nodes []store.Node
	err := t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			nodes = append(nodes, store.Node{URI: string(item.KeyCopy(nil)), Data: data})
		}
		return nil
	})
	if err != nil {
		return err
	}

	// fn runs outside the read transaction so it may write back to the tree
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(n); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the GC runner and closes the database
func (t *Tree) Close() error {
	if t.gc != nil {
		t.gc.stop()
	}
	return t.db.Close()
}

type gcRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	logger   *zap.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func newGCRunner(db *badger.DB, interval time.Duration, ratio float64, logger *zap.Logger) *gcRunner {
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &gcRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (r *gcRunner) start() { go r.run() }

func (r *gcRunner) stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *gcRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			err := r.db.RunValueLogGC(r.ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				r.logger.Warn("badger value log GC error", zap.Error(err))
			}
		}
	}
}
