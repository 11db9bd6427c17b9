// Package sqlite provides a store.Tree backed by a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/GriffinCanCode/AgentOS/push/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	uri  TEXT PRIMARY KEY,
	data BLOB NOT NULL
);`

// Tree is a store.Tree over SQLite
type Tree struct {
	db *sql.DB
}

var _ store.Tree = (*Tree)(nil)

// Open opens the database at path; ":memory:" yields a private in-memory database
func Open(path string) (*Tree, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a pooled :memory: connection would see its own empty database
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Tree{db: db}, nil
}

func (t *Tree) GetNode(ctx context.Context, uri string) (store.Node, bool, error) {
	var data []byte
	err := t.db.QueryRowContext(ctx, `SELECT data FROM nodes WHERE uri=?`, uri).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Node{}, false, nil
	}
	if err != nil {
		return store.Node{}, false, err
	}
	return store.Node{URI: uri, Data: data}, true, nil
}

func (t *Tree) CreateDataNode(ctx context.Context, uri string, data []byte) error {
	res, err := t.db.ExecContext(ctx, `INSERT INTO nodes(uri, data) VALUES(?, ?) ON CONFLICT(uri) DO NOTHING`, uri, nonNil(data))
	if err != nil {
		return err
	}
	return expectOne(res, store.ErrNodeExists)
}

func (t *Tree) UpdateDataNode(ctx context.Context, uri string, data []byte) error {
	res, err := t.db.ExecContext(ctx, `UPDATE nodes SET data=? WHERE uri=?`, nonNil(data), uri)
	if err != nil {
		return err
	}
	return expectOne(res, store.ErrNodeNotFound)
}

func (t *Tree) DeleteNode(ctx context.Context, uri string) error {
	res, err := t.db.ExecContext(ctx, `DELETE FROM nodes WHERE uri=?`, uri)
	if err != nil {
		return err
	}
	return expectOne(res, store.ErrNodeNotFound)
}

func (t *Tree) Walk(ctx context.Context, prefix string, fn func(store.Node) error) error {
	// BINARY collation orders like Go byte comparison, so the prefix range
	// is contiguous from prefix onward
	rows, err := t.db.QueryContext(ctx, `SELECT uri, data FROM nodes WHERE uri >= ? ORDER BY uri`, prefix)
	if err != nil {
		return err
	}

	var nodes []store.Node
	for rows.Next() {
		var n store.Node
		if err := rows.Scan(&n.URI, &n.Data); err != nil {
			rows.Close()
			return err
		}
		if !strings.HasPrefix(n.URI, prefix) {
			break
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	// the single pooled connection must be free before fn touches the tree
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

func (t *Tree) Close() error { return t.db.Close() }

func expectOne(res sql.Result, zero error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return zero
	}
	return nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
