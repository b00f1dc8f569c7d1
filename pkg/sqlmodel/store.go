// Package sqlmodel stores a tree in SQLite and loads it lazily, one
// children list per query.
package sqlmodel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite" // enable the "sqlite" SQL driver

	"github.com/vanderheijden86/vtree/pkg/model"
)

// Store is a SQLite-backed node table.
type Store struct {
	db *sql.DB
}

// Record is one row of the nodes table.
type Record struct {
	ID       int64
	ParentID int64 // 0 for top-level nodes
	Position int
	Label    string
	Leaf     bool
}

var migrations = []string{
	`create table if not exists nodes (
		id integer primary key autoincrement,
		parent_id integer references nodes(id) on delete cascade,
		position integer not null,
		label text not null,
		leaf integer not null default 0
	)`,
	`create index if not exists nodes_parent on nodes(parent_id, position)`,
}

// Open opens (creating if needed) the database at path. Use ":memory:" for a
// throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases alive and serializes writes.
	db.SetMaxOpenConns(1)
	return NewStoreDB(db)
}

// NewStoreDB creates a Store on an open database and migrates it.
func NewStoreDB(db *sql.DB) (*Store, error) {
	for i, q := range migrations {
		if _, err := db.Exec(q); err != nil {
			return nil, fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add appends a node under parent (0 for top level) and returns its id.
func (s *Store) Add(ctx context.Context, parent int64, label string, leaf bool) (int64, error) {
	var id int64
	err := transaction(ctx, s.db, func(tx *sql.Tx) error {
		var pos int
		row := tx.QueryRowContext(ctx,
			"select coalesce(max(position) + 1, 0) from nodes where parent_id is ?", nullID(parent))
		if err := row.Scan(&pos); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"insert into nodes (parent_id, position, label, leaf) values (?, ?, ?, ?)",
			nullID(parent), pos, label, leaf)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("add %q: %w", label, err)
	}
	return id, nil
}

// Children returns the children of parent (0 for top level) in position
// order.
func (s *Store) Children(ctx context.Context, parent int64) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"select id, coalesce(parent_id, 0), position, label, leaf from nodes where parent_id is ? order by position",
		nullID(parent))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return convertRecords(rows)
}

// Get returns the record with id.
func (s *Store) Get(ctx context.Context, id int64) (Record, error) {
	var r Record
	err := s.db.QueryRowContext(ctx,
		"select id, coalesce(parent_id, 0), position, label, leaf from nodes where id = ?", id).
		Scan(&r.ID, &r.ParentID, &r.Position, &r.Label, &r.Leaf)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	return r, err
}

// Count returns the number of stored nodes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "select count(*) from nodes").Scan(&n)
	return n, err
}

// Root returns the first top-level node as a tree node.
func (s *Store) Root(ctx context.Context) (*Node, error) {
	top, err := s.Children(ctx, 0)
	if err != nil {
		return nil, err
	}
	if len(top) == 0 {
		return nil, ErrNotFound
	}
	return NewNode(top[0]), nil
}

// ErrNotFound is returned when a node or root does not exist.
var ErrNotFound = errors.New("not found")

func convertRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.ParentID, &r.Position, &r.Label, &r.Leaf); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// transaction creates a Tx and calls f on it. It commits or rolls back
// depending on whether f succeeded.
func transaction(ctx context.Context, db *sql.DB, f func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Node is a tree node backed by a row. Its children are loaded by Load.
type Node struct {
	*model.Item
	ID int64
}

// NewNode returns an unloaded node for r.
func NewNode(r Record) *Node {
	var it *model.Item
	if r.Leaf {
		it = model.NewLeaf(r.Label)
	} else {
		it = model.NewDeferred(r.Label)
	}
	return &Node{Item: it.WithKey(strconv.FormatInt(r.ID, 10)), ID: r.ID}
}

// Load implements the tree's Loader: it queries the children of n.
func (s *Store) Load(ctx context.Context, n model.Node) ([]model.Node, error) {
	sn, ok := n.(*Node)
	if !ok {
		return nil, fmt.Errorf("sqlmodel: cannot load %T", n)
	}
	recs, err := s.Children(ctx, sn.ID)
	if err != nil {
		return nil, fmt.Errorf("load children of %d: %w", sn.ID, err)
	}
	out := make([]model.Node, len(recs))
	for i, r := range recs {
		out[i] = NewNode(r)
	}
	return out, nil
}

// Seed fills an empty store with a root and fanout children per node down
// to depth levels, and returns the number of nodes written.
func (s *Store) Seed(ctx context.Context, depth, fanout int) (int, error) {
	if n, err := s.Count(ctx); err != nil {
		return 0, err
	} else if n > 0 {
		return 0, fmt.Errorf("seed: store already has %d nodes", n)
	}
	rootID, err := s.Add(ctx, 0, "root", depth == 0)
	if err != nil {
		return 0, err
	}
	written := 1
	var grow func(parent int64, label string, level int) error
	grow = func(parent int64, label string, level int) error {
		if level >= depth {
			return nil
		}
		for i := 0; i < fanout; i++ {
			childLabel := fmt.Sprintf("%s.%d", label, i)
			if label == "root" {
				childLabel = strconv.Itoa(i)
			}
			id, err := s.Add(ctx, parent, childLabel, level+1 == depth)
			if err != nil {
				return err
			}
			written++
			if err := grow(id, childLabel, level+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := grow(rootID, "root", 0); err != nil {
		return written, err
	}
	return written, nil
}
