package tree

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"
)

// TreeState is the persisted open set of a tree. Only open nodes are
// recorded; every other node uses the default (closed).
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "open": {
//	    "src/pkg": true
//	  }
//	}
//
// A corrupted or missing state means defaults.
type TreeState struct {
	Version int             `json:"version"`
	Open    map[string]bool `json:"open"`
}

// TreeStateVersion is the current schema version.
const TreeStateVersion = 1

// DefaultTreeState returns an empty state.
func DefaultTreeState() *TreeState {
	return &TreeState{
		Version: TreeStateVersion,
		Open:    make(map[string]bool),
	}
}

// StateStore loads and saves a TreeState. Load returns (nil, nil) when
// nothing was saved yet.
type StateStore interface {
	Load() (*TreeState, error)
	Save(state *TreeState) error
}

// stateFileName is the default file name of a FileStore.
const stateFileName = "tree-state.json"

// StatePath returns the state file path inside dir (".vtree" when empty).
func StatePath(dir string) string {
	if dir == "" {
		dir = ".vtree"
	}
	return filepath.Join(dir, stateFileName)
}

// FileStore keeps the state in a JSON file.
type FileStore struct {
	Path string
}

// NewFileStore returns a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load() (*TreeState, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tree state: %w", err)
	}
	var state TreeState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse tree state %s: %w", s.Path, err)
	}
	return &state, nil
}

func (s *FileStore) Save(state *TreeState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tree state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("write tree state to %s: %w", s.Path, err)
	}
	return nil
}

var stateBucket = []byte("tree-state")

// BoltStore keeps states of several trees in one bbolt database, one key per
// tree.
type BoltStore struct {
	db  *bolt.DB
	key []byte
}

// OpenBoltStore opens (creating if needed) the database at path and returns
// a store for the tree identified by key.
func OpenBoltStore(path, key string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state db %s: %w", path, err)
	}
	return &BoltStore{db: db, key: []byte(key)}, nil
}

func (s *BoltStore) Load() (*TreeState, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(stateBucket)
		if b == nil {
			return nil
		}
		if v := b.Get(s.key); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, err
	}
	var state TreeState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse tree state %q: %w", s.key, err)
	}
	return &state, nil
}

func (s *BoltStore) Save(state *TreeState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal tree state: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(stateBucket)
		if err != nil {
			return err
		}
		return b.Put(s.key, data)
	})
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Snapshot returns the current open set. Nodes waiting for their children
// count as open, and restored keys whose nodes have not appeared yet are
// kept.
func (t *Tree) Snapshot() *TreeState {
	state := DefaultTreeState()
	seen := make(map[string]bool, len(t.nodes))
	for n, info := range t.nodes {
		if n == t.root {
			continue
		}
		k := t.key(n)
		seen[k] = true
		if info.state == StateOpen || info.state == StateTransitioning {
			state.Open[k] = true
		}
	}
	for k := range t.restored {
		if !seen[k] {
			state.Open[k] = true
		}
	}
	return state
}

// saveState persists the open set. Errors are logged and do not interrupt
// the caller.
func (t *Tree) saveState() {
	if t.store == nil || t.disposed {
		return
	}
	if err := t.store.Save(t.Snapshot()); err != nil {
		t.log.Warn().Err(err).Msg("failed to save tree state")
	}
}

// restoreState loads the persisted open set. Saved keys are applied as the
// matching nodes first become visible.
func (t *Tree) restoreState() {
	t.restored = nil
	if t.store == nil {
		return
	}
	state, err := t.store.Load()
	if err != nil {
		t.log.Warn().Err(err).Msg("invalid tree state, using defaults")
		return
	}
	if state == nil || len(state.Open) == 0 {
		return
	}
	t.restored = make(map[string]bool, len(state.Open))
	for k, open := range state.Open {
		if open {
			t.restored[k] = true
		}
	}
}

// applyRestored opens the rows of lt whose key was saved as open and that
// the tree has not seen yet. It reports whether the visible structure
// changed, in which case the caller flattens again.
func (t *Tree) applyRestored(lt *LookupTable) bool {
	if len(t.restored) == 0 {
		return false
	}
	changed := false
	for _, n := range lt.rows {
		if t.NodeState(n) != StateUnknown {
			continue
		}
		k := t.key(n)
		if !t.restored[k] {
			continue
		}
		delete(t.restored, k)
		if t.openNode(n) {
			changed = true
		}
	}
	return changed
}
