package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/vtree/pkg/config"
	"github.com/vanderheijden86/vtree/pkg/fsmodel"
	"github.com/vanderheijden86/vtree/pkg/model"
	"github.com/vanderheijden86/vtree/pkg/sqlmodel"
	"github.com/vanderheijden86/vtree/pkg/tree"
)

// source is the tree a command works on: a directory or a node table.
type source struct {
	title  string
	root   model.Node
	loader tree.Loader
	dir    bool   // Root is a directory entry
	key    string // Identifies the tree in shared state stores
	pathOf func(model.Node) string
	close  func() error
}

// openSource opens dbPath when set and the directory dir otherwise.
func openSource(ctx context.Context, dir, dbPath string, cfg *config.Config) (*source, error) {
	if dbPath != "" {
		store, err := sqlmodel.Open(dbPath)
		if err != nil {
			return nil, err
		}
		root, err := store.Root(ctx)
		if err != nil {
			_ = store.Close()
			if errors.Is(err, sqlmodel.ErrNotFound) {
				return nil, fmt.Errorf("%s has no nodes; run 'vtree db seed' first", dbPath)
			}
			return nil, err
		}
		abs, _ := filepath.Abs(dbPath)
		return &source{
			title:  filepath.Base(dbPath),
			root:   root,
			loader: store,
			key:    "db:" + abs,
			pathOf: func(n model.Node) string { return n.Label() },
			close:  store.Close,
		}, nil
	}

	root, err := fsmodel.NewRoot(dir)
	if err != nil {
		return nil, err
	}
	return &source{
		title:  root.Path(),
		root:   root,
		loader: fsmodel.Loader{ShowHidden: cfg.ShowHidden},
		dir:    root.IsDir(),
		key:    root.Path(),
		pathOf: func(n model.Node) string {
			if e, ok := n.(*fsmodel.Entry); ok {
				return e.Path()
			}
			return n.Label()
		},
		close: func() error { return nil },
	}, nil
}

// stateStore returns where the open set of src is persisted, or nil when
// persistence is off. projectRoot holds the .vtree directory.
func stateStore(cfg *config.Config, projectRoot string, src *source) (tree.StateStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.State.Backend {
	case config.BackendNone:
		return nil, noop, nil
	case config.BackendBolt:
		s, err := tree.OpenBoltStore(cfg.StatePath(projectRoot), src.key)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	}

	path := cfg.StatePath(projectRoot)
	if src.key != projectRoot {
		// One JSON file per browsed tree.
		name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(strings.TrimPrefix(src.key, projectRoot))
		path = filepath.Join(projectRoot, config.DirName, "state", strings.Trim(name, "_")+".json")
	}
	return tree.NewFileStore(path), noop, nil
}
