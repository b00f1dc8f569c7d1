// Package fsmodel exposes a directory tree as lazily loaded tree nodes and
// keeps open directories in sync with the disk.
package fsmodel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vanderheijden86/vtree/pkg/model"
)

// Entry is a file or directory node. Directories start unloaded; a Loader
// fills their children on first open.
type Entry struct {
	*model.Item
	path string
	rel  string
	dir  bool
}

// NewRoot returns the entry for path. The root's key is ".".
func NewRoot(path string) (*Entry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open tree root: %w", err)
	}
	return newEntry(abs, ".", filepath.Base(abs), info.IsDir()), nil
}

func newEntry(path, rel, name string, dir bool) *Entry {
	var it *model.Item
	if dir {
		it = model.NewDeferred(name)
	} else {
		it = model.NewLeaf(name)
	}
	return &Entry{Item: it.WithKey(rel), path: path, rel: rel, dir: dir}
}

// Path returns the absolute path.
func (e *Entry) Path() string { return e.path }

// Rel returns the slash-separated path relative to the root.
func (e *Entry) Rel() string { return e.rel }

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool { return e.dir }

func (e *Entry) child(d dirent) *Entry {
	rel := d.name
	if e.rel != "." {
		rel = e.rel + "/" + d.name
	}
	return newEntry(filepath.Join(e.path, d.name), rel, d.name, d.dir)
}

// dirent is one line of a directory listing.
type dirent struct {
	name string
	dir  bool
}

// scan lists dir with directories first, then by name.
func scan(dir string, showHidden bool) ([]dirent, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]dirent, 0, len(des))
	for _, de := range des {
		if !showHidden && strings.HasPrefix(de.Name(), ".") {
			continue
		}
		out = append(out, dirent{name: de.Name(), dir: de.IsDir()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].dir != out[j].dir {
			return out[i].dir
		}
		return out[i].name < out[j].name
	})
	return out, nil
}

// Loader reads directory entries for the tree's lazy loads.
type Loader struct {
	ShowHidden bool
}

// Load lists the directory behind n.
func (l Loader) Load(ctx context.Context, n model.Node) ([]model.Node, error) {
	e, ok := n.(*Entry)
	if !ok {
		return nil, fmt.Errorf("fsmodel: cannot load %T", n)
	}
	if !e.dir {
		return nil, nil
	}
	listing, err := scan(e.path, l.ShowHidden)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]model.Node, len(listing))
	for i, d := range listing {
		out[i] = e.child(d)
	}
	return out, nil
}

// Resync applies a fresh listing to the loaded children of e, keeping the
// nodes of unchanged entries. Vanished entries are removed and disposed and
// returned. Unloaded directories are left alone.
func Resync(e *Entry, listing []dirent) (removed []*Entry) {
	list := e.Children()
	if list == nil || e.Disposed() {
		return nil
	}
	want := make(map[string]bool, len(listing))
	for _, d := range listing {
		want[key(d)] = true
	}

	for i := list.Len() - 1; i >= 0; i-- {
		c, ok := list.At(i).(*Entry)
		if ok && want[key(dirent{name: c.Label(), dir: c.dir})] {
			continue
		}
		list.RemoveAt(i)
		if ok {
			removed = append(removed, c)
			c.Dispose()
		}
	}

	for i, d := range listing {
		if c, ok := list.At(i).(*Entry); ok && c.Label() == d.name && c.dir == d.dir {
			continue
		}
		list.Insert(i, e.child(d))
	}
	return removed
}

func key(d dirent) string {
	if d.dir {
		return d.name + "/"
	}
	return d.name
}
