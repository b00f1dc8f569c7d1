package tree

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vanderheijden86/vtree/pkg/model"
)

// DefaultPoolSize is the number of row widgets when WithPoolSize is not
// given.
const DefaultPoolSize = 20

// defaultRebuildAttempts bounds the restarts after a structural race.
const defaultRebuildAttempts = 3

// Option configures a Tree.
type Option func(*Tree)

// WithPoolSize sets the number of row widgets (the viewport height in rows).
func WithPoolSize(n int) Option {
	return func(t *Tree) {
		if n > 0 {
			t.poolSize = n
		}
	}
}

// WithLoader enables lazy loading of nodes whose children are nil.
func WithLoader(l Loader) Option {
	return func(t *Tree) { t.loader = l }
}

// WithScheduler sets where deferred work runs. Without it the tree owns a
// private queue that Flush drains.
func WithScheduler(s Scheduler) Option {
	return func(t *Tree) { t.sched = s }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Tree) { t.log = l }
}

// WithHideRoot hides the root row; the root is then always open.
func WithHideRoot(hide bool) Option {
	return func(t *Tree) { t.hideRoot = hide }
}

// WithConfigureItem registers a delegate called once per widget after the
// tree wired its own handlers.
func WithConfigureItem(fn func(Renderer)) Option {
	return func(t *Tree) { t.configureItem = fn }
}

// WithItemFactory replaces the default RowItem widgets.
func WithItemFactory(fn func() Renderer) Option {
	return func(t *Tree) { t.factory = fn }
}

// WithLabel sets how a node's row label is derived.
func WithLabel(fn func(model.Node) string) Option {
	return func(t *Tree) { t.label = fn }
}

// WithKey sets the persistence key of a node.
func WithKey(fn func(model.Node) string) Option {
	return func(t *Tree) { t.key = fn }
}

// WithStateStore persists the open set on every open/close and restores it
// when a model is attached.
func WithStateStore(s StateStore) Option {
	return func(t *Tree) { t.store = s }
}

// NodeKey returns the Keyed key of n, or its identity when n has no
// non-empty key. Identity keys do not survive a restart.
func NodeKey(n model.Node) string {
	if k, ok := n.(model.Keyed); ok {
		if key := k.Key(); key != "" {
			return key
		}
	}
	return fmt.Sprintf("%p", n)
}

func nodeLabel(n model.Node) string {
	return n.Label()
}
