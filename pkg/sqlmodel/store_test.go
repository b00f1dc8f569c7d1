package sqlmodel

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/vtree/pkg/tree"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nodes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddAndChildren(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	root, err := s.Add(ctx, 0, "root", false)
	require.NoError(t, err)
	a, err := s.Add(ctx, root, "a", false)
	require.NoError(t, err)
	_, err = s.Add(ctx, root, "b", true)
	require.NoError(t, err)
	_, err = s.Add(ctx, a, "a1", true)
	require.NoError(t, err)

	kids, err := s.Children(ctx, root)
	require.NoError(t, err)
	require.Len(t, kids, 2)
	assert.Equal(t, "a", kids[0].Label)
	assert.Equal(t, 0, kids[0].Position)
	assert.Equal(t, "b", kids[1].Label)
	assert.Equal(t, 1, kids[1].Position)
	assert.True(t, kids[1].Leaf)
	assert.Equal(t, root, kids[0].ParentID)

	top, err := s.Children(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(0), top[0].ParentID)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := s.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Label)

	_, err = s.Get(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRootOfEmptyStore(t *testing.T) {
	_, err := openStore(t).Root(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	n, err := s.Seed(ctx, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 1+3+9, n)

	_, err = s.Seed(ctx, 1, 1)
	assert.Error(t, err, "seeding twice should fail")
}

func TestTreeLoadsFromStore(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	_, err := s.Seed(ctx, 2, 2)
	require.NoError(t, err)

	root, err := s.Root(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", root.Key())

	tr := tree.New(tree.WithPoolSize(10), tree.WithLoader(s))
	tr.SetModel(root)
	tr.Wait()
	tr.Flush()
	assert.Equal(t, []string{"root", "0", "1"}, tr.LookupTable().Labels())

	first := tr.LookupTable().At(1)
	require.NoError(t, tr.OpenNode(first))
	tr.Wait()
	tr.Flush()
	assert.Equal(t, "root,0,0.0,0.1,1", strings.Join(tr.LookupTable().Labels(), ","))

	// Seeded leaves are not openable.
	assert.False(t, tr.RowState(2).Openable)
}
