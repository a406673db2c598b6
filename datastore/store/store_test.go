package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/damianoneill/ncstore/datastore/model"
	"github.com/damianoneill/ncstore/internal/testschema"
	"github.com/damianoneill/ncstore/schema"

	assert "github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	libraryPath schema.Path = "/library"
	bookPath    schema.Path = "/library/book"
	drmPath     schema.Path = "/library/book/drm"
	memberPath  schema.Path = "/library/member"
)

var (
	qTitle  = testschema.Q("title")
	qYear   = testschema.Q("year")
	qAuthor = testschema.Q("author")
)

type fixture struct {
	reg   *schema.Registry
	store *Store
	lib   *model.ConfigNode
}

func newFixture(ctx context.Context, t *testing.T) *fixture {
	reg := testschema.Library()
	f := &fixture{reg: reg, store: New(ctx, "running", reg)}
	f.lib = f.node(t, libraryPath, model.RootID, model.EmptyKey)
	assert.NoError(t, f.store.CreateNode(f.lib, model.RootID, Append))
	return f
}

func (f *fixture) node(t *testing.T, p schema.Path, parent model.NodeID, key model.NodeKey) *model.ConfigNode {
	sn, ok := f.reg.Node(p)
	assert.True(t, ok, "schema path %s", p)
	return model.NewConfigNode(sn, parent, key)
}

func (f *fixture) bookKey(t *testing.T, title string) model.NodeKey {
	k, err := model.NewNodeKey(f.reg, bookPath, map[schema.QName]model.LeafValue{qTitle: model.StringValue(title)})
	assert.NoError(t, err)
	return k
}

func (f *fixture) addBook(t *testing.T, title string, insertIndex int) *model.ConfigNode {
	b := f.node(t, bookPath, f.lib.ID, f.bookKey(t, title))
	assert.NoError(t, f.store.CreateNode(b, f.lib.ID, insertIndex))
	return b
}

func (f *fixture) titles(t *testing.T) []string {
	books, ok, err := f.store.ListChildNodes(bookPath, f.lib.ID)
	assert.NoError(t, err)
	assert.True(t, ok)
	out := []string{}
	for _, b := range books {
		out = append(out, b.Attributes[qTitle].Value)
	}
	return out
}

func TestCreateNodeOverwritesSilently(t *testing.T) {
	var overwrites int
	ctx := WithTrace(context.Background(), &Trace{
		Created: func(ds string, n *model.ConfigNode, overwritten bool) {
			if overwritten {
				overwrites++
			}
		},
	})
	f := newFixture(ctx, t)

	first := f.addBook(t, "Dune", Append)
	first.Attributes[qYear] = model.StringValue("1965")
	f.addBook(t, "Emma", Append)

	second := f.node(t, bookPath, f.lib.ID, f.bookKey(t, "Dune"))
	second.Attributes[qYear] = model.StringValue("1966")
	assert.NoError(t, f.store.CreateNode(second, f.lib.ID, Append))
	assert.Equal(t, 1, overwrites)

	got, err := f.store.FindNode(bookPath, f.bookKey(t, "Dune"), f.lib.ID)
	assert.NoError(t, err)
	assert.Equal(t, "1966", got.Attributes[qYear].Value)

	// The replaced node keeps its slot; the index holds a single entry for it.
	assert.Equal(t, []string{"Dune", "Emma"}, f.titles(t))
	nodes, _ := f.store.Size()
	assert.Equal(t, 3, nodes)
}

func TestNodesAreCopies(t *testing.T) {
	f := newFixture(context.Background(), t)
	b := f.addBook(t, "Dune", Append)
	b.Attributes[qYear] = model.StringValue("1965")

	got, err := f.store.FindNode(bookPath, b.Key, f.lib.ID)
	assert.NoError(t, err)
	_, ok := got.Attributes[qYear]
	assert.False(t, ok, "caller mutation after create must not leak into the store")

	got.Attributes[qYear] = model.StringValue("2000")
	again, _ := f.store.FindNode(bookPath, b.Key, f.lib.ID)
	_, ok = again.Attributes[qYear]
	assert.False(t, ok)
}

func TestFindNodeAbsent(t *testing.T) {
	f := newFixture(context.Background(), t)
	got, err := f.store.FindNode(bookPath, f.bookKey(t, "Missing"), f.lib.ID)
	assert.NoError(t, err)
	assert.Nil(t, got)

	nodes, err := f.store.ListNodes(memberPath)
	assert.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestListNodes(t *testing.T) {
	f := newFixture(context.Background(), t)
	f.addBook(t, "Dune", Append)
	f.addBook(t, "Emma", Append)

	roots, err := f.store.ListNodes(libraryPath)
	assert.NoError(t, err)
	assert.Len(t, roots, 1)
	assert.True(t, roots[0].ID.Equal(f.lib.ID))

	books, err := f.store.ListNodes(bookPath)
	assert.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestNoIndexVersusEmpty(t *testing.T) {
	f := newFixture(context.Background(), t)

	// Never touched.
	books, ok, err := f.store.ListChildNodes(bookPath, f.lib.ID)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, books)

	b := f.addBook(t, "Dune", Append)
	assert.NoError(t, f.store.RemoveNode(b, f.lib.ID))

	// Created then emptied.
	books, ok, err = f.store.ListChildNodes(bookPath, f.lib.ID)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, books)
	assert.Empty(t, books)

	// The index exists per parent, so other child types of the same parent read empty too.
	members, ok, err := f.store.ListChildNodes(memberPath, f.lib.ID)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, members)
}

func TestRootNodesAreNotIndexed(t *testing.T) {
	f := newFixture(context.Background(), t)
	_, ok, err := f.store.ListChildNodes(libraryPath, model.RootID)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestInsertIndexLenientAppend(t *testing.T) {
	f := newFixture(context.Background(), t)
	f.addBook(t, "A", Append)
	f.addBook(t, "B", Append)
	f.addBook(t, "C", 10)
	f.addBook(t, "D", 0)
	f.addBook(t, "E", -5)
	f.addBook(t, "F", 2)
	f.addBook(t, "G", 6)

	assert.Equal(t, []string{"D", "A", "F", "B", "C", "E", "G"}, f.titles(t))
}

func TestMoveNode(t *testing.T) {
	f := newFixture(context.Background(), t)
	a := f.addBook(t, "A", Append)
	f.addBook(t, "B", Append)
	c := f.addBook(t, "C", Append)

	assert.NoError(t, f.store.MoveNode(c, f.lib.ID, 0))
	assert.Equal(t, []string{"C", "A", "B"}, f.titles(t))

	assert.NoError(t, f.store.MoveNode(a, f.lib.ID, Append))
	assert.Equal(t, []string{"C", "B", "A"}, f.titles(t))

	// Moving forward lands in front of the sibling that held the index.
	assert.NoError(t, f.store.MoveNode(c, f.lib.ID, 2))
	assert.Equal(t, []string{"B", "C", "A"}, f.titles(t))

	missing := f.node(t, bookPath, f.lib.ID, f.bookKey(t, "Z"))
	assert.NoError(t, f.store.MoveNode(missing, f.lib.ID, 0))
	assert.Equal(t, []string{"B", "C", "A"}, f.titles(t))
}

func TestFindNodesPartialKey(t *testing.T) {
	f := newFixture(context.Background(), t)
	for _, name := range [][2]string{{"Smith", "John"}, {"Smith", "Jane"}, {"Doe", "John"}} {
		k, err := model.NewNodeKey(f.reg, memberPath, map[schema.QName]model.LeafValue{
			testschema.Q("first-name"): model.StringValue(name[1]),
			testschema.Q("last-name"):  model.StringValue(name[0]),
		})
		assert.NoError(t, err)
		assert.NoError(t, f.store.CreateNode(f.node(t, memberPath, f.lib.ID, k), f.lib.ID, Append))
	}

	smiths, err := f.store.FindNodes(memberPath, map[schema.QName]model.LeafValue{
		testschema.Q("last-name"): model.StringValue("Smith"),
	}, f.lib.ID)
	assert.NoError(t, err)
	assert.Len(t, smiths, 2)

	johns, err := f.store.FindNodes(memberPath, map[schema.QName]model.LeafValue{
		testschema.Q("first-name"): model.StringValue("John"),
	}, f.lib.ID)
	assert.NoError(t, err)
	assert.Len(t, johns, 2)

	all, err := f.store.FindNodes(memberPath, nil, f.lib.ID)
	assert.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := f.store.FindNodes(memberPath, map[schema.QName]model.LeafValue{
		testschema.Q("email"): model.StringValue("x@example.com"),
	}, f.lib.ID)
	assert.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateNode(t *testing.T) {
	f := newFixture(context.Background(), t)
	b := f.addBook(t, "Dune", Append)

	err := f.store.UpdateNode(b, f.lib.ID,
		map[schema.QName]model.LeafValue{qYear: model.StringValue("1965")},
		map[schema.QName][]model.LeafValue{qAuthor: {model.StringValue("Herbert")}}, Append, false)
	assert.NoError(t, err)

	// A stale caller copy does not overwrite the stored node.
	stale := b.Clone()
	stale.Attributes[testschema.Q("isbn")] = model.StringValue("stale")
	err = f.store.UpdateNode(stale, f.lib.ID, nil,
		map[schema.QName][]model.LeafValue{qAuthor: {model.StringValue("Anderson"), model.StringValue("Herbert")}}, 0, false)
	assert.NoError(t, err)

	got, _ := f.store.FindNode(bookPath, b.Key, f.lib.ID)
	assert.Equal(t, "1965", got.Attributes[qYear].Value)
	_, ok := got.Attributes[testschema.Q("isbn")]
	assert.False(t, ok)
	assert.Equal(t, []model.LeafValue{model.StringValue("Anderson"), model.StringValue("Herbert")}, got.LeafLists[qAuthor])

	// Unset removes the leaf entirely; remove drops leaf-list members.
	err = f.store.UpdateNode(b, f.lib.ID,
		map[schema.QName]model.LeafValue{qYear: model.Unset},
		map[schema.QName][]model.LeafValue{qAuthor: {model.StringValue("Anderson"), model.StringValue("Herbert")}}, Append, true)
	assert.NoError(t, err)
	got, _ = f.store.FindNode(bookPath, b.Key, f.lib.ID)
	_, ok = got.Attributes[qYear]
	assert.False(t, ok)
	_, ok = got.LeafLists[qAuthor]
	assert.False(t, ok)

	// Absent nodes are left alone.
	missing := f.node(t, bookPath, f.lib.ID, f.bookKey(t, "Missing"))
	assert.NoError(t, f.store.UpdateNode(missing, f.lib.ID, map[schema.QName]model.LeafValue{qYear: model.StringValue("1")}, nil, Append, false))
	got, _ = f.store.FindNode(bookPath, missing.Key, f.lib.ID)
	assert.Nil(t, got)
}

func TestAddValuesPositions(t *testing.T) {
	v := func(s ...string) []model.LeafValue {
		out := []model.LeafValue{}
		for _, e := range s {
			out = append(out, model.StringValue(e))
		}
		return out
	}
	tests := []struct {
		members []model.LeafValue
		values  []model.LeafValue
		index   int
		want    []model.LeafValue
	}{
		{v("a", "b"), v("c"), Append, v("a", "b", "c")},
		{v("a", "b"), v("a"), Append, v("a", "b")},
		{v("a", "b"), v("c"), 0, v("c", "a", "b")},
		{v("a", "b"), v("c"), 1, v("a", "c", "b")},
		{v("a", "b"), v("c"), 9, v("a", "b", "c")},
		{v("a", "b", "c"), v("a"), 2, v("b", "a", "c")},
		{v("a", "b", "c"), v("c"), 0, v("c", "a", "b")},
		{v("a", "b"), v("x", "y"), 1, v("a", "x", "y", "b")},
	}
	for i, tc := range tests {
		assert.Equal(t, tc.want, addValues(tc.members, tc.values, tc.index), "case %d", i)
	}
}

func TestRemoveNodeCascades(t *testing.T) {
	var removed []string
	ctx := WithTrace(context.Background(), &Trace{
		Removed: func(ds string, id model.NodeID) { removed = append(removed, id.String()) },
	})
	f := newFixture(ctx, t)
	dune := f.addBook(t, "Dune", Append)
	emma := f.addBook(t, "Emma", Append)
	drm := f.node(t, drmPath, dune.ID, model.EmptyKey)
	assert.NoError(t, f.store.CreateNode(drm, dune.ID, Append))

	assert.NoError(t, f.store.RemoveNode(dune, f.lib.ID))
	assert.Len(t, removed, 2)

	drms, err := f.store.ListNodes(drmPath)
	assert.NoError(t, err)
	assert.Empty(t, drms)
	_, ok, err := f.store.ListChildNodes(drmPath, dune.ID)
	assert.NoError(t, err)
	assert.False(t, ok, "the removed node's own index is dropped")
	assert.Equal(t, []string{"Emma"}, f.titles(t))

	// Removing the root leaves nothing behind.
	assert.NoError(t, f.store.RemoveNode(f.lib, model.RootID))
	nodes, indexes := f.store.Size()
	assert.Zero(t, nodes)
	assert.Zero(t, indexes)
	_, ok, _ = f.store.ListChildNodes(bookPath, f.lib.ID)
	assert.False(t, ok)
	got, _ := f.store.FindNode(bookPath, emma.Key, f.lib.ID)
	assert.Nil(t, got)

	// Removing an absent node is not an error.
	assert.NoError(t, f.store.RemoveNode(dune, f.lib.ID))
}

func TestRemoveAllNodes(t *testing.T) {
	f := newFixture(context.Background(), t)
	f.addBook(t, "Dune", Append)
	f.addBook(t, "Emma", Append)
	k, err := model.NewNodeKey(f.reg, memberPath, map[schema.QName]model.LeafValue{
		testschema.Q("last-name"):  model.StringValue("Doe"),
		testschema.Q("first-name"): model.StringValue("Jane"),
	})
	assert.NoError(t, err)
	assert.NoError(t, f.store.CreateNode(f.node(t, memberPath, f.lib.ID, k), f.lib.ID, Append))

	assert.NoError(t, f.store.RemoveAllNodes(f.lib, bookPath, model.RootID))
	assert.Empty(t, f.titles(t))
	members, _, _ := f.store.ListChildNodes(memberPath, f.lib.ID)
	assert.Len(t, members, 1)

	// The parent must be stored below the given grandparent.
	assert.NoError(t, f.store.RemoveAllNodes(f.lib, memberPath, f.lib.ID))
	members, _, _ = f.store.ListChildNodes(memberPath, f.lib.ID)
	assert.Len(t, members, 1)
}

func TestStructuralErrors(t *testing.T) {
	var reported []string
	ctx := WithTrace(context.Background(), &Trace{
		Error: func(ds, op string, err error) { reported = append(reported, op) },
	})
	f := newFixture(ctx, t)

	_, err := f.store.ListNodes("/library/shelf")
	var serr *Error
	assert.True(t, errors.As(err, &serr))
	assert.Equal(t, schema.Path("/library/shelf"), serr.Path)
	assert.Equal(t, "datastore running: ListNodes /library/shelf: unknown schema path", err.Error())

	_, _, err = f.store.ListChildNodes("/library/name", f.lib.ID)
	assert.Error(t, err, "leaves are not stored as nodes")

	// Id that does not descend from the parent.
	b := f.node(t, bookPath, f.lib.ID, f.bookKey(t, "Dune"))
	err = f.store.CreateNode(b, model.RootID, Append)
	assert.True(t, errors.As(err, &serr))

	// Key that does not fit the list.
	bad := f.node(t, bookPath, f.lib.ID, model.EmptyKey)
	assert.Error(t, f.store.CreateNode(bad, f.lib.ID, Append))

	assert.Error(t, f.store.CreateNode(nil, f.lib.ID, Append))
	assert.Error(t, f.store.RemoveNode(nil, f.lib.ID))
	assert.Equal(t, []string{"ListNodes", "ListChildNodes", "CreateNode", "CreateNode", "CreateNode", "RemoveNode"}, reported)
}

func TestConcurrentReaders(t *testing.T) {
	f := newFixture(context.Background(), t)
	const books = 200

	nodes := make([]*model.ConfigNode, books)
	for i := range nodes {
		nodes[i] = f.node(t, bookPath, f.lib.ID, f.bookKey(t, fmt.Sprintf("book-%03d", i)))
	}

	var g errgroup.Group
	g.Go(func() error {
		for i, b := range nodes {
			if err := f.store.CreateNode(b, f.lib.ID, Append); err != nil {
				return err
			}
			if i%2 == 1 {
				if err := f.store.RemoveNode(b, f.lib.ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	for r := 0; r < 4; r++ {
		g.Go(func() error {
			for i := 0; i < books; i++ {
				if _, _, err := f.store.ListChildNodes(bookPath, f.lib.ID); err != nil {
					return err
				}
				if _, err := f.store.ListNodes(bookPath); err != nil {
					return err
				}
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())
	assert.Len(t, f.titles(t), books/2)
}
