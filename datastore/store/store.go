package store

import (
	"context"
	"sort"
	"sync"

	"github.com/damianoneill/ncstore/datastore/model"
	"github.com/damianoneill/ncstore/schema"
)

// Append is the insert index that places a child or value at the end of its list.
const Append = -1

// Store holds one configuration tree in memory.
//
// Nodes live in per-schema-path buckets keyed by (NodeKey, parent id); a separate child index
// records, for each parent, the ordered children of every type. Single operations on a bucket or a
// child list are atomic. Sequences of operations are not: CreateNode writes the bucket and then the
// child index, UpdateNode reads and then merges. Callers serialise writers (see datastore.Datastore);
// readers are never blocked by an edit in progress and may observe it partially applied.
//
// Nodes handed to and returned from a Store are copies.
type Store struct {
	name   string
	oracle schema.Oracle
	trace  *Trace

	bmu     sync.RWMutex
	buckets map[schema.Path]*bucket

	imu      sync.RWMutex
	children map[string]*childIndex
}

type bucket struct {
	mu    sync.RWMutex
	nodes map[model.BucketKey]*model.ConfigNode
}

type childIndex struct {
	mu     sync.RWMutex
	byType map[schema.Path][]model.NodeKey
}

// New delivers an empty Store named name, e.g. "running".
func New(ctx context.Context, name string, oracle schema.Oracle) *Store {
	return &Store{
		name:     name,
		oracle:   oracle,
		trace:    ContextTrace(ctx),
		buckets:  map[schema.Path]*bucket{},
		children: map[string]*childIndex{},
	}
}

// Name delivers the datastore name.
func (s *Store) Name() string {
	return s.name
}

// Oracle delivers the schema the store was built with.
func (s *Store) Oracle() schema.Oracle {
	return s.oracle
}

// ListNodes delivers every stored instance of the type at p, in no particular order.
func (s *Store) ListNodes(p schema.Path) ([]*model.ConfigNode, error) {
	if _, err := s.dataNode("ListNodes", p); err != nil {
		return nil, err
	}
	b := s.bucket(p, false)
	if b == nil {
		return nil, nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*model.ConfigNode, 0, len(b.nodes))
	for _, n := range b.nodes {
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Key() < out[j].ID.Key() })
	return out, nil
}

// ListChildNodes delivers the ordered children of type p directly below parent. The boolean result
// is false when no child index was ever created for parent; once created the index survives the
// removal of its last child and an empty, non-nil slice is returned.
func (s *Store) ListChildNodes(p schema.Path, parent model.NodeID) ([]*model.ConfigNode, bool, error) {
	if _, err := s.dataNode("ListChildNodes", p); err != nil {
		return nil, false, err
	}
	idx := s.childIndex(parent, false)
	if idx == nil {
		return nil, false, nil
	}
	idx.mu.RLock()
	keys := append([]model.NodeKey(nil), idx.byType[p]...)
	idx.mu.RUnlock()

	out := make([]*model.ConfigNode, 0, len(keys))
	b := s.bucket(p, false)
	if b == nil {
		return out, true, nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, k := range keys {
		// A concurrent writer may have indexed a node not yet visible in the bucket, or the reverse.
		if n, ok := b.nodes[model.NewBucketKey(k, parent)]; ok {
			out = append(out, n.Clone())
		}
	}
	return out, true, nil
}

// FindNode delivers the node of type p with key below parent, or nil.
func (s *Store) FindNode(p schema.Path, key model.NodeKey, parent model.NodeID) (*model.ConfigNode, error) {
	if _, err := s.dataNode("FindNode", p); err != nil {
		return nil, err
	}
	return s.findNode(p, key, parent), nil
}

func (s *Store) findNode(p schema.Path, key model.NodeKey, parent model.NodeID) *model.ConfigNode {
	b := s.bucket(p, false)
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nodes[model.NewBucketKey(key, parent)].Clone()
}

// FindNodes delivers the children of type p below parent whose attributes hold every value in
// criteria. criteria may name a subset of the list keys, or non-key leaves.
func (s *Store) FindNodes(p schema.Path, criteria map[schema.QName]model.LeafValue, parent model.NodeID) ([]*model.ConfigNode, error) {
	var nodes []*model.ConfigNode
	var err error
	if parent.IsRoot() {
		// Top level nodes are not indexed.
		nodes, err = s.ListNodes(p)
	} else {
		nodes, _, err = s.ListChildNodes(p, parent)
	}
	if err != nil {
		return nil, err
	}
	var out []*model.ConfigNode
	for _, n := range nodes {
		if n.ParentID.Equal(parent) && n.Matches(criteria) {
			out = append(out, n)
		}
	}
	return out, nil
}

// CreateNode stores node below parent and indexes it at insertIndex among its siblings of the
// same type. An index outside [0, len] appends.
//
// CreateNode does not check for an existing node: one with the same key below the same parent is
// replaced, keeping its position and subtree. Callers needing create semantics check first.
func (s *Store) CreateNode(node *model.ConfigNode, parent model.NodeID, insertIndex int) error {
	if err := s.checkNode("CreateNode", node, parent); err != nil {
		return err
	}
	stored := node.Clone()
	stored.ParentID = parent
	bk := model.NewBucketKey(stored.Key, parent)

	b := s.bucket(stored.SchemaPath, true)
	b.mu.Lock()
	_, overwritten := b.nodes[bk]
	b.nodes[bk] = stored
	b.mu.Unlock()

	if !parent.IsRoot() && !overwritten {
		idx := s.childIndex(parent, true)
		idx.mu.Lock()
		idx.byType[stored.SchemaPath] = insertAt(idx.byType[stored.SchemaPath], insertIndex, stored.Key)
		idx.mu.Unlock()
	}
	s.trace.Created(s.name, stored, overwritten)
	return nil
}

// UpdateNode merges attrs and leafLists into the stored node addressed by node's key below parent.
// The stored node is re-read; fields of node other than its path and key are ignored. An Unset
// attribute value removes the leaf. Leaf-list values are added at insertIndex (members already
// present are moved there) or appended when insertIndex is Append; with remove set they are
// removed instead. Updating an absent node does nothing.
func (s *Store) UpdateNode(node *model.ConfigNode, parent model.NodeID, attrs map[schema.QName]model.LeafValue,
	leafLists map[schema.QName][]model.LeafValue, insertIndex int, remove bool) error {
	if node == nil {
		return s.fail(&Error{Datastore: s.name, Op: "UpdateNode", Msg: "nil node"})
	}
	if _, err := s.dataNode("UpdateNode", node.SchemaPath); err != nil {
		return err
	}
	b := s.bucket(node.SchemaPath, false)
	if b == nil {
		return nil
	}
	b.mu.Lock()
	current, ok := b.nodes[model.NewBucketKey(node.Key, parent)]
	if !ok {
		b.mu.Unlock()
		return nil
	}
	for q, v := range attrs {
		if v.IsSet() {
			current.Attributes[q] = v
		} else {
			delete(current.Attributes, q)
		}
	}
	for q, values := range leafLists {
		var members []model.LeafValue
		if remove {
			members = removeValues(current.LeafLists[q], values)
		} else {
			members = addValues(current.LeafLists[q], values, insertIndex)
		}
		if len(members) == 0 {
			delete(current.LeafLists, q)
		} else {
			current.LeafLists[q] = members
		}
	}
	updated := current.Clone()
	b.mu.Unlock()

	s.trace.Updated(s.name, updated)
	return nil
}

// MoveNode repositions the indexed child node below parent in front of the sibling currently at
// insertIndex. An index outside [0, len) moves it to the end.
func (s *Store) MoveNode(node *model.ConfigNode, parent model.NodeID, insertIndex int) error {
	if err := s.checkNode("MoveNode", node, parent); err != nil {
		return err
	}
	idx := s.childIndex(parent, false)
	if idx == nil {
		return nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	current := idx.byType[node.SchemaPath]
	at := indexOfKey(current, node.Key)
	if at < 0 {
		return nil
	}
	if at < insertIndex {
		insertIndex--
	}
	keys, _ := removeKey(current, node.Key)
	idx.byType[node.SchemaPath] = insertAt(keys, insertIndex, node.Key)
	return nil
}

// RemoveNode deletes node and its whole subtree, and removes it from the child index of parent.
func (s *Store) RemoveNode(node *model.ConfigNode, parent model.NodeID) error {
	if node == nil {
		return s.fail(&Error{Datastore: s.name, Op: "RemoveNode", Msg: "nil node"})
	}
	if _, err := s.dataNode("RemoveNode", node.SchemaPath); err != nil {
		return err
	}
	s.removeNode(node.SchemaPath, node.Key, parent)
	return nil
}

// RemoveAllNodes deletes every child of type p below parentNode, each with its subtree.
// grandParent is the parent of parentNode; nothing is removed if parentNode is not stored.
func (s *Store) RemoveAllNodes(parentNode *model.ConfigNode, p schema.Path, grandParent model.NodeID) error {
	if parentNode == nil {
		return s.fail(&Error{Datastore: s.name, Op: "RemoveAllNodes", Msg: "nil parent node"})
	}
	if _, err := s.dataNode("RemoveAllNodes", p); err != nil {
		return err
	}
	stored := s.findNode(parentNode.SchemaPath, parentNode.Key, grandParent)
	if stored == nil {
		return nil
	}
	idx := s.childIndex(stored.ID, false)
	if idx == nil {
		return nil
	}
	idx.mu.RLock()
	keys := append([]model.NodeKey(nil), idx.byType[p]...)
	idx.mu.RUnlock()
	for _, k := range keys {
		s.removeNode(p, k, stored.ID)
	}
	return nil
}

func (s *Store) removeNode(p schema.Path, key model.NodeKey, parent model.NodeID) {
	b := s.bucket(p, false)
	if b == nil {
		return
	}
	b.mu.Lock()
	bk := model.NewBucketKey(key, parent)
	n, ok := b.nodes[bk]
	delete(b.nodes, bk)
	b.mu.Unlock()
	if !ok {
		return
	}

	// Descendants first, then the node's own index and its slot in the parent's.
	s.imu.Lock()
	idx := s.children[n.ID.Key()]
	delete(s.children, n.ID.Key())
	s.imu.Unlock()
	if idx != nil {
		idx.mu.RLock()
		byType := make(map[schema.Path][]model.NodeKey, len(idx.byType))
		for cp, keys := range idx.byType {
			byType[cp] = append([]model.NodeKey(nil), keys...)
		}
		idx.mu.RUnlock()
		for cp, keys := range byType {
			for _, k := range keys {
				s.removeNode(cp, k, n.ID)
			}
		}
	}

	if pidx := s.childIndex(parent, false); pidx != nil {
		pidx.mu.Lock()
		pidx.byType[p], _ = removeKey(pidx.byType[p], key)
		pidx.mu.Unlock()
	}
	s.trace.Removed(s.name, n.ID)
}

// Size delivers the number of stored nodes and of child indexes.
func (s *Store) Size() (nodes, indexes int) {
	s.bmu.RLock()
	for _, b := range s.buckets {
		b.mu.RLock()
		nodes += len(b.nodes)
		b.mu.RUnlock()
	}
	s.bmu.RUnlock()

	s.imu.RLock()
	indexes = len(s.children)
	s.imu.RUnlock()
	return nodes, indexes
}

func (s *Store) bucket(p schema.Path, create bool) *bucket {
	s.bmu.RLock()
	b := s.buckets[p]
	s.bmu.RUnlock()
	if b != nil || !create {
		return b
	}
	s.bmu.Lock()
	defer s.bmu.Unlock()
	if b = s.buckets[p]; b == nil {
		b = &bucket{nodes: map[model.BucketKey]*model.ConfigNode{}}
		s.buckets[p] = b
	}
	return b
}

func (s *Store) childIndex(parent model.NodeID, create bool) *childIndex {
	key := parent.Key()
	s.imu.RLock()
	idx := s.children[key]
	s.imu.RUnlock()
	if idx != nil || !create {
		return idx
	}
	s.imu.Lock()
	defer s.imu.Unlock()
	if idx = s.children[key]; idx == nil {
		idx = &childIndex{byType: map[schema.Path][]model.NodeKey{}}
		s.children[key] = idx
	}
	return idx
}

func (s *Store) dataNode(op string, p schema.Path) (*schema.Node, error) {
	sn, ok := s.oracle.Node(p)
	if !ok {
		return nil, s.fail(&Error{Datastore: s.name, Op: op, Path: p, Msg: "unknown schema path"})
	}
	if sn.Kind != schema.Container && sn.Kind != schema.List {
		return nil, s.fail(&Error{Datastore: s.name, Op: op, Path: p, Msg: "not a container or list: " + sn.Kind.String()})
	}
	return sn, nil
}

func (s *Store) checkNode(op string, node *model.ConfigNode, parent model.NodeID) error {
	if node == nil {
		return s.fail(&Error{Datastore: s.name, Op: op, Msg: "nil node"})
	}
	sn, err := s.dataNode(op, node.SchemaPath)
	if err != nil {
		return err
	}
	if !node.ID.ParentID().Equal(parent) {
		return s.fail(&Error{Datastore: s.name, Op: op, Path: node.SchemaPath,
			Msg: "node id " + node.ID.String() + " is not a child of " + parent.String()})
	}
	if node.Key.Len() != len(sn.Keys) {
		return s.fail(&Error{Datastore: s.name, Op: op, Path: node.SchemaPath, Msg: "key " + node.Key.String() + " does not match schema"})
	}
	return nil
}

func (s *Store) fail(err *Error) error {
	s.trace.Error(s.name, err.Op, err)
	return err
}

func insertAt(keys []model.NodeKey, i int, k model.NodeKey) []model.NodeKey {
	if i < 0 || i >= len(keys) {
		return append(keys, k)
	}
	keys = append(keys, model.NodeKey{})
	copy(keys[i+1:], keys[i:])
	keys[i] = k
	return keys
}

func indexOfKey(keys []model.NodeKey, k model.NodeKey) int {
	for i, e := range keys {
		if e.Equal(k) {
			return i
		}
	}
	return -1
}

func removeKey(keys []model.NodeKey, k model.NodeKey) ([]model.NodeKey, bool) {
	for i, e := range keys {
		if e.Equal(k) {
			out := make([]model.NodeKey, 0, len(keys)-1)
			out = append(out, keys[:i]...)
			return append(out, keys[i+1:]...), true
		}
	}
	return keys, false
}

func addValues(members, values []model.LeafValue, i int) []model.LeafValue {
	out := append([]model.LeafValue(nil), members...)
	for _, v := range values {
		at := indexOf(out, v)
		if at >= 0 {
			if i < 0 {
				continue
			}
			out = append(out[:at], out[at+1:]...)
			if at < i {
				i--
			}
		}
		if i < 0 || i >= len(out) {
			out = append(out, v)
			continue
		}
		out = append(out, model.Unset)
		copy(out[i+1:], out[i:])
		out[i] = v
		i++
	}
	return out
}

func removeValues(members, values []model.LeafValue) []model.LeafValue {
	out := make([]model.LeafValue, 0, len(members))
	for _, m := range members {
		if indexOf(values, m) < 0 {
			out = append(out, m)
		}
	}
	return out
}

func indexOf(values []model.LeafValue, v model.LeafValue) int {
	for i, e := range values {
		if e == v {
			return i
		}
	}
	return -1
}
