package edit

import (
	"github.com/damianoneill/ncstore/datastore/model"
	"github.com/damianoneill/ncstore/netconf/common"
	"github.com/damianoneill/ncstore/schema"

	"github.com/pkg/errors"
)

// Store is the storage contract the validator and engine operate on. It is implemented by *store.Store.
type Store interface {
	Name() string
	Oracle() schema.Oracle
	ListNodes(p schema.Path) ([]*model.ConfigNode, error)
	ListChildNodes(p schema.Path, parent model.NodeID) ([]*model.ConfigNode, bool, error)
	FindNode(p schema.Path, key model.NodeKey, parent model.NodeID) (*model.ConfigNode, error)
	FindNodes(p schema.Path, criteria map[schema.QName]model.LeafValue, parent model.NodeID) ([]*model.ConfigNode, error)
	CreateNode(node *model.ConfigNode, parent model.NodeID, insertIndex int) error
	UpdateNode(node *model.ConfigNode, parent model.NodeID, attrs map[schema.QName]model.LeafValue,
		leafLists map[schema.QName][]model.LeafValue, insertIndex int, remove bool) error
	MoveNode(node *model.ConfigNode, parent model.NodeID, insertIndex int) error
	RemoveNode(node *model.ConfigNode, parent model.NodeID) error
	RemoveAllNodes(parentNode *model.ConfigNode, p schema.Path, grandParent model.NodeID) error
}

// appendIndex mirrors store.Append.
const appendIndex = -1

// Validator decides whether a single edit is legal against the live tree. Every failure is an
// *common.RPCError carrying the rendered path of the addressed node.
type Validator struct {
	store  Store
	oracle schema.Oracle
}

// NewValidator delivers a Validator reading from s.
func NewValidator(s Store) *Validator {
	return &Validator{store: s, oracle: s.Oracle()}
}

func idOf(n *model.ConfigNode) model.NodeID {
	if n == nil {
		return model.RootID
	}
	return n.ID
}

func (v *Validator) errorAt(tag common.ErrorTag, id model.NodeID, format string, args ...interface{}) *common.RPCError {
	return common.NewRPCError(tag, format, args...).WithPath(id.XPathString(v.oracle), id.Namespaces(v.oracle))
}

func (v *Validator) internal(id model.NodeID, err error, msg string) *common.RPCError {
	return v.errorAt(common.ErrTagOperationFailed, id, "%s", msg).WithCause(errors.Wrap(err, msg))
}

// ProspectiveID delivers the id the entry addressed by e below parent has or would have. Key
// steps are built from the match predicates present, in schema key order.
func (v *Validator) ProspectiveID(parent model.NodeID, e *EditNode) model.NodeID {
	var entries []model.KeyEntry
	criteria := e.Criteria()
	for _, k := range v.oracle.Keys(e.SchemaPath) {
		if val, ok := criteria[k]; ok {
			entries = append(entries, model.KeyEntry{QName: k, Value: val})
		}
	}
	return parent.Child(e.QName, model.NewOrderedNodeKey(entries...))
}

// Key delivers the full key of the list entry addressed by e.
func (v *Validator) Key(parent model.NodeID, e *EditNode) (model.NodeKey, error) {
	sn, ok := v.oracle.Node(e.SchemaPath)
	if !ok {
		return model.EmptyKey, v.errorAt(common.ErrTagUnknownElement, parent.Child(e.QName, model.EmptyKey), "unknown element %s", e.QName.Name)
	}
	if sn.Kind != schema.List {
		return model.EmptyKey, nil
	}
	key, err := model.NewNodeKey(v.oracle, e.SchemaPath, e.Criteria())
	if err != nil {
		return model.EmptyKey, v.errorAt(common.ErrTagInvalidValue, v.ProspectiveID(parent, e), "%s", err.Error())
	}
	return key, nil
}

// ResolveTarget delivers the existing child of parent addressed by e; a nil parent is the
// datastore root. A missing target fails with data-missing, reporting the path the target would
// have had.
func (v *Validator) ResolveTarget(parent *model.ConfigNode, e *EditNode) (*model.ConfigNode, error) {
	pid := idOf(parent)
	sn, ok := v.oracle.Node(e.SchemaPath)
	if !ok {
		return nil, v.errorAt(common.ErrTagUnknownElement, pid.Child(e.QName, model.EmptyKey), "unknown element %s", e.QName.Name)
	}
	switch sn.Kind {
	case schema.Container:
		n, err := v.store.FindNode(e.SchemaPath, model.EmptyKey, pid)
		if err != nil {
			return nil, v.internal(pid, err, "container lookup failed")
		}
		if n == nil {
			return nil, v.errorAt(common.ErrTagDataMissing, pid.Child(e.QName, model.EmptyKey), "container %s does not exist", e.QName.Name)
		}
		return n, nil
	case schema.List:
		nodes, err := v.store.FindNodes(e.SchemaPath, e.Criteria(), pid)
		if err != nil {
			return nil, v.internal(pid, err, "list lookup failed")
		}
		if len(nodes) == 0 {
			return nil, v.errorAt(common.ErrTagDataMissing, v.ProspectiveID(pid, e), "list entry %s does not exist", e.QName.Name)
		}
		return nodes[0], nil
	}
	return nil, v.errorAt(common.ErrTagInvalidValue, pid.Child(e.QName, model.EmptyKey), "%s is neither a container nor a list", e.QName.Name)
}

// ValidateExistentContainer fails with data-exists if the container addressed by e exists below parent.
func (v *Validator) ValidateExistentContainer(parent *model.ConfigNode, e *EditNode) error {
	pid := idOf(parent)
	n, err := v.store.FindNode(e.SchemaPath, model.EmptyKey, pid)
	if err != nil {
		return v.internal(pid, err, "container lookup failed")
	}
	if n != nil {
		return v.errorAt(common.ErrTagDataExists, n.ID, "container %s already exists", e.QName.Name)
	}
	return nil
}

// ValidateExistentList fails with data-exists if the list entry addressed by e exists below parent.
func (v *Validator) ValidateExistentList(parent *model.ConfigNode, e *EditNode) error {
	pid := idOf(parent)
	key, err := v.Key(pid, e)
	if err != nil {
		return err
	}
	n, err := v.store.FindNode(e.SchemaPath, key, pid)
	if err != nil {
		return v.internal(pid, err, "list lookup failed")
	}
	if n != nil {
		return v.errorAt(common.ErrTagDataExists, n.ID, "list entry %s%s already exists", e.QName.Name, key)
	}
	return nil
}

// HandleChoiceCaseNode clears, on node, every leaf, leaf-list and child belonging to another case
// of each choice enclosing the child q. The cleared leaf and leaf-list values are delivered keyed
// by leaf name. node is updated in place as well as in the store.
func (v *Validator) HandleChoiceCaseNode(node *model.ConfigNode, q schema.QName) (map[schema.QName][]model.LeafValue, error) {
	siblings := v.oracle.SiblingCaseNodes(node.SchemaPath.Child(q.Name))
	if len(siblings) == 0 {
		return nil, nil
	}
	current, err := v.store.FindNode(node.SchemaPath, node.Key, node.ParentID)
	if err != nil {
		return nil, v.internal(node.ID, err, "node lookup failed")
	}
	if current == nil {
		return nil, nil
	}

	old := map[schema.QName][]model.LeafValue{}
	attrs := map[schema.QName]model.LeafValue{}
	leafLists := map[schema.QName][]model.LeafValue{}
	for _, sn := range siblings {
		switch sn.Kind {
		case schema.Leaf:
			if val, ok := current.Attributes[sn.QName]; ok {
				old[sn.QName] = []model.LeafValue{val}
				attrs[sn.QName] = model.Unset
				delete(node.Attributes, sn.QName)
			}
		case schema.LeafList:
			if vals := current.LeafLists[sn.QName]; len(vals) > 0 {
				old[sn.QName] = vals
				leafLists[sn.QName] = vals
				delete(node.LeafLists, sn.QName)
			}
		case schema.Container, schema.List:
			if err := v.store.RemoveAllNodes(current, sn.Path, current.ParentID); err != nil {
				return nil, v.internal(node.ID, err, "clearing case failed")
			}
		}
	}
	if len(attrs) > 0 {
		if err := v.store.UpdateNode(current, current.ParentID, attrs, nil, appendIndex, false); err != nil {
			return nil, v.internal(node.ID, err, "clearing case failed")
		}
	}
	if len(leafLists) > 0 {
		if err := v.store.UpdateNode(current, current.ParentID, nil, leafLists, appendIndex, true); err != nil {
			return nil, v.internal(node.ID, err, "clearing case failed")
		}
	}
	return old, nil
}

// ValidateInsertRequest checks the insert directive of a leaf-list entry edit on parent and
// delivers the index the value is to be placed at. The current members are read from the store.
// An anchor that is not a member fails with data-missing; inserting a value relative to itself
// with merge or replace fails with invalid-value.
func (v *Validator) ValidateInsertRequest(change *ChangeNode, op Operation, insert *Insert, parent *model.ConfigNode) (int, error) {
	if insert == nil {
		return appendIndex, nil
	}
	leafID := parent.ID.Child(change.QName, model.EmptyKey)
	if insert.Kind == First {
		return 0, nil
	}
	if (insert.Kind == Before || insert.Kind == After) && (op == Merge || op == Replace) && insert.Value == change.Value {
		return 0, v.errorAt(common.ErrTagInvalidValue, leafID, "cannot insert %s %s itself", change.Value, insert.Kind)
	}

	current, err := v.store.FindNode(parent.SchemaPath, parent.Key, parent.ParentID)
	if err != nil {
		return 0, v.internal(parent.ID, err, "node lookup failed")
	}
	if current == nil {
		return 0, v.errorAt(common.ErrTagDataMissing, parent.ID, "node does not exist")
	}
	switch insert.Kind {
	case Last:
		return len(current.LeafLists[change.QName]), nil
	case Before, After:
		i := current.IndexOf(change.QName, insert.Value)
		if i < 0 {
			return 0, v.errorAt(common.ErrTagDataMissing, leafID, "insert anchor %s is not a member of %s", insert.Value, change.QName.Name)
		}
		if insert.Kind == After {
			i++
		}
		return i, nil
	}
	return 0, v.errorAt(common.ErrTagInvalidValue, leafID, "unknown insert %q", insert.Kind)
}

// ValidateListInsert is the list entry counterpart of ValidateInsertRequest: it delivers the
// position, among the current siblings below parent, the entry addressed by e is to take.
// Entries of a top-level list keep no user order, so only insert="last" is accepted there once
// the anchor has been checked.
func (v *Validator) ValidateListInsert(e *EditNode, parent model.NodeID) (int, error) {
	return v.listInsert(e, parent, nil)
}

// ValidateListReplace delivers the position the replacement of the existing entry is to take,
// counted among its siblings with the existing entry left out. Nothing is changed in the store.
func (v *Validator) ValidateListReplace(e *EditNode, existing *model.ConfigNode) (int, error) {
	return v.listInsert(e, existing.ParentID, existing)
}

func (v *Validator) listInsert(e *EditNode, parent model.NodeID, exclude *model.ConfigNode) (int, error) {
	if e.Insert == nil {
		return appendIndex, nil
	}
	var anchor map[schema.QName]model.LeafValue
	switch e.Insert.Kind {
	case First, Last:
	case Before, After:
		anchor = map[schema.QName]model.LeafValue{}
		for _, m := range e.Insert.Key {
			anchor[m.QName] = m.Value
		}
		if (e.Operation == Merge || e.Operation == Replace) && sameCriteria(anchor, e.Criteria()) {
			return 0, v.errorAt(common.ErrTagInvalidValue, v.ProspectiveID(parent, e), "cannot insert %s %s itself", e.QName.Name, e.Insert.Kind)
		}
	default:
		return 0, v.errorAt(common.ErrTagInvalidValue, v.ProspectiveID(parent, e), "unknown insert %q", e.Insert.Kind)
	}
	if e.Insert.Kind == First && !parent.IsRoot() {
		return 0, nil
	}

	siblings, err := v.siblings(e.SchemaPath, parent, exclude)
	if err != nil {
		return 0, err
	}
	index := len(siblings)
	if anchor != nil {
		index = -1
		for i, n := range siblings {
			if len(anchor) > 0 && n.Matches(anchor) {
				index = i
				if e.Insert.Kind == After {
					index++
				}
				break
			}
		}
		if index < 0 {
			return 0, v.errorAt(common.ErrTagDataMissing, v.ProspectiveID(parent, &EditNode{QName: e.QName, SchemaPath: e.SchemaPath, MatchNodes: e.Insert.Key}),
				"insert anchor of %s does not exist", e.QName.Name)
		}
	}
	if parent.IsRoot() {
		if e.Insert.Kind != Last {
			return 0, v.errorAt(common.ErrTagInvalidValue, v.ProspectiveID(parent, e), "top-level list %s keeps no user order", e.QName.Name)
		}
		return appendIndex, nil
	}
	return index, nil
}

func (v *Validator) siblings(p schema.Path, parent model.NodeID, exclude *model.ConfigNode) ([]*model.ConfigNode, error) {
	var (
		nodes []*model.ConfigNode
		err   error
	)
	if parent.IsRoot() {
		nodes, err = v.store.ListNodes(p)
	} else {
		nodes, _, err = v.store.ListChildNodes(p, parent)
	}
	if err != nil {
		return nil, v.internal(parent, err, "list lookup failed")
	}
	if exclude == nil {
		return nodes, nil
	}
	kept := make([]*model.ConfigNode, 0, len(nodes))
	for _, n := range nodes {
		if !n.Key.Equal(exclude.Key) {
			kept = append(kept, n)
		}
	}
	return kept, nil
}

func sameCriteria(a, b map[schema.QName]model.LeafValue) bool {
	if len(a) != len(b) {
		return false
	}
	for q, val := range a {
		if b[q] != val {
			return false
		}
	}
	return true
}
