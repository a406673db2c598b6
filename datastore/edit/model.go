package edit

import (
	"fmt"

	"github.com/damianoneill/ncstore/datastore/model"
	"github.com/damianoneill/ncstore/schema"

	"github.com/google/uuid"
)

// Operation is an edit-config operation (RFC 6241 section 7.2).
type Operation string

const (
	Merge   Operation = "merge"
	Replace Operation = "replace"
	Create  Operation = "create"
	Delete  Operation = "delete"
	Remove  Operation = "remove"
	None    Operation = "none"
)

// ParseOperation delivers the operation named s.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case Merge, Replace, Create, Delete, Remove, None:
		return op, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// InsertKind positions an entry of an ordered-by-user list or leaf-list.
type InsertKind string

const (
	First  InsertKind = "first"
	Last   InsertKind = "last"
	Before InsertKind = "before"
	After  InsertKind = "after"
)

// Insert is the YANG insert directive of an edit. Value holds the anchor of a leaf-list insert,
// Key the anchor of a list insert; both are only set for Before and After.
type Insert struct {
	Kind  InsertKind
	Value model.LeafValue
	Key   []MatchNode
}

// MatchNode is one key predicate of a list entry edit.
type MatchNode struct {
	QName schema.QName
	Value model.LeafValue
}

// ChangeNode is an edit of a single leaf, or of one leaf-list entry.
type ChangeNode struct {
	QName      schema.QName
	SchemaPath schema.Path
	LeafList   bool
	Operation  Operation
	Value      model.LeafValue
	Insert     *Insert
}

// EditNode is the parsed edit of one container instance or list entry. The root EditNode has
// an empty QName and RootPath and holds the top level edits as ChildNodes.
type EditNode struct {
	QName       schema.QName
	SchemaPath  schema.Path
	Operation   Operation
	MatchNodes  []MatchNode
	ChangeNodes []*ChangeNode
	ChildNodes  []*EditNode
	Insert      *Insert
}

// Criteria delivers the match predicates as a lookup map.
func (e *EditNode) Criteria() map[schema.QName]model.LeafValue {
	out := make(map[schema.QName]model.LeafValue, len(e.MatchNodes))
	for _, m := range e.MatchNodes {
		out[m.QName] = m.Value
	}
	return out
}

// ChangeType classifies a Change.
type ChangeType string

const (
	Created  ChangeType = "create"
	Modified ChangeType = "modify"
	Deleted  ChangeType = "delete"
)

// Change records the effect of an edit on one node.
type Change struct {
	ID         model.NodeID
	SchemaPath schema.Path
	Type       ChangeType

	// Moved is set when an ordered-by-user list entry was repositioned.
	Moved bool

	// OldValues holds the previous values of every leaf and leaf-list touched, including values
	// cleared from other cases of a choice. A leaf that was not set has no entry.
	OldValues map[schema.QName][]model.LeafValue
	NewValues map[schema.QName][]model.LeafValue
}

// ChangeSet is the outcome of one applied edit-config request.
type ChangeSet struct {
	ID        uuid.UUID
	Datastore string
	Changes   []*Change
}

// Empty reports whether the edit changed nothing.
func (cs *ChangeSet) Empty() bool {
	return len(cs.Changes) == 0
}
