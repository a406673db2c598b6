package model

import (
	"github.com/damianoneill/ncstore/schema"
)

// ConfigNode is the stored unit of a configuration tree: one container or list entry
// instance together with its leaves and leaf-lists. Key leaves of a list entry are held
// both in Key and in Attributes.
type ConfigNode struct {
	SchemaPath schema.Path
	ID         NodeID
	Key        NodeKey

	// ParentID refers to the enclosing node; parent data is looked up through the store.
	ParentID NodeID

	Attributes map[schema.QName]LeafValue
	LeafLists  map[schema.QName][]LeafValue
}

// NewConfigNode delivers an empty node of the given type under parent.
func NewConfigNode(sn *schema.Node, parent NodeID, key NodeKey) *ConfigNode {
	n := &ConfigNode{
		SchemaPath: sn.Path,
		ID:         parent.Child(sn.QName, key),
		Key:        key,
		ParentID:   parent,
		Attributes: map[schema.QName]LeafValue{},
		LeafLists:  map[schema.QName][]LeafValue{},
	}
	for _, e := range key.Entries() {
		n.Attributes[e.QName] = e.Value
	}
	return n
}

// Clone delivers a deep copy of n.
func (n *ConfigNode) Clone() *ConfigNode {
	if n == nil {
		return nil
	}
	c := *n
	c.Attributes = make(map[schema.QName]LeafValue, len(n.Attributes))
	for k, v := range n.Attributes {
		c.Attributes[k] = v
	}
	c.LeafLists = make(map[schema.QName][]LeafValue, len(n.LeafLists))
	for k, v := range n.LeafLists {
		c.LeafLists[k] = append([]LeafValue(nil), v...)
	}
	return &c
}

// Matches reports whether every criterion holds the same value on n.
func (n *ConfigNode) Matches(criteria map[schema.QName]LeafValue) bool {
	for q, v := range criteria {
		if got, ok := n.Attributes[q]; !ok || got != v {
			return false
		}
	}
	return true
}

// IndexOf delivers the position of v in the leaf-list q, or -1.
func (n *ConfigNode) IndexOf(q schema.QName, v LeafValue) int {
	for i, e := range n.LeafLists[q] {
		if e == v {
			return i
		}
	}
	return -1
}
