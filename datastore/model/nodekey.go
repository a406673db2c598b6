package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/damianoneill/ncstore/schema"
)

// KeyEntry is one key leaf and its value.
type KeyEntry struct {
	QName schema.QName
	Value LeafValue
}

// NodeKey identifies a list entry among its siblings. Entries are held in the
// schema-declared key order. The zero NodeKey identifies a container.
type NodeKey struct {
	entries []KeyEntry
}

// EmptyKey is the key of every container instance.
var EmptyKey = NodeKey{}

// KeyOrder delivers the declared key order of a list.
type KeyOrder interface {
	Keys(p schema.Path) []schema.QName
}

// NewNodeKey builds the key of an entry of the list at p from an unordered value map,
// ordering entries as the schema declares them. Every declared key must have a value
// and no other leaves may be supplied.
func NewNodeKey(ko KeyOrder, p schema.Path, values map[schema.QName]LeafValue) (NodeKey, error) {
	keys := ko.Keys(p)
	if len(keys) != len(values) {
		return EmptyKey, fmt.Errorf("list %s expects %d key values, got %d", p, len(keys), len(values))
	}
	entries := make([]KeyEntry, 0, len(keys))
	for _, k := range keys {
		v, ok := values[k]
		if !ok {
			return EmptyKey, fmt.Errorf("list %s is missing key %s", p, k.Name)
		}
		entries = append(entries, KeyEntry{QName: k, Value: v})
	}
	return NodeKey{entries: entries}, nil
}

// NewOrderedNodeKey builds a key from entries already in schema order.
func NewOrderedNodeKey(entries ...KeyEntry) NodeKey {
	return NodeKey{entries: append([]KeyEntry(nil), entries...)}
}

// Entries delivers the key entries in schema-declared order.
func (k NodeKey) Entries() []KeyEntry {
	return append([]KeyEntry(nil), k.entries...)
}

// Len delivers the number of key leaves.
func (k NodeKey) Len() int {
	return len(k.entries)
}

// Get delivers the value of a key leaf.
func (k NodeKey) Get(q schema.QName) (LeafValue, bool) {
	for _, e := range k.entries {
		if e.QName == q {
			return e.Value, true
		}
	}
	return Unset, false
}

// Equal compares the full set of key/value pairs irrespective of entry order.
func (k NodeKey) Equal(other NodeKey) bool {
	return k.hashKey() == other.hashKey()
}

// hashKey is an order independent rendering of the key, used for bucket lookup.
func (k NodeKey) hashKey() string {
	parts := make([]string, 0, len(k.entries))
	for _, e := range k.entries {
		parts = append(parts, e.QName.String()+"\x00"+string(e.Value.Type)+"\x00"+e.Value.Value)
	}
	sort.Strings(parts)
	return strings.Join(parts, "\x01")
}

// String renders the key as [name='value']... in schema order.
func (k NodeKey) String() string {
	var b strings.Builder
	for _, e := range k.entries {
		fmt.Fprintf(&b, "[%s=%s]", e.QName.Name, quoteXPath(e.Value.Value))
	}
	return b.String()
}

// BucketKey identifies a node within the bucket of its schema path.
type BucketKey struct {
	key    string
	parent string
}

// NewBucketKey combines a node key and the id of the node's parent.
func NewBucketKey(k NodeKey, parent NodeID) BucketKey {
	return BucketKey{key: k.hashKey(), parent: parent.Key()}
}
