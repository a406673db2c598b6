package schema

import (
	"strings"
)

// Defines the read-only view of a compiled YANG schema consumed by the datastore.

// QName identifies a schema node by namespace and local name.
type QName struct {
	Namespace string
	Name      string
}

func (q QName) String() string {
	if q.Namespace == "" {
		return q.Name
	}
	return "{" + q.Namespace + "}" + q.Name
}

// Path is the data-tree path of a schema node, e.g. /library/book/title.
// Choice and case nodes never appear in a Path.
type Path string

// RootPath is the path of the (virtual) datastore root.
const RootPath Path = ""

// Child returns the path of the named data child of p.
func (p Path) Child(name string) Path {
	return Path(string(p) + "/" + name)
}

// Parent returns the path of the enclosing data node; the parent of a top level node is RootPath.
func (p Path) Parent() Path {
	i := strings.LastIndexByte(string(p), '/')
	if i <= 0 {
		return RootPath
	}
	return p[:i]
}

// Name returns the last step of p.
func (p Path) Name() string {
	return string(p[strings.LastIndexByte(string(p), '/')+1:])
}

// Kind is the YANG statement kind of a schema node.
type Kind int

const (
	Container Kind = iota
	List
	Leaf
	LeafList
	Choice
	Case
)

var kindNames = map[Kind]string{
	Container: "container",
	List:      "list",
	Leaf:      "leaf",
	LeafList:  "leaf-list",
	Choice:    "choice",
	Case:      "case",
}

func (k Kind) String() string {
	return kindNames[k]
}

// IsData reports whether instances of the kind appear in the data tree.
func (k Kind) IsData() bool {
	return k != Choice && k != Case
}

// LeafType is the built-in YANG type of a leaf or leaf-list.
type LeafType string

// YANG built-in types.
const (
	String             LeafType = "string"
	Int8               LeafType = "int8"
	Int16              LeafType = "int16"
	Int32              LeafType = "int32"
	Int64              LeafType = "int64"
	Uint8              LeafType = "uint8"
	Uint16             LeafType = "uint16"
	Uint32             LeafType = "uint32"
	Uint64             LeafType = "uint64"
	Decimal64          LeafType = "decimal64"
	Boolean            LeafType = "boolean"
	Enumeration        LeafType = "enumeration"
	Bits               LeafType = "bits"
	Binary             LeafType = "binary"
	Empty              LeafType = "empty"
	Identityref        LeafType = "identityref"
	InstanceIdentifier LeafType = "instance-identifier"
	Leafref            LeafType = "leafref"
	Union              LeafType = "union"
)

// Node describes one schema node.
type Node struct {
	QName QName
	Kind  Kind

	// Path is the data path of the node. Choice and case nodes carry the path of
	// the data node that encloses them.
	Path Path

	// Keys holds the key leaves of a list, in declaration order.
	Keys []QName

	// Type is set for leaves and leaf-lists.
	Type LeafType

	// Default holds the default value of a leaf, if any.
	Default *string

	OrderedByUser bool

	Children []*Node

	parent *Node
	// enclosing is the nearest case node between this node and its data parent.
	enclosing *Node
}

// Parent delivers the schema parent, which may be a choice or case node.
func (n *Node) Parent() *Node {
	return n.parent
}

// Case delivers the case node that directly or indirectly encloses n below its data parent, if any.
func (n *Node) Case() *Node {
	return n.enclosing
}

// DataChildren delivers the data children of n, looking through choice and case nodes.
func (n *Node) DataChildren() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind.IsData() {
			out = append(out, c)
		} else {
			out = append(out, c.DataChildren()...)
		}
	}
	return out
}

// DataChild delivers the data child of n with the given local name.
func (n *Node) DataChild(name string) (*Node, bool) {
	for _, c := range n.DataChildren() {
		if c.QName.Name == name {
			return c, true
		}
	}
	return nil, false
}

// IsKey reports whether q is one of the key leaves of the list n.
func (n *Node) IsKey(q QName) bool {
	for _, k := range n.Keys {
		if k == q {
			return true
		}
	}
	return false
}

// Oracle is the read-only schema service used by the storage and validation engines.
// Implementations must be safe for concurrent use.
type Oracle interface {
	// Node delivers the schema node for a data path.
	Node(p Path) (*Node, bool)

	// Keys delivers the key leaves of the list at p, in declaration order.
	Keys(p Path) []QName

	// Default delivers the default value of the leaf at p.
	Default(p Path) (string, bool)

	// SiblingCaseNodes delivers, for a data node inside a case, the data nodes belonging to every
	// other case of the enclosing choice (and of any choice enclosing that one).
	SiblingCaseNodes(p Path) []*Node

	// Prefix resolves a namespace to the prefix used when rendering paths.
	Prefix(namespace string) (string, bool)

	// Roots delivers the top level data nodes.
	Roots() []*Node
}
