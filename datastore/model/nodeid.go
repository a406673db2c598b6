package model

import (
	"strings"

	"github.com/damianoneill/ncstore/schema"
)

// RdnKind tells a data node step from a key step.
type RdnKind uint8

// RdnKind values.
const (
	// ContainerKind marks a container, list or leaf-list step; Value holds the node name.
	ContainerKind RdnKind = iota
	// KeyKind marks a key leaf of the preceding list step; Name holds the key leaf name.
	KeyKind
)

// ContainerRdn is the Rdn name carried by container steps.
const ContainerRdn = "container"

// Rdn is one relative distinguished name of a NodeID.
type Rdn struct {
	Kind      RdnKind
	Name      string
	Namespace string
	Value     string
}

// ContainerStep delivers the Rdn for a data node step.
func ContainerStep(q schema.QName) Rdn {
	return Rdn{Kind: ContainerKind, Name: ContainerRdn, Namespace: q.Namespace, Value: q.Name}
}

// KeyStep delivers the Rdn for a key leaf of a list entry.
func KeyStep(key schema.QName, v LeafValue) Rdn {
	return Rdn{Kind: KeyKind, Name: key.Name, Namespace: key.Namespace, Value: v.Value}
}

// IsContainer reports whether r is a data node step rather than a key step.
func (r Rdn) IsContainer() bool {
	return r.Kind == ContainerKind
}

// NodeID addresses one node from the datastore root. A NodeID is immutable; every
// method that derives a new id returns a copy.
type NodeID struct {
	rdns []Rdn
}

// RootID is the id of the datastore root, the parent of every top level node.
var RootID = NodeID{}

// NewNodeID delivers a NodeID for the root-to-node Rdn sequence.
func NewNodeID(rdns ...Rdn) NodeID {
	return NodeID{rdns: append([]Rdn(nil), rdns...)}
}

// Append delivers a new id extending this one.
func (id NodeID) Append(rdns ...Rdn) NodeID {
	out := make([]Rdn, 0, len(id.rdns)+len(rdns))
	out = append(out, id.rdns...)
	return NodeID{rdns: append(out, rdns...)}
}

// Child delivers the id of a child data node of id; keys are appended in the supplied order.
func (id NodeID) Child(q schema.QName, key NodeKey) NodeID {
	rdns := []Rdn{ContainerStep(q)}
	for _, e := range key.Entries() {
		rdns = append(rdns, KeyStep(e.QName, e.Value))
	}
	return id.Append(rdns...)
}

// Rdns delivers a copy of the Rdn sequence.
func (id NodeID) Rdns() []Rdn {
	return append([]Rdn(nil), id.rdns...)
}

// Depth delivers the number of Rdns in id.
func (id NodeID) Depth() int {
	return len(id.rdns)
}

// IsRoot reports whether id is the datastore root.
func (id NodeID) IsRoot() bool {
	return len(id.rdns) == 0
}

// ParentID delivers the id of the enclosing data node: the strict prefix that drops the last
// container step together with its key steps.
func (id NodeID) ParentID() NodeID {
	for i := len(id.rdns) - 1; i >= 0; i-- {
		if id.rdns[i].IsContainer() {
			return NodeID{rdns: id.rdns[:i:i]}
		}
	}
	return RootID
}

// BeginsWithTemplate reports whether the Rdn sequence of id starts with that of template.
func (id NodeID) BeginsWithTemplate(template NodeID) bool {
	if len(template.rdns) > len(id.rdns) {
		return false
	}
	for i, r := range template.rdns {
		if id.rdns[i] != r {
			return false
		}
	}
	return true
}

// Equal reports whether id and other address the same node.
func (id NodeID) Equal(other NodeID) bool {
	return len(id.rdns) == len(other.rdns) && id.BeginsWithTemplate(other)
}

// Key delivers a string form of id suitable for use as a map key.
func (id NodeID) Key() string {
	var b strings.Builder
	for _, r := range id.rdns {
		b.WriteByte('/')
		b.WriteByte('0' + byte(r.Kind))
		b.WriteString(r.Name)
		b.WriteByte(0)
		b.WriteString(r.Namespace)
		b.WriteByte(0)
		b.WriteString(r.Value)
	}
	return b.String()
}

// PrefixResolver resolves namespaces to display prefixes.
type PrefixResolver interface {
	Prefix(namespace string) (string, bool)
}

// XPathString renders id as a namespace-prefixed XPath, e.g.
// /lib:library/lib:book[lib:title='Dune']. Steps whose namespace has no known
// prefix are rendered unprefixed.
func (id NodeID) XPathString(pr PrefixResolver) string {
	if id.IsRoot() {
		return "/"
	}
	var b strings.Builder
	for _, r := range id.rdns {
		if r.IsContainer() {
			b.WriteByte('/')
			writeQualified(&b, pr, r.Namespace, r.Value)
			continue
		}
		b.WriteByte('[')
		writeQualified(&b, pr, r.Namespace, r.Name)
		b.WriteByte('=')
		b.WriteString(quoteXPath(r.Value))
		b.WriteByte(']')
	}
	return b.String()
}

// Namespaces delivers the prefix to namespace map needed to interpret XPathString.
func (id NodeID) Namespaces(pr PrefixResolver) map[string]string {
	out := map[string]string{}
	for _, r := range id.rdns {
		if p, ok := pr.Prefix(r.Namespace); ok {
			out[p] = r.Namespace
		}
	}
	return out
}

func writeQualified(b *strings.Builder, pr PrefixResolver, ns, name string) {
	if p, ok := pr.Prefix(ns); ok && p != "" {
		b.WriteString(p)
		b.WriteByte(':')
	}
	b.WriteString(name)
}

// quoteXPath delivers v as an XPath literal. A value holding both quote characters is
// rendered as a concat() of literals.
func quoteXPath(v string) string {
	if !strings.Contains(v, "'") {
		return "'" + v + "'"
	}
	if !strings.Contains(v, `"`) {
		return `"` + v + `"`
	}
	parts := strings.Split(v, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + p + "'")
	}
	b.WriteByte(')')
	return b.String()
}

// String renders id without prefixes.
func (id NodeID) String() string {
	return id.XPathString(noPrefixes{})
}

type noPrefixes struct{}

func (noPrefixes) Prefix(string) (string, bool) { return "", false }
