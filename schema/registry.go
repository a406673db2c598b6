package schema

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Registry is an immutable Oracle built from a YAML schema description.
type Registry struct {
	roots    []*Node
	byPath   map[Path]*Node
	prefixes map[string]string
}

// yamlModule and yamlNode describe the YAML schema document.
//
//	modules:
//	  - name: example-library
//	    namespace: urn:example:library
//	    prefix: lib
//	    nodes:
//	      - container: library
//	        children:
//	          - list: book
//	            keys: [title]
//	            ordered-by: user
//	            children:
//	              - leaf: title
//	                type: string
type yamlSchema struct {
	Modules []yamlModule `yaml:"modules"`
}

type yamlModule struct {
	Name      string     `yaml:"name"`
	Namespace string     `yaml:"namespace"`
	Prefix    string     `yaml:"prefix"`
	Nodes     []yamlNode `yaml:"nodes"`
}

type yamlNode struct {
	Container string     `yaml:"container"`
	List      string     `yaml:"list"`
	Leaf      string     `yaml:"leaf"`
	LeafList  string     `yaml:"leaf-list"`
	Choice    string     `yaml:"choice"`
	Case      string     `yaml:"case"`
	Namespace string     `yaml:"namespace"`
	Keys      []string   `yaml:"keys"`
	Type      string     `yaml:"type"`
	Default   *string    `yaml:"default"`
	OrderedBy string     `yaml:"ordered-by"`
	Children  []yamlNode `yaml:"children"`
	Cases     []yamlNode `yaml:"cases"`
}

func (y *yamlNode) kindAndName() (Kind, string, error) {
	var found []Kind
	var name string
	for k, v := range map[Kind]string{
		Container: y.Container, List: y.List, Leaf: y.Leaf,
		LeafList: y.LeafList, Choice: y.Choice, Case: y.Case,
	} {
		if v != "" {
			found = append(found, k)
			name = v
		}
	}
	if len(found) != 1 {
		return 0, "", fmt.Errorf("schema node must declare exactly one statement, found %d", len(found))
	}
	return found[0], name, nil
}

// LoadFile builds a Registry from the YAML schema description in the named file.
func LoadFile(name string) (*Registry, error) {
	f, err := os.Open(name) // nolint: gosec
	if err != nil {
		return nil, err
	}
	defer f.Close() // nolint: errcheck
	return Load(f)
}

// Load builds a Registry from a YAML schema description.
func Load(r io.Reader) (*Registry, error) {
	doc := &yamlSchema{}
	if err := yaml.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode schema")
	}

	reg := &Registry{byPath: make(map[Path]*Node), prefixes: make(map[string]string)}
	for _, m := range doc.Modules {
		if m.Namespace == "" {
			return nil, fmt.Errorf("module %q has no namespace", m.Name)
		}
		if m.Prefix != "" {
			reg.prefixes[m.Namespace] = m.Prefix
		}
		for i := range m.Nodes {
			n, err := reg.build(&m.Nodes[i], m.Namespace, RootPath, nil, nil)
			if err != nil {
				return nil, errors.Wrapf(err, "module %s", m.Name)
			}
			reg.roots = append(reg.roots, n)
		}
	}
	return reg, nil
}

func (r *Registry) build(y *yamlNode, ns string, parentPath Path, parent, enclosing *Node) (*Node, error) {
	kind, name, err := y.kindAndName()
	if err != nil {
		return nil, err
	}
	if y.Namespace != "" {
		ns = y.Namespace
	}

	n := &Node{
		QName:         QName{Namespace: ns, Name: name},
		Kind:          kind,
		Path:          parentPath,
		Type:          LeafType(y.Type),
		Default:       y.Default,
		OrderedByUser: y.OrderedBy == "user",
		parent:        parent,
		enclosing:     enclosing,
	}

	if kind.IsData() {
		n.Path = parentPath.Child(name)
		if _, dup := r.byPath[n.Path]; dup {
			return nil, fmt.Errorf("duplicate schema node %s", n.Path)
		}
		r.byPath[n.Path] = n
		// Cases below a data node are scoped to that node.
		enclosing = nil
	}

	switch kind {
	case Leaf, LeafList:
		if n.Type == "" {
			n.Type = String
		}
	case List:
		if len(y.Keys) == 0 {
			return nil, fmt.Errorf("list %s has no keys", n.Path)
		}
		for _, k := range y.Keys {
			n.Keys = append(n.Keys, QName{Namespace: ns, Name: k})
		}
	case Case:
		enclosing = n
	}

	children := y.Children
	if kind == Choice {
		children = y.Cases
	}
	for i := range children {
		if kind == Choice && children[i].Case == "" {
			return nil, fmt.Errorf("choice %s may only contain case statements", name)
		}
		c, err := r.build(&children[i], ns, n.Path, n, enclosing)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, c)
	}

	if kind == List {
		for _, k := range n.Keys {
			c, ok := n.DataChild(k.Name)
			if !ok || c.Kind != Leaf {
				return nil, fmt.Errorf("list %s key %s is not a leaf", n.Path, k.Name)
			}
		}
	}
	return n, nil
}

// Node implements Oracle.
func (r *Registry) Node(p Path) (*Node, bool) {
	n, ok := r.byPath[p]
	return n, ok
}

// Keys implements Oracle.
func (r *Registry) Keys(p Path) []QName {
	if n, ok := r.byPath[p]; ok {
		return n.Keys
	}
	return nil
}

// Default implements Oracle.
func (r *Registry) Default(p Path) (string, bool) {
	if n, ok := r.byPath[p]; ok && n.Default != nil {
		return *n.Default, true
	}
	return "", false
}

// SiblingCaseNodes implements Oracle.
func (r *Registry) SiblingCaseNodes(p Path) []*Node {
	n, ok := r.byPath[p]
	if !ok {
		return nil
	}
	var out []*Node
	for cs := n.enclosing; cs != nil; cs = cs.parent.enclosing {
		for _, other := range cs.parent.Children {
			if other != cs {
				out = append(out, other.DataChildren()...)
			}
		}
	}
	return out
}

// Prefix implements Oracle.
func (r *Registry) Prefix(namespace string) (string, bool) {
	p, ok := r.prefixes[namespace]
	return p, ok
}

// Roots implements Oracle.
func (r *Registry) Roots() []*Node {
	return r.roots
}

// Root delivers the top level data node with the given local name.
func (r *Registry) Root(name string) (*Node, bool) {
	return r.Node(RootPath.Child(name))
}
