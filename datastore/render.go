package datastore

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/damianoneill/ncstore/datastore/edit"
	"github.com/damianoneill/ncstore/datastore/model"
	"github.com/damianoneill/ncstore/schema"

	"github.com/pkg/errors"
)

// GetConfig renders the configuration as XML. A nil filter selects the whole tree; otherwise
// filter holds the top level elements of a subtree filter (RFC 6241 section 6) and an empty
// filter selects nothing.
func (d *Datastore) GetConfig(filter []*edit.Element) ([]byte, error) {
	r := &renderer{Datastore: d}
	var (
		out []*element
		err error
	)
	if filter == nil {
		out, err = r.all()
	} else {
		out, err = r.filtered(filter)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "rendering %s datastore", d.name)
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	for _, el := range out {
		if err := el.encode(enc, ""); err != nil {
			return nil, errors.Wrap(err, "encoding config")
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, errors.Wrap(err, "encoding config")
	}
	return buf.Bytes(), nil
}

type renderer struct {
	*Datastore
}

func (r *renderer) all() ([]*element, error) {
	var out []*element
	for _, sn := range r.oracle.Roots() {
		nodes, err := r.instances(sn, model.RootID)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			el, err := r.build(sn, n, nil)
			if err != nil {
				return nil, err
			}
			out = append(out, el)
		}
	}
	return out, nil
}

func (r *renderer) filtered(filter []*edit.Element) ([]*element, error) {
	var out []*element
	for _, f := range filter {
		sn, ok := r.rootNode(f.XMLName)
		if !ok {
			continue
		}
		els, err := r.selectInstances(sn, model.RootID, f)
		if err != nil {
			return nil, err
		}
		out = append(out, els...)
	}
	return out, nil
}

func (r *renderer) rootNode(name xml.Name) (*schema.Node, bool) {
	for _, sn := range r.oracle.Roots() {
		if sn.QName.Name == name.Local && (name.Space == "" || name.Space == sn.QName.Namespace) {
			return sn, true
		}
	}
	return nil, false
}

// instances delivers the stored instances of sn below parent, in document order.
func (r *renderer) instances(sn *schema.Node, parent model.NodeID) ([]*model.ConfigNode, error) {
	if sn.Kind == schema.Container {
		n, err := r.store.FindNode(sn.Path, model.EmptyKey, parent)
		if err != nil || n == nil {
			return nil, err
		}
		return []*model.ConfigNode{n}, nil
	}
	if parent.IsRoot() {
		return r.store.ListNodes(sn.Path)
	}
	nodes, _, err := r.store.ListChildNodes(sn.Path, parent)
	return nodes, err
}

// selectInstances applies filter element f to every instance of sn below parent.
func (r *renderer) selectInstances(sn *schema.Node, parent model.NodeID, f *edit.Element) ([]*element, error) {
	nodes, err := r.instances(sn, parent)
	if err != nil {
		return nil, err
	}
	var out []*element
	for _, n := range nodes {
		sel, ok := r.match(sn, n, f)
		if !ok {
			continue
		}
		el, err := r.build(sn, n, sel)
		if err != nil {
			return nil, err
		}
		if el != nil {
			out = append(out, el)
		}
	}
	return out, nil
}

// selection records what a filter element picked out of one node.
type selection struct {
	leaves   map[schema.QName]bool
	values   map[schema.QName][]model.LeafValue
	children map[schema.QName]*edit.Element
}

// match applies filter element f to node n. It fails when a content match node does not hold.
// A nil selection means the whole node is selected, which is the case when f has no selection
// or containment nodes.
func (r *renderer) match(sn *schema.Node, n *model.ConfigNode, f *edit.Element) (*selection, bool) {
	sel := &selection{
		leaves:   map[schema.QName]bool{},
		values:   map[schema.QName][]model.LeafValue{},
		children: map[schema.QName]*edit.Element{},
	}
	var narrowed bool
	for _, c := range f.Children {
		csn, ok := sn.DataChild(c.XMLName.Local)
		if !ok || (c.XMLName.Space != "" && c.XMLName.Space != csn.QName.Namespace) {
			// Unknown filter elements select nothing.
			narrowed = true
			continue
		}
		text := strings.TrimSpace(c.Text)
		switch csn.Kind {
		case schema.Leaf:
			if text == "" {
				narrowed = true
			} else {
				v, err := model.NewLeafValue(csn.Type, c.Text)
				if err != nil || n.Attributes[csn.QName] != v {
					return nil, false
				}
			}
			sel.leaves[csn.QName] = true
		case schema.LeafList:
			narrowed = true
			if text == "" {
				sel.leaves[csn.QName] = true
				continue
			}
			v, err := model.NewLeafValue(csn.Type, c.Text)
			if err != nil || n.IndexOf(csn.QName, v) < 0 {
				return nil, false
			}
			sel.values[csn.QName] = append(sel.values[csn.QName], v)
		default:
			narrowed = true
			sel.children[csn.QName] = c
		}
	}
	if !narrowed {
		return nil, true
	}
	return sel, true
}

// build delivers the output element for n, restricted to sel. A node reached only through
// containment nodes is dropped (nil) when nothing below it was selected.
func (r *renderer) build(sn *schema.Node, n *model.ConfigNode, sel *selection) (*element, error) {
	el := &element{name: sn.QName}
	for _, k := range sn.Keys {
		el.children = append(el.children, leafElement(k, n.Attributes[k]))
	}
	var selected bool
	for _, csn := range sn.DataChildren() {
		if sn.IsKey(csn.QName) {
			continue
		}
		switch csn.Kind {
		case schema.Leaf:
			if sel != nil && !sel.leaves[csn.QName] {
				continue
			}
			selected = true
			if v, ok := n.Attributes[csn.QName]; ok {
				el.children = append(el.children, leafElement(csn.QName, v))
			}
		case schema.LeafList:
			values := n.LeafLists[csn.QName]
			if sel != nil && !sel.leaves[csn.QName] {
				values = sel.values[csn.QName]
			}
			if sel != nil && (sel.leaves[csn.QName] || len(sel.values[csn.QName]) > 0) {
				selected = true
			}
			for _, v := range values {
				el.children = append(el.children, leafElement(csn.QName, v))
			}
		default:
			var children []*element
			var err error
			if sel == nil {
				children, err = r.allInstances(csn, n.ID)
			} else if f, ok := sel.children[csn.QName]; ok {
				children, err = r.selectInstances(csn, n.ID, f)
			}
			if err != nil {
				return nil, err
			}
			if len(children) > 0 {
				selected = true
			}
			el.children = append(el.children, children...)
		}
	}
	if sel != nil && !selected {
		return nil, nil
	}
	return el, nil
}

func (r *renderer) allInstances(sn *schema.Node, parent model.NodeID) ([]*element, error) {
	nodes, err := r.instances(sn, parent)
	if err != nil {
		return nil, err
	}
	out := make([]*element, 0, len(nodes))
	for _, n := range nodes {
		el, err := r.build(sn, n, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

// element is one node of the rendered document.
type element struct {
	name     schema.QName
	value    *model.LeafValue
	children []*element
}

func leafElement(q schema.QName, v model.LeafValue) *element {
	return &element{name: q, value: &v}
}

// encode writes el, declaring its namespace when it differs from the enclosing one.
func (el *element) encode(enc *xml.Encoder, ns string) error {
	start := xml.StartElement{Name: xml.Name{Local: el.name.Name}}
	if el.name.Namespace != ns {
		start.Attr = []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: el.name.Namespace}}
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if el.value != nil && el.value.Type != schema.Empty {
		if err := enc.EncodeToken(xml.CharData(el.value.Value)); err != nil {
			return err
		}
	}
	for _, c := range el.children {
		if err := c.encode(enc, el.name.Namespace); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}
