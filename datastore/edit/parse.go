package edit

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/damianoneill/ncstore/datastore/model"
	"github.com/damianoneill/ncstore/netconf/common"
	"github.com/damianoneill/ncstore/schema"

	"github.com/pkg/errors"
)

// Element is a generic XML element, used to carry the content of an edit-config <config>
// parameter. Namespace prefixes are resolved when the element is decoded.
type Element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []*Element `xml:",any"`
}

func (el *Element) attr(space, local string) (string, bool) {
	for _, a := range el.Attrs {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Parse decodes a sequence of top level configuration elements from r and converts them with
// ParseElements.
func Parse(oracle schema.Oracle, r io.Reader, defaultOp Operation) (*EditNode, error) {
	d := xml.NewDecoder(r)
	var elements []*Element
	for {
		el := &Element{}
		err := d.Decode(el)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, common.NewRPCError(common.ErrTagMalformedMessage, "malformed configuration").WithCause(errors.Wrap(err, "decoding config"))
		}
		elements = append(elements, el)
	}
	return ParseElements(oracle, elements, defaultOp)
}

// ParseElements converts configuration elements into an edit tree rooted at the datastore root.
// Operations are taken from the nc:operation attribute and otherwise inherited, starting from
// defaultOp; key leaves of list entries become match nodes; the YANG insert, key and value
// attributes of ordered-by-user lists and leaf-lists become insert directives.
func ParseElements(oracle schema.Oracle, elements []*Element, defaultOp Operation) (*EditNode, error) {
	if defaultOp == "" {
		defaultOp = Merge
	}
	p := &parser{oracle: oracle}
	root := &EditNode{SchemaPath: schema.RootPath, Operation: defaultOp}
	for _, el := range elements {
		child, err := p.editNode(model.RootID, schema.RootPath, el, defaultOp)
		if err != nil {
			return nil, err
		}
		root.ChildNodes = append(root.ChildNodes, child)
	}
	return root, nil
}

type parser struct {
	oracle schema.Oracle
}

func (p *parser) errorAt(tag common.ErrorTag, id model.NodeID, format string, args ...interface{}) *common.RPCError {
	return common.NewRPCError(tag, format, args...).WithPath(id.XPathString(p.oracle), id.Namespaces(p.oracle))
}

func (p *parser) schemaNode(parentID model.NodeID, parentPath schema.Path, el *Element) (*schema.Node, error) {
	sn, ok := p.oracle.Node(parentPath.Child(el.XMLName.Local))
	if !ok || (el.XMLName.Space != "" && sn.QName.Namespace != el.XMLName.Space) {
		q := schema.QName{Namespace: el.XMLName.Space, Name: el.XMLName.Local}
		return nil, p.errorAt(common.ErrTagUnknownElement, parentID.Child(q, model.EmptyKey), "unknown element %s", el.XMLName.Local)
	}
	return sn, nil
}

func (p *parser) operation(id model.NodeID, el *Element, inherited Operation) (Operation, error) {
	s, ok := el.attr(common.NetconfNS, "operation")
	if !ok {
		return inherited, nil
	}
	op, err := ParseOperation(s)
	if err != nil || op == None {
		return "", p.errorAt(common.ErrTagInvalidValue, id, "invalid operation %q", s)
	}
	return op, nil
}

func (p *parser) value(id model.NodeID, sn *schema.Node, el *Element, op Operation) (model.LeafValue, error) {
	if (op == Delete || op == Remove) && strings.TrimSpace(el.Text) == "" && sn.Kind == schema.Leaf {
		return model.Unset, nil
	}
	v, err := model.NewLeafValue(sn.Type, el.Text)
	if err != nil {
		return model.Unset, p.errorAt(common.ErrTagInvalidValue, id, "%s", err.Error())
	}
	return v, nil
}

func (p *parser) editNode(parentID model.NodeID, parentPath schema.Path, el *Element, inherited Operation) (*EditNode, error) {
	sn, err := p.schemaNode(parentID, parentPath, el)
	if err != nil {
		return nil, err
	}
	if sn.Kind != schema.Container && sn.Kind != schema.List {
		return nil, p.errorAt(common.ErrTagInvalidValue, parentID.Child(sn.QName, model.EmptyKey), "%s is neither a container nor a list", sn.QName.Name)
	}
	en := &EditNode{QName: sn.QName, SchemaPath: sn.Path}
	if en.Operation, err = p.operation(parentID.Child(sn.QName, model.EmptyKey), el, inherited); err != nil {
		return nil, err
	}

	// Match nodes come first, so that errors below can render the entry's key.
	key := map[schema.QName]model.LeafValue{}
	if sn.Kind == schema.List {
		for _, k := range sn.Keys {
			kel := el.child(k.Name)
			if kel == nil {
				return nil, p.errorAt(common.ErrTagInvalidValue, parentID.Child(sn.QName, model.EmptyKey), "list %s is missing key %s", sn.QName.Name, k.Name)
			}
			ksn, _ := p.oracle.Node(sn.Path.Child(k.Name))
			v, err := p.value(parentID.Child(sn.QName, model.EmptyKey), ksn, kel, Merge)
			if err != nil {
				return nil, err
			}
			en.MatchNodes = append(en.MatchNodes, MatchNode{QName: k, Value: v})
			key[k] = v
		}
	}
	nk, err := model.NewNodeKey(p.oracle, sn.Path, key)
	if err != nil {
		return nil, p.errorAt(common.ErrTagInvalidValue, parentID.Child(sn.QName, model.EmptyKey), "%s", err.Error())
	}
	id := parentID.Child(sn.QName, nk)

	if sn.Kind == schema.List && sn.OrderedByUser {
		if en.Insert, err = p.listInsert(id, sn, el); err != nil {
			return nil, err
		}
	}

	for _, cel := range el.Children {
		csn, err := p.schemaNode(id, sn.Path, cel)
		if err != nil {
			return nil, err
		}
		switch csn.Kind {
		case schema.Leaf, schema.LeafList:
			if sn.IsKey(csn.QName) {
				continue
			}
			ch, err := p.changeNode(id, csn, cel, en.Operation)
			if err != nil {
				return nil, err
			}
			en.ChangeNodes = append(en.ChangeNodes, ch)
		default:
			child, err := p.editNode(id, sn.Path, cel, en.Operation)
			if err != nil {
				return nil, err
			}
			en.ChildNodes = append(en.ChildNodes, child)
		}
	}
	return en, nil
}

func (p *parser) changeNode(parentID model.NodeID, sn *schema.Node, el *Element, inherited Operation) (*ChangeNode, error) {
	id := parentID.Child(sn.QName, model.EmptyKey)
	op, err := p.operation(id, el, inherited)
	if err != nil {
		return nil, err
	}
	v, err := p.value(id, sn, el, op)
	if err != nil {
		return nil, err
	}
	ch := &ChangeNode{QName: sn.QName, SchemaPath: sn.Path, LeafList: sn.Kind == schema.LeafList, Operation: op, Value: v}
	if sn.Kind == schema.LeafList && sn.OrderedByUser {
		kind, ok := el.attr(common.YangNS, "insert")
		if ok {
			if ch.Insert, err = p.insert(id, kind); err != nil {
				return nil, err
			}
			if ch.Insert.Kind == Before || ch.Insert.Kind == After {
				anchor, ok := el.attr(common.YangNS, "value")
				if !ok {
					return nil, p.errorAt(common.ErrTagInvalidValue, id, "insert %s requires a value attribute", kind)
				}
				if ch.Insert.Value, err = model.NewLeafValue(sn.Type, anchor); err != nil {
					return nil, p.errorAt(common.ErrTagInvalidValue, id, "%s", err.Error())
				}
			}
		}
	}
	return ch, nil
}

func (p *parser) insert(id model.NodeID, kind string) (*Insert, error) {
	switch k := InsertKind(kind); k {
	case First, Last, Before, After:
		return &Insert{Kind: k}, nil
	}
	return nil, p.errorAt(common.ErrTagInvalidValue, id, "invalid insert %q", kind)
}

func (p *parser) listInsert(id model.NodeID, sn *schema.Node, el *Element) (*Insert, error) {
	kind, ok := el.attr(common.YangNS, "insert")
	if !ok {
		return nil, nil
	}
	ins, err := p.insert(id, kind)
	if err != nil || (ins.Kind != Before && ins.Kind != After) {
		return ins, err
	}
	anchor, ok := el.attr(common.YangNS, "key")
	if !ok {
		return nil, p.errorAt(common.ErrTagInvalidValue, id, "insert %s requires a key attribute", kind)
	}
	preds, err := parsePredicates(anchor)
	if err != nil {
		return nil, p.errorAt(common.ErrTagInvalidValue, id, "invalid key attribute: %s", err.Error())
	}
	for _, pr := range preds {
		var found bool
		for _, k := range sn.Keys {
			if k.Name != pr[0] {
				continue
			}
			ksn, _ := p.oracle.Node(sn.Path.Child(k.Name))
			v, err := model.NewLeafValue(ksn.Type, pr[1])
			if err != nil {
				return nil, p.errorAt(common.ErrTagInvalidValue, id, "%s", err.Error())
			}
			ins.Key = append(ins.Key, MatchNode{QName: k, Value: v})
			found = true
		}
		if !found {
			return nil, p.errorAt(common.ErrTagInvalidValue, id, "%s is not a key of %s", pr[0], sn.QName.Name)
		}
	}
	if len(ins.Key) != len(sn.Keys) {
		return nil, p.errorAt(common.ErrTagInvalidValue, id, "key attribute must name every key of %s", sn.QName.Name)
	}
	return ins, nil
}

func (el *Element) child(local string) *Element {
	for _, c := range el.Children {
		if c.XMLName.Local == local {
			return c
		}
	}
	return nil
}

// parsePredicates splits a YANG key attribute such as [p:title='Dune'][p:year="1965"] into
// local name and value pairs.
func parsePredicates(s string) ([][2]string, error) {
	var out [][2]string
	s = strings.TrimSpace(s)
	for s != "" {
		if s[0] != '[' {
			return nil, errors.Errorf("expected '[' in %q", s)
		}
		eq := strings.IndexByte(s, '=')
		if eq < 0 || eq+1 >= len(s) {
			return nil, errors.Errorf("missing value in %q", s)
		}
		name := strings.TrimSpace(s[1:eq])
		if i := strings.IndexByte(name, ':'); i >= 0 {
			name = name[i+1:]
		}
		rest := strings.TrimLeft(s[eq+1:], " ")
		if rest == "" || (rest[0] != '\'' && rest[0] != '"') {
			return nil, errors.Errorf("unquoted value in %q", s)
		}
		end := strings.IndexByte(rest[1:], rest[0])
		if end < 0 {
			return nil, errors.Errorf("unterminated value in %q", s)
		}
		value := rest[1 : end+1]
		rest = strings.TrimLeft(rest[end+2:], " ")
		if rest == "" || rest[0] != ']' {
			return nil, errors.Errorf("expected ']' in %q", s)
		}
		out = append(out, [2]string{name, value})
		s = strings.TrimSpace(rest[1:])
	}
	return out, nil
}
