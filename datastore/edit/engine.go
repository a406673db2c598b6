package edit

import (
	"context"

	"github.com/damianoneill/ncstore/datastore/model"
	"github.com/damianoneill/ncstore/netconf/common"
	"github.com/damianoneill/ncstore/schema"

	"github.com/google/uuid"
)

// Engine applies parsed edit-config requests to a Store. An Engine does not serialise
// concurrent Apply calls; callers allow one edit in flight per store.
type Engine struct {
	store     Store
	oracle    schema.Oracle
	validator *Validator
	trace     *EditTrace
}

// NewEngine delivers an Engine writing to s, using the trace hooks found in ctx.
func NewEngine(ctx context.Context, s Store) *Engine {
	return &Engine{store: s, oracle: s.Oracle(), validator: NewValidator(s), trace: ContextEditTrace(ctx)}
}

// Validator delivers the validator the engine checks edits with.
func (e *Engine) Validator() *Validator {
	return e.validator
}

// Apply applies the edits below root, depth first. The first failure stops the edit and is
// returned as an *common.RPCError; changes made before it are kept and reported in the ChangeSet.
func (e *Engine) Apply(ctx context.Context, root *EditNode) (*ChangeSet, error) {
	cs := &ChangeSet{ID: uuid.New(), Datastore: e.store.Name()}
	e.trace.Start(cs.ID, cs.Datastore)

	a := &applier{Engine: e, ctx: ctx, changes: map[string]*Change{}}
	var err error
	for _, child := range root.ChildNodes {
		if err = a.applyNode(nil, child); err != nil {
			break
		}
	}
	cs.Changes = a.result()
	e.trace.Done(cs, err)
	return cs, err
}

type applier struct {
	*Engine
	ctx     context.Context
	order   []*Change
	changes map[string]*Change
}

func (a *applier) applyNode(parent *model.ConfigNode, en *EditNode) error {
	err := a.apply(parent, en)
	a.trace.NodeApplied(a.store.Name(), en.Operation, en.SchemaPath, err)
	return err
}

func (a *applier) apply(parent *model.ConfigNode, en *EditNode) error {
	if err := a.ctx.Err(); err != nil {
		return common.NewRPCError(common.ErrTagOperationFailed, "edit aborted").WithCause(err)
	}
	pid := idOf(parent)
	sn, ok := a.oracle.Node(en.SchemaPath)
	if !ok || (sn.Kind != schema.Container && sn.Kind != schema.List) {
		return a.validator.errorAt(common.ErrTagInvalidValue, pid.Child(en.QName, model.EmptyKey),
			"%s is neither a container nor a list", en.QName.Name)
	}

	switch en.Operation {
	case Create:
		var err error
		if sn.Kind == schema.Container {
			err = a.validator.ValidateExistentContainer(parent, en)
		} else {
			err = a.validator.ValidateExistentList(parent, en)
		}
		if err != nil {
			return err
		}
		index, err := a.insertIndex(pid, sn, en)
		if err != nil {
			return err
		}
		return a.create(parent, sn, en, index)

	case Merge:
		existing, err := a.find(pid, sn, en)
		if err != nil {
			return err
		}
		if existing != nil {
			return a.modify(existing, sn, en)
		}
		index, err := a.insertIndex(pid, sn, en)
		if err != nil {
			return err
		}
		return a.create(parent, sn, en, index)

	case Replace:
		existing, err := a.find(pid, sn, en)
		if err != nil {
			return err
		}
		if existing == nil {
			index, err := a.insertIndex(pid, sn, en)
			if err != nil {
				return err
			}
			return a.create(parent, sn, en, index)
		}
		var index int
		if ordered(sn, en) {
			index, err = a.validator.ValidateListReplace(en, existing)
		} else {
			index, err = a.position(existing)
		}
		if err != nil {
			return err
		}
		if err = a.remove(existing); err != nil {
			return err
		}
		return a.create(parent, sn, en, index)

	case Delete:
		target, err := a.validator.ResolveTarget(parent, en)
		if err != nil {
			return err
		}
		return a.remove(target)

	case Remove:
		existing, err := a.find(pid, sn, en)
		if err != nil || existing == nil {
			return err
		}
		return a.remove(existing)

	case None:
		target, err := a.validator.ResolveTarget(parent, en)
		if err != nil {
			return err
		}
		return a.modify(target, sn, en)
	}
	return a.validator.errorAt(common.ErrTagInvalidValue, pid.Child(en.QName, model.EmptyKey), "unknown operation %q", en.Operation)
}

func (a *applier) find(parent model.NodeID, sn *schema.Node, en *EditNode) (*model.ConfigNode, error) {
	key, err := a.validator.Key(parent, en)
	if err != nil {
		return nil, err
	}
	n, err := a.store.FindNode(sn.Path, key, parent)
	if err != nil {
		return nil, a.validator.internal(parent, err, "node lookup failed")
	}
	return n, nil
}

// ordered reports whether en carries an insert directive that positions a user ordered entry.
func ordered(sn *schema.Node, en *EditNode) bool {
	return sn.Kind == schema.List && sn.OrderedByUser && en.Insert != nil
}

func (a *applier) insertIndex(parent model.NodeID, sn *schema.Node, en *EditNode) (int, error) {
	if !ordered(sn, en) {
		return appendIndex, nil
	}
	return a.validator.ValidateListInsert(en, parent)
}

func (a *applier) position(n *model.ConfigNode) (int, error) {
	if n.ParentID.IsRoot() {
		return appendIndex, nil
	}
	siblings, _, err := a.store.ListChildNodes(n.SchemaPath, n.ParentID)
	if err != nil {
		return 0, a.validator.internal(n.ID, err, "list lookup failed")
	}
	for i, s := range siblings {
		if s.Key.Equal(n.Key) {
			return i, nil
		}
	}
	return appendIndex, nil
}

func (a *applier) create(parent *model.ConfigNode, sn *schema.Node, en *EditNode, index int) error {
	pid := idOf(parent)
	key, err := a.validator.Key(pid, en)
	if err != nil {
		return err
	}
	if parent != nil && sn.Case() != nil {
		old, err := a.validator.HandleChoiceCaseNode(parent, sn.QName)
		if err != nil {
			return err
		}
		a.cleared(parent, old)
	}

	n := model.NewConfigNode(sn, pid, key)
	if err := a.store.CreateNode(n, pid, index); err != nil {
		return a.validator.internal(n.ID, err, "create failed")
	}
	c := a.record(n, Created)
	if err := a.content(n, sn, en, c); err != nil {
		return err
	}
	if err := a.defaults(n, sn); err != nil {
		return err
	}
	return a.finalize(c, n)
}

func (a *applier) modify(n *model.ConfigNode, sn *schema.Node, en *EditNode) error {
	index := appendIndex
	if ordered(sn, en) {
		var err error
		if index, err = a.validator.ValidateListInsert(en, n.ParentID); err != nil {
			return err
		}
	}
	c := a.record(n, Modified)
	if ordered(sn, en) {
		if err := a.store.MoveNode(n, n.ParentID, index); err != nil {
			return a.validator.internal(n.ID, err, "move failed")
		}
		c.Moved = true
	}
	if err := a.content(n, sn, en, c); err != nil {
		return err
	}
	return a.finalize(c, n)
}

func (a *applier) remove(n *model.ConfigNode) error {
	c := a.record(n, Deleted)
	for q, v := range n.Attributes {
		c.OldValues[q] = []model.LeafValue{v}
	}
	for q, vals := range n.LeafLists {
		c.OldValues[q] = vals
	}
	if err := a.store.RemoveNode(n, n.ParentID); err != nil {
		return a.validator.internal(n.ID, err, "remove failed")
	}
	return nil
}

func (a *applier) content(n *model.ConfigNode, sn *schema.Node, en *EditNode, c *Change) error {
	for _, ch := range en.ChangeNodes {
		if err := a.leaf(n, sn, ch, c); err != nil {
			return err
		}
	}
	for _, child := range en.ChildNodes {
		if err := a.applyNode(n, child); err != nil {
			return err
		}
	}
	return nil
}

// defaults sets the schema default of every unset leaf of n that is not part of a case.
func (a *applier) defaults(n *model.ConfigNode, sn *schema.Node) error {
	current, err := a.store.FindNode(n.SchemaPath, n.Key, n.ParentID)
	if err != nil || current == nil {
		return err
	}
	attrs := map[schema.QName]model.LeafValue{}
	for _, dc := range sn.DataChildren() {
		if dc.Kind != schema.Leaf || dc.Default == nil || dc.Case() != nil {
			continue
		}
		if _, ok := current.Attributes[dc.QName]; ok {
			continue
		}
		v, err := model.NewLeafValue(dc.Type, *dc.Default)
		if err != nil {
			return a.validator.internal(n.ID, err, "invalid default for "+dc.QName.Name)
		}
		attrs[dc.QName] = v
	}
	if len(attrs) == 0 {
		return nil
	}
	if err := a.store.UpdateNode(current, current.ParentID, attrs, nil, appendIndex, false); err != nil {
		return a.validator.internal(n.ID, err, "update failed")
	}
	return nil
}

func (a *applier) leaf(n *model.ConfigNode, sn *schema.Node, ch *ChangeNode, c *Change) error {
	leafID := n.ID.Child(ch.QName, model.EmptyKey)
	lsn, ok := a.oracle.Node(ch.SchemaPath)
	if !ok || (lsn.Kind != schema.Leaf && lsn.Kind != schema.LeafList) {
		return a.validator.errorAt(common.ErrTagUnknownElement, leafID, "unknown leaf %s", ch.QName.Name)
	}
	if sn.IsKey(ch.QName) {
		if v, _ := n.Key.Get(ch.QName); v != ch.Value && ch.Operation != None {
			return a.validator.errorAt(common.ErrTagInvalidValue, leafID, "key leaf %s cannot be changed", ch.QName.Name)
		}
		return nil
	}
	current, err := a.store.FindNode(n.SchemaPath, n.Key, n.ParentID)
	if err != nil {
		return a.validator.internal(n.ID, err, "node lookup failed")
	}
	if current == nil {
		return a.validator.errorAt(common.ErrTagDataMissing, n.ID, "node does not exist")
	}
	if lsn.Kind == schema.Leaf {
		return a.setLeaf(current, lsn, ch, c, leafID)
	}
	return a.setLeafListEntry(current, lsn, ch, c, leafID)
}

func (a *applier) setLeaf(current *model.ConfigNode, lsn *schema.Node, ch *ChangeNode, c *Change, leafID model.NodeID) error {
	old, isSet := current.Attributes[ch.QName]
	var attrs map[schema.QName]model.LeafValue
	switch ch.Operation {
	case Create, Merge, Replace:
		if ch.Operation == Create && isSet {
			return a.validator.errorAt(common.ErrTagDataExists, leafID, "leaf %s already set", ch.QName.Name)
		}
		if isSet && old == ch.Value {
			return nil
		}
		if lsn.Case() != nil {
			cleared, err := a.validator.HandleChoiceCaseNode(current, ch.QName)
			if err != nil {
				return err
			}
			c.touchAll(cleared)
		}
		attrs = map[schema.QName]model.LeafValue{ch.QName: ch.Value}
	case Delete, Remove:
		if !isSet {
			if ch.Operation == Delete {
				return a.validator.errorAt(common.ErrTagDataMissing, leafID, "leaf %s is not set", ch.QName.Name)
			}
			return nil
		}
		attrs = map[schema.QName]model.LeafValue{ch.QName: model.Unset}
	default:
		return nil
	}
	if isSet {
		c.touch(ch.QName, []model.LeafValue{old})
	} else {
		c.touch(ch.QName, nil)
	}
	if err := a.store.UpdateNode(current, current.ParentID, attrs, nil, appendIndex, false); err != nil {
		return a.validator.internal(current.ID, err, "update failed")
	}
	return nil
}

func (a *applier) setLeafListEntry(current *model.ConfigNode, lsn *schema.Node, ch *ChangeNode, c *Change, leafID model.NodeID) error {
	present := current.IndexOf(ch.QName, ch.Value) >= 0
	members := append([]model.LeafValue(nil), current.LeafLists[ch.QName]...)
	values := map[schema.QName][]model.LeafValue{ch.QName: {ch.Value}}
	index := appendIndex
	remove := false

	switch ch.Operation {
	case Create, Merge, Replace:
		if ch.Operation == Create && present {
			return a.validator.errorAt(common.ErrTagDataExists, leafID, "%s is already a member of %s", ch.Value, ch.QName.Name)
		}
		if lsn.OrderedByUser && ch.Insert != nil {
			var err error
			if index, err = a.validator.ValidateInsertRequest(ch, ch.Operation, ch.Insert, current); err != nil {
				return err
			}
		} else if present {
			return nil
		}
		if lsn.Case() != nil && !present {
			cleared, err := a.validator.HandleChoiceCaseNode(current, ch.QName)
			if err != nil {
				return err
			}
			c.touchAll(cleared)
		}
	case Delete, Remove:
		if !present {
			if ch.Operation == Delete {
				return a.validator.errorAt(common.ErrTagDataMissing, leafID, "%s is not a member of %s", ch.Value, ch.QName.Name)
			}
			return nil
		}
		remove = true
	default:
		return nil
	}
	c.touch(ch.QName, members)
	if err := a.store.UpdateNode(current, current.ParentID, nil, values, index, remove); err != nil {
		return a.validator.internal(current.ID, err, "update failed")
	}
	return nil
}

// cleared records on parent the values removed by choice/case cleanup.
func (a *applier) cleared(parent *model.ConfigNode, old map[schema.QName][]model.LeafValue) {
	if len(old) == 0 {
		return
	}
	a.record(parent, Modified).touchAll(old)
}

func (a *applier) record(n *model.ConfigNode, t ChangeType) *Change {
	if t == Modified {
		if c, ok := a.changes[string(Created)+n.ID.Key()]; ok {
			return c
		}
	}
	k := string(t) + n.ID.Key()
	if c, ok := a.changes[k]; ok {
		return c
	}
	c := &Change{
		ID:         n.ID,
		SchemaPath: n.SchemaPath,
		Type:       t,
		OldValues:  map[schema.QName][]model.LeafValue{},
		NewValues:  map[schema.QName][]model.LeafValue{},
	}
	a.changes[k] = c
	a.order = append(a.order, c)
	return c
}

// finalize fills in the values n holds after the edit.
func (a *applier) finalize(c *Change, n *model.ConfigNode) error {
	current, err := a.store.FindNode(n.SchemaPath, n.Key, n.ParentID)
	if err != nil {
		return a.validator.internal(n.ID, err, "node lookup failed")
	}
	if current == nil {
		return nil
	}
	if c.Type == Created {
		for q, v := range current.Attributes {
			c.NewValues[q] = []model.LeafValue{v}
		}
		for q, vals := range current.LeafLists {
			c.NewValues[q] = vals
		}
		return nil
	}
	for q := range c.NewValues {
		if v, ok := current.Attributes[q]; ok {
			c.NewValues[q] = []model.LeafValue{v}
		} else {
			c.NewValues[q] = current.LeafLists[q]
		}
	}
	return nil
}

func (a *applier) result() []*Change {
	out := make([]*Change, 0, len(a.order))
	for _, c := range a.order {
		if c.Type == Modified && !c.Moved && len(c.NewValues) == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// touch marks q as changed, keeping the first recorded old value.
func (c *Change) touch(q schema.QName, old []model.LeafValue) {
	if _, seen := c.NewValues[q]; seen {
		return
	}
	if len(old) > 0 {
		c.OldValues[q] = old
	}
	c.NewValues[q] = nil
}

func (c *Change) touchAll(old map[schema.QName][]model.LeafValue) {
	for q, vals := range old {
		c.touch(q, vals)
	}
}
