// Package dispatch serves NETCONF operations against a set of named datastores. It supplies the
// SessionCallback used by the netconf server for get, get-config, edit-config, lock, unlock and
// close-session.
package dispatch

import (
	"context"
	"fmt"

	"github.com/damianoneill/ncstore/datastore"
	"github.com/damianoneill/ncstore/datastore/edit"
	"github.com/damianoneill/ncstore/netconf/common"
	"github.com/damianoneill/ncstore/netconf/server/netconf"

	log "github.com/sirupsen/logrus"
)

// Edit config options.
const (
	StopOnErrorErrOpt     = "stop-on-error"
	ContinueOnErrorErrOpt = "continue-on-error"
	RollbackOnErrorErrOpt = "rollback-on-error"

	TestThenSetOpt = "test-then-set"
	SetOpt         = "set"
	TestOnlyOpt    = "test-only"
)

// Observer is told the outcome of every rpc served; err is nil on success.
type Observer interface {
	ObserveRPC(rpc string, err error)
}

// Dispatcher routes requests to datastores by name.
type Dispatcher struct {
	ctx          context.Context
	datastores   map[string]*datastore.Datastore
	observer     Observer
	capabilities []string
}

// New delivers a Dispatcher serving the given datastores. Edits are applied with the trace hooks
// carried by ctx. observer may be nil.
func New(ctx context.Context, observer Observer, stores ...*datastore.Datastore) *Dispatcher {
	d := &Dispatcher{
		ctx:          ctx,
		datastores:   make(map[string]*datastore.Datastore, len(stores)),
		observer:     observer,
		capabilities: []string{common.CapBase10, common.CapBase11},
	}
	for _, ds := range stores {
		d.datastores[ds.Name()] = ds
	}
	if _, ok := d.datastores[datastore.Running]; ok {
		d.capabilities = append(d.capabilities, common.CapWritableRunning)
	}
	return d
}

// Datastore delivers the named datastore.
func (d *Dispatcher) Datastore(name string) (*datastore.Datastore, bool) {
	ds, ok := d.datastores[name]
	return ds, ok
}

// Capabilities delivers the capabilities advertised in the server hello.
func (d *Dispatcher) Capabilities() []string {
	return d.capabilities
}

// Factory delivers the session factory to pass to netconf.NewServer.
func (d *Dispatcher) Factory() netconf.SessionFactory {
	return func(sh *netconf.SessionHandler) netconf.SessionCallback {
		return &session{d: d, id: sh.ID()}
	}
}

// ReleaseLocks drops every datastore lock held by session.
func (d *Dispatcher) ReleaseLocks(session uint64) {
	for name, ds := range d.datastores {
		if ds.Release(session) {
			log.WithFields(log.Fields{"session": session, "datastore": name}).Info("Dispatch-LockReleased")
		}
	}
}

func (d *Dispatcher) observe(rpc string, err error) {
	if d.observer != nil {
		d.observer.ObserveRPC(rpc, err)
	}
}

// session is the callback of one NETCONF session.
type session struct {
	d  *Dispatcher
	id uint64
}

func (s *session) Capabilities() []string {
	return s.d.capabilities
}

func (s *session) Closed() {
	s.d.ReleaseLocks(s.id)
}

func (s *session) HandleRequest(req *netconf.RPCRequestMessage) *netconf.RPCReplyMessage {
	name := req.Request.XMLName.Local
	reply, err := s.serve(req)
	s.d.observe(name, err)
	if err != nil {
		return netconf.ErrorReply(req, err)
	}
	return reply
}

func (s *session) serve(req *netconf.RPCRequestMessage) (*netconf.RPCReplyMessage, error) {
	if req.Request.XMLName.Space != common.NetconfNS {
		return nil, unsupported(req.Request.XMLName.Local)
	}
	switch req.Request.XMLName.Local {
	case "get":
		return s.get(req)
	case "get-config":
		return s.getConfig(req)
	case "edit-config":
		return s.editConfig(req)
	case "lock":
		return s.lock(req, true)
	case "unlock":
		return s.lock(req, false)
	case "close-session":
		s.d.ReleaseLocks(s.id)
		reply := netconf.OkReply(req)
		reply.EndSession = true
		return reply, nil
	}
	return nil, unsupported(req.Request.XMLName.Local)
}

func (s *session) get(req *netconf.RPCRequestMessage) (*netconf.RPCReplyMessage, error) {
	var rpc struct {
		Op struct {
			Filter *filter `xml:"filter"`
		} `xml:"get"`
	}
	if err := decode(req, &rpc); err != nil {
		return nil, err
	}
	ds, ok := s.d.datastores[datastore.Running]
	if !ok {
		return nil, common.NewRPCError(common.ErrTagOperationFailed, "no running datastore")
	}
	return render(req, ds, rpc.Op.Filter)
}

func (s *session) getConfig(req *netconf.RPCRequestMessage) (*netconf.RPCReplyMessage, error) {
	var rpc struct {
		Op struct {
			Source *datastoreRef `xml:"source"`
			Filter *filter       `xml:"filter"`
		} `xml:"get-config"`
	}
	if err := decode(req, &rpc); err != nil {
		return nil, err
	}
	ds, err := s.d.resolve(rpc.Op.Source, "source")
	if err != nil {
		return nil, err
	}
	return render(req, ds, rpc.Op.Filter)
}

func render(req *netconf.RPCRequestMessage, ds *datastore.Datastore, f *filter) (*netconf.RPCReplyMessage, error) {
	elements, err := f.subtree()
	if err != nil {
		return nil, err
	}
	data, err := ds.GetConfig(elements)
	if err != nil {
		return nil, common.NewRPCError(common.ErrTagOperationFailed, "get-config on %s failed", ds.Name()).WithCause(err)
	}
	return netconf.DataReply(req, string(data)), nil
}

func (s *session) editConfig(req *netconf.RPCRequestMessage) (*netconf.RPCReplyMessage, error) {
	var rpc struct {
		Op struct {
			Target           *datastoreRef `xml:"target"`
			DefaultOperation string        `xml:"default-operation"`
			TestOption       string        `xml:"test-option"`
			ErrorOption      string        `xml:"error-option"`
			Config           *struct {
				Elements []*edit.Element `xml:",any"`
			} `xml:"config"`
			URL *string `xml:"url"`
		} `xml:"edit-config"`
	}
	if err := decode(req, &rpc); err != nil {
		return nil, err
	}
	op := rpc.Op
	ds, err := s.d.resolve(op.Target, "target")
	if err != nil {
		return nil, err
	}
	defaultOp, err := defaultOperation(op.DefaultOperation)
	if err != nil {
		return nil, err
	}
	if err := checkOptions(op.TestOption, op.ErrorOption); err != nil {
		return nil, err
	}
	switch {
	case op.URL != nil:
		return nil, unsupported("url")
	case op.Config == nil:
		return nil, missingElement("config")
	}

	if _, err := ds.EditElements(s.d.ctx, s.id, op.Config.Elements, defaultOp); err != nil {
		return nil, err
	}
	return netconf.OkReply(req), nil
}

func defaultOperation(v string) (edit.Operation, error) {
	switch op := edit.Operation(v); op {
	case "":
		return edit.Merge, nil
	case edit.Merge, edit.Replace, edit.None:
		return op, nil
	}
	return "", invalidValue("default-operation", v)
}

func checkOptions(testOpt, errOpt string) error {
	switch testOpt {
	case "", TestThenSetOpt, SetOpt:
	case TestOnlyOpt:
		return common.NewRPCError(common.ErrTagOperationNotSupported, "test-option %s is not supported", testOpt)
	default:
		return invalidValue("test-option", testOpt)
	}
	switch errOpt {
	case "", StopOnErrorErrOpt:
	case ContinueOnErrorErrOpt, RollbackOnErrorErrOpt:
		return common.NewRPCError(common.ErrTagOperationNotSupported, "error-option %s is not supported", errOpt)
	default:
		return invalidValue("error-option", errOpt)
	}
	return nil
}

func (s *session) lock(req *netconf.RPCRequestMessage, acquire bool) (*netconf.RPCReplyMessage, error) {
	var rpc struct {
		Target *datastoreRef `xml:"lock>target"`
		Unlock *datastoreRef `xml:"unlock>target"`
	}
	if err := decode(req, &rpc); err != nil {
		return nil, err
	}
	ref := rpc.Target
	if !acquire {
		ref = rpc.Unlock
	}
	ds, err := s.d.resolve(ref, "target")
	if err != nil {
		return nil, err
	}
	if acquire {
		err = ds.Lock(s.id)
	} else {
		err = ds.Unlock(s.id)
	}
	if err != nil {
		return nil, err
	}
	return netconf.OkReply(req), nil
}

// datastoreRef is a source or target parameter naming a datastore by its element.
type datastoreRef struct {
	Elements []*edit.Element `xml:",any"`
}

func (d *Dispatcher) resolve(ref *datastoreRef, param string) (*datastore.Datastore, error) {
	if ref == nil || len(ref.Elements) == 0 {
		return nil, missingElement(param)
	}
	name := ref.Elements[0].XMLName.Local
	if name == "url" {
		return nil, unsupported(name)
	}
	ds, ok := d.datastores[name]
	if !ok || len(ref.Elements) > 1 {
		return nil, invalidValue(param, name)
	}
	return ds, nil
}

// filter is the filter parameter of get and get-config.
type filter struct {
	Type     string          `xml:"type,attr"`
	Elements []*edit.Element `xml:",any"`
}

// subtree delivers the selection of the filter, nil for the whole configuration.
func (f *filter) subtree() ([]*edit.Element, error) {
	if f == nil {
		return nil, nil
	}
	switch f.Type {
	case "", "subtree":
	case "xpath":
		return nil, common.NewRPCError(common.ErrTagOperationNotSupported, "xpath filters are not supported")
	default:
		rerr := common.NewRPCError(common.ErrTagBadAttribute, "unknown filter type %s", f.Type)
		rerr.Type = common.ErrTypeProtocol
		rerr.Info = &common.ErrorInfo{Content: "<bad-attribute>type</bad-attribute><bad-element>filter</bad-element>"}
		return nil, rerr
	}
	if f.Elements == nil {
		return []*edit.Element{}, nil
	}
	return f.Elements, nil
}

func decode(req *netconf.RPCRequestMessage, v interface{}) error {
	if err := req.Decode(v); err != nil {
		rerr := common.NewRPCError(common.ErrTagMalformedMessage, "malformed %s request", req.Request.XMLName.Local).WithCause(err)
		rerr.Type = common.ErrTypeRPC
		return rerr
	}
	return nil
}

func unsupported(name string) *common.RPCError {
	rerr := common.NewRPCError(common.ErrTagOperationNotSupported, "%s is not supported", name)
	rerr.Type = common.ErrTypeProtocol
	rerr.Info = badElement(name)
	return rerr
}

func missingElement(name string) *common.RPCError {
	rerr := common.NewRPCError(common.ErrTagMissingElement, "missing %s parameter", name)
	rerr.Type = common.ErrTypeProtocol
	rerr.Info = badElement(name)
	return rerr
}

func invalidValue(name, value string) *common.RPCError {
	rerr := common.NewRPCError(common.ErrTagInvalidValue, "invalid %s %s", name, value)
	rerr.Type = common.ErrTypeProtocol
	rerr.Info = badElement(name)
	return rerr
}

func badElement(name string) *common.ErrorInfo {
	return &common.ErrorInfo{Content: fmt.Sprintf("<bad-element>%s</bad-element>", name)}
}
