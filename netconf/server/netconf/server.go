// Package netconf runs NETCONF sessions over the ssh subsystem server: the hello exchange,
// framing negotiation and the rpc loop. Requests are handed to a caller supplied SessionCallback.
package netconf

import (
	"context"
	"encoding/xml"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/damianoneill/ncstore/netconf/common"
	"github.com/damianoneill/ncstore/netconf/common/codec"
	"github.com/damianoneill/ncstore/netconf/server/ssh"

	"github.com/pkg/errors"
	xssh "golang.org/x/crypto/ssh"
)

// HelloTimeout bounds the wait for the client hello.
const HelloTimeout = 5 * time.Second

// ErrNoHello ends a session whose client did not send a usable hello in time.
var ErrNoHello = errors.New("no client hello received")

// Server represents a Netconf Server.
// It encapsulates a transport connection to an SSH server, and session handlers that will
// be invoked to handle netconf messages.
type Server struct {
	*ssh.Server
	sf    SessionFactory
	trace *Trace

	mu       sync.Mutex
	sessions map[uint64]*SessionHandler
	nextSid  uint64
}

// SessionCallback defines the caller supplied callback functions.
type SessionCallback interface {
	// Capabilities is called to retrieve the capabilities that should be advertised to the client.
	// If the callback returns nil, the default set of capabilities is used.
	Capabilities() []string

	// HandleRequest is called to handle an RPC request. A nil reply sends nothing.
	HandleRequest(req *RPCRequestMessage) *RPCReplyMessage

	// Closed is called once the session has ended.
	Closed()
}

// SessionFactory delivers the callback of a new session.
type SessionFactory func(*SessionHandler) SessionCallback

// SessionHandler represents the server side of an active netconf SSH session.
type SessionHandler struct {

	// server references the Netconf server that launched the session.
	server *Server

	// svrcon is the underlying ssh server connection.
	svrcon *xssh.ServerConn

	// ch is the underlying transport channel.
	ch xssh.Channel

	// The codecs used to handle client i/o
	enc *codec.Encoder
	dec *codec.Decoder

	// Serialises access to encoder.
	encLock sync.Mutex

	// The capabilities advertised to the client.
	capabilities []string
	// The session id to be reported to the client.
	sid uint64

	// Delivers the first client hello to the session setup.
	hellochan chan *common.HelloMessage

	// The HelloMessage sent by the connecting client.
	ClientHello *common.HelloMessage

	// Caller supplied callbacks
	cb SessionCallback
}

// RPCRequestMessage represents an RPC request from a client, where the element type of the
// request body is unknown.
type RPCRequestMessage struct {
	XMLName   xml.Name
	MessageID string     `xml:"message-id,attr"`
	Attrs     []xml.Attr `xml:",any,attr"`
	Request   RPCRequest `xml:",any"`
	Body      string     `xml:",innerxml"`
}

// RPCRequest describes the operation element of an RPC request.
type RPCRequest struct {
	XMLName xml.Name
	Body    string `xml:",innerxml"`
}

// Decode unmarshals the content of the rpc element into v, resolving the namespace prefixes
// declared on the rpc element itself.
func (m *RPCRequestMessage) Decode(v interface{}) error {
	var b strings.Builder
	b.WriteString("<rpc")
	for _, a := range m.Attrs {
		switch {
		case a.Name.Space == "xmlns":
			b.WriteString(" xmlns:" + a.Name.Local + `="`)
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			b.WriteString(` xmlns="`)
		default:
			continue
		}
		_ = xml.EscapeText(&b, []byte(a.Value))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	b.WriteString(m.Body)
	b.WriteString("</rpc>")
	return xml.Unmarshal([]byte(b.String()), v)
}

// RPCReplyMessage represents an rpc-reply message that will be sent to a client session. At
// most one of Errors, Data and Ok is expected to be set.
type RPCReplyMessage struct {
	XMLName   xml.Name           `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 rpc-reply"`
	MessageID string             `xml:"message-id,attr,omitempty"`
	Errors    []*common.RPCError `xml:"rpc-error,omitempty"`
	Data      *ReplyData         `xml:"data,omitempty"`
	Ok        *struct{}          `xml:"ok,omitempty"`

	// EndSession closes the session once the reply has been sent.
	EndSession bool `xml:"-"`
}

// ReplyData holds the raw content of a data element.
type ReplyData struct {
	Data string `xml:",innerxml"`
}

// OkReply delivers an <ok/> reply to req.
func OkReply(req *RPCRequestMessage) *RPCReplyMessage {
	return &RPCReplyMessage{MessageID: req.MessageID, Ok: &struct{}{}}
}

// DataReply delivers a reply to req carrying data.
func DataReply(req *RPCRequestMessage, data string) *RPCReplyMessage {
	return &RPCReplyMessage{MessageID: req.MessageID, Data: &ReplyData{Data: data}}
}

// ErrorReply delivers a reply to req reporting err. Errors other than *common.RPCError are
// reported as operation-failed.
func ErrorReply(req *RPCRequestMessage, err error) *RPCReplyMessage {
	var rerr *common.RPCError
	if !errors.As(err, &rerr) {
		rerr = common.NewRPCError(common.ErrTagOperationFailed, "%s", err.Error()).WithCause(err)
	}
	reply := &RPCReplyMessage{Errors: []*common.RPCError{rerr}}
	if req != nil {
		reply.MessageID = req.MessageID
	}
	return reply
}

// NewServer creates a new Server that will accept Netconf connections on address:port (port 0
// selects an ephemeral port, available via Port()), with credentials defined by the sshcfg
// configuration.
func NewServer(ctx context.Context, address string, port int, sshcfg *xssh.ServerConfig, sf SessionFactory) (*Server, error) {
	trace := ContextTrace(ctx)
	if trace.Trace != nil {
		ctx = ssh.WithTrace(ctx, trace.Trace)
	}

	ncs := &Server{sessions: make(map[uint64]*SessionHandler), sf: sf, trace: trace}

	var err error
	ncs.Server, err = ssh.NewServer(ctx, address, port, sshcfg, ncs.handlerFactory())
	if err != nil {
		return nil, err
	}
	return ncs, nil
}

func (ncs *Server) handlerFactory() ssh.HandlerFactory {
	return func(svrconn *xssh.ServerConn) ssh.Handler {
		sid := atomic.AddUint64(&ncs.nextSid, 1)
		sess := ncs.newSessionHandler(svrconn, sid)
		ncs.mu.Lock()
		ncs.sessions[sid] = sess
		ncs.mu.Unlock()
		return sess
	}
}

// Sessions delivers the number of active sessions.
func (ncs *Server) Sessions() int {
	ncs.mu.Lock()
	defer ncs.mu.Unlock()
	return len(ncs.sessions)
}

// Close prevents subsequent connections, disconnects the active sessions and waits for them
// to end.
func (ncs *Server) Close() {
	ncs.Server.Close()
}

func (ncs *Server) newSessionHandler(svrcon *xssh.ServerConn, sid uint64) *SessionHandler {
	sh := &SessionHandler{
		server:       ncs,
		svrcon:       svrcon,
		sid:          sid,
		hellochan:    make(chan *common.HelloMessage, 1),
		capabilities: common.DefaultCapabilities,
	}

	ncs.trace.StartSession(sh)

	sh.cb = ncs.sf(sh)
	if caps := sh.cb.Capabilities(); caps != nil {
		sh.capabilities = caps
	}
	return sh
}

func (ncs *Server) endSession(h *SessionHandler) {
	ncs.mu.Lock()
	delete(ncs.sessions, h.sid)
	ncs.mu.Unlock()
	h.cb.Closed()
}

// ID delivers the session id reported to the client.
func (h *SessionHandler) ID() uint64 {
	return h.sid
}

// RemoteAddr delivers the address of the client, if connected.
func (h *SessionHandler) RemoteAddr() string {
	if h.svrcon == nil {
		return ""
	}
	return h.svrcon.RemoteAddr().String()
}

// Handle establishes a Netconf server session on a newly-connected SSH channel.
func (h *SessionHandler) Handle(ch xssh.Channel) {
	h.ch = ch
	h.dec = codec.NewDecoder(ch)
	h.enc = codec.NewEncoder(ch)
	defer h.server.endSession(h)

	// Send server hello to client.
	err := h.encode(&common.HelloMessage{Capabilities: h.capabilities, SessionID: h.sid})
	if err == nil {
		done := make(chan struct{})
		go func() {
			defer close(done)
			h.handleIncomingMessages()
		}()
		if !h.waitForClientHello(done) {
			err = ErrNoHello
			h.Close()
		}
		// Wait for message handling routine to finish.
		<-done
	}
	h.server.trace.EndSession(h, err)
}

// Close initiates session tear-down by closing the underlying transport channel.
func (h *SessionHandler) Close() {
	if h.ch != nil {
		_ = h.ch.Close() // nolint: errcheck, gosec
	}
}

func (h *SessionHandler) waitForClientHello(done <-chan struct{}) bool {

	// Wait for the input handler to send the client hello, or to give up reading.
	select {
	case h.ClientHello = <-h.hellochan:
	case <-done:
		select {
		case h.ClientHello = <-h.hellochan:
		default:
		}
	case <-time.After(HelloTimeout):
	}

	h.server.trace.ClientHello(h)
	return h.ClientHello != nil
}

func (h *SessionHandler) handleIncomingMessages() {
	helloSeen := false

	// Loop, looking for a start element type of hello, rpc.
	for {
		token, err := h.dec.Token()
		if err != nil {
			return
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name {
		case common.NameHello: // <hello>
			if helloSeen || !h.handleHello(start) {
				return
			}
			helloSeen = true
		case common.NameRPC: // <rpc>
			if !helloSeen || !h.handleRPC(start) {
				h.Close()
				return
			}
		default:
			if err := h.dec.Skip(); err != nil {
				return
			}
		}
	}
}

// handleHello decodes the client hello and delivers it to the session setup. A hello
// without a base capability ends the session.
func (h *SessionHandler) handleHello(token xml.StartElement) bool {
	hello := &common.HelloMessage{}
	if err := h.decodeElement(hello, &token); err != nil || !supportsBase(hello.Capabilities) {
		h.hellochan <- nil
		return false
	}
	if common.PeerSupportsChunkedFraming(hello.Capabilities) && common.PeerSupportsChunkedFraming(h.capabilities) {
		// Update the codec to use chunked framing from now.
		codec.EnableChunkedFraming(h.dec, h.enc)
	}
	h.hellochan <- hello
	return true
}

func supportsBase(caps []string) bool {
	for _, c := range caps {
		if c == common.CapBase10 || c == common.CapBase11 {
			return true
		}
	}
	return false
}

// handleRPC serves one request and reports whether the session continues.
func (h *SessionHandler) handleRPC(token xml.StartElement) bool {
	request := &RPCRequestMessage{}
	if err := h.decodeElement(request, &token); err != nil {
		_ = h.encode(ErrorReply(nil, malformed(err)))
		return false
	}

	begin := time.Now()
	var reply *RPCReplyMessage
	if request.MessageID == "" {
		rerr := common.NewRPCError(common.ErrTagMissingAttribute, "rpc has no message-id attribute")
		rerr.Type = common.ErrTypeRPC
		rerr.Info = &common.ErrorInfo{Content: "<bad-attribute>message-id</bad-attribute><bad-element>rpc</bad-element>"}
		reply = ErrorReply(request, rerr)
	} else {
		reply = h.cb.HandleRequest(request)
	}
	h.server.trace.Handled(h, request, reply, time.Since(begin))
	if reply == nil {
		return true
	}
	reply.MessageID = request.MessageID
	if err := h.encode(reply); err != nil {
		return false
	}
	return !reply.EndSession
}

func malformed(err error) *common.RPCError {
	rerr := common.NewRPCError(common.ErrTagMalformedMessage, "malformed rpc").WithCause(err)
	rerr.Type = common.ErrTypeRPC
	return rerr
}

func (h *SessionHandler) decodeElement(v interface{}, start *xml.StartElement) error {
	err := h.dec.DecodeElement(v, start)
	h.server.trace.Decoded(h, err)
	return err
}

func (h *SessionHandler) encode(m interface{}) error {
	h.encLock.Lock()
	defer h.encLock.Unlock()
	err := h.enc.Encode(m)
	h.server.trace.Encoded(h, err)
	return err
}
