package netconf

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"testing"

	"github.com/damianoneill/ncstore/internal/ncclient"
	"github.com/damianoneill/ncstore/netconf/common"
	"github.com/damianoneill/ncstore/netconf/common/codec"
	"github.com/damianoneill/ncstore/netconf/server/ssh"

	assert "github.com/stretchr/testify/require"
	"github.com/stretchr/testify/mock"
)

// Defines credentials used for test sessions.
const (
	TestUserName = "testUser"
	TestPassword = "testPassword"
)

type mockCallback struct {
	mock.Mock
}

func (m *mockCallback) Capabilities() []string {
	args := m.Called()
	caps, _ := args.Get(0).([]string)
	return caps
}

func (m *mockCallback) HandleRequest(req *RPCRequestMessage) *RPCReplyMessage {
	args := m.Called(req)
	reply, _ := args.Get(0).(*RPCReplyMessage)
	return reply
}

func (m *mockCallback) Closed() {
	m.Called()
}

func rpcNamed(name string) interface{} {
	return mock.MatchedBy(func(req *RPCRequestMessage) bool { return req.Request.XMLName.Local == name })
}

func newTestServer(ctx context.Context, t *testing.T, cb SessionCallback) *Server {
	sshcfg, err := ssh.PasswordConfig(TestUserName, TestPassword, "")
	assert.NoError(t, err)

	server, err := NewServer(ctx, "localhost", 0, sshcfg, func(sh *SessionHandler) SessionCallback { return cb })
	assert.NoError(t, err)
	assert.NotNil(t, server)
	return server
}

func dial(t *testing.T, server *Server) *ncclient.Transport {
	tr, err := ncclient.Dial(context.Background(), fmt.Sprintf("localhost:%d", server.Port()), TestUserName, TestPassword, ssh.Subsystem)
	assert.NoError(t, err)
	return tr
}

func TestServer(t *testing.T) {
	for _, caps := range [][]string{common.DefaultCapabilities, common.NoChunkedCodecCapabilities} {
		cb := &mockCallback{}
		cb.On("Capabilities").Return(nil)
		cb.On("HandleRequest", rpcNamed("get")).Return(DataReply(&RPCRequestMessage{}, `<top xmlns="urn:example:top"><sub>value</sub></top>`))
		cb.On("HandleRequest", rpcNamed("lock")).Return(ErrorReply(&RPCRequestMessage{}, common.NewRPCError(common.ErrTagLockDenied, "locked")))
		cb.On("HandleRequest", rpcNamed("commit")).Return(OkReply(&RPCRequestMessage{}))
		cb.On("Closed").Return()

		ctx := WithTrace(context.Background(), DiagnosticLoggingHooks)
		server := newTestServer(ctx, t, cb)

		s, err := ncclient.NewSession(dial(t, server), caps)
		assert.NoError(t, err)
		assert.Equal(t, uint64(1), s.ServerHello.SessionID)
		assert.Equal(t, common.DefaultCapabilities, s.ServerHello.Capabilities)

		reply, err := s.Exec(`<get/>`)
		assert.NoError(t, err)
		assert.Equal(t, `<top xmlns="urn:example:top"><sub>value</sub></top>`, reply.Data.Content)
		assert.Nil(t, reply.Ok)

		reply, err = s.Exec(`<lock><target><running/></target></lock>`)
		assert.NoError(t, err)
		assert.Len(t, reply.Errors, 1)
		assert.Equal(t, common.ErrTagLockDenied, reply.Errors[0].Tag)
		assert.Equal(t, "locked", reply.Errors[0].Message)

		reply, err = s.Exec(`<commit/>`)
		assert.NoError(t, err)
		assert.NotNil(t, reply.Ok)
		assert.Nil(t, reply.Data)

		assert.Equal(t, 1, server.Sessions())
		_ = s.Close()
		server.Close()
		assert.Equal(t, 0, server.Sessions())
		cb.AssertExpectations(t)
	}
}

func TestMissingMessageID(t *testing.T) {
	cb := &mockCallback{}
	cb.On("Capabilities").Return(nil)
	cb.On("Closed").Return()
	server := newTestServer(context.Background(), t, cb)
	defer server.Close()

	s, err := ncclient.NewSession(dial(t, server), nil)
	assert.NoError(t, err)
	defer s.Close()

	reply, err := s.Send("", `<get/>`)
	assert.NoError(t, err)
	assert.Len(t, reply.Errors, 1)
	assert.Equal(t, common.ErrTagMissingAttribute, reply.Errors[0].Tag)
	assert.Equal(t, common.ErrTypeRPC, reply.Errors[0].Type)
	cb.AssertNotCalled(t, "HandleRequest", mock.Anything)
}

func TestEndSession(t *testing.T) {
	cb := &mockCallback{}
	cb.On("Capabilities").Return(common.NoChunkedCodecCapabilities)
	closing := OkReply(&RPCRequestMessage{})
	closing.EndSession = true
	cb.On("HandleRequest", rpcNamed("close-session")).Return(closing)
	cb.On("Closed").Return().Once()

	var ended error
	ctx := WithTrace(context.Background(), &Trace{EndSession: func(s *SessionHandler, e error) { ended = e }})
	server := newTestServer(ctx, t, cb)

	tr := dial(t, server)
	s, err := ncclient.NewSession(tr, nil)
	assert.NoError(t, err)
	assert.Equal(t, common.NoChunkedCodecCapabilities, s.ServerHello.Capabilities)

	reply, err := s.Exec(`<close-session/>`)
	assert.NoError(t, err)
	assert.NotNil(t, reply.Ok)

	_, err = s.Exec(`<get/>`)
	assert.Error(t, err)

	server.Close()
	assert.NoError(t, ended)
	cb.AssertExpectations(t)
}

func TestRPCBeforeHelloEndsSession(t *testing.T) {
	cb := &mockCallback{}
	cb.On("Capabilities").Return(nil)
	cb.On("Closed").Return()
	server := newTestServer(context.Background(), t, cb)

	tr := dial(t, server)
	defer tr.Close()
	dec := codec.NewDecoder(tr)
	enc := codec.NewEncoder(tr)

	hello := &common.HelloMessage{}
	assert.NoError(t, dec.Decode(hello))
	assert.NoError(t, enc.Encode(&struct {
		XMLName   xml.Name `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 rpc"`
		MessageID string   `xml:"message-id,attr"`
		Get       struct{} `xml:"get"`
	}{MessageID: "1"}))

	_, err := io.ReadAll(tr)
	assert.NoError(t, err)
	server.Close()
	cb.AssertNotCalled(t, "HandleRequest", mock.Anything)
}

func TestHelloWithoutBaseCapability(t *testing.T) {
	cb := &mockCallback{}
	cb.On("Capabilities").Return(nil)
	cb.On("Closed").Return()

	var ended error
	ctx := WithTrace(context.Background(), &Trace{EndSession: func(s *SessionHandler, e error) { ended = e }})
	server := newTestServer(ctx, t, cb)

	_, err := ncclient.NewSession(dial(t, server), []string{"urn:example:capability"})
	assert.NoError(t, err)
	server.Close()
	assert.Equal(t, ErrNoHello, ended)
}

func TestRequestDecodeResolvesRPCNamespaces(t *testing.T) {
	doc := `<rpc xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" xmlns:lib="urn:example:library" message-id="7">` +
		`<edit-config><config><lib:library><lib:name>City</lib:name></lib:library></config></edit-config></rpc>`
	req := &RPCRequestMessage{}
	assert.NoError(t, xml.Unmarshal([]byte(doc), req))
	assert.Equal(t, "7", req.MessageID)
	assert.Equal(t, "edit-config", req.Request.XMLName.Local)
	assert.Equal(t, common.NetconfNS, req.Request.XMLName.Space)

	var body struct {
		EditConfig struct {
			Library struct {
				XMLName xml.Name
				Name    string `xml:"urn:example:library name"`
			} `xml:"config>library"`
		} `xml:"edit-config"`
	}
	assert.NoError(t, req.Decode(&body))
	assert.Equal(t, xml.Name{Space: "urn:example:library", Local: "library"}, body.EditConfig.Library.XMLName)
	assert.Equal(t, "City", body.EditConfig.Library.Name)
}

func TestReplyMarshalling(t *testing.T) {
	req := &RPCRequestMessage{MessageID: "3"}

	out, err := xml.Marshal(OkReply(req))
	assert.NoError(t, err)
	assert.Equal(t, `<rpc-reply xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" message-id="3"><ok></ok></rpc-reply>`, string(out))

	out, err = xml.Marshal(DataReply(req, `<x xmlns="urn:x"/>`))
	assert.NoError(t, err)
	assert.Equal(t, `<rpc-reply xmlns="urn:ietf:params:xml:ns:netconf:base:1.0" message-id="3"><data><x xmlns="urn:x"/></data></rpc-reply>`, string(out))

	reply := ErrorReply(req, io.ErrUnexpectedEOF)
	assert.Equal(t, common.ErrTagOperationFailed, reply.Errors[0].Tag)
	assert.Equal(t, io.ErrUnexpectedEOF, reply.Errors[0].Cause())
	out, err = xml.Marshal(reply)
	assert.NoError(t, err)
	assert.Contains(t, string(out), `<rpc-error><error-type>application</error-type><error-tag>operation-failed</error-tag>`)
}
