package netconf

import (
	"context"
	"encoding/xml"
	"errors"
	"testing"
	"time"

	"github.com/damianoneill/ncstore/netconf/common"

	assert "github.com/stretchr/testify/require"
)

func TestDefaultHooksForUntestableExceptions(t *testing.T) {
	hooks := DefaultLoggingHooks
	session := &SessionHandler{}
	hooks.ClientHello(session)
	hooks.EndSession(session, errors.New("failed"))
	hooks.Encoded(session, errors.New("failed"))
	hooks.Decoded(session, errors.New("failed"))
}

func TestDiagnosticHooks(t *testing.T) {
	hooks := DiagnosticLoggingHooks
	session := &SessionHandler{ClientHello: &common.HelloMessage{Capabilities: common.DefaultCapabilities}}
	hooks.StartSession(session)
	hooks.ClientHello(session)
	req := &RPCRequestMessage{MessageID: "1", Request: RPCRequest{XMLName: xml.Name{Local: "lock"}}}
	hooks.Handled(session, req, ErrorReply(req, common.NewRPCError(common.ErrTagLockDenied, "locked")), time.Millisecond)
	hooks.Handled(session, req, nil, time.Millisecond)
	hooks.EndSession(session, nil)
}

func TestNoLoggingHooks(t *testing.T) {
	hooks := NoOpLoggingHooks
	session := &SessionHandler{}
	hooks.StartSession(session)
	hooks.ClientHello(session)
	hooks.EndSession(session, errors.New("failed"))
	hooks.Encoded(session, errors.New("failed"))
	hooks.Decoded(session, errors.New("failed"))
	hooks.Handled(session, &RPCRequestMessage{}, nil, 0)
}

func TestContextTraceFillsMissingHooks(t *testing.T) {
	assert.True(t, NoOpLoggingHooks == ContextTrace(context.Background()))

	var started bool
	trace := ContextTrace(WithTrace(context.Background(), &Trace{StartSession: func(s *SessionHandler) { started = true }}))
	assert.NotNil(t, trace.Handled)
	assert.NotNil(t, trace.EndSession)
	trace.StartSession(&SessionHandler{})
	assert.True(t, started)
}
