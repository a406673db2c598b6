package ssh

import (
	"context"
	"errors"
	"net"
	"testing"

	assert "github.com/stretchr/testify/require"
)

func TestDefaultHooksForUntestableExceptions(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	hooks := DefaultLoggingHooks
	hooks.SSHChannelAccept(server, errors.New("failed"))
	hooks.SubsystemRequestReply("subsystem", false, errors.New("failed"))
	DiagnosticLoggingHooks.Accepted(nil, errors.New("closed"))
}

func TestContextTraceFillsMissingHooks(t *testing.T) {
	var listened string
	ctx := WithTrace(context.Background(), &Trace{Listened: func(address string, err error) { listened = address }})

	trace := ContextTrace(ctx)
	trace.Listened("localhost:830", nil)
	trace.StartAccepting()
	trace.Accepted(nil, nil)
	assert.Equal(t, "localhost:830", listened)

	assert.True(t, NoOpLoggingHooks == ContextTrace(context.Background()))
}
