package common

import (
	"encoding/xml"
	"errors"
	"testing"

	assert "github.com/stretchr/testify/require"
)

func TestRPCErrorString(t *testing.T) {

	err := &RPCError{
		Severity: "Severity",
		Tag:      ErrTagDataMissing,
		Message:  "Message",
	}

	assert.Equal(t, "netconf rpc [Severity] data-missing 'Message'", err.Error())

	err.WithPath("/lib:library", nil).WithCause(errors.New("lookup failed"))
	assert.Equal(t, "netconf rpc [Severity] data-missing 'Message' at /lib:library: lookup failed", err.Error())
}

func TestNewRPCError(t *testing.T) {
	cause := errors.New("boom")
	err := NewRPCError(ErrTagOperationFailed, "failed to set %s", "year").WithCause(cause)

	assert.Equal(t, ErrTypeApplication, err.Type)
	assert.Equal(t, SeverityError, err.Severity)
	assert.Equal(t, "failed to set year", err.Message)
	assert.Equal(t, cause, err.Cause())
	assert.True(t, errors.Is(err, cause))

	var target *RPCError
	assert.True(t, errors.As(error(err), &target))
	assert.Equal(t, ErrTagOperationFailed, target.Tag)
}

func TestRPCErrorMarshal(t *testing.T) {
	err := NewRPCError(ErrTagDataExists, "already exists").
		WithPath("/lib:library/lib:book[lib:title='Dune']", map[string]string{"lib": "urn:example:library"})

	out, merr := xml.Marshal(err)
	assert.NoError(t, merr)
	assert.Equal(t, `<rpc-error><error-type>application</error-type><error-tag>data-exists</error-tag>`+
		`<error-severity>error</error-severity>`+
		`<error-path xmlns:lib="urn:example:library">/lib:library/lib:book[lib:title=&#39;Dune&#39;]</error-path>`+
		`<error-message>already exists</error-message></rpc-error>`, string(out))

	decoded := &RPCError{}
	assert.NoError(t, xml.Unmarshal(out, decoded))
	assert.Equal(t, ErrTagDataExists, decoded.Tag)
	assert.Equal(t, "/lib:library/lib:book[lib:title='Dune']", decoded.Path)
}

func TestRPCErrorMarshalWithoutPath(t *testing.T) {
	out, err := xml.Marshal(NewRPCError(ErrTagLockDenied, "locked"))
	assert.NoError(t, err)
	assert.NotContains(t, string(out), "error-path")
}

func TestPeerSupportsChunkedFraming(t *testing.T) {
	assert.False(t, PeerSupportsChunkedFraming([]string{NetconfNS, CapBase10}))
	assert.True(t, PeerSupportsChunkedFraming([]string{NetconfNS, CapBase11}))
	assert.True(t, PeerSupportsChunkedFraming(DefaultCapabilities))
	assert.False(t, PeerSupportsChunkedFraming(NoChunkedCodecCapabilities))
}

func TestRPCErrorMarshalInfo(t *testing.T) {
	rerr := NewRPCError(ErrTagLockDenied, "locked")
	rerr.Info = &ErrorInfo{Content: "<session-id>7</session-id>"}

	out, err := xml.Marshal(rerr)
	assert.NoError(t, err)
	assert.Contains(t, string(out), `<error-message>locked</error-message><error-info><session-id>7</session-id></error-info></rpc-error>`)

	decoded := &RPCError{}
	assert.NoError(t, xml.Unmarshal(out, decoded))
	assert.Equal(t, "<session-id>7</session-id>", decoded.Info.Content)
}
