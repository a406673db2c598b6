package common

import (
	"encoding/xml"
	"fmt"
	"sort"
)

// Defines structs representing netconf messages and the rpc-error model.

// HelloMessage defines the message sent/received during session negotiation.
type HelloMessage struct {
	XMLName      xml.Name `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 hello"`
	Capabilities []string `xml:"capabilities>capability"`
	SessionID    uint64   `xml:"session-id,omitempty"`
}

// ErrorType is the conceptual layer at which an rpc-error occurred.
type ErrorType string

const (
	ErrTypeTransport   ErrorType = "transport"
	ErrTypeRPC         ErrorType = "rpc"
	ErrTypeProtocol    ErrorType = "protocol"
	ErrTypeApplication ErrorType = "application"
)

// ErrorTag identifies the error condition reported by an rpc-error (RFC 6241 Appendix A).
type ErrorTag string

const (
	ErrTagDataMissing           ErrorTag = "data-missing"
	ErrTagDataExists            ErrorTag = "data-exists"
	ErrTagInvalidValue          ErrorTag = "invalid-value"
	ErrTagOperationFailed       ErrorTag = "operation-failed"
	ErrTagOperationNotSupported ErrorTag = "operation-not-supported"
	ErrTagLockDenied            ErrorTag = "lock-denied"
	ErrTagMalformedMessage      ErrorTag = "malformed-message"
	ErrTagUnknownElement        ErrorTag = "unknown-element"
	ErrTagMissingAttribute      ErrorTag = "missing-attribute"
	ErrTagMissingElement        ErrorTag = "missing-element"
	ErrTagBadAttribute          ErrorTag = "bad-attribute"
)

// SeverityError is the only severity produced by this server.
const SeverityError = "error"

// RPCError defines an error reply to a RPC request
type RPCError struct {
	Type     ErrorType  `xml:"error-type"`
	Tag      ErrorTag   `xml:"error-tag"`
	Severity string     `xml:"error-severity"`
	Path     string     `xml:"error-path,omitempty"`
	Message  string     `xml:"error-message"`
	Info     *ErrorInfo `xml:"error-info"`

	// Namespaces maps the prefixes used in Path to their namespaces.
	Namespaces map[string]string `xml:"-"`

	cause error
}

// ErrorInfo carries the protocol or data model specific content of an rpc-error.
type ErrorInfo struct {
	Content string `xml:",innerxml"`
}

// NewRPCError delivers an application error with the given tag.
func NewRPCError(tag ErrorTag, format string, args ...interface{}) *RPCError {
	return &RPCError{
		Type:     ErrTypeApplication,
		Tag:      tag,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
	}
}

// WithPath sets the error path and the namespaces of the prefixes it uses.
func (re *RPCError) WithPath(path string, namespaces map[string]string) *RPCError {
	re.Path = path
	re.Namespaces = namespaces
	return re
}

// WithCause attaches the lower level failure that triggered the error.
func (re *RPCError) WithCause(err error) *RPCError {
	re.cause = err
	return re
}

// Cause delivers the attached lower level failure, if any.
func (re *RPCError) Cause() error {
	return re.cause
}

func (re *RPCError) Unwrap() error {
	return re.cause
}

// Error generates a string representation of the RPC error
func (re *RPCError) Error() string {
	s := fmt.Sprintf("netconf rpc [%s] %s '%s'", re.Severity, re.Tag, re.Message)
	if re.Path != "" {
		s += " at " + re.Path
	}
	if re.cause != nil {
		s += ": " + re.cause.Error()
	}
	return s
}

// MarshalXML writes the rpc-error, declaring the path prefixes on the error-path element.
func (re *RPCError) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "rpc-error"}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	elements := []struct {
		name, value string
	}{
		{"error-type", string(re.Type)},
		{"error-tag", string(re.Tag)},
		{"error-severity", re.Severity},
	}
	for _, el := range elements {
		if err := e.EncodeElement(el.value, xml.StartElement{Name: xml.Name{Local: el.name}}); err != nil {
			return err
		}
	}
	if re.Path != "" {
		pstart := xml.StartElement{Name: xml.Name{Local: "error-path"}}
		prefixes := make([]string, 0, len(re.Namespaces))
		for p := range re.Namespaces {
			prefixes = append(prefixes, p)
		}
		sort.Strings(prefixes)
		for _, p := range prefixes {
			pstart.Attr = append(pstart.Attr, xml.Attr{Name: xml.Name{Local: "xmlns:" + p}, Value: re.Namespaces[p]})
		}
		if err := e.EncodeElement(re.Path, pstart); err != nil {
			return err
		}
	}
	if re.Message != "" {
		if err := e.EncodeElement(re.Message, xml.StartElement{Name: xml.Name{Local: "error-message"}}); err != nil {
			return err
		}
	}
	if re.Info != nil {
		if err := e.EncodeElement(re.Info, xml.StartElement{Name: xml.Name{Local: "error-info"}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// DefaultCapabilities sets the default capabilities of the server.
var DefaultCapabilities = []string{
	CapBase10,
	CapBase11,
	CapWritableRunning,
}

// NoChunkedCodecCapabilities omits the chunked codec capability.
var NoChunkedCodecCapabilities = []string{
	CapBase10,
	CapWritableRunning,
}

// Define xml names for different netconf messages.
var (
	NameHello    = xml.Name{Space: NetconfNS, Local: "hello"}
	NameRPC      = xml.Name{Space: NetconfNS, Local: "rpc"}
	NameRPCReply = xml.Name{Space: NetconfNS, Local: "rpc-reply"}
)

// Define netconf URNs.
const (
	NetconfNS          = "urn:ietf:params:xml:ns:netconf:base:1.0"
	YangNS             = "urn:ietf:params:xml:ns:yang:1"
	CapBase10          = "urn:ietf:params:netconf:base:1.0"
	CapBase11          = "urn:ietf:params:netconf:base:1.1"
	CapWritableRunning = "urn:ietf:params:netconf:capability:writable-running:1.0"
)

// PeerSupportsChunkedFraming returns true if capability list indicates support for chunked framing.
func PeerSupportsChunkedFraming(caps []string) bool {
	for _, capability := range caps {
		if capability == CapBase11 {
			return true
		}
	}
	return false
}
