// Package ncclient is a minimal NETCONF client used to exercise the server in tests.
package ncclient

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/damianoneill/ncstore/netconf/common"
	"github.com/damianoneill/ncstore/netconf/common/codec"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// Transport is an SSH session running a subsystem.
type Transport struct {
	io.Reader
	io.WriteCloser

	client  *ssh.Client
	session *ssh.Session
}

// Dial connects to target and requests the named subsystem with password authentication.
func Dial(ctx context.Context, target, user, password, subsystem string) (*Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, errors.Wrap(err, "dial failed")
	}
	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // nolint: gosec
	}
	sconn, chans, reqs, err := ssh.NewClientConn(conn, target, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "ssh handshake failed")
	}

	t := &Transport{client: ssh.NewClient(sconn, chans, reqs)}
	if t.session, err = t.client.NewSession(); err != nil {
		_ = t.Close()
		return nil, errors.Wrap(err, "new ssh session failed")
	}
	if t.WriteCloser, err = t.session.StdinPipe(); err != nil {
		_ = t.Close()
		return nil, err
	}
	if t.Reader, err = t.session.StdoutPipe(); err != nil {
		_ = t.Close()
		return nil, err
	}
	if err = t.session.RequestSubsystem(subsystem); err != nil {
		_ = t.Close()
		return nil, errors.Wrapf(err, "subsystem %s refused", subsystem)
	}
	return t, nil
}

// Close closes the session and the connection.
func (t *Transport) Close() error {
	if t.session != nil {
		_ = t.session.Close()
	}
	return t.client.Close()
}

// Session is a NETCONF session over a Transport. It is not safe for concurrent use.
type Session struct {
	t   *Transport
	enc *codec.Encoder
	dec *codec.Decoder

	// ServerHello is the hello received from the server.
	ServerHello *common.HelloMessage

	nextID uint64
}

// NewSession exchanges hellos advertising caps (the default capabilities when nil) and
// switches to chunked framing when both peers support it.
func NewSession(t *Transport, caps []string) (*Session, error) {
	if caps == nil {
		caps = common.DefaultCapabilities
	}
	s := &Session{t: t, enc: codec.NewEncoder(t), dec: codec.NewDecoder(t)}
	if err := s.enc.Encode(&common.HelloMessage{Capabilities: caps}); err != nil {
		return nil, errors.Wrap(err, "sending hello")
	}
	s.ServerHello = &common.HelloMessage{}
	if err := s.dec.Decode(s.ServerHello); err != nil {
		return nil, errors.Wrap(err, "reading server hello")
	}
	if common.PeerSupportsChunkedFraming(caps) && common.PeerSupportsChunkedFraming(s.ServerHello.Capabilities) {
		codec.EnableChunkedFraming(s.dec, s.enc)
	}
	return s, nil
}

// Reply is a decoded rpc-reply.
type Reply struct {
	XMLName   xml.Name           `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 rpc-reply"`
	MessageID string             `xml:"message-id,attr"`
	Errors    []*common.RPCError `xml:"rpc-error"`
	Data      *Data              `xml:"data"`
	Ok        *struct{}          `xml:"ok"`
}

// Data holds the raw content of a data element.
type Data struct {
	Content string `xml:",innerxml"`
}

type rpc struct {
	XMLName   xml.Name `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 rpc"`
	MessageID string   `xml:"message-id,attr,omitempty"`
	Body      string   `xml:",innerxml"`
}

// Exec sends body as the content of an rpc element and waits for the reply.
func (s *Session) Exec(body string) (*Reply, error) {
	id := strconv.FormatUint(atomic.AddUint64(&s.nextID, 1), 10)
	reply, err := s.Send(id, body)
	if err != nil {
		return nil, err
	}
	if reply.MessageID != id {
		return nil, fmt.Errorf("reply message-id %q does not match %q", reply.MessageID, id)
	}
	return reply, nil
}

// Send sends an rpc with the given message-id, omitted when empty, and reads the next reply.
func (s *Session) Send(messageID, body string) (*Reply, error) {
	if err := s.enc.Encode(&rpc{MessageID: messageID, Body: body}); err != nil {
		return nil, errors.Wrap(err, "sending rpc")
	}
	reply := &Reply{}
	if err := s.dec.Decode(reply); err != nil {
		return nil, errors.Wrap(err, "reading reply")
	}
	return reply, nil
}

// Close closes the underlying transport.
func (s *Session) Close() error {
	return s.t.Close()
}
