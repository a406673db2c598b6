package ssh

import (
	"context"
	"net"

	"github.com/imdario/mergo"
	log "github.com/sirupsen/logrus"
)

// unique type to prevent assignment.
type sshEventContextKey struct{}

// ContextTrace returns the Trace associated with the
// provided context. If none, it returns NoOpLoggingHooks.
func ContextTrace(ctx context.Context) *Trace {
	trace, _ := ctx.Value(sshEventContextKey{}).(*Trace)
	if trace == nil {
		trace = NoOpLoggingHooks
	} else {
		_ = mergo.Merge(trace, NoOpLoggingHooks) // nolint: gosec, errcheck
	}
	return trace
}

// WithTrace returns a new context based on the provided parent
// ctx. Servers created with the returned context will use
// the provided trace hooks
func WithTrace(ctx context.Context, trace *Trace) context.Context {
	return context.WithValue(ctx, sshEventContextKey{}, trace)
}

// Trace defines a structure for handling trace events
type Trace struct {

	// Listened is called when when an Listen() call completes, with err indicating
	// whether it was successful.
	Listened func(address string, err error)

	// StartAccepting is called when starting to accept connections.
	StartAccepting func()

	// Accepted is called when an Accept() call completes, with err indicating
	// whether it was successful.
	Accepted func(conn net.Conn, err error)

	// NewServerConn is called when the SSH handshake completes, with err indicating
	// whether it was successful.
	NewServerConn func(conn net.Conn, err error)

	// SSHChannelAccept is called when a ssh channel Accept() call completes, with err indicating
	// whether it was successful.
	SSHChannelAccept func(conn net.Conn, err error)

	// SubsystemRequestReply is called when a channel request has been answered; ok reports
	// whether the request started the netconf subsystem.
	SubsystemRequestReply func(reqType string, ok bool, err error)
}

// DefaultLoggingHooks provides a default logging hook to report errors.
var DefaultLoggingHooks = &Trace{
	Listened: func(address string, e error) {
		if e != nil {
			log.WithField("address", address).WithError(e).Error("SSH-Listen")
		}
	},
	NewServerConn: func(conn net.Conn, e error) {
		if e != nil {
			log.WithField("remote", conn.RemoteAddr().String()).WithError(e).Warn("SSH-Handshake")
		}
	},
	SSHChannelAccept: func(conn net.Conn, e error) {
		if e != nil {
			log.WithField("remote", conn.RemoteAddr().String()).WithError(e).Warn("SSH-ChannelAccept")
		}
	},
	SubsystemRequestReply: func(reqType string, ok bool, e error) {
		if e != nil {
			log.WithField("request", reqType).WithError(e).Warn("SSH-RequestReply")
		}
	},
}

// DiagnosticLoggingHooks provides a set of default diagnostic hooks
var DiagnosticLoggingHooks = &Trace{
	Listened: func(address string, e error) {
		log.WithField("address", address).WithError(e).Info("SSH-Listen")
	},
	StartAccepting: func() {
		log.Info("SSH-StartAccepting")
	},
	Accepted: func(conn net.Conn, e error) {
		if conn != nil {
			log.WithField("remote", conn.RemoteAddr().String()).Info("SSH-Accepted")
			return
		}
		log.WithError(e).Info("SSH-Accepted")
	},
	NewServerConn:    DefaultLoggingHooks.NewServerConn,
	SSHChannelAccept: DefaultLoggingHooks.SSHChannelAccept,
	SubsystemRequestReply: func(reqType string, ok bool, e error) {
		log.WithFields(log.Fields{"request": reqType, "accepted": ok}).WithError(e).Info("SSH-RequestReply")
	},
}

// NoOpLoggingHooks provides set of hooks that do nothing.
var NoOpLoggingHooks = &Trace{
	Listened:              func(address string, e error) {},
	StartAccepting:        func() {},
	Accepted:              func(conn net.Conn, e error) {},
	NewServerConn:         func(conn net.Conn, e error) {},
	SSHChannelAccept:      func(conn net.Conn, e error) {},
	SubsystemRequestReply: func(reqType string, ok bool, e error) {},
}
