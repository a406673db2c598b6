package netconf

import (
	"context"
	"time"

	"github.com/damianoneill/ncstore/netconf/server/ssh"

	"github.com/imdario/mergo"
	log "github.com/sirupsen/logrus"
)

// unique type to prevent assignment.
type netconfEventContextKey struct{}

// ContextTrace returns the Trace associated with the
// provided context. If none, it returns NoOpLoggingHooks.
func ContextTrace(ctx context.Context) *Trace {
	trace, _ := ctx.Value(netconfEventContextKey{}).(*Trace)
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
	return context.WithValue(ctx, netconfEventContextKey{}, trace)
}

// Trace defines a structure for handling trace events. The embedded ssh hooks, when set,
// are passed on to the underlying ssh server.
type Trace struct {
	*ssh.Trace
	StartSession func(s *SessionHandler)
	EndSession   func(s *SessionHandler, e error)
	ClientHello  func(s *SessionHandler)
	Encoded      func(s *SessionHandler, e error)
	Decoded      func(s *SessionHandler, e error)

	// Handled is called when a request has been served; reply is nil if nothing was sent.
	Handled func(s *SessionHandler, req *RPCRequestMessage, reply *RPCReplyMessage, d time.Duration)
}

func fields(s *SessionHandler) log.Fields {
	return log.Fields{"session": s.sid, "remote": s.RemoteAddr()}
}

// DefaultLoggingHooks provides a default logging hook to report errors.
var DefaultLoggingHooks = &Trace{
	ClientHello: func(s *SessionHandler) {
		if s.ClientHello == nil {
			log.WithFields(fields(s)).Warn("Netconf-NoClientHello")
		}
	},
	EndSession: func(s *SessionHandler, e error) {
		if e != nil {
			log.WithFields(fields(s)).WithError(e).Warn("Netconf-EndSession")
		}
	},
	Encoded: func(s *SessionHandler, e error) {
		if e != nil {
			log.WithFields(fields(s)).WithError(e).Error("Netconf-Encode")
		}
	},
	Decoded: func(s *SessionHandler, e error) {
		if e != nil {
			log.WithFields(fields(s)).WithError(e).Warn("Netconf-Decode")
		}
	},
}

// DiagnosticLoggingHooks provides a set of default diagnostic hooks
var DiagnosticLoggingHooks = &Trace{
	Trace: ssh.DiagnosticLoggingHooks,
	ClientHello: func(s *SessionHandler) {
		entry := log.WithFields(fields(s))
		if s.ClientHello != nil {
			entry = entry.WithField("capabilities", s.ClientHello.Capabilities)
		}
		entry.Info("Netconf-ClientHello")
	},
	StartSession: func(s *SessionHandler) {
		log.WithFields(fields(s)).Info("Netconf-StartSession")
	},
	EndSession: func(s *SessionHandler, e error) {
		log.WithFields(fields(s)).WithError(e).Info("Netconf-EndSession")
	},
	Encoded: DefaultLoggingHooks.Encoded,
	Decoded: DefaultLoggingHooks.Decoded,
	Handled: func(s *SessionHandler, req *RPCRequestMessage, reply *RPCReplyMessage, d time.Duration) {
		entry := log.WithFields(fields(s)).WithFields(log.Fields{
			"rpc":        req.Request.XMLName.Local,
			"message-id": req.MessageID,
			"duration":   d,
		})
		if reply != nil && len(reply.Errors) > 0 {
			entry = entry.WithField("error-tag", reply.Errors[0].Tag)
		}
		entry.Info("Netconf-Handled")
	},
}

// NoOpLoggingHooks provides set of hooks that do nothing.
var NoOpLoggingHooks = &Trace{
	StartSession: func(s *SessionHandler) {},
	ClientHello:  func(s *SessionHandler) {},
	EndSession:   func(s *SessionHandler, e error) {},
	Encoded:      func(s *SessionHandler, e error) {},
	Decoded:      func(s *SessionHandler, e error) {},
	Handled:      func(s *SessionHandler, req *RPCRequestMessage, reply *RPCReplyMessage, d time.Duration) {},
}
