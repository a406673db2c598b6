package edit

import (
	"context"

	"github.com/damianoneill/ncstore/schema"

	"github.com/google/uuid"
	"github.com/imdario/mergo"
	log "github.com/sirupsen/logrus"
)

// unique type to prevent assignment.
type editEventContextKey struct{}

// ContextEditTrace returns the EditTrace associated with the
// provided context. If none, it returns NoOpLoggingHooks.
func ContextEditTrace(ctx context.Context) *EditTrace {
	trace, _ := ctx.Value(editEventContextKey{}).(*EditTrace)
	if trace == nil {
		trace = NoOpLoggingHooks
	} else {
		_ = mergo.Merge(trace, NoOpLoggingHooks) // nolint: gosec, errcheck
	}
	return trace
}

// WithEditTrace returns a new context based on the provided parent
// ctx. Edits applied with the returned context will use
// the provided trace hooks
func WithEditTrace(ctx context.Context, trace *EditTrace) context.Context {
	return context.WithValue(ctx, editEventContextKey{}, trace)
}

// EditTrace defines a structure for handling trace events
type EditTrace struct {
	// Start is called before the first node of an edit is applied.
	Start func(id uuid.UUID, ds string)

	// NodeApplied is called after each container or list entry edit, with the failure if any.
	NodeApplied func(ds string, op Operation, p schema.Path, err error)

	// Done is called when an edit completes.
	Done func(cs *ChangeSet, err error)
}

// DefaultLoggingHooks provides a default logging hook to report rejected edits.
var DefaultLoggingHooks = &EditTrace{
	Done: func(cs *ChangeSet, err error) {
		if err != nil {
			log.WithFields(log.Fields{"datastore": cs.Datastore, "edit": cs.ID, "applied": len(cs.Changes)}).WithError(err).Warn("Edit-Rejected")
		}
	},
}

// DiagnosticLoggingHooks provides a set of default diagnostic hooks
var DiagnosticLoggingHooks = &EditTrace{
	Start: func(id uuid.UUID, ds string) {
		log.WithFields(log.Fields{"datastore": ds, "edit": id}).Info("Edit-Start")
	},
	NodeApplied: func(ds string, op Operation, p schema.Path, err error) {
		entry := log.WithFields(log.Fields{"datastore": ds, "op": op, "path": p})
		if err != nil {
			entry.WithError(err).Info("Edit-Node")
			return
		}
		entry.Info("Edit-Node")
	},
	Done: func(cs *ChangeSet, err error) {
		entry := log.WithFields(log.Fields{"datastore": cs.Datastore, "edit": cs.ID, "applied": len(cs.Changes)})
		if err != nil {
			entry.WithError(err).Info("Edit-Done")
			return
		}
		entry.Info("Edit-Done")
	},
}

// NoOpLoggingHooks provides set of hooks that do nothing.
var NoOpLoggingHooks = &EditTrace{
	Start:       func(id uuid.UUID, ds string) {},
	NodeApplied: func(ds string, op Operation, p schema.Path, err error) {},
	Done:        func(cs *ChangeSet, err error) {},
}
