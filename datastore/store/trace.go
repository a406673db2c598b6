package store

import (
	"context"

	"github.com/damianoneill/ncstore/datastore/model"

	"github.com/imdario/mergo"
	log "github.com/sirupsen/logrus"
)

// unique type to prevent assignment.
type storeEventContextKey struct{}

// ContextTrace returns the Trace associated with the
// provided context. If none, it returns NoOpLoggingHooks.
func ContextTrace(ctx context.Context) *Trace {
	trace, _ := ctx.Value(storeEventContextKey{}).(*Trace)
	if trace == nil {
		trace = NoOpLoggingHooks
	} else {
		_ = mergo.Merge(trace, NoOpLoggingHooks) // nolint: gosec, errcheck
	}
	return trace
}

// WithTrace returns a new context based on the provided parent
// ctx. Stores created with the returned context will use
// the provided trace hooks
func WithTrace(ctx context.Context, trace *Trace) context.Context {
	return context.WithValue(ctx, storeEventContextKey{}, trace)
}

// Trace defines a structure for handling storage events
type Trace struct {
	// Created is called after a node is written by CreateNode; overwritten reports whether
	// an existing node with the same bucket key was replaced.
	Created func(ds string, n *model.ConfigNode, overwritten bool)

	// Updated is called after UpdateNode merged attributes into a node.
	Updated func(ds string, n *model.ConfigNode)

	// Removed is called for every node deleted, including cascaded descendants.
	Removed func(ds string, id model.NodeID)

	// Error is called when an operation is rejected.
	Error func(ds, op string, err error)
}

// DefaultLoggingHooks provides a default logging hook to report errors and overwrites.
var DefaultLoggingHooks = &Trace{
	Created: func(ds string, n *model.ConfigNode, overwritten bool) {
		if overwritten {
			log.WithFields(log.Fields{"datastore": ds, "id": n.ID.String()}).Warn("Store-Overwrite")
		}
	},
	Error: func(ds, op string, err error) {
		log.WithFields(log.Fields{"datastore": ds, "op": op}).WithError(err).Error("Store-Error")
	},
}

// DiagnosticLoggingHooks provides a set of default diagnostic hooks
var DiagnosticLoggingHooks = &Trace{
	Created: func(ds string, n *model.ConfigNode, overwritten bool) {
		log.WithFields(log.Fields{"datastore": ds, "id": n.ID.String(), "overwritten": overwritten}).Info("Store-Created")
	},
	Updated: func(ds string, n *model.ConfigNode) {
		log.WithFields(log.Fields{"datastore": ds, "id": n.ID.String()}).Info("Store-Updated")
	},
	Removed: func(ds string, id model.NodeID) {
		log.WithFields(log.Fields{"datastore": ds, "id": id.String()}).Info("Store-Removed")
	},
	Error: DefaultLoggingHooks.Error,
}

// NoOpLoggingHooks provides set of hooks that do nothing.
var NoOpLoggingHooks = &Trace{
	Created: func(ds string, n *model.ConfigNode, overwritten bool) {},
	Updated: func(ds string, n *model.ConfigNode) {},
	Removed: func(ds string, id model.NodeID) {},
	Error:   func(ds, op string, err error) {},
}
