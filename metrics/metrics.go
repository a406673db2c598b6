// Package metrics exposes datastore and protocol activity as prometheus counters.
package metrics

import (
	"context"
	"errors"

	"github.com/damianoneill/ncstore/datastore/edit"
	"github.com/damianoneill/ncstore/datastore/model"
	"github.com/damianoneill/ncstore/datastore/store"
	"github.com/damianoneill/ncstore/netconf/common"
	"github.com/damianoneill/ncstore/schema"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ncstore"

// ResultOK labels a successful operation; failures are labelled with their rpc-error tag.
const ResultOK = "ok"

// Metrics holds the counters of one server.
type Metrics struct {
	Registry *prometheus.Registry

	Edits        *prometheus.CounterVec
	NodesCreated *prometheus.CounterVec
	NodesRemoved *prometheus.CounterVec
	Overwrites   *prometheus.CounterVec
	RPCs         *prometheus.CounterVec
}

// New delivers a set of counters registered with a new registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edits_total",
			Help:      "Container and list entry edits applied, by edit operation and result.",
		}, []string{"datastore", "operation", "result"}),
		NodesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_created_total",
			Help:      "Nodes written to the store.",
		}, []string{"datastore"}),
		NodesRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_removed_total",
			Help:      "Nodes removed from the store, including cascaded descendants.",
		}, []string{"datastore"}),
		Overwrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overwrites_total",
			Help:      "Node creations that replaced an existing node.",
		}, []string{"datastore"}),
		RPCs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_total",
			Help:      "NETCONF rpcs handled, by rpc name and result.",
		}, []string{"rpc", "result"}),
	}
	m.Registry.MustRegister(m.Edits, m.NodesCreated, m.NodesRemoved, m.Overwrites, m.RPCs)
	return m
}

// Result delivers the result label for err.
func Result(err error) string {
	if err == nil {
		return ResultOK
	}
	var rerr *common.RPCError
	if errors.As(err, &rerr) {
		return string(rerr.Tag)
	}
	return string(common.ErrTagOperationFailed)
}

// ObserveRPC counts one handled rpc.
func (m *Metrics) ObserveRPC(rpc string, err error) {
	m.RPCs.WithLabelValues(rpc, Result(err)).Inc()
}

// StoreHooks delivers store trace hooks that count node activity and then call next.
func (m *Metrics) StoreHooks(next *store.Trace) *store.Trace {
	return &store.Trace{
		Created: func(ds string, n *model.ConfigNode, overwritten bool) {
			m.NodesCreated.WithLabelValues(ds).Inc()
			if overwritten {
				m.Overwrites.WithLabelValues(ds).Inc()
			}
			next.Created(ds, n, overwritten)
		},
		Updated: next.Updated,
		Removed: func(ds string, id model.NodeID) {
			m.NodesRemoved.WithLabelValues(ds).Inc()
			next.Removed(ds, id)
		},
		Error: next.Error,
	}
}

// EditHooks delivers edit trace hooks that count applied edits and then call next.
func (m *Metrics) EditHooks(next *edit.EditTrace) *edit.EditTrace {
	return &edit.EditTrace{
		Start: next.Start,
		NodeApplied: func(ds string, op edit.Operation, p schema.Path, err error) {
			m.Edits.WithLabelValues(ds, string(op), Result(err)).Inc()
			next.NodeApplied(ds, op, p, err)
		},
		Done: next.Done,
	}
}

// WithHooks returns a context whose store and edit trace hooks feed m in addition to the hooks
// already carried by ctx.
func (m *Metrics) WithHooks(ctx context.Context) context.Context {
	ctx = store.WithTrace(ctx, m.StoreHooks(store.ContextTrace(ctx)))
	return edit.WithEditTrace(ctx, m.EditHooks(edit.ContextEditTrace(ctx)))
}
