package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/damianoneill/ncstore/datastore"
	"github.com/damianoneill/ncstore/datastore/edit"
	"github.com/damianoneill/ncstore/datastore/store"
	"github.com/damianoneill/ncstore/metrics"
	"github.com/damianoneill/ncstore/netconf/server/dispatch"
	"github.com/damianoneill/ncstore/netconf/server/netconf"
	"github.com/damianoneill/ncstore/netconf/server/ssh"
	"github.com/damianoneill/ncstore/schema"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// daemon is a started NETCONF server with its datastores and metrics endpoint.
type daemon struct {
	cfg        *ServerConfig
	metrics    *metrics.Metrics
	dispatcher *dispatch.Dispatcher
	server     *netconf.Server

	metricsListener net.Listener
	metricsServer   *http.Server
}

// withHooks delivers a context carrying the trace hooks selected by cfg.
func withHooks(ctx context.Context, cfg *ServerConfig) context.Context {
	if cfg.Diagnostics {
		log.SetLevel(log.DebugLevel)
		ctx = store.WithTrace(ctx, store.DiagnosticLoggingHooks)
		ctx = edit.WithEditTrace(ctx, edit.DiagnosticLoggingHooks)
		return netconf.WithTrace(ctx, netconf.DiagnosticLoggingHooks)
	}
	ctx = store.WithTrace(ctx, store.DefaultLoggingHooks)
	ctx = edit.WithEditTrace(ctx, edit.DefaultLoggingHooks)
	nctrace := *netconf.DefaultLoggingHooks
	nctrace.Trace = ssh.DefaultLoggingHooks
	return netconf.WithTrace(ctx, &nctrace)
}

// start builds the datastores and starts serving NETCONF and, when configured, metrics.
func start(ctx context.Context, cfg *ServerConfig) (*daemon, error) {
	reg, err := schema.LoadFile(cfg.SchemaFile)
	if err != nil {
		return nil, errors.Wrapf(err, "loading schema %s", cfg.SchemaFile)
	}

	d := &daemon{cfg: cfg, metrics: metrics.New()}
	ctx = d.metrics.WithHooks(withHooks(ctx, cfg))

	running := datastore.New(ctx, datastore.Running, reg)
	if cfg.InitialConfig != "" {
		if err := loadInitialConfig(ctx, running, cfg.InitialConfig); err != nil {
			return nil, err
		}
	}
	d.dispatcher = dispatch.New(ctx, d.metrics, running, datastore.New(ctx, datastore.Candidate, reg))

	sshcfg, err := ssh.PasswordConfig(cfg.Username, cfg.Password, cfg.HostKeyFile)
	if err != nil {
		return nil, err
	}
	if d.server, err = netconf.NewServer(ctx, cfg.Address, cfg.Port, sshcfg, d.dispatcher.Factory()); err != nil {
		return nil, errors.Wrap(err, "starting netconf server")
	}

	if cfg.MetricsAddress != "" {
		if d.metricsListener, err = net.Listen("tcp", cfg.MetricsAddress); err != nil {
			d.server.Close()
			return nil, errors.Wrap(err, "starting metrics listener")
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", d.metricsHandler())
		d.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: shutdownTimeout}
	}

	log.WithFields(log.Fields{
		"address": cfg.Address,
		"port":    d.server.Port(),
		"schema":  cfg.SchemaFile,
		"metrics": cfg.MetricsAddress,
	}).Info("ncstored started")
	return d, nil
}

func loadInitialConfig(ctx context.Context, ds *datastore.Datastore, name string) error {
	f, err := os.Open(name) // nolint: gosec
	if err != nil {
		return errors.Wrap(err, "reading initial config")
	}
	defer f.Close() // nolint: errcheck
	cs, err := ds.EditConfig(ctx, datastore.NoSession, f, edit.Merge)
	if err != nil {
		return errors.Wrapf(err, "loading initial config %s", name)
	}
	log.WithFields(log.Fields{"datastore": ds.Name(), "changes": len(cs.Changes)}).Info("initial config loaded")
	return nil
}

func (d *daemon) metricsHandler() http.Handler {
	return promhttp.HandlerFor(d.metrics.Registry, promhttp.HandlerOpts{})
}

// serve runs until ctx is done, then shuts both servers down.
func (d *daemon) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if d.metricsServer != nil {
		g.Go(func() error {
			if err := d.metricsServer.Serve(d.metricsListener); err != nil && err != http.ErrServerClosed {
				return errors.Wrap(err, "serving metrics")
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		d.server.Close()
		if d.metricsServer == nil {
			return nil
		}
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return d.metricsServer.Shutdown(sctx)
	})
	err := g.Wait()
	log.WithError(err).Info("ncstored stopped")
	return err
}
