// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package server runs the CIC program checker, either once over the
// configured programs or as a long running service that reanalyzes programs
// as they change and reports them over HTTP.
package server

import (
	"context"
	"expvar"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cic-lang/cic/internal/runtime"
	"github.com/cic-lang/cic/internal/watcher"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	"go.opencensus.io/zpages"
)

// Server contains the state of the main cicheck program.
type Server struct {
	ctx    context.Context
	cancel context.CancelFunc
	w      watcher.Watcher // nil in one-shot mode

	r *runtime.Runtime // r loads programs and keeps their results

	reg *prometheus.Registry

	h        *http.Server
	listener net.Listener

	webquit     chan struct{} // Channel to signal shutdown from web UI
	webquitOnce sync.Once
	closeQuit   chan struct{} // Channel to signal shutdown from code
	closeOnce   sync.Once     // Ensure shutdown happens only once

	bindAddress string    // address to bind HTTP server
	buildInfo   BuildInfo // go build information
	programPath string    // path to programs to load
	cacheSize   int       // number of memoized results, 0 for the runtime default
	out         io.Writer // destination of one-shot results

	oneShot     bool // if set, cicheck analyzes the programs once, prints their outputs, then exits
	errorsAbort bool // if set, duplicate declarations and unmatched FIM abort a program
	dumpScopes  bool // if set, the scope stack is logged as each block closes

	loadErr error // error from the initial load, reported by Run in one-shot mode
}

// initRuntime constructs a new program runtime and performs the initial load
// of program files in the program path.
func (m *Server) initRuntime() error {
	opts := []runtime.Option{
		runtime.PrometheusRegisterer(m.reg),
	}
	if m.errorsAbort {
		opts = append(opts, runtime.ErrorsAbort())
	}
	if m.dumpScopes {
		opts = append(opts, runtime.DumpScopes())
	}
	if m.cacheSize != 0 {
		opts = append(opts, runtime.CacheSize(m.cacheSize))
	}
	var err error
	m.r, err = runtime.New(m.ctx, m.programPath, opts...)
	if err != nil {
		return err
	}
	if m.programPath == "" {
		return nil
	}
	if err := m.r.LoadAllPrograms(); err != nil {
		if !m.oneShot {
			return errors.Wrap(err, "initial program load failed")
		}
		m.loadErr = err
	}
	return nil
}

// initWatcher asks the watcher to report changes to the program path to the runtime.
func (m *Server) initWatcher() error {
	if m.w == nil || m.oneShot || m.programPath == "" {
		return nil
	}
	return m.w.Observe(m.programPath, m.r)
}

// initMetrics registers the build information metric.
func (m *Server) initMetrics() {
	version.Branch = m.buildInfo.Branch
	version.Version = m.buildInfo.Version
	version.Revision = m.buildInfo.Revision
	m.reg.MustRegister(version.NewCollector("cicheck"))
}

// initHTTP builds the request multiplexer served in serve mode.
func (m *Server) initHTTP() {
	mux := http.NewServeMux()
	mux.Handle("/", m)
	mux.Handle("/progz", http.HandlerFunc(m.r.ProgzHandler))
	mux.HandleFunc("/json", m.r.HandleJSON)
	mux.Handle("/metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/quitquitquit", m.quitHandler)
	mux.Handle("/debug/vars", expvar.Handler())
	zpages.Handle(mux, "/")
	m.h.Handler = mux
}

// New creates a Server from the supplied Options.  The watcher w may be nil,
// in which case programs are only reloaded on SIGHUP.
func New(ctx context.Context, w watcher.Watcher, options ...Option) (*Server, error) {
	m := &Server{
		w:         w,
		webquit:   make(chan struct{}),
		closeQuit: make(chan struct{}),
		h:         &http.Server{},
		out:       os.Stdout,
		// Using a non-pedantic registry means we can be looser with metrics that
		// are not fully specified at startup.
		reg: prometheus.NewRegistry(),
	}
	m.ctx, m.cancel = context.WithCancel(ctx)

	expvarDescs := map[string]*prometheus.Desc{
		// internal/runtime/runtime.go
		"lines_total":            prometheus.NewDesc("lines_total", "number of program lines analyzed", nil, nil),
		"prog_loads_total":       prometheus.NewDesc("prog_loads_total", "number of program load events by program source filename", []string{"prog"}, nil),
		"prog_load_errors_total": prometheus.NewDesc("prog_load_errors_total", "number of errors encountered when loading per program source filename", []string{"prog"}, nil),
		"prog_unloads_total":     prometheus.NewDesc("prog_unloads_total", "number of program unload events by program source filename", []string{"prog"}, nil),
		// internal/watcher/dir_watcher.go
		"program_watcher_error_count": prometheus.NewDesc("program_watcher_error_count", "number of errors received from the filesystem watcher", nil, nil),
	}
	m.reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	// Prefix all expvar metrics with 'cic_'
	prometheus.WrapRegistererWithPrefix("cic_", m.reg).MustRegister(
		prometheus.NewExpvarCollector(expvarDescs))
	if err := m.SetOption(options...); err != nil {
		m.cancel()
		m.closeListener()
		return nil, err
	}
	m.initMetrics()
	if err := m.initRuntime(); err != nil {
		m.cancel()
		m.closeListener()
		return nil, err
	}
	if err := m.initWatcher(); err != nil {
		m.cancel()
		m.r.Close()
		m.closeListener()
		return nil, err
	}
	m.initHTTP()
	return m, nil
}

// SetOption takes one or more option functions and applies them in order to Server.
func (m *Server) SetOption(options ...Option) error {
	for _, option := range options {
		if err := option.apply(m); err != nil {
			return err
		}
	}
	return nil
}

// Handler returns the HTTP handler of the Server.
func (m *Server) Handler() http.Handler {
	return m.h.Handler
}

// Runtime returns the program runtime of the Server.
func (m *Server) Runtime() *runtime.Runtime {
	return m.r
}

// LoadAllPrograms reloads every program in the program path.
func (m *Server) LoadAllPrograms() error {
	return m.r.LoadAllPrograms()
}

// WriteResults writes the output of every loaded program to w.
func (m *Server) WriteResults(w io.Writer) error {
	return m.r.WriteResults(w)
}

// Serve begins the webserver and awaits a shutdown instruction.
func (m *Server) Serve() error {
	if m.listener == nil {
		return errors.Errorf("No bind address provided.")
	}
	errc := make(chan error, 1)
	go func() {
		glog.Infof("Listening on %s", m.listener.Addr())
		err := m.h.Serve(m.listener)
		if err == http.ErrServerClosed {
			err = nil
		}
		errc <- err
	}()
	m.WaitForShutdown()
	return <-errc
}

// WaitForShutdown handles shutdown requests from the system or the UI.
func (m *Server) WaitForShutdown() {
	n := make(chan os.Signal, 1)
	signal.Notify(n, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(n)
	select {
	case <-m.ctx.Done():
		glog.Info("External shutdown, exiting...")
	case <-n:
		glog.Info("Received SIGTERM, exiting...")
	case <-m.webquit:
		glog.Info("Received Quit from HTTP, exiting...")
	case <-m.closeQuit:
		glog.Info("Received quit internally, exiting...")
	}
	if err := m.Close(false); err != nil {
		glog.Warning(err)
	}
}

func (m *Server) closeListener() {
	if m.listener == nil {
		return
	}
	if err := m.listener.Close(); err != nil {
		glog.V(1).Info(err)
	}
}

// Close handles the graceful shutdown of this cicheck instance, ensuring that
// it only occurs once.  If fast is true, then the http server is shutdown
// without waiting.
func (m *Server) Close(fast bool) error {
	m.closeOnce.Do(func() {
		glog.Info("Shutdown requested.")
		close(m.closeQuit)
		// Ensure we're cancelling our child context just in case Close is
		// called outside context cancellation.
		m.cancel()
		if m.w != nil {
			if err := m.w.Close(); err != nil {
				glog.Infof("watcher close failed: %s", err)
			}
		}
		if m.r != nil {
			m.r.Close()
		}
		glog.Info("Shutting down http server")
		if fast {
			if err := m.h.Close(); err != nil {
				glog.V(1).Info(err)
			}
			m.closeListener()
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := m.h.Shutdown(ctx); err != nil {
				glog.Error(err)
			}
			cancel()
		}
		glog.Info("END OF LINE")
	})
	return nil
}

// Run starts the Server's primary function.  In one-shot mode it writes the
// output of every program and returns the error that aborted the initial
// load, if any.  Otherwise it serves HTTP and reanalyzes programs as they
// change until shutdown.
func (m *Server) Run() error {
	if m.oneShot {
		if err := m.Close(true); err != nil {
			return err
		}
		if err := m.WriteResults(m.out); err != nil {
			return errors.Wrap(err, "failed to write results")
		}
		return m.loadErr
	}
	return m.Serve()
}

// Addr returns the address the HTTP server listens on.
func (m *Server) Addr() string {
	if m.listener == nil {
		return "none"
	}
	return m.listener.Addr().String()
}
