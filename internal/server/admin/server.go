// Package admin serves operational endpoints (metrics, liveness, readiness
// and optionally pprof) on a port separate from the gRPC API.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/dmitrijs2005/miretia/internal/logging"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	serverTimeout = 45 * time.Second
	readyTimeout  = 2 * time.Second
)

// Checker reports whether a dependency is usable.
type Checker interface {
	Ping(ctx context.Context) error
}

// pprofProfiles are registered under /debug/pprof/ when pprof is enabled.
// Profiles can contain sensitive data (hashes, emails), so they stay off
// unless asked for.
var pprofProfiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

// Server represents a holder around a net/http Server which
// is used for admin endpoints. (i.e. metrics, healthcheck)
type Server struct {
	logger logging.Logger
	svc    *http.Server
}

func NewServer(address string, l logging.Logger, gatherer prometheus.Gatherer, ready Checker, enablePprof bool) *Server {
	s := &Server{logger: l.With("module", "admin_server")}
	s.svc = &http.Server{
		Addr:         address,
		Handler:      s.handler(gatherer, ready, enablePprof),
		ReadTimeout:  serverTimeout,
		WriteTimeout: serverTimeout,
		IdleTimeout:  serverTimeout,
	}
	return s
}

func (s *Server) BindAddress() string {
	return s.svc.Addr
}

// Run serves until ctx is canceled, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.svc.Addr)
	if err != nil {
		return err
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping admin server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.svc.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(context.Background(), "admin server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting admin server", "address", listen.Addr().String())

	if err := s.svc.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}

func (s *Server) handler(gatherer prometheus.Gatherer, ready Checker, enablePprof bool) http.Handler {
	r := mux.NewRouter()

	// prometheus metrics
	r.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Methods(http.MethodGet).Path("/live").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})

	r.Methods(http.MethodGet).Path("/ready").HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), readyTimeout)
		defer cancel()
		if err := ready.Ping(ctx); err != nil {
			s.logger.Warn(ctx, "readiness check failed", "error", err)
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	if enablePprof {
		r.HandleFunc("/debug/pprof/", pprof.Index)
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
		for _, name := range pprofProfiles {
			r.Handle(fmt.Sprintf("/debug/pprof/%s", name), pprof.Handler(name))
		}
	}

	return r
}

func writeStatus(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body + "\n"))
}
