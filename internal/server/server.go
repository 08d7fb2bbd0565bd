// Package server exposes the refresh engine over a local HTTP control API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spiffcs/vitals/internal/constants"
	"github.com/spiffcs/vitals/internal/log"
	"github.com/spiffcs/vitals/internal/refresh"
)

// Controller is the part of the refresh engine the server drives.
type Controller interface {
	Snapshot() refresh.Snapshot
	Subscribe() (<-chan refresh.Snapshot, func())
	RefreshNow(ctx context.Context) bool
	IsRefreshing() bool
	SetInterval(d time.Duration)
	Interval() time.Duration
	EffectiveInterval() time.Duration
	PowerConstrained() bool
	SetLookback(days int) error
	Lookback() int
}

var _ Controller = (*refresh.Engine)(nil)

// Options configures a Server.
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Server serves the control API. It satisfies suture.Service.
type Server struct {
	engine   Controller
	http     *http.Server
	timeout  time.Duration
	validate *validator.Validate
	upgrader websocket.Upgrader

	// done is closed on shutdown so open streams end.
	done     chan struct{}
	doneOnce sync.Once
}

// New creates a server for the given engine.
func New(engine Controller, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = constants.DefaultListenAddr
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = constants.ShutdownTimeout
	}

	s := &Server{
		engine:   engine,
		timeout:  opts.ShutdownTimeout,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		done:     make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      checkOrigin,
		},
	}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.http.RegisterOnShutdown(s.closeStreams)
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/status", s.handleStatus)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/config", s.handleGetSettings)
		r.Put("/config", s.handlePutSettings)
		r.Get("/ws", s.handleStream)
	})
	return r
}

// Serve listens until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("control server listen: %w", err)
	}
	log.Info("control server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("control server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("control server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *Server) closeStreams() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Server) String() string {
	return "control-server"
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !log.IsDebug() {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()))
	})
}
