// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vyrodovalexey/items-api/internal/config"
	"github.com/vyrodovalexey/items-api/internal/events"
	"github.com/vyrodovalexey/items-api/internal/handler"
	"github.com/vyrodovalexey/items-api/internal/middleware"
	"github.com/vyrodovalexey/items-api/internal/store"
	"github.com/vyrodovalexey/items-api/internal/web"
)

// Server represents the HTTP server.
type Server struct {
	httpServer  *http.Server
	probeServer *http.Server
	router      *mux.Router
	probeRouter *mux.Router
	config      *config.Config
	logger      *zap.Logger
	hub         *events.Hub
	wsHandler   *handler.WebSocketHandler
	ready       atomic.Bool
	initErr     error
}

// New creates a new Server instance. A nil hub disables the event stream
// regardless of configuration.
func New(cfg *config.Config, logger *zap.Logger, itemStore store.Store, hub *events.Hub) *Server {
	s := &Server{
		router: mux.NewRouter(),
		config: cfg,
		logger: logger,
		hub:    hub,
	}

	s.setupMiddleware()
	s.setupRoutes(itemStore)
	s.setupHTTPServer()
	s.setupProbeServer()

	s.ready.Store(true)

	return s
}

// setupMiddleware configures the middleware chain.
func (s *Server) setupMiddleware() {
	// Apply middleware in order (first applied = outermost)
	s.router.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.RequestID()))

	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}

	s.router.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))
}

// corsMiddleware wraps the whole router so preflight requests are answered
// before route method matching rejects them.
func (s *Server) corsMiddleware() middleware.Middleware {
	allowedMethods := []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowedHeaders := []string{
		"Content-Type",
		middleware.RequestIDHeader,
	}
	return middleware.CORS(s.config.CORSAllowedOrigins, allowedMethods, allowedHeaders)
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes(itemStore store.Store) {
	handler.NewProbeHandler(s.IsReady, s.logger).RegisterRoutes(s.router)

	handler.NewRESTHandler(itemStore, s.logger).RegisterRoutes(s.router)

	if s.config.EventsEnabled && s.hub != nil {
		s.wsHandler = handler.NewWebSocketHandler(s.hub, s.logger)
		s.wsHandler.RegisterRoutes(s.router)
	}

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	// Registered last so it only sees paths no API route claimed.
	if s.config.FrontendEnabled {
		s.router.PathPrefix("/").Handler(web.Handler()).Methods(http.MethodGet, http.MethodHead)
	}
}

// setupHTTPServer configures the HTTP server.
func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.corsMiddleware()(s.router),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	if s.config.TLSEnabled {
		tlsConfig, err := s.buildTLSConfig()
		if err != nil {
			s.initErr = err
			return
		}
		s.httpServer.TLSConfig = tlsConfig
	}
}

// setupProbeServer configures the unauthenticated probe listener serving
// health, readiness and metrics. It is skipped when ProbePort is 0.
func (s *Server) setupProbeServer() {
	if s.config.ProbePort == 0 {
		return
	}

	s.probeRouter = mux.NewRouter()
	handler.NewProbeHandler(s.IsReady, s.logger).RegisterRoutes(s.probeRouter)
	if s.config.MetricsEnabled {
		s.probeRouter.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	s.probeServer = &http.Server{
		Addr:              s.config.ProbeAddress(),
		Handler:           s.probeRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// buildTLSConfig loads the server key pair.
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(s.config.TLSCertPath, s.config.TLSKeyPath)
	if err != nil {
		return nil, fmt.Errorf("loading TLS key pair: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// Run listens on the configured addresses and serves until ctx is cancelled
// or a listener fails, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.initErr != nil {
		return fmt.Errorf("server initialization: %w", s.initErr)
	}

	var lc net.ListenConfig
	apiLs, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}

	var probeLs net.Listener
	if s.probeServer != nil {
		probeLs, err = lc.Listen(ctx, "tcp", s.probeServer.Addr)
		if err != nil {
			_ = apiLs.Close()
			return fmt.Errorf("listening on %s: %w", s.probeServer.Addr, err)
		}
	}

	return s.Serve(ctx, apiLs, probeLs)
}

// Serve serves the API on apiLs and, when probeLs is non-nil, the probe
// endpoints on probeLs. It returns after ctx is cancelled and shutdown
// completes, or when a server fails.
func (s *Server) Serve(ctx context.Context, apiLs, probeLs net.Listener) error {
	if s.initErr != nil {
		return fmt.Errorf("server initialization: %w", s.initErr)
	}

	s.logger.Info("starting server",
		zap.String("address", apiLs.Addr().String()),
		zap.Bool("tls_enabled", s.config.TLSEnabled),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
		zap.Bool("events_enabled", s.wsHandler != nil),
		zap.Bool("frontend_enabled", s.config.FrontendEnabled),
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		if s.config.TLSEnabled {
			err = s.httpServer.ServeTLS(apiLs, "", "")
		} else {
			err = s.httpServer.Serve(apiLs)
		}
		return ignoreClosed(err, "server serve")
	})

	if probeLs != nil && s.probeServer != nil {
		s.logger.Info("starting probe server", zap.String("address", probeLs.Addr().String()))
		eg.Go(func() error {
			return ignoreClosed(s.probeServer.Serve(probeLs), "probe server serve")
		})
	}

	eg.Go(func() error {
		<-egCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// ignoreClosed maps http.ErrServerClosed to nil and wraps other errors.
func ignoreClosed(err error, op string) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Shutdown gracefully shuts down the server. Readiness reports false from
// the moment shutdown begins.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	s.ready.Store(false)

	var errs []error

	// Stop accepting new requests and drain in-flight ones. Hijacked
	// WebSocket connections are not tracked by the http.Server.
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	if s.wsHandler != nil {
		s.wsHandler.CloseAllConnections()
	}

	if s.probeServer != nil {
		if err := s.probeServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("probe server shutdown: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// IsReady reports whether the server accepts traffic.
func (s *Server) IsReady() bool {
	return s.ready.Load()
}

// Handler returns the fully wrapped API handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ProbeRouter returns the probe router, or nil when the probe listener is
// disabled.
func (s *Server) ProbeRouter() *mux.Router {
	return s.probeRouter
}
