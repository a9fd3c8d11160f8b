package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/pulsegrid-core/internal/executor"
	"github.com/nerrad567/pulsegrid-core/internal/infrastructure/config"
	"github.com/nerrad567/pulsegrid-core/internal/infrastructure/logging"
	"github.com/nerrad567/pulsegrid-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/pulsegrid-core/internal/runlog"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Exec     *executor.Executor
	Runs     *runlog.Store // optional; run history endpoints 404 without it
	MQTT     *mqtt.Client  // optional; controller notifications relay disabled without it
	Hub      *Hub          // if set, the server uses this hub instead of creating its own
	Version  string
}

// Server is the HTTP API server for PulseGrid Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	exec        *executor.Executor
	runs        *runlog.Store
	mqtt        *mqtt.Client
	version     string
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, executor)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Exec == nil {
		return nil, fmt.Errorf("executor is required")
	}
	// MQTT and the run log are optional. Without MQTT the notification
	// relay is off; without the run log, history queries 404.

	s := &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		secCfg:  deps.Security,
		logger:  deps.Logger,
		exec:    deps.Exec,
		runs:    deps.Runs,
		mqtt:    deps.MQTT,
		version: deps.Version,
	}

	// Use an externally-provided hub if available. This is needed when
	// the executor's status broadcaster is wired to the same hub before
	// the server starts.
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, subscribes to
// controller notification topics for real-time WebSocket broadcast, and
// launches the HTTP listener in a background goroutine. The server can
// be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	// Start periodic ticket cleanup to prevent memory leaks
	go s.cleanTicketsLoop(srvCtx)

	// Relay controller completion notifications to WebSocket clients
	if err := s.subscribeNotifications(); err != nil {
		s.logger.Warn("failed to subscribe to controller notifications for WebSocket", "error", err)
	}

	// Build router
	router := s.buildRouter()

	// Create HTTP server
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, ticket cleanup)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
