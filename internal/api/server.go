// Package api provides the HTTP REST API and WebSocket server for the
// screenlogic core.
//
// It exposes the display inventory, batch power operations, and a
// WebSocket stream of per-display results to dashboards and signage
// controllers.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nerrad567/screen-logic-core/internal/control"
	"github.com/nerrad567/screen-logic-core/internal/display"
	"github.com/nerrad567/screen-logic-core/internal/infrastructure/config"
	"github.com/nerrad567/screen-logic-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum wait for in-flight requests
// during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Dispatcher runs one action across a batch of displays. Satisfied by
// control.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, displays []display.Display, action display.Action, opts control.Options) []display.Result
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Displays   []display.Display
	Dispatcher Dispatcher

	// MaxConcurrency is passed through to every dispatch.
	MaxConcurrency int

	Version string
}

// Server is the HTTP API server for the screenlogic core.
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	displays   []display.Display
	dispatcher Dispatcher
	workers    int
	version    string

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc

	// dispatching serialises power operations. The underlying transports
	// do not multiplex sessions to one display, so overlapping batches
	// are refused rather than queued.
	dispatching atomic.Bool
}

// New creates an API server with the given dependencies. The server is
// not started until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("api: logger is required")
	}
	if deps.Dispatcher == nil {
		return nil, errors.New("api: dispatcher is required")
	}

	return &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		displays:   deps.Displays,
		dispatcher: deps.Dispatcher,
		workers:    deps.MaxConcurrency,
		version:    deps.Version,
	}, nil
}

// Start builds the router, starts the WebSocket hub, and launches the
// HTTP listener in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server, waiting for in-flight
// requests before closing remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

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

// HealthCheck verifies the server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}
