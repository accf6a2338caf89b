package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/maa-core/internal/device"
	"github.com/nerrad567/maa-core/internal/event"
	"github.com/nerrad567/maa-core/internal/infrastructure/config"
	"github.com/nerrad567/maa-core/internal/infrastructure/logging"
	"github.com/nerrad567/maa-core/internal/task"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// DeviceService attaches devices and drives their engine instances.
// *device.Manager implements it.
type DeviceService interface {
	Add(ctx context.Context, conn device.Connection) error
	Remove(ctx context.Context, uuid string) error
	Start(ctx context.Context, uuid string) error
	Stop(ctx context.Context, uuid string) error
	Devices() []string
}

// TaskService edits and persists device task lists. *task.Store implements it.
type TaskService interface {
	List(uuid string) ([]task.Descriptor, bool)
	Reorder(uuid string, from, to int) bool
	Copy(uuid string, index int) bool
	Delete(uuid string, index int) bool
	SetEnabled(uuid string, index int, enabled bool) bool
	Save(ctx context.Context, uuid string) error
}

// EventSource feeds the WebSocket hub. *event.Bus implements it.
type EventSource interface {
	SubscribeAll(handler event.Handler) string
	Unsubscribe(id string) bool
}

// EngineInfo exposes engine state and screenshots. *engine.Engine implements it.
type EngineInfo interface {
	Available() bool
	Version() string
	GetImage(uuid string, buf []byte) uint64
}

// StatsProvider reports callback dispatcher counters.
type StatsProvider interface {
	Stats() (published, dropped uint64)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Devices DeviceService
	Tasks   TaskService
	Events  EventSource   // optional: no event stream without it
	Engine  EngineInfo    // optional
	Stats   StatsProvider // optional
	Version string
}

// Server is the HTTP API server for maa-core.
//
// It manages the HTTP listener, routes, middleware and the WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	devices   DeviceService
	tasks     TaskService
	events    EventSource
	engine    EngineInfo
	stats     StatsProvider
	version   string
	startTime time.Time

	server *http.Server
	hub    *Hub
	subID  string
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device service is required")
	}
	if deps.Tasks == nil {
		return nil, fmt.Errorf("task service is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		devices:   deps.Devices,
		tasks:     deps.Tasks,
		events:    deps.Events,
		engine:    deps.Engine,
		stats:     deps.Stats,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       NewHub(deps.WS, deps.Logger),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, relays event bus messages to it and launches
// the HTTP listener in a background goroutine. The server can be stopped
// with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	s.relayEvents()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// relayEvents forwards every event bus message to the hub.
func (s *Server) relayEvents() {
	if s.events == nil || s.subID != "" {
		return
	}
	s.subID = s.events.SubscribeAll(func(msg event.Message) {
		s.hub.Publish(StreamEvent{Topic: msg.Topic(), UUID: msg.DeviceUUID(), Body: msg.Body()})
	})
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.events != nil && s.subID != "" {
		s.events.Unsubscribe(s.subID)
		s.subID = ""
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

// HealthCheck verifies the API server is running.
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
