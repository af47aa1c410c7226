package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/xcomfort-core/internal/audit"
	"github.com/nerrad567/xcomfort-core/internal/bridges/xcomfort"
	"github.com/nerrad567/xcomfort-core/internal/device"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/config"
	"github.com/nerrad567/xcomfort-core/internal/infrastructure/logging"
	"github.com/nerrad567/xcomfort-core/internal/power"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Bridge is the part of the xComfort bridge the API serves.
// *xcomfort.Bridge implements it.
type Bridge interface {
	Registry() (*device.Registry, bool)
	Info() (device.BridgeInfo, time.Time)
	Health() xcomfort.HealthMessage
	HeaterPower(id int) (power.Reading, error)
	HandleCommand(ctx context.Context, deviceID int, msg xcomfort.CommandMessage) error
	SetRoomClimate(ctx context.Context, roomID int, cc xcomfort.ClimateCommand) error
	ActivateScene(ctx context.Context, sceneID int) error
	Subscribe(fn func(xcomfort.Event)) (unsubscribe func())
}

// BrokerStatus reports MQTT connectivity. Typically the MQTT client.
type BrokerStatus interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Metrics config.MetricsConfig
	Logger  *logging.Logger
	Bridge  Bridge

	// Optional.
	Audit          audit.Repository
	MQTT           BrokerStatus
	MetricsHandler http.Handler

	Version string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg            config.APIConfig
	wsCfg          config.WebSocketConfig
	metricsCfg     config.MetricsConfig
	logger         *logging.Logger
	bridge         Bridge
	audit          audit.Repository
	mqtt           BrokerStatus
	metricsHandler http.Handler
	version        string
	startTime      time.Time

	server *http.Server
	hub    *Hub
	unsub  func()
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}

	s := &Server{
		cfg:            deps.Config,
		wsCfg:          deps.WS,
		metricsCfg:     deps.Metrics,
		logger:         deps.Logger,
		bridge:         deps.Bridge,
		audit:          deps.Audit,
		mqtt:           deps.MQTT,
		metricsHandler: deps.MetricsHandler,
		version:        deps.Version,
		startTime:      time.Now(),
	}
	s.hub = NewHub(s.wsCfg, s.logger)
	s.hub.replay = s.currentEvents
	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, subscribes to bridge events for broadcast,
// and launches the HTTP listener in a background goroutine. The server can
// be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	s.unsub = s.bridge.Subscribe(s.relayEvent)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.unsub != nil {
		s.unsub()
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

// relayEvent forwards a bridge event to WebSocket subscribers. It runs on
// the bridge's event loop and must not block; Broadcast drops messages for
// slow clients.
func (s *Server) relayEvent(e xcomfort.Event) {
	s.hub.Broadcast(e)
}
