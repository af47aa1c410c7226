package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(s.recoverPanics)
	r.Use(newCORSPolicy(s.cfg.CORS).handler)
	r.Use(limitBody)

	if s.metricsCfg.Enabled && s.metricsHandler != nil {
		path := s.metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, s.metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system", s.handleSystemMetrics)
		r.Get("/bridge", s.handleBridgeInfo)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Post("/command", s.handleDeviceCommand)
			})
		})

		r.Get("/components", s.handleListComponents)

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", s.handleListRooms)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRoom)
				r.Post("/climate", s.handleRoomClimate)
			})
		})

		r.Route("/scenes", func(r chi.Router) {
			r.Get("/", s.handleListScenes)
			r.Post("/{id}/activate", s.handleActivateScene)
		})

		r.Get("/heaters/{id}/power", s.handleHeaterPower)
		r.Get("/commands", s.handleListCommands)

		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth returns the bridge health. The status code is 200 once a
// snapshot is loaded and 503 before.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h := s.bridge.Health()
	status := http.StatusOK
	if !h.SnapshotLoaded {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}
