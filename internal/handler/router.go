package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/segyhp/obligation-engine/pkg/response"
)

// NewRouter mounts health checks at the root and the API under /api/v1
func NewRouter(scheduleHandler *ScheduleHandler, healthHandler *HealthHandler, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(response.RouteNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(response.MethodNotAllowed)
	router.Use(response.LoggingMiddleware, response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods(http.MethodGet)

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(response.TimeoutMiddleware(requestTimeout))
	scheduleHandler.Register(api)

	return router
}
