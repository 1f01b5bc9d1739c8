package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/segyhp/obligation-engine/internal/service/mocks"
)

func TestNewRouter_UnmatchedRequests(t *testing.T) {
	router := NewRouter(
		NewScheduleHandler(new(mocks.MockScheduleService), new(mocks.MockPaymentLinker)),
		NewHealthHandler(stubPinger{}, unreachableRedis(), time.Second),
		time.Second,
	)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
		message        string
	}{
		{
			name:           "unknown path",
			method:         http.MethodGet,
			path:           "/api/v1/invoices",
			expectedStatus: http.StatusNotFound,
			message:        "route not found: GET /api/v1/invoices",
		},
		{
			name:           "generate only accepts POST",
			method:         http.MethodGet,
			path:           "/api/v1/services/1/schedules/generate",
			expectedStatus: http.StatusMethodNotAllowed,
			message:        "method not allowed: GET /api/v1/services/1/schedules/generate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := serve(t, router, tt.method, tt.path, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.False(t, body.Success)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestNewRouter_HealthMountedAtRoot(t *testing.T) {
	router := NewRouter(
		NewScheduleHandler(new(mocks.MockScheduleService), new(mocks.MockPaymentLinker)),
		NewHealthHandler(stubPinger{}, unreachableRedis(), time.Second),
		time.Second,
	)

	w, _ := serve(t, router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}
