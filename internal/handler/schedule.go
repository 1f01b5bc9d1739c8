package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/segyhp/obligation-engine/internal/domain"
	"github.com/segyhp/obligation-engine/internal/service"
	customError "github.com/segyhp/obligation-engine/pkg/errors"
	"github.com/segyhp/obligation-engine/pkg/response"
)

const maxBodyBytes = 1 << 20

type ScheduleHandler struct {
	schedules service.Schedules
	payments  service.Payments
}

func NewScheduleHandler(schedules service.Schedules, payments service.Payments) *ScheduleHandler {
	return &ScheduleHandler{
		schedules: schedules,
		payments:  payments,
	}
}

// Register mounts the schedule routes on r
func (h *ScheduleHandler) Register(r *mux.Router) {
	r.HandleFunc("/services/{serviceId}", h.GetService).Methods(http.MethodGet)
	r.HandleFunc("/services/{serviceId}/schedules", h.ListSchedules).Methods(http.MethodGet)
	r.HandleFunc("/services/{serviceId}/schedules/generate", h.GenerateSchedules).Methods(http.MethodPost)

	r.HandleFunc("/schedules/{scheduleId}/payment", h.RegisterPayment).Methods(http.MethodPost)
	r.HandleFunc("/schedules/{scheduleId}/payment", h.UnlinkPayment).Methods(http.MethodDelete)
	r.HandleFunc("/schedules/{scheduleId}/skip", h.Skip).Methods(http.MethodPost)
	r.HandleFunc("/schedules/{scheduleId}/reopen", h.Reopen).Methods(http.MethodPost)
}

func (h *ScheduleHandler) GenerateSchedules(w http.ResponseWriter, r *http.Request) {
	serviceID, err := pathID(r, "serviceId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	var req domain.GenerateSchedulesRequest
	if err := decode(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	res, err := h.schedules.GenerateSchedules(r.Context(), serviceID, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, res)
}

func (h *ScheduleHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	serviceID, err := pathID(r, "serviceId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	rows, err := h.schedules.ListSchedules(r.Context(), serviceID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if rows == nil {
		rows = []*domain.ServiceSchedule{}
	}
	response.Success(w, rows)
}

func (h *ScheduleHandler) GetService(w http.ResponseWriter, r *http.Request) {
	serviceID, err := pathID(r, "serviceId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	res, err := h.schedules.GetService(r.Context(), serviceID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, res)
}

func (h *ScheduleHandler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := pathID(r, "scheduleId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	var req domain.RegisterPaymentRequest
	if err := decode(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	row, err := h.payments.Register(r.Context(), scheduleID, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, row)
}

func (h *ScheduleHandler) UnlinkPayment(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := pathID(r, "scheduleId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	var req domain.UnlinkPaymentRequest
	if err := decode(r, &req); err != nil {
		response.FromError(w, err)
		return
	}

	row, err := h.payments.Unlink(r.Context(), scheduleID, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, row)
}

func (h *ScheduleHandler) Skip(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := pathID(r, "scheduleId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	row, err := h.payments.Skip(r.Context(), scheduleID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, row)
}

func (h *ScheduleHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := pathID(r, "scheduleId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	row, err := h.payments.Reopen(r.Context(), scheduleID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, row)
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, customError.WrapValidation("invalid path parameter", map[string]string{name: raw})
	}
	return id, nil
}

// decode reads an optional JSON body into v; an empty body leaves v untouched
func decode(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return customError.WrapValidation("invalid request body", map[string]string{"body": err.Error()})
	}
	return nil
}
