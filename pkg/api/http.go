// Package api exposes the push endpoint and the monitoring read surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/vitalink/platform/pkg/common/logger"
	"github.com/vitalink/platform/pkg/connector"
	"github.com/vitalink/platform/pkg/dispatch"
	"github.com/vitalink/platform/pkg/hospital"
	"github.com/vitalink/platform/pkg/observability/metrics"
	"github.com/vitalink/platform/pkg/parsing"
	"github.com/vitalink/platform/pkg/pipeline"
	"github.com/vitalink/platform/pkg/telemetry"
)

// ConfigProvider returns the currently active hospital configuration; the
// composition root keeps it fresh across config reloads.
type ConfigProvider func() *hospital.Config

type Handler struct {
	runner  *pipeline.Runner
	ledger  telemetry.Ledger
	current ConfigProvider
}

func NewHandler(runner *pipeline.Runner, ledger telemetry.Ledger, current ConfigProvider) *Handler {
	return &Handler{runner: runner, ledger: ledger, current: current}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", h.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/push", h.handlePush).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/admin/logs", h.handleListLogs).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/admin/status", h.handleListStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/admin/run", h.handleRunNow).Methods(http.MethodPost)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w)
}

func (h *Handler) handlePush(w http.ResponseWriter, r *http.Request) {
	cfg := h.current()
	if cfg == nil {
		writeError(w, http.StatusServiceUnavailable, "no hospital configuration loaded", "")
		return
	}

	var payload interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	metrics.ObservePushAccepted()
	result, err := h.runner.ReceivePush(r.Context(), cfg, payload)
	if err != nil {
		h.writePushError(w, err)
		return
	}

	if result.Status == pipeline.PushStatusPostprocessFailed {
		// Confirmation failure is a structured result, not an HTTP error.
		writeJSON(w, http.StatusOK, result)
		return
	}
	writeJSON(w, http.StatusOK, result.Response)
}

// writePushError maps push-path failures onto structured error responses:
// malformed records are the caller's fault, backend and connector failures
// are upstream ones.
func (h *Handler) writePushError(w http.ResponseWriter, err error) {
	var parseErr *parsing.ParseError
	if errors.As(err, &parseErr) {
		writeError(w, http.StatusBadRequest, parseErr.Error(), parseErr.Code())
		return
	}

	var dispatchErr *dispatch.DispatchError
	if errors.As(err, &dispatchErr) {
		logger.Log.WithError(err).Error("Push dispatch failed")
		writeError(w, http.StatusBadGateway, "backend dispatch failed", dispatch.DispatchErrorCode)
		return
	}

	var connErr *connector.ConnectorError
	if errors.As(err, &connErr) {
		logger.Log.WithError(err).Error("Push connector failed")
		writeError(w, http.StatusBadGateway, "connector failed", pipeline.PipelineErrorCode)
		return
	}

	logger.Log.WithError(err).Error("Push processing failed")
	writeError(w, http.StatusBadRequest, err.Error(), "")
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	filter := telemetry.EventFilter{
		HospitalID: r.URL.Query().Get("hospital_id"),
		Level:      r.URL.Query().Get("level"),
		Name:       r.URL.Query().Get("event"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}

	events, err := h.ledger.ListEvents(r.Context(), filter)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list telemetry events")
		writeError(w, http.StatusInternalServerError, "failed to list events", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": events})
}

func (h *Handler) handleListStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.ledger.ListStatuses(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list hospital status")
		writeError(w, http.StatusInternalServerError, "failed to list status", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": statuses})
}

func (h *Handler) handleRunNow(w http.ResponseWriter, r *http.Request) {
	cfg := h.current()
	if cfg == nil {
		writeError(w, http.StatusServiceUnavailable, "no hospital configuration loaded", "")
		return
	}
	if !cfg.ConnectorType.IsPull() {
		writeError(w, http.StatusBadRequest, "hospital is not configured for pull", "")
		return
	}

	// Detached from the request context: the run outlives the response.
	go h.runner.RunPull(context.Background(), cfg)
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"status": "started", "hospital_id": cfg.HospitalID})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	body := map[string]interface{}{"error": message}
	if code != "" {
		body["error_code"] = code
	}
	writeJSON(w, status, body)
}
