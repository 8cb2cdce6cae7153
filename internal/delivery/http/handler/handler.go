package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/user/ghibli-blocker/internal/delivery/http/request"
	"github.com/user/ghibli-blocker/internal/delivery/http/response"
	"github.com/user/ghibli-blocker/internal/entity"
	"github.com/user/ghibli-blocker/internal/usecase"
)

type Handler struct {
	panel usecase.ControlPanel
}

func NewHandler(panel usecase.ControlPanel) *Handler {
	return &Handler{
		panel: panel,
	}
}

func (h *Handler) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.panel.Preferences(r.Context())
	if err != nil {
		slog.Error("Failed to load preferences", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewPreferencesResponse(prefs))
}

func (h *Handler) HandleSetBlocking(w http.ResponseWriter, r *http.Request) {
	var req request.SetBlockingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.IsEnabled == nil {
		h.writeJSONError(w, "is_enabled is required", http.StatusBadRequest)
		return
	}

	prefs, err := h.panel.SetBlocking(r.Context(), *req.IsEnabled, entity.Mode(req.Mode))
	if err != nil {
		h.writeUseCaseError(w, "Failed to set blocking", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewPreferencesResponse(prefs))
}

func (h *Handler) HandleSetMode(w http.ResponseWriter, r *http.Request) {
	var req request.SetModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	prefs, err := h.panel.SetMode(r.Context(), entity.Mode(req.Mode))
	if err != nil {
		h.writeUseCaseError(w, "Failed to set mode", err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewPreferencesResponse(prefs))
}

func (h *Handler) HandleListBlocks(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	events, err := h.panel.RecentBlocks(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list blocks", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewBlockListResponse(events))
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeUseCaseError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, entity.ErrInvalidMode) {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	slog.Error(msg, "error", err)
	h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
