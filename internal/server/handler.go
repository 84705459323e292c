package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/blacklist"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/httputil"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/ledger"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/registry"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/route"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/types"
)

// Handler holds dependencies for the router HTTP surface.
type Handler struct {
	router    *route.Router
	registry  *registry.Registry
	ledger    ledger.Store
	blacklist *blacklist.Manager
}

func NewHandler(router *route.Router, reg *registry.Registry, led ledger.Store, bl *blacklist.Manager) *Handler {
	return &Handler{
		router:    router,
		registry:  reg,
		ledger:    led,
		blacklist: bl,
	}
}

// Chat handles POST /v1/chat: the full classify → select → dispatch
// pipeline for one request.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	var chatReq types.ChatRequest
	if err := json.Unmarshal(body, &chatReq); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	if len(chatReq.Messages) == 0 {
		httputil.WriteBadRequestError(w, reqID, "messages is required")
		return
	}
	chatReq.RequestID = reqID
	chatReq.ReceivedAt = receivedAt

	res, err := h.router.Route(r.Context(), &chatReq)
	if err != nil {
		var nmae *route.NoModelAvailableError
		if errors.As(err, &nmae) {
			httputil.WriteNoModelsError(w, reqID, nmae.Error())
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Client went away; nothing useful to write.
			return
		}
		slog.Error("routing failed", "request_id", reqID, "error", err)
		httputil.WriteInternalError(w, reqID, "Routing failed")
		return
	}

	slog.Info("request completed",
		"request_id", reqID,
		"model", res.Model,
		"provider", res.Provider,
		"complexity", res.Score.Value,
		"handed_off", res.Response.HandedOff,
		"attempts", res.Attempts,
		"duration_ms", time.Since(receivedAt).Milliseconds(),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res.Response)
}

// Usage handles GET /v1/diagnostics/usage/{model}: a ledger snapshot.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	modelID := chi.URLParam(r, "model")

	m, ok := h.registry.Get(modelID)
	if !ok {
		httputil.WriteNotFoundError(w, reqID, "unknown model: "+modelID)
		return
	}

	u := h.ledger.Usage(r.Context(), m.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(usageResponse{
		Model:          m.ID,
		RPMCount:       u.RPMCount,
		RPMLimit:       m.Limits.RPM,
		RPMWindowStart: u.RPMWindowStart,
		TPMCount:       u.TPMCount,
		TPMLimit:       m.Limits.TPM,
		TPMWindowStart: u.TPMWindowStart,
		RPDCount:       u.RPDCount,
		RPDLimit:       m.Limits.RPD,
		RPDWindowStart: u.RPDWindowStart,
	})
}

// Blacklist handles GET /v1/diagnostics/blacklist: remaining ban
// seconds per currently-banned model.
func (h *Handler) Blacklist(w http.ResponseWriter, r *http.Request) {
	status := h.blacklist.Status()
	out := make(map[string]float64, len(status))
	for id, remaining := range status {
		out[id] = remaining.Seconds()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(blacklistResponse{Banned: out})
}

// ListModels handles GET /v1/models: the static registry listing.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	var models []modelObject
	for _, m := range h.registry.Models() {
		tasks := make([]string, 0, len(m.TaskTypes))
		for _, t := range m.TaskTypes {
			tasks = append(tasks, string(t))
		}
		models = append(models, modelObject{
			ID:        m.ID,
			Provider:  m.Provider,
			TaskTypes: tasks,
			Priority:  m.Priority,
			RPM:       m.Limits.RPM,
			TPM:       m.Limits.TPM,
			RPD:       m.Limits.RPD,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(modelListResponse{Models: models})
}

type usageResponse struct {
	Model          string    `json:"model"`
	RPMCount       int       `json:"rpm_count"`
	RPMLimit       int       `json:"rpm_limit"`
	RPMWindowStart time.Time `json:"rpm_window_start"`
	TPMCount       int       `json:"tpm_count"`
	TPMLimit       int       `json:"tpm_limit"`
	TPMWindowStart time.Time `json:"tpm_window_start"`
	RPDCount       int       `json:"rpd_count"`
	RPDLimit       int       `json:"rpd_limit"`
	RPDWindowStart time.Time `json:"rpd_window_start"`
}

type blacklistResponse struct {
	Banned map[string]float64 `json:"banned"`
}

type modelObject struct {
	ID        string   `json:"id"`
	Provider  string   `json:"provider"`
	TaskTypes []string `json:"task_types"`
	Priority  int      `json:"priority"`
	RPM       int      `json:"rpm"`
	TPM       int      `json:"tpm"`
	RPD       int      `json:"rpd"`
}

type modelListResponse struct {
	Models []modelObject `json:"models"`
}
