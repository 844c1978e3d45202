package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tobsch/snappy/internal/deploy"
	"github.com/tobsch/snappy/internal/model"
	"github.com/tobsch/snappy/internal/resolve"
	"github.com/tobsch/snappy/internal/snapcast"
)

// Deployer triggers a full configuration rollout
type Deployer interface {
	Run(ctx context.Context, doc *model.Document) (*deploy.Result, error)
}

// SnapController is the live-server surface exposed through the API
type SnapController interface {
	ServerStatus(ctx context.Context) (*snapcast.Server, error)
	SetGroupStream(ctx context.Context, groupID, streamID string) error
	SetGroupMute(ctx context.Context, groupID string, mute bool) error
	SetClientVolume(ctx context.Context, clientID string, percent int, muted bool) error
}

// Handler handles topology API requests
type Handler struct {
	store    *model.Store
	snap     SnapController
	deployer Deployer
	log      zerolog.Logger
}

// New creates a new API handler
func New(store *model.Store, snap SnapController, deployer Deployer, log zerolog.Logger) *Handler {
	return &Handler{store: store, snap: snap, deployer: deployer, log: log}
}

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Routes registers all API routes on the mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/document", h.GetDocument)
	mux.HandleFunc("GET /api/global", h.GetGlobal)
	mux.HandleFunc("PUT /api/global", h.PutGlobal)

	mux.HandleFunc("GET /api/amplifiers", h.ListAmplifiers)
	mux.HandleFunc("GET /api/amplifiers/{id}", h.GetAmplifier)
	mux.HandleFunc("PUT /api/amplifiers/{id}", h.PutAmplifier)
	mux.HandleFunc("DELETE /api/amplifiers/{id}", h.DeleteAmplifier)

	mux.HandleFunc("GET /api/speakers", h.ListSpeakers)
	mux.HandleFunc("GET /api/speakers/{id}", h.GetSpeaker)
	mux.HandleFunc("PUT /api/speakers/{id}", h.PutSpeaker)
	mux.HandleFunc("DELETE /api/speakers/{id}", h.DeleteSpeaker)

	mux.HandleFunc("GET /api/rooms", h.ListRooms)
	mux.HandleFunc("GET /api/rooms/{id}", h.GetRoom)
	mux.HandleFunc("PUT /api/rooms/{id}", h.PutRoom)
	mux.HandleFunc("DELETE /api/rooms/{id}", h.DeleteRoom)

	mux.HandleFunc("GET /api/zones", h.ListZones)
	mux.HandleFunc("GET /api/zones/{id}", h.GetZone)
	mux.HandleFunc("PUT /api/zones/{id}", h.PutZone)
	mux.HandleFunc("DELETE /api/zones/{id}", h.DeleteZone)

	mux.HandleFunc("GET /api/inputs", h.ListInputs)
	mux.HandleFunc("GET /api/inputs/{id}", h.GetInput)
	mux.HandleFunc("PUT /api/inputs/{id}", h.PutInput)
	mux.HandleFunc("DELETE /api/inputs/{id}", h.DeleteInput)

	mux.HandleFunc("GET /api/streams", h.ListStreams)
	mux.HandleFunc("GET /api/streams/{id}", h.GetStream)
	mux.HandleFunc("PUT /api/streams/{id}", h.PutStream)
	mux.HandleFunc("DELETE /api/streams/{id}", h.DeleteStream)

	mux.HandleFunc("GET /api/targets", h.ListTargets)
	mux.HandleFunc("PUT /api/targets/{id}", h.PutTarget)
	mux.HandleFunc("DELETE /api/targets/{id}", h.DeleteTarget)
	mux.HandleFunc("GET /api/targets/resolved", h.ResolvedTargets)

	mux.HandleFunc("GET /api/deploy/preview", h.Preview)
	mux.HandleFunc("POST /api/deploy", h.Deploy)

	mux.HandleFunc("GET /api/snapcast/status", h.SnapcastStatus)
	mux.HandleFunc("POST /api/snapcast/group/stream", h.SnapcastGroupStream)
	mux.HandleFunc("POST /api/snapcast/client/stream", h.SnapcastClientStream)
	mux.HandleFunc("POST /api/snapcast/group/mute", h.SnapcastGroupMute)
	mux.HandleFunc("POST /api/snapcast/client/volume", h.SnapcastClientVolume)
}

// GetDocument returns the whole topology document
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Snapshot()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load document")
		h.writeError(w, "Failed to load document", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, doc, http.StatusOK)
}

// GetGlobal returns the global settings
func (h *Handler) GetGlobal(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Snapshot()
	if err != nil {
		h.writeError(w, "Failed to load document", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, doc.Global, http.StatusOK)
}

// PutGlobal replaces the global settings
func (h *Handler) PutGlobal(w http.ResponseWriter, r *http.Request) {
	var global model.GlobalSettings
	if err := json.NewDecoder(r.Body).Decode(&global); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if !h.updateDocument(w, func(doc *model.Document) error {
		doc.Global = &global
		return nil
	}) {
		return
	}
	h.writeJSON(w, global, http.StatusOK)
}

// ResolvedTargets returns the room to stream mapping the reconciler enforces
func (h *Handler) ResolvedTargets(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Snapshot()
	if err != nil {
		h.writeError(w, "Failed to load document", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, resolve.Targets(doc), http.StatusOK)
}

// Preview renders both artifacts without installing anything
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Snapshot()
	if err != nil {
		h.writeError(w, "Failed to load document", err.Error(), http.StatusInternalServerError)
		return
	}
	preview, err := deploy.Render(doc)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			h.writeError(w, "Document is not deployable", verr.Error(), http.StatusUnprocessableEntity)
			return
		}
		h.log.Error().Err(err).Msg("preview failed")
		h.writeError(w, "Preview failed", err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, preview, http.StatusOK)
}

// Deploy runs the full rollout pipeline
func (h *Handler) Deploy(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Snapshot()
	if err != nil {
		h.writeError(w, "Failed to load document", err.Error(), http.StatusInternalServerError)
		return
	}
	result, err := h.deployer.Run(r.Context(), doc)
	if err != nil {
		h.log.Error().Err(err).Msg("deploy failed")
		status := http.StatusInternalServerError
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			status = http.StatusUnprocessableEntity
		}
		h.writeJSON(w, map[string]any{"error": err.Error(), "result": result}, status)
		return
	}
	h.writeJSON(w, result, http.StatusOK)
}

// SnapcastStatus proxies the live server status
func (h *Handler) SnapcastStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.snap.ServerStatus(r.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("snapcast status failed")
		h.writeError(w, "Snapcast unreachable", err.Error(), http.StatusBadGateway)
		return
	}
	h.writeJSON(w, status, http.StatusOK)
}

// SnapcastGroupStream switches a group's stream
func (h *Handler) SnapcastGroupStream(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GroupID  string `json:"group_id"`
		StreamID string `json:"stream_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupID == "" || req.StreamID == "" {
		h.writeError(w, "Invalid request body", "group_id and stream_id are required", http.StatusBadRequest)
		return
	}
	if err := h.snap.SetGroupStream(r.Context(), req.GroupID, req.StreamID); err != nil {
		h.writeError(w, "Snapcast command failed", err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SnapcastClientStream switches the stream of the group serving a named
// client, so callers can address rooms without tracking volatile group IDs
func (h *Handler) SnapcastClientStream(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		StreamID string `json:"stream_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.StreamID == "" {
		h.writeError(w, "Invalid request body", "name and stream_id are required", http.StatusBadRequest)
		return
	}
	status, err := h.snap.ServerStatus(r.Context())
	if err != nil {
		h.writeError(w, "Snapcast unreachable", err.Error(), http.StatusBadGateway)
		return
	}
	group, _ := status.GroupOf(req.Name)
	if group == nil {
		h.writeError(w, "Not found", "no connected client named "+req.Name, http.StatusNotFound)
		return
	}
	if err := h.snap.SetGroupStream(r.Context(), group.ID, req.StreamID); err != nil {
		h.writeError(w, "Snapcast command failed", err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SnapcastGroupMute mutes or unmutes a group
func (h *Handler) SnapcastGroupMute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GroupID string `json:"group_id"`
		Mute    bool   `json:"mute"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupID == "" {
		h.writeError(w, "Invalid request body", "group_id is required", http.StatusBadRequest)
		return
	}
	if err := h.snap.SetGroupMute(r.Context(), req.GroupID, req.Mute); err != nil {
		h.writeError(w, "Snapcast command failed", err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SnapcastClientVolume sets a client's volume
func (h *Handler) SnapcastClientVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID string `json:"client_id"`
		Percent  *int   `json:"percent"`
		Muted    bool   `json:"muted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientID == "" || req.Percent == nil {
		h.writeError(w, "Invalid request body", "client_id and percent are required", http.StatusBadRequest)
		return
	}
	if *req.Percent < 0 || *req.Percent > 100 {
		h.writeError(w, "Invalid volume", "percent must be 0-100", http.StatusBadRequest)
		return
	}
	if err := h.snap.SetClientVolume(r.Context(), req.ClientID, *req.Percent, req.Muted); err != nil {
		h.writeError(w, "Snapcast command failed", err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// updateDocument applies a mutation, validates the result, and saves it.
// Returns false after writing an error response.
func (h *Handler) updateDocument(w http.ResponseWriter, fn func(doc *model.Document) error) bool {
	err := h.store.Update(func(doc *model.Document) error {
		if err := fn(doc); err != nil {
			return err
		}
		return doc.Validate()
	})
	if err == nil {
		return true
	}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		h.writeError(w, "Validation failed", verr.Error(), http.StatusUnprocessableEntity)
		return false
	}
	if errors.Is(err, model.ErrNotFound) {
		h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
		return false
	}
	h.log.Error().Err(err).Msg("document update failed")
	h.writeError(w, "Failed to update document", err.Error(), http.StatusInternalServerError)
	return false
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message, details string, status int) {
	h.writeJSON(w, ErrorResponse{Error: message, Details: details}, status)
}
