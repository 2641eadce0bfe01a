package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"modchat/internal/history"
	"modchat/internal/metrics"
	"modchat/internal/moderation"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for now (Dev mode)
	},
}

// Handler exposes the websocket endpoint and the two synchronous-result
// operations, room creation and image submission.
type Handler struct {
	co  *Coordinator
	log zerolog.Logger
}

// NewHandler returns the HTTP surface over the session coordinator.
func NewHandler(co *Coordinator, logger zerolog.Logger) *Handler {
	return &Handler{co: co, log: logger.With().Str("component", "handler").Logger()}
}

// ServeWs upgrades the connection and starts the client pumps.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(h.co, conn, h.log)
	metrics.ConnectionsActive.Inc()

	go client.writePump()
	go client.readPump()
}

type createRoomRequest struct {
	RoomID string `json:"roomId"`
}

// CreateRoom handles POST /create-room.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomID == "" {
		respondError(w, http.StatusBadRequest, "Missing roomId")
		return
	}

	seed, err := h.co.CreateRoom(r.Context(), req.RoomID)
	if err != nil {
		if errors.Is(err, history.ErrRoomExists) {
			respondError(w, http.StatusConflict, "Room already exists!")
			return
		}
		h.log.Error().Err(err).Str("room", req.RoomID).Msg("room creation failed")
		respondError(w, http.StatusBadGateway, "Failed to create room: "+err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Room created successfully!",
		"room": map[string]any{
			"roomId":    req.RoomID,
			"timestamp": seed.Timestamp,
		},
	})
}

type submitImageRequest struct {
	RoomID   string `json:"roomId"`
	Sender   string `json:"sender"`
	ImageURL string `json:"imageUrl"`
}

// SubmitImage handles POST /images. The submission runs detached from the
// request context: an impatient caller hanging up does not abort a
// pipeline already in flight.
func (h *Handler) SubmitImage(w http.ResponseWriter, r *http.Request) {
	var req submitImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	msg, predictions, err := h.co.SubmitImage(context.WithoutCancel(r.Context()), moderation.Submission{
		RoomID:   req.RoomID,
		Sender:   req.Sender,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		status := pipelineStatus(err)
		if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
			h.log.Error().Err(err).Str("room", req.RoomID).Msg("image submission failed")
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"roomId":      msg.RoomID,
		"predictions": predictions,
		"message":     msg,
	})
}

// pipelineStatus maps the pipeline error taxonomy onto HTTP statuses.
func pipelineStatus(err error) int {
	switch {
	case errors.Is(err, moderation.ErrModerationDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, moderation.ErrInvalidSubmission):
		return http.StatusBadRequest
	case errors.Is(err, moderation.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, moderation.ErrFetch),
		errors.Is(err, moderation.ErrNormalize):
		return http.StatusUnprocessableEntity
	case errors.Is(err, moderation.ErrStoreUpload),
		errors.Is(err, history.ErrStoreUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"errors": map[string]string{"message": message},
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
