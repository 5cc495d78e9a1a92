package notifications

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "parkly/pkg/errors"
	"parkly/pkg/logger"
	"parkly/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

const heartbeatInterval = 30 * time.Second

// StreamHandler serves the notification stream over server-sent events.
type StreamHandler struct {
	hub *Hub
	log *logger.Logger
}

func NewStreamHandler(hub *Hub, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		hub: hub,
		log: log,
	}
}

func (h *StreamHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/notifications/stream", h.Stream)
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := middleware.AuthenticatedUser(r.Context())
	if userID == "" {
		apperrors.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		apperrors.WriteError(w, apperrors.Internal("Streaming unsupported by connection", nil))
		return
	}

	// The stream outlives the server's write timeout; lift the connection
	// write deadline so it is not severed mid-stream.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.log.Warn("could not clear write deadline for notification stream", "error", err)
	}

	sessionID, ch := h.hub.Register(userID)
	defer h.hub.Deregister(userID, sessionID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-heartbeat.C:
			// SSE comment line keeps intermediaries from closing the stream.
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case evt, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				h.log.Error("failed to encode notification", "event_type", evt.EventType, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.EventType, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
