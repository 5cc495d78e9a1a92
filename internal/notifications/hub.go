package notifications

import (
	"sync"

	"parkly/internal/events"
	"parkly/pkg/logger"

	"github.com/google/uuid"
)

const sessionBuffer = 16

// Hub is the process-wide registry of connected notification sessions.
// Delivery is best-effort at-most-once: Notify never blocks, never queues
// for absent users, and drops events a slow session cannot take.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[string]chan events.BookingEvent
	log      *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]map[string]chan events.BookingEvent),
		log:      log,
	}
}

// Register binds a new session to the user and returns the session id and
// the channel the events arrive on. One user may hold several sessions
// (several open tabs); each gets every event independently.
func (h *Hub) Register(userID string) (string, <-chan events.BookingEvent) {
	sessionID := uuid.New().String()
	ch := make(chan events.BookingEvent, sessionBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[userID] == nil {
		h.sessions[userID] = make(map[string]chan events.BookingEvent)
	}
	h.sessions[userID][sessionID] = ch

	h.log.Debug("notification session registered", "user_id", userID, "session_id", sessionID)
	return sessionID, ch
}

// Deregister removes the session and closes its channel.
func (h *Hub) Deregister(userID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userSessions, ok := h.sessions[userID]
	if !ok {
		return
	}

	ch, ok := userSessions[sessionID]
	if !ok {
		return
	}

	delete(userSessions, sessionID)
	if len(userSessions) == 0 {
		delete(h.sessions, userID)
	}
	close(ch)

	h.log.Debug("notification session deregistered", "user_id", userID, "session_id", sessionID)
}

// Notify pushes the event to every session of the user. A full session
// buffer drops the event for that session.
func (h *Hub) Notify(userID string, evt events.BookingEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sessionID, ch := range h.sessions[userID] {
		select {
		case ch <- evt:
		default:
			h.log.Warn("dropping notification for slow session",
				"user_id", userID,
				"session_id", sessionID,
				"event_type", evt.EventType,
			)
		}
	}
}

// Sessions reports the number of open sessions for the user.
func (h *Hub) Sessions(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}
