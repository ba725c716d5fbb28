package ws

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/tapcard/storefront/internal/wizard"
)

// Event types pushed to the storefront.
const (
	EventNotification = "wizard.notification"
)

// SessionNotifier forwards controller notifications to the session's room.
// It satisfies wizard.Notifier.
type SessionNotifier struct {
	hub       *Hub
	sessionID uuid.UUID
}

// NewSessionNotifier creates a notifier bound to one session.
func NewSessionNotifier(hub *Hub, sessionID uuid.UUID) *SessionNotifier {
	return &SessionNotifier{hub: hub, sessionID: sessionID}
}

func (n *SessionNotifier) Notify(note wizard.Notification) {
	payload, err := json.Marshal(note)
	if err != nil {
		log.Printf("ERROR: encode notification for session %s: %v", n.sessionID, err)
		return
	}
	n.hub.BroadcastToSession(n.sessionID, Event{Type: EventNotification, Payload: payload})
}
