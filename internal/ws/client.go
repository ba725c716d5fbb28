package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // The session id in the path is the only credential
	},
}

// SessionLookup reports whether a checkout session is live.
// Satisfied by *session.Manager.
type SessionLookup interface {
	Exists(id uuid.UUID) bool
}

// CloseSessionEnded is sent to tabs whose checkout session was deleted,
// completed elsewhere or expired. The storefront starts a new session on it.
const CloseSessionEnded = 4000

var (
	sessionEndedFrame = websocket.FormatCloseMessage(CloseSessionEnded, "session ended")
	slowTabFrame      = websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow")
	normalCloseFrame  = websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
)

// Client is one browser tab watching a checkout session
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID uuid.UUID
	send      chan []byte

	// Set by the hub before it closes send
	closeFrame []byte
}

// ReadPump only watches for the tab going away; the storefront never
// sends anything upstream
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WARN: websocket session %s: %v", c.sessionID, err)
			}
			return
		}
	}
}

// WritePump forwards session events to the tab and keeps it alive with
// pings. When the hub drops the tab it sends the close frame the hub chose.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				frame := c.closeFrame
				if frame == nil {
					frame = normalCloseFrame
				}
				c.conn.WriteMessage(websocket.CloseMessage, frame)
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Batch anything queued behind it, newline separated
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS handles WebSocket requests from the storefront
// Endpoint: WS /ws/wizard/{sid}
func ServeWS(hub *Hub, sessions SessionLookup, w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	if !sessions.Exists(sessionID) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WARN: websocket upgrade for session %s: %v", sessionID, err)
		return
	}

	client := &Client{
		hub:       hub,
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
	client.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
