package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/docweave/backend/internal/domain"
	"github.com/docweave/backend/pkg/auth"
)

// TokenValidator verifies the access token presented at upgrade time (and in
// advisory in-band auth frames).
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*auth.Claims, error)
}

// Handler upgrades HTTP requests into relay sessions and runs the
// per-connection protocol loop.
type Handler struct {
	Registry       *Registry
	Auth           TokenValidator
	Upgrader       websocket.Upgrader
	sendBufferSize int
}

func NewHandler(registry *Registry, validator TokenValidator, sendBufferSize int) *Handler {
	return &Handler{
		Registry:       registry,
		Auth:           validator,
		sendBufferSize: sendBufferSize,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleWebSocket authorizes and upgrades the connection, then hands it to
// the relay loop. Authorization happens here, against the access token's
// verified subject; the in-band auth frame is advisory only.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	w, r := c.Writer, c.Request

	if !websocket.IsWebSocketUpgrade(r) {
		c.String(http.StatusUpgradeRequired, "websocket upgrade required")
		return
	}

	claims, err := h.Auth.ValidateAccessToken(bearerToken(r))
	if err != nil {
		log.Printf("[WS] rejected upgrade: %v", err)
		c.String(http.StatusUnauthorized, "invalid access token")
		return
	}

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrader has already written an error response; the accept loop
		// must survive individual handshake failures.
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := newClient(conn, h.sendBufferSize)
	h.Registry.Register(client)
	h.Registry.SetIdentity(client, claims.UserID)

	go client.writePump()
	h.readLoop(client)
}

// readLoop processes inbound frames sequentially until the transport closes
// or errors. Only transport-level failures terminate a session; malformed or
// unknown frames are dropped with the connection kept alive.
func (h *Handler) readLoop(client *Client) {
	conn := client.conn
	defer func() {
		h.Registry.Unregister(client)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] read error: %v", err)
			}
			return
		}

		h.processMessage(client, data)
	}
}

// processMessage routes one inbound frame. update/cursor/presence are relayed
// verbatim to the sender's currently subscribed document; before a subscribe
// frame arrives they are silently inert.
func (h *Handler) processMessage(client *Client, raw []byte) {
	var msg domain.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("[WS] Invalid message format: %v", err)
		return
	}

	switch msg.Type {
	case domain.MessageAuth:
		// Advisory: the upgrade-time bearer check already fixed the identity.
		// A valid token may overwrite it; anything else is dropped.
		claims, err := h.Auth.ValidateAccessToken(msg.Token)
		if err != nil {
			log.Printf("[WS] ignoring auth frame with invalid token: %v", err)
			return
		}
		h.Registry.SetIdentity(client, claims.UserID)

	case domain.MessageSubscribe:
		if msg.DocumentID == "" {
			log.Printf("[WS] ignoring subscribe without documentId")
			return
		}
		h.Registry.SetSubscription(client, msg.DocumentID)

	case domain.MessageUpdate, domain.MessageCursor, domain.MessagePresence:
		documentID := h.Registry.Subscription(client)
		if documentID == "" {
			return
		}
		h.Registry.Broadcast(documentID, client, raw)

	default:
		log.Printf("[WS] ignoring unknown message type %q", msg.Type)
	}
}

// bearerToken extracts the access token from the Authorization header or,
// for browser WebSocket clients that cannot set headers, the token query
// parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
