package websocket

import (
	"log"
	"sync"
)

// Registry tracks every live relay connection and its mutable subscription
// and identity attributes. It is the only shared mutable state in the relay:
// one instance is constructed by the server and injected into each handler,
// so independent test instances never interfere.
type Registry struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[*Client]bool),
	}
}

// Register adds a connection with unset subscription and identity. Called
// exactly once per completed upgrade.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = true
	log.Printf("[WS] client connected (total: %d)", len(r.clients))
}

// Unregister removes a connection and signals its write pump to stop.
// Close and error handlers may race, so double removal is a no-op.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c]; !ok {
		return
	}
	delete(r.clients, c)
	c.signalClose()
	log.Printf("[WS] client disconnected: user=%s (remaining: %d)", c.userID, len(r.clients))
}

// SetSubscription overwrites the connection's document subscription.
// Fan-out only ever uses the most recently set value; no history is kept.
// Document existence is not validated here — that is the external document
// service's concern.
func (r *Registry) SetSubscription(c *Client, documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.documentID = documentID
}

// SetIdentity overwrites the connection's user identity.
func (r *Registry) SetIdentity(c *Client, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.userID = userID
}

// Subscription returns the connection's current document subscription,
// or "" when no subscribe frame has arrived yet.
func (r *Registry) Subscription(c *Client) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return c.documentID
}

// Identity returns the connection's current user identity.
func (r *Registry) Identity(c *Client) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return c.userID
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast delivers payload to every registered connection subscribed to
// documentID except the sender. The recipient set is snapshotted under the
// read lock and sends happen after it is released, so one stalled peer cannot
// block registry mutation or other broadcasts. Each enqueue is independent: a
// recipient whose bounded send queue is full is disconnected as a slow
// consumer and delivery to the remaining recipients continues.
func (r *Registry) Broadcast(documentID string, exclude *Client, payload []byte) {
	if documentID == "" {
		return
	}

	r.mu.RLock()
	recipients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		if c == exclude || c.documentID != documentID {
			continue
		}
		recipients = append(recipients, c)
	}
	r.mu.RUnlock()

	for _, c := range recipients {
		select {
		case c.send <- payload:
		default:
			log.Printf("[WS] send buffer full, disconnecting slow consumer: user=%s", r.Identity(c))
			r.Unregister(c)
		}
	}
}

// Shutdown disconnects every live client (graceful shutdown).
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c := range r.clients {
		c.signalClose()
	}
	r.clients = make(map[*Client]bool)
	log.Println("[WS] registry shut down, all connections closed")
}
