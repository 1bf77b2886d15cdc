package websocket

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = 30 * time.Second
)

// Client is one live relay connection. documentID and userID start unset and
// are mutated in place as auth/subscribe frames arrive; both fields are
// guarded by the owning Registry's lock, and the goroutine running this
// connection's read loop is their only writer.
type Client struct {
	conn *websocket.Conn

	// send is the bounded outbound queue. The write pump drains it in FIFO
	// order, so per sender→receiver delivery order matches send order.
	send chan []byte

	// done tells the write pump to stop. Closed exactly once, by whichever of
	// the close/error paths gets to Unregister first.
	done      chan struct{}
	closeOnce sync.Once

	documentID string
	userID     string
}

func newClient(conn *websocket.Conn, sendBufferSize int) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

func (c *Client) signalClose() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump serializes all writes to the peer: broadcast payloads from the
// send queue plus keep-alive pings. conn.WriteMessage is not safe for
// concurrent use, so nothing else may write to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("[WS] write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
