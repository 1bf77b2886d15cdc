package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Registry tests exercise fan-out without a live transport: Broadcast only
// touches the bounded send channels, so clients here carry no connection.

func newTestClient() *Client {
	return newClient(nil, 8)
}

func drain(c *Client) [][]byte {
	var msgs [][]byte
	for {
		select {
		case msg := <-c.send:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func TestBroadcastReachesSubscribersExceptSender(t *testing.T) {
	r := NewRegistry()
	c1, c2, c3 := newTestClient(), newTestClient(), newTestClient()
	for _, c := range []*Client{c1, c2, c3} {
		r.Register(c)
		r.SetSubscription(c, "doc-42")
	}

	payload := []byte(`{"type":"cursor","documentId":"doc-42","x":10,"y":20}`)
	r.Broadcast("doc-42", c1, payload)

	require.Len(t, drain(c2), 1)
	require.Len(t, drain(c3), 1)
	assert.Empty(t, drain(c1))

	// Delivery is exactly once.
	r.Broadcast("doc-42", c1, payload)
	got := drain(c2)
	require.Len(t, got, 1)
	assert.Equal(t, payload, got[0])
}

func TestBroadcastSkipsOtherDocuments(t *testing.T) {
	r := NewRegistry()
	c1, c2, c3 := newTestClient(), newTestClient(), newTestClient()
	r.Register(c1)
	r.Register(c2)
	r.Register(c3)
	r.SetSubscription(c1, "doc-1")
	r.SetSubscription(c2, "doc-1")
	r.SetSubscription(c3, "doc-2")

	r.Broadcast("doc-1", c1, []byte("update"))

	assert.Len(t, drain(c2), 1)
	assert.Empty(t, drain(c3))
}

func TestBroadcastSkipsUnsubscribedConnections(t *testing.T) {
	r := NewRegistry()
	c1, c2 := newTestClient(), newTestClient()
	r.Register(c1)
	r.Register(c2)
	r.SetSubscription(c1, "doc-1")
	// c2 never subscribed: its documentID is unset.

	r.Broadcast("doc-1", c1, []byte("update"))
	assert.Empty(t, drain(c2))

	// An unset documentID must not match a broadcast for "".
	r.Broadcast("", c1, []byte("update"))
	assert.Empty(t, drain(c2))
}

func TestResubscribeMovesFanOut(t *testing.T) {
	r := NewRegistry()
	sender, c := newTestClient(), newTestClient()
	r.Register(sender)
	r.Register(c)
	r.SetSubscription(c, "doc-1")

	r.SetSubscription(c, "doc-2")

	r.Broadcast("doc-1", sender, []byte("a"))
	assert.Empty(t, drain(c))

	r.Broadcast("doc-2", sender, []byte("b"))
	assert.Len(t, drain(c), 1)
}

func TestUnregisterStopsDelivery(t *testing.T) {
	r := NewRegistry()
	sender, c := newTestClient(), newTestClient()
	r.Register(sender)
	r.Register(c)
	r.SetSubscription(c, "doc-1")

	r.Unregister(c)
	assert.Equal(t, 1, r.Count())

	// Broadcasting to the now-stale handle must not error or panic.
	r.Broadcast("doc-1", sender, []byte("update"))
	assert.Empty(t, drain(c))
}

func TestUnregisterIsSafeOnDoubleRemoval(t *testing.T) {
	r := NewRegistry()
	c := newTestClient()
	r.Register(c)

	// Close and error handlers may both fire for the same connection.
	r.Unregister(c)
	assert.NotPanics(t, func() { r.Unregister(c) })
	assert.Equal(t, 0, r.Count())

	select {
	case <-c.done:
	default:
		t.Fatal("expected done channel to be closed after unregister")
	}
}

func TestSetIdentityOverwrites(t *testing.T) {
	r := NewRegistry()
	c := newTestClient()
	r.Register(c)

	r.SetIdentity(c, "user_1")
	assert.Equal(t, "user_1", r.Identity(c))

	r.SetIdentity(c, "user_2")
	assert.Equal(t, "user_2", r.Identity(c))
}

func TestSlowConsumerIsDisconnected(t *testing.T) {
	r := NewRegistry()
	sender := newTestClient()
	slow := newClient(nil, 1)
	healthy := newTestClient()
	r.Register(sender)
	r.Register(slow)
	r.Register(healthy)
	r.SetSubscription(slow, "doc-1")
	r.SetSubscription(healthy, "doc-1")

	// First broadcast fills the slow client's single-slot buffer; the second
	// overflows it and must disconnect only that client.
	r.Broadcast("doc-1", sender, []byte("a"))
	r.Broadcast("doc-1", sender, []byte("b"))

	assert.Equal(t, 2, r.Count())
	assert.Len(t, drain(healthy), 2)

	select {
	case <-slow.done:
	default:
		t.Fatal("expected slow consumer to be disconnected")
	}
}
