package domain

// Relay message types. Anything else on the wire is ignored.
const (
	MessageAuth      = "auth"
	MessageSubscribe = "subscribe"
	MessageUpdate    = "update"
	MessageCursor    = "cursor"
	MessagePresence  = "presence"
)

// ClientMessage is the envelope every relay frame is decoded into. The relay
// only routes on Type and the connection's subscription; update/cursor/presence
// payloads are forwarded verbatim without inspecting the rest of the frame.
type ClientMessage struct {
	Type       string `json:"type"`
	DocumentID string `json:"documentId,omitempty"`
	Token      string `json:"token,omitempty"`
}
