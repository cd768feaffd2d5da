package streaming

import (
	"encoding/json"
)

// Message type constants matching the overlay protocol.
const (
	TypeHello   = "hello"
	TypeGoodbye = "goodbye"
	TypeZone    = "zone"
	TypeFrame   = "frame"
	TypeChat    = "chat"
	TypeToast   = "toast"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Session string          `json:"session,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// HelloPayload opens a session.
type HelloPayload struct {
	Version  string   `json:"version"`
	Language string   `json:"language"`
	Policies []string `json:"policies"`
}

// ZonePayload announces a zone transition.
type ZonePayload struct {
	Territory    uint32 `json:"territory"`
	Map          uint32 `json:"map"`
	PlaceName    string `json:"placeName"`
	Gameplay     bool   `json:"gameplay"`
	UISuppressed bool   `json:"uiSuppressed"`
}

// TextPayload carries a chat line or a toast.
type TextPayload struct {
	Message string `json:"message"`
}
