package catalog

import (
	"encoding/json"
	"fmt"
)

// Feed message types pushed from the server to open pages.
const (
	MsgHello   = "hello"   // Sent once on connect, carries the client id
	MsgCatalog = "catalog" // Carries a full catalog
)

// Message is one frame of the catalog feed.
type Message struct {
	Type    string   `json:"type"`
	Client  string   `json:"client,omitempty"`
	Catalog *Catalog `json:"catalog,omitempty"`
}

// EncodeMessage renders a feed frame.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a feed frame. A catalog frame without a catalog is
// rejected.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode feed message: %w", err)
	}
	if msg.Type == MsgCatalog && msg.Catalog == nil {
		return Message{}, fmt.Errorf("catalog message without catalog")
	}
	return msg, nil
}
