package bus

import (
	"context"

	"github.com/google/uuid"
)

// PacketKind is the top-level stanza class of an inbound packet.
type PacketKind string

const (
	KindMessage  PacketKind = "message"
	KindPresence PacketKind = "presence"
	KindIQ       PacketKind = "iq"
)

// Message subtypes. Only TypeChat is a one-to-one conversation.
const (
	TypeChat      = "chat"
	TypeGroupChat = "groupchat"
	TypeNormal    = "normal"
	TypeHeadline  = "headline"
	TypeError     = "error"
)

// Packet is one inbound transport packet normalized by a channel adapter.
type Packet struct {
	Channel  string            `json:"channel"`
	ID       string            `json:"id"`
	Kind     PacketKind        `json:"kind"`
	Type     string            `json:"type,omitempty"`
	From     string            `json:"from"`
	To       string            `json:"to,omitempty"`
	Body     string            `json:"body,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewPacketID returns a random packet id for transports that do not supply one.
func NewPacketID() string {
	return uuid.NewString()
}

type MessageHandler func(context.Context, Packet)
