// Package console is an in-process transport for the terminal chat commands.
package console

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"imoperator/pkg/bus"
	"imoperator/pkg/channel"
)

const channelName = "console"

// Default session addresses used when NewSession gets empty values.
const (
	DefaultAddress   = "operator@console/tty"
	DefaultRecipient = "imoperator@console"
)

// Session plays one local user talking to the bot. Say delivers a chat
// packet and returns what the bot sent back to that user.
type Session struct {
	address   string
	recipient string

	sayMu   sync.Mutex
	handler bus.MessageHandler

	mu      sync.Mutex
	replies []string
}

// NewSession creates a session for address talking to recipient.
// Empty values fall back to DefaultAddress and DefaultRecipient.
func NewSession(address string, recipient string) *Session {
	if address == "" {
		address = DefaultAddress
	}
	if recipient == "" {
		recipient = DefaultRecipient
	}

	return &Session{address: address, recipient: recipient}
}

func (s *Session) Name() string {
	return channelName
}

// Address is the sender address of the local user.
func (s *Session) Address() string {
	return s.address
}

// Attach sets the handler that receives packets from Say.
func (s *Session) Attach(handler bus.MessageHandler) {
	s.sayMu.Lock()
	defer s.sayMu.Unlock()
	s.handler = handler
}

// Send records text addressed to the local user.
func (s *Session) Send(_ context.Context, to string, text string) error {
	if to != s.address {
		return channel.NewSendError(channelName, to, fmt.Errorf("unknown recipient %q", to))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, text)
	return nil
}

// Say sends body as a one-to-one chat message and returns the replies
// produced while handling it.
func (s *Session) Say(ctx context.Context, body string) ([]string, error) {
	s.sayMu.Lock()
	defer s.sayMu.Unlock()

	if s.handler == nil {
		return nil, errors.New("console session has no handler")
	}

	s.mu.Lock()
	s.replies = nil
	s.mu.Unlock()

	s.handler(ctx, bus.Packet{
		Channel: channelName,
		ID:      bus.NewPacketID(),
		Kind:    bus.KindMessage,
		Type:    bus.TypeChat,
		From:    s.address,
		To:      s.recipient,
		Body:    body,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	replies := s.replies
	s.replies = nil
	return replies, nil
}
