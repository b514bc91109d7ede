package channel

import (
	"context"

	"imoperator/pkg/bus"
)

// Deliver hands one normalized inbound packet to the bot.
type Deliver func(context.Context, bus.Packet)

// Sender sends one text message to a transport address.
type Sender interface {
	Send(ctx context.Context, to string, text string) error
}

// Adapter bridges one external transport (for example XMPP) into IMOperator.
type Adapter interface {
	Sender
	Name() string
	Run(context.Context, Deliver) error
}
