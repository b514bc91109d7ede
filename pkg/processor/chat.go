// Package processor classifies inbound packets and answers one-to-one chat messages.
package processor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"imoperator/pkg/bus"
	"imoperator/pkg/channel"
	"imoperator/pkg/command"
)

const (
	// DebugPackets enables per-packet diagnostics.
	DebugPackets = 2

	problemPrefix = "Problem: "

	stageSend     = "send"
	stageDispatch = "dispatch"
)

// EventSink receives processing events. *bus.MessageBus satisfies it.
type EventSink interface {
	PublishEvent(ctx context.Context, event bus.Event) bool
}

// Options configures a Chat processor.
type Options struct {
	Service    string
	Operators  []string
	DebugLevel int
	Events     EventSink
	Logger     *slog.Logger
}

// Chat filters chat packets and routes their bodies through a command table.
// It holds no per-message state and is safe for concurrent use.
type Chat struct {
	service   string
	table     *command.Table
	sender    channel.Sender
	events    EventSink
	log       *slog.Logger
	operators []string

	debugLevel atomic.Int32
}

// New constructs a processor answering through sender.
func New(table *command.Table, sender channel.Sender, opts Options) (*Chat, error) {
	if table == nil {
		return nil, errors.New("command table is required")
	}
	if sender == nil {
		return nil, errors.New("sender is required")
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	c := &Chat{
		service:   opts.Service,
		table:     table,
		sender:    sender,
		events:    opts.Events,
		log:       log.With("component", "processor.chat", "service", opts.Service),
		operators: append([]string(nil), opts.Operators...),
	}
	c.SetDebugLevel(opts.DebugLevel)

	c.log.Debug("Processor ready", "commands", table.Keywords(), "operators", len(c.operators))
	return c, nil
}

// SetDebugLevel sets diagnostic verbosity. 0 disables packet diagnostics.
func (c *Chat) SetDebugLevel(level int) {
	c.debugLevel.Store(int32(level))
}

// DebugLevel returns the current diagnostic verbosity.
func (c *Chat) DebugLevel() int {
	return int(c.debugLevel.Load())
}

// Operators returns the configured operator addresses. They are not used for authorization.
func (c *Chat) Operators() []string {
	return append([]string(nil), c.operators...)
}

func (c *Chat) debugging() bool {
	return c.DebugLevel() >= DebugPackets
}

// Accept reports whether packet is a one-to-one chat message.
func (c *Chat) Accept(packet bus.Packet) bool {
	if c.debugging() {
		c.log.Debug("Examining packet", "from", packet.From, "packet", packet)
	}

	accepted := packet.Kind == bus.KindMessage && packet.Type == bus.TypeChat

	if c.debugging() {
		c.log.Debug("Packet classified", "from", packet.From, "accepted", accepted)
	}

	return accepted
}

// Process handles packet when Accept admits it. It never panics on handler or transport failure.
func (c *Chat) Process(ctx context.Context, packet bus.Packet) {
	if !c.Accept(packet) {
		c.publish(ctx, bus.Event{Type: bus.EventPacketRejected, Sender: packet.From, RequestID: packet.ID})
		return
	}

	c.publish(ctx, bus.Event{Type: bus.EventPacketAccepted, Sender: packet.From, RequestID: packet.ID})
	c.handle(ctx, packet.ID, packet.From, packet.To, packet.Body)
}

// Handle answers one chat message from sender.
func (c *Chat) Handle(ctx context.Context, from string, to string, body string) {
	c.handle(ctx, "", from, to, body)
}

func (c *Chat) handle(ctx context.Context, requestID string, from string, to string, body string) {
	if ctx == nil {
		ctx = context.Background()
	}

	mc := NewMessageContext(c.service, from, to)
	keyword := command.Normalize(body)

	if c.debugging() {
		c.log.Debug("Handling message", "sender", mc.Sender, "sender_bare", mc.SenderBare, "recipient", mc.Recipient, "body", body)
	}

	if _, ok := c.table.Lookup(keyword); !ok {
		if err := c.send(ctx, mc.Sender, body); err != nil {
			c.fail(ctx, mc, requestID, stageSend, err)
			return
		}

		c.publish(ctx, bus.Event{Type: bus.EventMessageEchoed, Sender: mc.Sender, RequestID: requestID})
		return
	}

	text, err := c.table.Execute(ctx, keyword)
	if err != nil {
		c.fail(ctx, mc, requestID, stageDispatch, err)
		return
	}

	if err := c.send(ctx, mc.Sender, text); err != nil {
		c.fail(ctx, mc, requestID, stageSend, err)
		return
	}

	c.publish(ctx, bus.Event{
		Type:      bus.EventCommandReplied,
		Sender:    mc.Sender,
		RequestID: requestID,
		Payload:   map[string]string{bus.PayloadCommand: keyword},
	})
}

// send delivers text and guarantees transport failures surface as *channel.SendError.
func (c *Chat) send(ctx context.Context, to string, text string) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = channel.NewSendError(c.service, to, errors.New("sender panicked"))
		}
	}()

	err = c.sender.Send(ctx, to, text)
	if err == nil {
		return nil
	}

	var sendErr *channel.SendError
	if errors.As(err, &sendErr) {
		return err
	}

	return channel.NewSendError(c.service, to, err)
}

// fail logs one error, publishes one failure event and tells the sender what went wrong.
func (c *Chat) fail(ctx context.Context, mc MessageContext, requestID string, stage string, err error) {
	c.log.Error("Failed to answer message", "stage", stage, "sender", mc.Sender, "request_id", requestID, "error", err)
	c.publish(ctx, bus.Event{
		Type:      bus.EventMessageFailed,
		Sender:    mc.Sender,
		RequestID: requestID,
		Payload:   map[string]string{bus.PayloadStage: stage},
		Error:     err.Error(),
	})

	channel.SendBestEffort(ctx, c.sender, mc.Sender, problemPrefix+problemMessage(err), c.log)
}

func (c *Chat) publish(ctx context.Context, event bus.Event) {
	if c.events == nil {
		return
	}

	event.Channel = c.service
	c.events.PublishEvent(ctx, event)
}

// problemMessage returns the innermost transport message for send failures.
func problemMessage(err error) string {
	var sendErr *channel.SendError
	if errors.As(err, &sendErr) && sendErr.Err != nil {
		return sendErr.Err.Error()
	}

	return err.Error()
}
