// Package xmpp bridges an XMPP client connection into IMOperator.
package xmpp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"imoperator/pkg/bus"
	"imoperator/pkg/channel"
	"imoperator/pkg/config"

	goxmpp "github.com/xmppo/go-xmpp"
)

const channelName = "xmpp"

// client is the subset of *goxmpp.Client the adapter uses.
type client interface {
	Recv() (any, error)
	Send(chat goxmpp.Chat) (int, error)
	JID() string
	Close() error
}

type dialFunc func(cfg config.XMPPConfig) (client, error)

// Adapter receives stanzas from one XMPP account and sends chat replies through it.
type Adapter struct {
	cfg       config.XMPPConfig
	allowFrom channel.AllowList
	log       *slog.Logger
	dial      dialFunc
	writer    channel.Sender

	mu   sync.RWMutex
	conn client
}

// NewAdapter validates XMPP configuration and constructs an adapter instance.
func NewAdapter(cfg config.XMPPConfig, log *slog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("channels.xmpp.host is required")
	}
	if strings.TrimSpace(cfg.User) == "" {
		return nil, errors.New("channels.xmpp.user is required")
	}
	if cfg.Password == "" {
		return nil, errors.New("channels.xmpp.password is required (or set IMOPERATOR_XMPP_PASSWORD)")
	}

	if log == nil {
		log = slog.Default()
	}

	a := &Adapter{
		cfg:       cfg,
		allowFrom: channel.NewAllowList(cfg.AllowFrom),
		log:       log.With("component", "channel.xmpp"),
		dial:      dial,
	}
	// The stream encoder is not safe for concurrent writes.
	a.writer = channel.Serialize(channel.SenderFunc(a.write))
	return a, nil
}

// Name returns the channel identifier used in bus metadata and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run connects, then forwards every received stanza until ctx ends or the stream fails.
func (a *Adapter) Run(ctx context.Context, deliver channel.Deliver) error {
	if deliver == nil {
		return errors.New("deliver is required")
	}

	conn, err := a.dial(a.cfg)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", a.cfg.Host, err)
	}

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()

	a.log.Info("XMPP channel started", "jid", conn.JID())

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()
	defer a.disconnect()

	self := conn.JID()
	for {
		stanza, err := conn.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive stanza: %w", err)
		}

		packet, ok := packetFromStanza(stanza, self)
		if !ok {
			continue
		}
		if !a.allowFrom.Allows(packet.From, BareJID(packet.From)) {
			a.log.Debug("Ignoring stanza from unauthorized sender", "from", packet.From)
			continue
		}

		deliver(ctx, packet)
	}
}

// Send writes one chat message to the given JID.
func (a *Adapter) Send(ctx context.Context, to string, text string) error {
	return a.writer.Send(ctx, to, text)
}

func (a *Adapter) write(_ context.Context, to string, text string) error {
	a.mu.RLock()
	conn := a.conn
	a.mu.RUnlock()

	if conn == nil {
		return channel.NewSendError(channelName, to, errors.New("not connected"))
	}

	if _, err := conn.Send(goxmpp.Chat{Remote: to, Type: bus.TypeChat, Text: text}); err != nil {
		return channel.NewSendError(channelName, to, err)
	}

	return nil
}

func (a *Adapter) disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
}

// packetFromStanza normalizes a received stanza. Unknown stanza types are skipped.
func packetFromStanza(stanza any, self string) (bus.Packet, bool) {
	switch v := stanza.(type) {
	case goxmpp.Chat:
		if v.Text == "" {
			// Chat states and receipts arrive as bodiless chat stanzas.
			return bus.Packet{}, false
		}
		return bus.Packet{
			Channel: channelName,
			Kind:    bus.KindMessage,
			Type:    v.Type,
			From:    v.Remote,
			To:      self,
			Body:    v.Text,
		}, true
	case goxmpp.Presence:
		return bus.Packet{
			Channel: channelName,
			Kind:    bus.KindPresence,
			Type:    v.Type,
			From:    v.From,
			To:      v.To,
			Body:    v.Status,
		}, true
	case goxmpp.IQ:
		return bus.Packet{
			Channel: channelName,
			ID:      v.ID,
			Kind:    bus.KindIQ,
			Type:    v.Type,
			From:    v.From,
			To:      v.To,
		}, true
	default:
		return bus.Packet{}, false
	}
}

// BareJID strips the resource from a JID.
func BareJID(jid string) string {
	bare, _, _ := strings.Cut(jid, "/")
	return bare
}

func dial(cfg config.XMPPConfig) (client, error) {
	options := goxmpp.Options{
		Host:          cfg.Host,
		User:          cfg.User,
		Password:      cfg.Password,
		Resource:      cfg.Resource,
		NoTLS:         cfg.NoTLS,
		StartTLS:      cfg.StartTLS,
		Debug:         cfg.Debug,
		Session:       true,
		Status:        "chat",
		StatusMessage: cfg.StatusMessage,
	}
	if cfg.InsecureSkipVerify {
		options.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	conn, err := options.NewClient()
	if err != nil {
		return nil, err
	}

	return conn, nil
}
