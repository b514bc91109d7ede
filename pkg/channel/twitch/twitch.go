package twitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gempir/go-twitch-irc/v4"

	"imoperator/pkg/bus"
	"imoperator/pkg/channel"
	"imoperator/pkg/config"
)

const channelName = "twitch"

// Adapter connects to Twitch chat over IRC. Whispers are one-to-one chat;
// messages in joined channels are group chat. Replies are whispered through Helix.
type Adapter struct {
	cfg       config.TwitchConfig
	allowFrom channel.AllowList
	log       *slog.Logger
	helix     *helixClient

	mu    sync.RWMutex
	botID string
}

// NewAdapter validates Twitch configuration and constructs an adapter instance.
func NewAdapter(cfg config.TwitchConfig, log *slog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Username) == "" {
		return nil, errors.New("channels.twitch.username is required")
	}
	if strings.TrimSpace(cfg.OAuth) == "" {
		return nil, errors.New("channels.twitch.oauth is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("channels.twitch.client_id is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:       cfg,
		allowFrom: channel.NewAllowList(cfg.AllowFrom),
		log:       log.With("component", "channel.twitch"),
		helix:     newHelixClient(helixBaseURL, strings.TrimSpace(cfg.ClientID), cfg.OAuth),
	}, nil
}

func (a *Adapter) Name() string {
	return channelName
}

// Run connects the IRC client and blocks until ctx is cancelled or the
// connection fails.
func (a *Adapter) Run(ctx context.Context, deliver channel.Deliver) error {
	if deliver == nil {
		return errors.New("deliver is required")
	}

	self := strings.ToLower(strings.TrimSpace(a.cfg.Username))
	botID, err := a.helix.userID(ctx, self)
	if err != nil {
		return fmt.Errorf("resolve bot identity: %w", err)
	}

	client := twitch.NewClient(self, strings.TrimSpace(a.cfg.OAuth))

	forward := func(packet bus.Packet, names ...string) {
		if !a.allowFrom.Allows(names...) {
			a.log.Debug("Ignoring message from unauthorized sender", "sender", packet.From)
			return
		}
		deliver(ctx, packet)
	}

	client.OnWhisperMessage(func(message twitch.WhisperMessage) {
		forward(packetFromWhisper(message, self), message.User.Name, message.User.ID)
	})
	client.OnPrivateMessage(func(message twitch.PrivateMessage) {
		forward(packetFromPrivateMessage(message), message.User.Name, message.User.ID)
	})
	client.OnConnect(func() {
		a.log.Info("Twitch channel connected", "username", self)
	})
	client.OnReconnectMessage(func(twitch.ReconnectMessage) {
		a.log.Info("Twitch requested reconnect")
	})

	for _, name := range a.cfg.Channels {
		if name = strings.TrimPrefix(strings.TrimSpace(name), "#"); name != "" {
			client.Join(name)
		}
	}

	a.mu.Lock()
	a.botID = botID
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.botID = ""
		a.mu.Unlock()
	}()

	stop := context.AfterFunc(ctx, func() {
		_ = client.Disconnect()
	})
	defer stop()

	err = client.Connect()
	if ctx.Err() != nil || errors.Is(err, twitch.ErrClientDisconnected) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("twitch connection: %w", err)
	}

	return nil
}

// Send whispers text to the Twitch user id to.
func (a *Adapter) Send(ctx context.Context, to string, text string) error {
	a.mu.RLock()
	botID := a.botID
	a.mu.RUnlock()

	if botID == "" {
		return channel.NewSendError(channelName, to, errors.New("twitch client not running"))
	}
	if strings.TrimSpace(to) == "" {
		return channel.NewSendError(channelName, to, errors.New("empty recipient"))
	}

	if err := a.helix.whisper(ctx, botID, to, text); err != nil {
		return channel.NewSendError(channelName, to, err)
	}

	return nil
}

func packetFromWhisper(message twitch.WhisperMessage, self string) bus.Packet {
	return bus.Packet{
		Channel: channelName,
		ID:      message.MessageID,
		Kind:    bus.KindMessage,
		Type:    bus.TypeChat,
		From:    message.User.ID,
		To:      self,
		Body:    message.Message,
		Metadata: map[string]string{
			"login": message.User.Name,
		},
	}
}

func packetFromPrivateMessage(message twitch.PrivateMessage) bus.Packet {
	return bus.Packet{
		Channel: channelName,
		ID:      message.ID,
		Kind:    bus.KindMessage,
		Type:    bus.TypeGroupChat,
		From:    message.User.Name,
		To:      "#" + strings.TrimPrefix(message.Channel, "#"),
		Body:    message.Message,
		Metadata: map[string]string{
			"user_id": message.User.ID,
		},
	}
}
