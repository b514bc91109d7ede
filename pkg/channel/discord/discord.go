package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"imoperator/pkg/bus"
	"imoperator/pkg/channel"
	"imoperator/pkg/config"
)

const channelName = "discord"

// Adapter connects to Discord through the bot gateway. Direct messages are
// one-to-one chat; guild messages are reported as group chat.
type Adapter struct {
	cfg       config.DiscordConfig
	allowFrom channel.AllowList
	log       *slog.Logger

	mu      sync.RWMutex
	session *discordgo.Session
	botID   string
}

// NewAdapter validates Discord configuration and constructs an adapter instance.
func NewAdapter(cfg config.DiscordConfig, log *slog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("channels.discord.token is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:       cfg,
		allowFrom: channel.NewAllowList(cfg.AllowFrom),
		log:       log.With("component", "channel.discord"),
	}, nil
}

func (a *Adapter) Name() string {
	return channelName
}

// Run opens the gateway session and blocks until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context, deliver channel.Deliver) error {
	if deliver == nil {
		return errors.New("deliver is required")
	}

	session, err := discordgo.New("Bot " + strings.TrimSpace(a.cfg.Token))
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	session.AddHandler(func(_ *discordgo.Session, event *discordgo.MessageCreate) {
		a.mu.RLock()
		self := a.botID
		a.mu.RUnlock()

		packet, ok := packetFromMessage(event.Message, self)
		if !ok {
			return
		}
		if !a.allowFrom.Allows(packet.From, event.Author.Username) {
			a.log.Debug("Ignoring message from unauthorized sender", "sender_id", packet.From)
			return
		}
		deliver(ctx, packet)
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	defer session.Close()

	user, err := session.User("@me")
	if err != nil {
		return fmt.Errorf("fetch discord bot identity: %w", err)
	}

	a.mu.Lock()
	a.session = session
	a.botID = user.ID
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.session = nil
		a.mu.Unlock()
	}()

	a.log.Info("Discord channel started", "username", user.Username, "id", user.ID)
	<-ctx.Done()
	a.log.Info("Discord channel stopping")
	return nil
}

// Send opens (or reuses) the DM channel with user id to and posts text there.
func (a *Adapter) Send(ctx context.Context, to string, text string) error {
	a.mu.RLock()
	session := a.session
	a.mu.RUnlock()

	if session == nil {
		return channel.NewSendError(channelName, to, errors.New("discord bot not running"))
	}
	if strings.TrimSpace(to) == "" {
		return channel.NewSendError(channelName, to, errors.New("empty recipient"))
	}

	dm, err := session.UserChannelCreate(to, discordgo.WithContext(ctx))
	if err != nil {
		return channel.NewSendError(channelName, to, fmt.Errorf("open direct channel: %w", err))
	}
	if _, err := session.ChannelMessageSend(dm.ID, text, discordgo.WithContext(ctx)); err != nil {
		return channel.NewSendError(channelName, to, err)
	}

	return nil
}

// packetFromMessage converts a Discord message. Messages from bots, including
// this one, are skipped so the echo fallback cannot loop.
func packetFromMessage(message *discordgo.Message, self string) (bus.Packet, bool) {
	if message == nil || message.Author == nil {
		return bus.Packet{}, false
	}
	if message.Author.Bot || (self != "" && message.Author.ID == self) {
		return bus.Packet{}, false
	}

	packetType := bus.TypeChat
	if message.GuildID != "" {
		packetType = bus.TypeGroupChat
	}

	return bus.Packet{
		Channel: channelName,
		ID:      message.ID,
		Kind:    bus.KindMessage,
		Type:    packetType,
		From:    message.Author.ID,
		To:      self,
		Body:    message.Content,
		Metadata: map[string]string{
			"channel_id": message.ChannelID,
			"guild_id":   message.GuildID,
		},
	}, true
}
