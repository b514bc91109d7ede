package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"imoperator/pkg/bus"
	"imoperator/pkg/channel"
	"imoperator/pkg/config"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const channelName = "telegram"
const messagePreviewLimit = 240

// Adapter bridges Telegram updates into IMOperator packets.
type Adapter struct {
	cfg       config.TelegramConfig
	allowFrom channel.AllowList
	log       *slog.Logger

	mu  sync.RWMutex
	bot *telego.Bot
}

// NewAdapter validates Telegram configuration and constructs an adapter instance.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("channels.telegram.token is required")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:       cfg,
		allowFrom: channel.NewAllowList(cfg.AllowFrom),
		log:       log.With("component", "channel.telegram"),
	}, nil
}

// Name returns the channel identifier used in bus metadata and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run starts Telegram long polling and forwards text messages as packets.
func (a *Adapter) Run(ctx context.Context, deliver channel.Deliver) error {
	if deliver == nil {
		return errors.New("deliver is required")
	}

	bot, err := telego.NewBot(strings.TrimSpace(a.cfg.Token))
	if err != nil {
		return fmt.Errorf("initialize telegram bot: %w", err)
	}

	self := ""
	if me, err := bot.GetMe(ctx); err != nil {
		a.log.Warn("Failed to resolve bot identity", "error", err)
	} else {
		self = strconv.FormatInt(me.ID, 10)
	}

	updates, err := bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.mu.Lock()
	a.bot = bot
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.bot = nil
		a.mu.Unlock()
	}()

	a.log.Info("Telegram channel started", "bot_id", self)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			message := update.Message
			if message == nil {
				message = update.ChannelPost
			}
			packet, ok := packetFromMessage(message, self)
			if !ok {
				continue
			}
			if !a.senderAllowed(packet.From) {
				a.log.Debug("Ignoring message from unauthorized sender", "sender_id", packet.From)
				continue
			}

			packet.Metadata = map[string]string{"update_id": strconv.Itoa(update.UpdateID)}
			a.log.Debug("Received message", "chat_type", message.Chat.Type, "sender_id", packet.From, "content", previewText(packet.Body))
			deliver(ctx, packet)
		}
	}
}

// Send delivers text to a Telegram chat id. Private chat ids equal the user id.
func (a *Adapter) Send(ctx context.Context, to string, text string) error {
	a.mu.RLock()
	bot := a.bot
	a.mu.RUnlock()

	if bot == nil {
		return channel.NewSendError(channelName, to, errors.New("bot not running"))
	}

	chatID, err := strconv.ParseInt(strings.TrimSpace(to), 10, 64)
	if err != nil {
		return channel.NewSendError(channelName, to, fmt.Errorf("invalid chat id: %w", err))
	}

	a.log.Debug("Sending message", "chat_id", chatID, "content", previewText(text))
	if _, err := bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		return channel.NewSendError(channelName, to, err)
	}

	return nil
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (a *Adapter) senderAllowed(senderID string) bool {
	return a.allowFrom.Allows(senderID)
}

// packetFromMessage converts a Telegram message. Messages without text or sender are skipped.
func packetFromMessage(message *telego.Message, self string) (bus.Packet, bool) {
	if message == nil {
		return bus.Packet{}, false
	}

	content := message.Text
	if content == "" {
		// Stickers, photos and service messages carry no text to answer.
		return bus.Packet{}, false
	}

	from := strconv.FormatInt(message.Chat.ID, 10)
	if message.From != nil {
		from = strconv.FormatInt(message.From.ID, 10)
	}

	return bus.Packet{
		Channel: channelName,
		ID:      strconv.Itoa(message.MessageID),
		Kind:    bus.KindMessage,
		Type:    messageType(message.Chat.Type),
		From:    from,
		To:      self,
		Body:    content,
	}, true
}

// messageType maps a Telegram chat type onto a message subtype.
func messageType(chatType string) string {
	switch chatType {
	case telego.ChatTypePrivate:
		return bus.TypeChat
	case telego.ChatTypeGroup, telego.ChatTypeSupergroup:
		return bus.TypeGroupChat
	case telego.ChatTypeChannel:
		return bus.TypeHeadline
	default:
		return ""
	}
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}
