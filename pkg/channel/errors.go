package channel

import (
	"context"
	"fmt"
	"log/slog"
)

// SendError reports that a transport could not deliver a message.
type SendError struct {
	Channel string
	To      string
	Err     error
}

func (e *SendError) Error() string {
	if e == nil {
		return ""
	}

	return fmt.Sprintf("send to %s via %s: %v", e.To, e.Channel, e.Err)
}

func (e *SendError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// NewSendError wraps a transport failure. It returns nil for a nil err.
func NewSendError(channelName string, to string, err error) error {
	if err == nil {
		return nil
	}

	return &SendError{Channel: channelName, To: to, Err: err}
}

// SendBestEffort sends text and swallows any failure, including a panicking sender.
func SendBestEffort(ctx context.Context, sender Sender, to string, text string, log *slog.Logger) {
	if sender == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			log.Warn("Best-effort send panicked", "to", to, "panic", recovered)
		}
	}()

	if err := sender.Send(ctx, to, text); err != nil {
		log.Warn("Best-effort send failed", "to", to, "error", err)
	}
}
