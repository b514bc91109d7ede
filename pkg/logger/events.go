package logger

import (
	"context"
	"log/slog"

	"imoperator/pkg/bus"
)

// LogEvents writes every bus event to log until events closes or ctx ends.
// Failures log at warn level; the processor already logged them as errors.
func LogEvents(ctx context.Context, events <-chan bus.Event, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			log.Log(ctx, eventLevel(event.Type), "Event", eventAttrs(event)...)
		}
	}
}

func eventLevel(eventType bus.EventType) slog.Level {
	switch eventType {
	case bus.EventMessageFailed:
		return slog.LevelWarn
	case bus.EventPacketAccepted, bus.EventPacketRejected:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func eventAttrs(event bus.Event) []any {
	attrs := []any{"type", string(event.Type), "channel", event.Channel}
	if event.Sender != "" {
		attrs = append(attrs, "sender", event.Sender)
	}
	if event.RequestID != "" {
		attrs = append(attrs, "request_id", event.RequestID)
	}
	for key, value := range event.Payload {
		attrs = append(attrs, key, value)
	}
	if event.Error != "" {
		attrs = append(attrs, "error", event.Error)
	}

	return attrs
}
