package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"imoperator/pkg/bus"
	"imoperator/pkg/config"
)

func TestLogEventsWritesUntilClosed(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "debug"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	events := make(chan bus.Event, 2)
	events <- bus.Event{Type: bus.EventCommandReplied, Channel: "xmpp", Sender: "alice@example.org", Payload: map[string]string{bus.PayloadCommand: "date"}}
	events <- bus.Event{Type: bus.EventMessageFailed, Channel: "xmpp", Error: "stream reset"}
	close(events)

	LogEvents(context.Background(), events, log)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("log lines = %d, want 2: %q", len(lines), out.String())
	}

	var first, second LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first entry: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal second entry: %v", err)
	}

	if first.Level != "info" || first.Fields["command"] != "date" {
		t.Fatalf("first entry = %+v", first)
	}
	if second.Level != "warn" || second.Fields["error"] != "stream reset" {
		t.Fatalf("second entry = %+v", second)
	}
}

func TestLogEventsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		LogEvents(ctx, make(chan bus.Event), nil)
	}()
	<-done
}
