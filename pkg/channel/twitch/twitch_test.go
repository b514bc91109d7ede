package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gempir/go-twitch-irc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imoperator/pkg/bus"
	"imoperator/pkg/channel"
	"imoperator/pkg/config"
)

func validConfig() config.TwitchConfig {
	return config.TwitchConfig{Username: "imoperator", OAuth: "oauth:secret", ClientID: "client"}
}

type helixRequest struct {
	method  string
	path    string
	query   map[string]string
	auth    string
	client  string
	message string
}

// fakeHelix records requests and answers whispers with status.
type fakeHelix struct {
	status int

	mu       sync.Mutex
	requests []helixRequest
}

func (f *fakeHelix) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.requests = append(f.requests, helixRequest{
		method: r.Method,
		path:   r.URL.Path,
		query: map[string]string{
			"login":        r.URL.Query().Get("login"),
			"from_user_id": r.URL.Query().Get("from_user_id"),
			"to_user_id":   r.URL.Query().Get("to_user_id"),
		},
		auth:    r.Header.Get("Authorization"),
		client:  r.Header.Get("Client-Id"),
		message: body.Message,
	})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/users":
		_, _ = w.Write([]byte(`{"data":[{"id":"1001","login":"imoperator"}]}`))
	case "/whispers":
		if f.status >= http.StatusBadRequest {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":"Unauthorized","status":401,"message":"missing user:manage:whispers scope"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeHelix) snapshot() []helixRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]helixRequest(nil), f.requests...)
}

func newTestAdapter(t *testing.T, helix *fakeHelix) *Adapter {
	t.Helper()

	server := httptest.NewServer(helix)
	t.Cleanup(server.Close)

	adapter, err := NewAdapter(validConfig(), nil)
	require.NoError(t, err)
	adapter.helix = newHelixClient(server.URL, "client", "oauth:secret")
	return adapter
}

func TestNewAdapterValidatesCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Username = ""
	if _, err := NewAdapter(cfg, nil); err == nil {
		t.Fatal("expected error for missing username")
	}

	cfg = validConfig()
	cfg.OAuth = ""
	if _, err := NewAdapter(cfg, nil); err == nil {
		t.Fatal("expected error for missing oauth")
	}

	cfg = validConfig()
	cfg.ClientID = " "
	if _, err := NewAdapter(cfg, nil); err == nil {
		t.Fatal("expected error for missing client id")
	}
}

func TestPacketFromWhisperIsChat(t *testing.T) {
	packet := packetFromWhisper(twitch.WhisperMessage{
		User:      twitch.User{ID: "7", Name: "alice"},
		Message:   "help",
		MessageID: "w1",
	}, "imoperator")

	if packet.Kind != bus.KindMessage || packet.Type != bus.TypeChat {
		t.Fatalf("packet kind/type = %s/%s, want message/chat", packet.Kind, packet.Type)
	}
	if packet.From != "7" || packet.To != "imoperator" || packet.Body != "help" {
		t.Fatalf("packet = %+v", packet)
	}
	if packet.Metadata["login"] != "alice" {
		t.Fatalf("login = %q, want alice", packet.Metadata["login"])
	}
}

func TestPacketFromPrivateMessageIsGroupChat(t *testing.T) {
	packet := packetFromPrivateMessage(twitch.PrivateMessage{
		User:    twitch.User{Name: "bob"},
		Channel: "lobby",
		Message: "date",
		ID:      "p1",
	})

	if packet.Type != bus.TypeGroupChat {
		t.Fatalf("type = %q, want groupchat", packet.Type)
	}
	if packet.To != "#lobby" {
		t.Fatalf("to = %q, want #lobby", packet.To)
	}
}

func TestSendBeforeRunFails(t *testing.T) {
	adapter, err := NewAdapter(validConfig(), nil)
	if err != nil {
		t.Fatalf("NewAdapter error: %v", err)
	}

	err = adapter.Send(context.Background(), "7", "hi")
	var sendErr *channel.SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("error = %v, want *channel.SendError", err)
	}
}

func TestHelixUserIDLookup(t *testing.T) {
	helix := &fakeHelix{}
	adapter := newTestAdapter(t, helix)

	id, err := adapter.helix.userID(context.Background(), "imoperator")
	require.NoError(t, err)
	assert.Equal(t, "1001", id)

	requests := helix.snapshot()
	require.Len(t, requests, 1)
	assert.Equal(t, "imoperator", requests[0].query["login"])
	assert.Equal(t, "Bearer secret", requests[0].auth)
	assert.Equal(t, "client", requests[0].client)
}

func TestSendWhispersThroughHelix(t *testing.T) {
	helix := &fakeHelix{}
	adapter := newTestAdapter(t, helix)
	adapter.botID = "1001"

	require.NoError(t, adapter.Send(context.Background(), "7", "IMOperator"))

	requests := helix.snapshot()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodPost, requests[0].method)
	assert.Equal(t, "/whispers", requests[0].path)
	assert.Equal(t, "1001", requests[0].query["from_user_id"])
	assert.Equal(t, "7", requests[0].query["to_user_id"])
	assert.Equal(t, "IMOperator", requests[0].message)
}

func TestSendReportsHelixRejection(t *testing.T) {
	adapter := newTestAdapter(t, &fakeHelix{status: http.StatusUnauthorized})
	adapter.botID = "1001"

	err := adapter.Send(context.Background(), "7", "hi")

	var sendErr *channel.SendError
	require.True(t, errors.As(err, &sendErr))
	assert.Equal(t, "7", sendErr.To)
	assert.ErrorContains(t, err, "missing user:manage:whispers scope")
}

func TestHelixUserIDNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	t.Cleanup(server.Close)

	_, err := newHelixClient(server.URL, "client", "secret").userID(context.Background(), "ghost")
	assert.ErrorContains(t, err, "not found")
}
