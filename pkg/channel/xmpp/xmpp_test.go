package xmpp

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"imoperator/pkg/bus"
	"imoperator/pkg/channel"
	"imoperator/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goxmpp "github.com/xmppo/go-xmpp"
)

type fakeClient struct {
	mu      sync.Mutex
	stanzas []any
	sent    []goxmpp.Chat
	sendErr error
	closed  bool
}

func (c *fakeClient) Recv() (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.stanzas) == 0 {
		return nil, io.EOF
	}
	next := c.stanzas[0]
	c.stanzas = c.stanzas[1:]
	return next, nil
}

func (c *fakeClient) Send(chat goxmpp.Chat) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendErr != nil {
		return 0, c.sendErr
	}
	c.sent = append(c.sent, chat)
	return len(chat.Text), nil
}

func (c *fakeClient) JID() string { return "bot@example.org/imoperator" }

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func validConfig() config.XMPPConfig {
	return config.XMPPConfig{Enabled: true, Host: "example.org:5222", User: "bot@example.org", Password: "secret"}
}

func TestNewAdapterValidatesConfig(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Host = ""
	_, err := NewAdapter(cfg, nil)
	assert.Error(t, err)

	cfg = validConfig()
	cfg.Password = ""
	_, err = NewAdapter(cfg, nil)
	assert.Error(t, err)

	adapter, err := NewAdapter(validConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, "xmpp", adapter.Name())
}

func TestPacketFromStanza(t *testing.T) {
	t.Parallel()

	packet, ok := packetFromStanza(goxmpp.Chat{Remote: "alice@example.org/phone", Type: "chat", Text: "date"}, "bot@example.org")
	require.True(t, ok)
	assert.Equal(t, bus.KindMessage, packet.Kind)
	assert.Equal(t, bus.TypeChat, packet.Type)
	assert.Equal(t, "alice@example.org/phone", packet.From)
	assert.Equal(t, "bot@example.org", packet.To)
	assert.Equal(t, "m1", packet.ID)

	packet, ok = packetFromStanza(goxmpp.Chat{Remote: "room@conference.example.org/alice", Type: "groupchat", Text: "hi"}, "")
	require.True(t, ok)
	assert.Equal(t, bus.TypeGroupChat, packet.Type)

	_, ok = packetFromStanza(goxmpp.Chat{Remote: "alice@example.org/phone", Type: "chat"}, "bot@example.org")
	assert.False(t, ok, "bodiless chat stanza should be skipped")

	packet, ok = packetFromStanza(goxmpp.Presence{From: "alice@example.org", Type: "unavailable"}, "")
	require.True(t, ok)
	assert.Equal(t, bus.KindPresence, packet.Kind)

	packet, ok = packetFromStanza(goxmpp.IQ{From: "example.org", Type: "get", ID: "ping"}, "")
	require.True(t, ok)
	assert.Equal(t, bus.KindIQ, packet.Kind)

	_, ok = packetFromStanza("unknown", "")
	assert.False(t, ok)
}

func TestRunDeliversStanzasAndReportsStreamEnd(t *testing.T) {
	t.Parallel()

	fake := &fakeClient{stanzas: []any{
		goxmpp.Chat{Remote: "alice@example.org/phone", Type: "chat", Text: "help"},
		goxmpp.Presence{From: "bob@example.org"},
		goxmpp.Chat{Remote: "mallory@evil.example/x", Type: "chat", Text: "hi"},
	}}

	cfg := validConfig()
	cfg.AllowFrom = []string{"alice@example.org", "bob@example.org"}
	adapter, err := NewAdapter(cfg, nil)
	require.NoError(t, err)
	adapter.dial = func(config.XMPPConfig) (client, error) { return fake, nil }

	var delivered []bus.Packet
	err = adapter.Run(context.Background(), func(_ context.Context, packet bus.Packet) {
		delivered = append(delivered, packet)
	})
	assert.ErrorIs(t, err, io.EOF)
	require.Len(t, delivered, 2)
	assert.Equal(t, "help", delivered[0].Body)
	assert.Equal(t, bus.KindPresence, delivered[1].Kind)
	assert.True(t, fake.closed)
}

func TestSendRequiresConnection(t *testing.T) {
	t.Parallel()

	adapter, err := NewAdapter(validConfig(), nil)
	require.NoError(t, err)

	err = adapter.Send(context.Background(), "alice@example.org", "hi")
	var sendErr *channel.SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, "xmpp", sendErr.Channel)
}

func TestSendWritesChatStanza(t *testing.T) {
	t.Parallel()

	fake := &fakeClient{}
	adapter, err := NewAdapter(validConfig(), nil)
	require.NoError(t, err)
	adapter.conn = fake

	require.NoError(t, adapter.Send(context.Background(), "alice@example.org/phone", "pong"))
	require.Len(t, fake.sent, 1)
	assert.Equal(t, goxmpp.Chat{Remote: "alice@example.org/phone", Type: "chat", Text: "pong"}, fake.sent[0])

	fake.sendErr = errors.New("broken pipe")
	err = adapter.Send(context.Background(), "alice@example.org", "pong")
	assert.ErrorContains(t, err, "broken pipe")
}

func TestBareJID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "alice@example.org", BareJID("alice@example.org/phone"))
	assert.Equal(t, "alice@example.org", BareJID("alice@example.org"))
}
