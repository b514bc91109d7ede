package cmd

import (
	"context"
	"testing"

	channelpkg "imoperator/pkg/channel"
	"imoperator/pkg/config"
)

type testAdapter struct{ name string }

func (a testAdapter) Name() string { return a.name }

func (a testAdapter) Run(_ context.Context, _ channelpkg.Deliver) error { return nil }

func (a testAdapter) Send(context.Context, string, string) error { return nil }

func TestEnabledAdaptersRequiresAtLeastOneChannel(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	if _, err := enabledAdapters(cfg, nil); err == nil {
		t.Fatal("expected error when no channels are enabled")
	}
}

func TestEnabledAdaptersRejectsIncompleteChannel(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Channels.XMPP = config.XMPPConfig{Enabled: true, Host: "example.org:5222"}
	if _, err := enabledAdapters(cfg, nil); err == nil {
		t.Fatal("expected error for xmpp channel without credentials")
	}
}

func TestEnabledAdaptersBuildsEveryEnabledChannel(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Channels.XMPP = config.XMPPConfig{Enabled: true, Host: "example.org:5222", User: "bot@example.org", Password: "secret"}
	cfg.Channels.Telegram = config.TelegramConfig{Enabled: true, Token: "123:abc"}
	cfg.Channels.Discord = config.DiscordConfig{Enabled: true, Token: "token"}
	cfg.Channels.Twitch = config.TwitchConfig{Enabled: true, Username: "bot", OAuth: "oauth:x", ClientID: "client"}

	adapters, err := enabledAdapters(cfg, nil)
	if err != nil {
		t.Fatalf("enabledAdapters error: %v", err)
	}
	if got := enabledChannelNames(adapters); got != "xmpp,telegram,discord,twitch" {
		t.Fatalf("enabledChannelNames = %q", got)
	}
}

func TestEnabledChannelNames(t *testing.T) {
	t.Parallel()

	adapters := []channelpkg.Adapter{testAdapter{name: "xmpp"}, testAdapter{name: "slack"}}
	if got := enabledChannelNames(adapters); got != "xmpp,slack" {
		t.Fatalf("enabledChannelNames = %q, want %q", got, "xmpp,slack")
	}
}
