package processor

import "testing"

func TestBareID(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"user@host/resource":      "user@host",
		"user@host":               "user@host",
		"user@host/res/with/more": "user@host",
		"":                        "",
	}

	for in, want := range cases {
		if got := BareID(in); got != want {
			t.Fatalf("BareID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewMessageContext(t *testing.T) {
	t.Parallel()

	mc := NewMessageContext("xmpp", "alice@example.org/laptop", "bot@example.org")
	if mc.Service != "xmpp" {
		t.Fatalf("service = %q, want xmpp", mc.Service)
	}
	if mc.Sender != "alice@example.org/laptop" {
		t.Fatalf("sender = %q", mc.Sender)
	}
	if mc.SenderBare != "alice@example.org" {
		t.Fatalf("sender bare = %q, want alice@example.org", mc.SenderBare)
	}
	if mc.Recipient != "bot@example.org" {
		t.Fatalf("recipient = %q", mc.Recipient)
	}
}
