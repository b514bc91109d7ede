package processor

import "strings"

const resourceSeparator = "/"

// MessageContext describes who sent one message and to whom.
type MessageContext struct {
	Service    string
	Sender     string
	SenderBare string
	Recipient  string
}

// NewMessageContext builds the per-message context for one inbound message.
func NewMessageContext(service string, from string, to string) MessageContext {
	return MessageContext{
		Service:    service,
		Sender:     from,
		SenderBare: BareID(from),
		Recipient:  to,
	}
}

// BareID strips a "/resource" suffix from an address.
func BareID(id string) string {
	bare, _, _ := strings.Cut(id, resourceSeparator)
	return bare
}
