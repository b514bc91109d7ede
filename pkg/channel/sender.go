package channel

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, to string, text string) error

func (f SenderFunc) Send(ctx context.Context, to string, text string) error {
	return f(ctx, to, text)
}

type serializedSender struct {
	mu   sync.Mutex
	next Sender
}

// Serialize guards a sender whose client is not safe for concurrent writes.
func Serialize(next Sender) Sender {
	return &serializedSender{next: next}
}

func (s *serializedSender) Send(ctx context.Context, to string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Send(ctx, to, text)
}

type throttledSender struct {
	limiter *rate.Limiter
	next    Sender
}

// Throttle limits a sender to perSecond messages with the given burst.
// A non-positive rate returns next unchanged.
func Throttle(next Sender, perSecond float64, burst int) Sender {
	if perSecond <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}

	return &throttledSender{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		next:    next,
	}
}

func (s *throttledSender) Send(ctx context.Context, to string, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	return s.next.Send(ctx, to, text)
}

// AllowList is a normalized sender allow set. An empty list allows everyone.
type AllowList map[string]struct{}

// NewAllowList normalizes allow_from values into a lookup set.
func NewAllowList(values []string) AllowList {
	if len(values) == 0 {
		return nil
	}

	allowed := make(AllowList, len(values))
	for _, value := range values {
		trimmed := strings.ToLower(strings.TrimSpace(value))
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// Allows checks any of the sender's identities against the list.
func (a AllowList) Allows(identities ...string) bool {
	if len(a) == 0 {
		return true
	}

	for _, identity := range identities {
		if _, ok := a[strings.ToLower(strings.TrimSpace(identity))]; ok {
			return true
		}
	}

	return false
}
