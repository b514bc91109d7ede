package channel

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("stream closed")
	err := NewSendError("xmpp", "alice@example.org", cause)

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, "xmpp", sendErr.Channel)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "send to alice@example.org via xmpp: stream closed", err.Error())
	assert.NoError(t, NewSendError("xmpp", "alice@example.org", nil))
}

func TestSendBestEffortSwallowsErrors(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	log := slog.New(slog.NewTextHandler(&out, nil))

	failing := SenderFunc(func(context.Context, string, string) error { return errors.New("offline") })
	SendBestEffort(context.Background(), failing, "bob", "Problem: x", log)
	assert.Contains(t, out.String(), "offline")

	panicking := SenderFunc(func(context.Context, string, string) error { panic("socket gone") })
	assert.NotPanics(t, func() {
		SendBestEffort(context.Background(), panicking, "bob", "Problem: x", log)
	})

	assert.NotPanics(t, func() {
		SendBestEffort(context.Background(), nil, "bob", "Problem: x", nil)
	})
}

func TestSerializeRunsOneSendAtATime(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		inFlight int
		maxSeen  int
	)
	sender := Serialize(SenderFunc(func(context.Context, string, string) error {
		mu.Lock()
		inFlight++
		if inFlight > maxSeen {
			maxSeen = inFlight
		}
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sender.Send(context.Background(), "carol", "hi")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}

func TestThrottleDisabledReturnsSameSender(t *testing.T) {
	t.Parallel()

	base := SenderFunc(func(context.Context, string, string) error { return nil })
	sender := Throttle(base, 0, 0)
	_, wrapped := sender.(*throttledSender)
	assert.False(t, wrapped)
}

func TestThrottleHonorsContext(t *testing.T) {
	t.Parallel()

	calls := 0
	sender := Throttle(SenderFunc(func(context.Context, string, string) error {
		calls++
		return nil
	}), 0.001, 1)

	require.NoError(t, sender.Send(context.Background(), "dave", "first"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, sender.Send(ctx, "dave", "second"))
	assert.Equal(t, 1, calls)
}

func TestAllowList(t *testing.T) {
	t.Parallel()

	allowed := NewAllowList([]string{" Alice@Example.org ", "", "123"})
	assert.Len(t, allowed, 2)
	assert.True(t, allowed.Allows("alice@example.org"))
	assert.True(t, allowed.Allows("nobody", "123"))
	assert.False(t, allowed.Allows("mallory"))

	var empty AllowList
	assert.True(t, empty.Allows("anyone"))
	assert.Nil(t, NewAllowList([]string{" ", ""}))
}
