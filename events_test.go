package retryflow_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josuedeavila/retryflow"
)

// failNTimes returns an operation that fails n times and then succeeds
// with value.
func failNTimes(n int, value int) (retryflow.Operation[int], *int) {
	callCount := new(int)
	return func(ctx context.Context) (int, error) {
		*callCount++
		if *callCount <= n {
			return 0, fmt.Errorf("failure %d", *callCount)
		}
		return value, nil
	}, callCount
}

func TestEvents_AttemptAndRetrySequence(t *testing.T) {
	op, callCount := failNTimes(2, 42)

	r, err := retryflow.New(op,
		retryflow.WithRetries(5),
		retryflow.WithMinInterval(time.Millisecond),
	)
	require.NoError(t, err)

	var sequence []string
	r.On(retryflow.EventAttempt, func(ev retryflow.Event) {
		sequence = append(sequence, fmt.Sprintf("attempt:%d", ev.Attempt))
	})
	r.On(retryflow.EventRetry, func(ev retryflow.Event) {
		sequence = append(sequence, fmt.Sprintf("retry:%d", ev.Retry))
	})

	val, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 3, *callCount)
	assert.Equal(t, []string{
		"attempt:1", "retry:1",
		"attempt:2", "retry:2",
		"attempt:3",
	}, sequence)
}

func TestEvents_RegistrationOrderPreserved(t *testing.T) {
	op, _ := failNTimes(0, 1)

	r, err := retryflow.New(op)
	require.NoError(t, err)

	var order []string
	r.On(retryflow.EventAttempt, func(retryflow.Event) { order = append(order, "first") })
	r.On(retryflow.EventAttempt, func(retryflow.Event) { order = append(order, "second") })
	r.On(retryflow.EventAttempt, func(retryflow.Event) { order = append(order, "third") })

	_, err = r.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestEvents_OnceFiresOnlyOnce(t *testing.T) {
	op, _ := failNTimes(3, 1)

	r, err := retryflow.New(op,
		retryflow.WithRetries(5),
		retryflow.WithMinInterval(time.Millisecond),
	)
	require.NoError(t, err)

	onceCount := 0
	onCount := 0
	r.Once(retryflow.EventAttempt, func(retryflow.Event) { onceCount++ })
	r.On(retryflow.EventAttempt, func(retryflow.Event) { onCount++ })

	_, err = r.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, onceCount)
	assert.Equal(t, 4, onCount)
}

func TestEvents_ObserverPanicDoesNotAffectOutcome(t *testing.T) {
	op, callCount := failNTimes(2, 7)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := retryflow.New(op,
		retryflow.WithRetries(5),
		retryflow.WithMinInterval(time.Millisecond),
		retryflow.WithLogger(quiet),
	)
	require.NoError(t, err)

	laterObserverFired := 0
	r.On(retryflow.EventAttempt, func(retryflow.Event) { panic("broken observer") })
	r.On(retryflow.EventAttempt, func(retryflow.Event) { laterObserverFired++ })

	val, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, val)
	assert.Equal(t, 3, *callCount)
	assert.Equal(t, retryflow.StateSucceeded, r.State())

	// Observers registered after the panicking one still fire in order.
	assert.Equal(t, 3, laterObserverFired)
}

func TestEvents_CarryConfigSnapshot(t *testing.T) {
	op, _ := failNTimes(1, 1)

	r, err := retryflow.New(op,
		retryflow.WithRetries(3),
		retryflow.WithMinInterval(time.Millisecond),
		retryflow.WithFactor(2),
	)
	require.NoError(t, err)

	var seen []retryflow.Config
	r.On(retryflow.EventAttempt, func(ev retryflow.Event) {
		seen = append(seen, ev.Config)
		// Mutating the received copy must not leak into later events.
		ev.Config.Retries = 999
	})

	_, err = r.Wait(context.Background())
	require.NoError(t, err)

	require.Len(t, seen, 2)
	for _, cfg := range seen {
		assert.Equal(t, 3, cfg.Retries)
		assert.Equal(t, 2.0, cfg.Factor)
		assert.Equal(t, time.Millisecond, cfg.MinInterval)
	}
}

func TestEvents_AttemptPublishedBeforeInvocation(t *testing.T) {
	var order []string
	op := func(ctx context.Context) (int, error) {
		order = append(order, "invoke")
		return 0, errors.New("fail")
	}

	r, err := retryflow.New(op,
		retryflow.WithRetries(1),
		retryflow.WithMinInterval(time.Millisecond),
	)
	require.NoError(t, err)

	r.On(retryflow.EventAttempt, func(ev retryflow.Event) {
		order = append(order, fmt.Sprintf("notify:%d", ev.Attempt))
	})

	_, _ = r.Wait(context.Background())
	assert.Equal(t, []string{"notify:1", "invoke", "notify:2", "invoke"}, order)
}
