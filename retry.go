// Package retryflow retries fallible operations with exponential backoff.
// Each execution drives a single operation until it succeeds, exhausts its
// retry budget, or fails with an error the configured predicate rejects,
// and notifies registered observers of every attempt and retry along the
// way.
package retryflow

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Operation is the unit of work driven by a Retry. It is invoked once per
// attempt and returns either the success value or the failure as-is.
type Operation[T any] func(ctx context.Context) (T, error)

// State identifies where an execution is in its lifecycle. The three
// Failed* and Succeeded values are terminal.
type State int32

const (
	// StateAttempting means the operation is being invoked.
	StateAttempting State = iota

	// StateWaiting means a backoff timer is running before the next attempt.
	StateWaiting

	// StateSucceeded means the operation returned without error.
	StateSucceeded

	// StateFailedExhausted means every budgeted attempt failed.
	StateFailedExhausted

	// StateFailedNonRetryable means the predicate rejected a failure while
	// budget remained.
	StateFailedNonRetryable

	// StateCanceled means the context ended the execution during a backoff
	// wait or inside the operation.
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateWaiting:
		return "waiting"
	case StateSucceeded:
		return "succeeded"
	case StateFailedExhausted:
		return "failed-exhausted"
	case StateFailedNonRetryable:
		return "failed-non-retryable"
	case StateCanceled:
		return "canceled"
	}
	return "unknown"
}

// Retry is the handle for one execution. It is both the awaitable for the
// outcome (Start, Wait, Done) and the registration surface for observers
// (On, Once). Handles are independent: concurrent executions share no
// state.
type Retry[T any] struct {
	op     Operation[T]
	cfg    Config
	hub    *hub
	logger *slog.Logger
	id     string

	start sync.Once
	done  chan struct{}
	state atomic.Int32

	val T
	err error
}

// New resolves opts against the defaults and returns an execution handle.
// Nothing runs until Start or Wait is called, so observers registered on
// the returned handle see the very first attempt. Malformed parameters are
// reported here, before any attempt.
func New[T any](op Operation[T], opts ...Option) (*Retry[T], error) {
	s, err := resolve(opts)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	return &Retry[T]{
		op:     op,
		cfg:    s.cfg,
		hub:    &hub{logger: s.logger, id: id},
		logger: s.logger,
		id:     id,
		done:   make(chan struct{}),
	}, nil
}

// Do runs op to completion and blocks until it succeeds, exhausts its
// budget, or hits a non-retryable failure. It is the one-call equivalent
// of New followed by Wait.
func Do[T any](ctx context.Context, op Operation[T], opts ...Option) (T, error) {
	r, err := New(op, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.Wait(ctx)
}

// ID returns the execution's unique identifier, as carried in its log lines.
func (r *Retry[T]) ID() string { return r.id }

// Config returns a copy of the resolved configuration.
func (r *Retry[T]) Config() Config { return r.cfg }

// On registers fn for every occurrence of the named event. It returns r for
// chaining.
func (r *Retry[T]) On(name string, fn Handler) *Retry[T] {
	r.hub.subscribe(name, fn, false)
	return r
}

// Once registers fn for the next occurrence of the named event only.
func (r *Retry[T]) Once(name string, fn Handler) *Retry[T] {
	r.hub.subscribe(name, fn, true)
	return r
}

// Start launches the attempt loop in its own goroutine. Only the first call
// has any effect.
func (r *Retry[T]) Start(ctx context.Context) *Retry[T] {
	r.start.Do(func() {
		go r.run(ctx)
	})
	return r
}

// Done is closed when the execution reaches a terminal state.
func (r *Retry[T]) Done() <-chan struct{} { return r.done }

// Wait blocks until the execution completes, starting it if it has not been
// started. On success it returns the operation's value; otherwise it
// returns the last error exactly as the operation produced it — exhaustion
// and non-retryable failure are distinguished only by State. If ctx ends
// first, Wait returns the context error while the loop winds down on its
// own.
func (r *Retry[T]) Wait(ctx context.Context) (T, error) {
	r.Start(ctx)
	select {
	case <-r.done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Value returns the success value after Done is closed.
func (r *Retry[T]) Value() T { return r.val }

// Err returns the terminal error after Done is closed.
func (r *Retry[T]) Err() error { return r.err }

// State reports the execution's current state. It is safe to call at any
// time.
func (r *Retry[T]) State() State { return State(r.state.Load()) }

// run is the attempt loop. Attempt numbers are 1-based and increase by one
// per iteration; retry number N covers the wait and notification between
// attempts N and N+1, so a run of A attempts publishes exactly A attempt
// events and A-1 retry events. Panics from the operation or the predicate
// are deliberately not recovered.
func (r *Retry[T]) run(ctx context.Context) {
	defer close(r.done)

	for attempt := 1; ; attempt++ {
		r.state.Store(int32(StateAttempting))
		r.hub.publish(EventAttempt, Event{Attempt: attempt, Config: r.cfg})

		val, err := r.op(ctx)
		if err == nil {
			r.val = val
			r.state.Store(int32(StateSucceeded))
			return
		}
		r.err = err

		// Budget check comes first: the predicate never runs for the
		// final attempt's failure.
		if attempt-1 >= r.cfg.Retries {
			r.state.Store(int32(StateFailedExhausted))
			return
		}
		if !r.cfg.RetryIf(err) {
			r.state.Store(int32(StateFailedNonRetryable))
			return
		}

		r.hub.publish(EventRetry, Event{Retry: attempt, Config: r.cfg})

		wait := computeWait(attempt, r.cfg.Factor, r.cfg.MinInterval, r.cfg.MaxInterval)
		r.logger.Debug("backing off",
			"execution", r.id,
			"retry", attempt,
			"wait", wait)

		r.state.Store(int32(StateWaiting))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.err = ctx.Err()
			r.state.Store(int32(StateCanceled))
			return
		case <-timer.C:
		}
	}
}
