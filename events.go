package retryflow

import (
	"log/slog"
	"sync"
)

// Event names accepted by On and Once.
const (
	// EventAttempt fires before every invocation of the operation,
	// including the first.
	EventAttempt = "attempt"

	// EventRetry fires after a retryable failure, before the backoff wait.
	EventRetry = "retry"
)

// Event is the payload delivered to observers. Attempt is set for attempt
// events, Retry for retry events; both are 1-based. Config is a copy of the
// execution's resolved configuration.
type Event struct {
	Attempt int
	Retry   int
	Config  Config
}

// Handler receives events for one registration.
type Handler func(Event)

type subscription struct {
	name    string
	handler Handler
	once    bool
}

// hub delivers events to observers in registration order, synchronously
// with the retry loop. The Retry handle holds a hub rather than embedding
// one, so the awaitable surface and the observer surface stay separate.
type hub struct {
	mu     sync.Mutex
	subs   []subscription
	logger *slog.Logger
	id     string
}

func (h *hub) subscribe(name string, fn Handler, once bool) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.subs = append(h.subs, subscription{name: name, handler: fn, once: once})
	h.mu.Unlock()
}

// publish fires every observer registered for name, in the order they were
// added, then drops one-shot registrations. Publishing happens whether or
// not anyone is listening.
func (h *hub) publish(name string, ev Event) {
	h.mu.Lock()
	fire := make([]Handler, 0, len(h.subs))
	kept := h.subs[:0]
	for _, sub := range h.subs {
		if sub.name == name {
			fire = append(fire, sub.handler)
			if sub.once {
				continue
			}
		}
		kept = append(kept, sub)
	}
	h.subs = kept
	h.mu.Unlock()

	for _, fn := range fire {
		h.dispatch(fn, ev)
	}
}

// dispatch isolates observer panics: a failing observer is logged and
// skipped, and the retry loop's accounting is untouched.
func (h *hub) dispatch(fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("retry observer panicked",
				"execution", h.id,
				"panic", r)
		}
	}()
	fn(ev)
}
