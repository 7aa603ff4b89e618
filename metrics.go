package retryflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments executions through the observer surface, keeping
// collection at the call site rather than inside the loop. One Metrics
// value may observe any number of executions.
type Metrics struct {
	attempts prometheus.Counter
	retries  prometheus.Counter
	backoff  prometheus.Histogram
}

// NewMetrics registers the collectors with reg and returns the set.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		attempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "retryflow_attempts_total",
			Help: "Total operation invocations across observed executions.",
		}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Name: "retryflow_retries_total",
			Help: "Total retries across observed executions.",
		}),
		backoff: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "retryflow_backoff_seconds",
			Help:    "Backoff wait inserted before each retry.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Observe attaches m to r as persistent observers and returns r for
// chaining.
func Observe[T any](m *Metrics, r *Retry[T]) *Retry[T] {
	r.On(EventAttempt, func(Event) { m.attempts.Inc() })
	r.On(EventRetry, func(ev Event) {
		m.retries.Inc()
		wait := computeWait(ev.Retry, ev.Config.Factor, ev.Config.MinInterval, ev.Config.MaxInterval)
		m.backoff.Observe(wait.Seconds())
	})
	return r
}
