package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/josuedeavila/retryflow"
)

// statusError reports a non-2xx response so the predicate can decide
// whether it is worth another attempt.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// retryable treats server-side and transport failures as transient; a 4xx
// means the request itself is wrong and repeating it cannot help.
func retryable(err error) bool {
	if se, ok := err.(*statusError); ok {
		return se.code >= 500
	}
	return true
}

func fetch(url string) retryflow.Operation[[]byte] {
	return func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, &statusError{code: resp.StatusCode}
		}
		return io.ReadAll(resp.Body)
	}
}

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r, err := retryflow.New(fetch("https://api.github.com"),
		retryflow.WithRetries(4),
		retryflow.WithMinInterval(500*time.Millisecond),
		retryflow.WithFactor(2),
		retryflow.WithRetryIf(retryable),
		retryflow.WithLogger(logger),
	)
	if err != nil {
		logger.Error("bad retry config", "err", err)
		os.Exit(1)
	}

	r.On(retryflow.EventRetry, func(ev retryflow.Event) {
		logger.Warn("fetch failed, backing off", "retry", ev.Retry)
	})

	body, err := r.Wait(ctx)
	if err != nil {
		logger.Error("fetch gave up", "state", r.State(), "err", err)
		os.Exit(1)
	}
	fmt.Printf("fetched %d bytes\n", len(body))
}
