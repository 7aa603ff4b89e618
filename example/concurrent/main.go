package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"

	"github.com/josuedeavila/retryflow"
)

// Independent executions share nothing: each worker gets its own handle,
// its own config copy, and its own event stream.
func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{}))

	services := []string{"billing", "inventory", "shipping", "search"}

	var wg sync.WaitGroup
	for _, name := range services {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			op := func(ctx context.Context) (string, error) {
				if rand.Intn(3) != 0 {
					return "", errors.New("connection refused")
				}
				return name + " connected", nil
			}

			r, err := retryflow.New(op,
				retryflow.WithRetries(10),
				retryflow.WithMinInterval(100*time.Millisecond),
				retryflow.WithFactor(1.5),
				retryflow.WithLogger(logger.With("service", name)),
			)
			if err != nil {
				logger.Error("bad retry config", "service", name, "err", err)
				return
			}

			r.On(retryflow.EventRetry, func(ev retryflow.Event) {
				logger.Info("still trying", "service", name, "retry", ev.Retry)
			})

			val, err := r.Wait(context.Background())
			if err != nil {
				logger.Error("gave up", "service", name, "state", r.State(), "err", err)
				return
			}
			logger.Info("ready", "service", name, "result", val)
		}(name)
	}
	wg.Wait()
}
