package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/josuedeavila/retryflow"
)

var errFlaky = errors.New("upstream not ready")

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: slog.LevelDebug,
	}))

	reg := prometheus.NewRegistry()
	metrics := retryflow.NewMetrics(reg)

	// Fails three times, then delivers.
	callCount := 0
	op := func(ctx context.Context) (string, error) {
		callCount++
		if callCount <= 3 {
			return "", errFlaky
		}
		return "hello after some persistence", nil
	}

	r, err := retryflow.New(op,
		retryflow.WithRetries(5),
		retryflow.WithMinInterval(200*time.Millisecond),
		retryflow.WithFactor(2),
		retryflow.WithMaxInterval(2*time.Second),
		retryflow.WithLogger(logger),
	)
	if err != nil {
		logger.Error("bad retry config", "err", err)
		os.Exit(1)
	}

	r.On(retryflow.EventAttempt, func(ev retryflow.Event) {
		logger.Info("attempt", "number", ev.Attempt, "execution", r.ID())
	})
	r.Once(retryflow.EventRetry, func(ev retryflow.Event) {
		logger.Warn("first retry, operation is flaky", "execution", r.ID())
	})

	retryflow.Observe(metrics, r)

	val, err := r.Wait(context.Background())
	if err != nil {
		logger.Error("gave up", "state", r.State(), "err", err)
		os.Exit(1)
	}
	logger.Info("done", "state", r.State(), "value", val)

	families, _ := reg.Gather()
	for _, fam := range families {
		fmt.Printf("%s = %v\n", fam.GetName(), fam.GetMetric()[0])
	}
}
