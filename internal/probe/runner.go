package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/kolarena/pkg/logger"
)

// Run observes a live service for cfg.Duration and returns the report.
// Property violations are reported, not returned as errors.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	log := logger.Get().Named("probe").With(logger.String("run", runID))
	started := time.Now()

	log.Info(ctx, "starting kolarena probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Duration("duration", cfg.Duration),
		logger.Duration("interval", cfg.Interval),
		logger.Int("feedCap", cfg.FeedCap),
		logger.Bool("verbose", cfg.Verbose))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := checkServiceHealth(ctx, client); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	checker := NewChecker(cfg.FeedCap, cfg.Slack, cfg.Verbose, log)
	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return poll(gctx, client, cfg.Interval, checker) })
	g.Go(func() error {
		return client.watch(gctx, func(u wireUpdate) { checker.ObserveUpdate(gctx, u) })
	})
	if err := g.Wait(); err != nil && !isDone(err) {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	checker.Finish(time.Now())
	report := &Report{
		RunID:     runID,
		BaseURL:   cfg.BaseURL,
		Started:   started,
		Duration:  time.Since(started),
		Snapshots: checker.Snapshots(),
		Topics:    checker.Topics(),
		Checks:    checker.Results(),
	}
	log.Info(ctx, "probe finished",
		logger.Int("snapshots", report.Snapshots),
		logger.Int("updates", report.Updates()),
		logger.Int("failures", report.Failures()))

	if cfg.Output != "" {
		if err := report.WriteFile(cfg.Output); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}
	return report, nil
}

// checkServiceHealth verifies the service answers before observing it.
func checkServiceHealth(ctx context.Context, c *HTTPClient) error {
	resp, err := c.get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// poll checks one snapshot per interval until ctx ends.
func poll(ctx context.Context, c *HTTPClient, interval time.Duration, checker *Checker) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s, err := c.snapshot(ctx)
		switch {
		case err == nil:
			checker.ObserveSnapshot(s)
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("snapshot: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func isDone(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
