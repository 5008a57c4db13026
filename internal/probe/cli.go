package probe

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/kolarena/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging sends logs to stderr and, when logFile is set, to that file
// as well. The returned Closer releases the file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = io.NopCloser(nil)
	)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w, closer = io.MultiWriter(os.Stderr, file), file
	}
	if err := logger.InitWith(w, "text"); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return nil, err
		}
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return closer, nil
}

// ShowHelp prints usage information for the probe.
func ShowHelp() {
	os.Stdout.WriteString(`KOL Arena Probe
===============

Observes a running simulator and checks the dashboard properties live:
a fixed agent set moving one follower at a time, a constant chart window,
a ranked leaderboard, a capped newest-first feed, an ordered duplicate-free
update stream, and blips that always expire.

Usage:
  go run ./cmd/arena-probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -duration duration
        How long to observe (default 30s)
  -interval duration
        Snapshot poll period (default 1s)
  -timeout duration
        Per request timeout (default 5s)
  -slack duration
        Grace period for blip expiry (default 2s)
  -feed-cap int
        Maximum feed length, 0 disables the check (default 10)
  -output string
        Write the JSON report to this file
  -log string
        Log file for probe output
  -verbose
        Log every violation as it is found
  -help
        Show this help message

Examples:
  # Observe a local service for a minute
  go run ./cmd/arena-probe -duration 1m

  # Save the report
  go run ./cmd/arena-probe -output reports/probe.json
`)
}
