package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/kolarena/internal/probe"
)

func main() {
	var (
		baseURL  = flag.String("url", probe.DefaultBaseURL, "Base URL of the service")
		duration = flag.Duration("duration", probe.DefaultDuration, "How long to observe")
		interval = flag.Duration("interval", probe.DefaultInterval, "Snapshot poll period")
		timeout  = flag.Duration("timeout", probe.DefaultTimeout, "Per request timeout")
		slack    = flag.Duration("slack", probe.DefaultSlack, "Grace period for blip expiry")
		feedCap  = flag.Int("feed-cap", probe.DefaultFeedCap, "Maximum feed length, 0 disables the check")
		output   = flag.String("output", "", "Write the JSON report to this file")
		logFile  = flag.String("log", "", "Log file for probe output")
		verbose  = flag.Bool("verbose", false, "Log every violation as it is found")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}
	os.Exit(run(&probe.Config{
		BaseURL:  *baseURL,
		Duration: *duration,
		Interval: *interval,
		Timeout:  *timeout,
		Slack:    *slack,
		FeedCap:  *feedCap,
		Output:   *output,
		LogFile:  *logFile,
		Verbose:  *verbose,
	}))
}

// run returns the process exit code: 0 when every property held, 1 on
// violations and 2 when the probe itself failed.
func run(cfg *probe.Config) int {
	closer, err := probe.SetupLogging(cfg.LogFile, cfg.Verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return 2
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := probe.Run(ctx, cfg)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		}
		return 2
	}
	report.Render(os.Stdout)
	if !report.OK() {
		return 1
	}
	return 0
}
