// Command arena-tui runs the arena simulators in-process and draws them in
// the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tui "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"

	app "github.com/okian/kolarena/internal/app"
	"github.com/okian/kolarena/internal/config"
	arenatui "github.com/okian/kolarena/internal/tui"
	"github.com/okian/kolarena/pkg/logger"
)

type options struct {
	logFile   string
	altScreen bool
}

func main() {
	var opts options
	flag.StringVar(&opts.logFile, "log-file", "", "Write logs to this file (default: discard)")
	flag.BoolVar(&opts.altScreen, "alt-screen", true, "Use the terminal alternate screen buffer")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "arena-tui:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if !term.IsTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("stdout is not a terminal")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	// Log lines would tear the frame, so they go to a file or nowhere.
	var w io.Writer = io.Discard
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := logger.InitWith(w, cfg.LogFormat); err != nil {
		return err
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	svc, err := app.New(app.WithConfig(cfg), app.WithLogger(logger.Get()))
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()
	if err := svc.Start(ctx); err != nil {
		return err
	}

	m, err := arenatui.New(ctx, svc)
	if err != nil {
		return err
	}
	defer m.Close()

	progOpts := []tui.ProgramOption{tui.WithContext(ctx)}
	if opts.altScreen {
		progOpts = append(progOpts, tui.WithAltScreen())
	}
	if w, h, err := term.GetSize(os.Stdout.Fd()); err == nil {
		m.Update(tui.WindowSizeMsg{Width: w, Height: h})
	}
	_, err = tui.NewProgram(m, progOpts...).Run()
	if err != nil && ctx.Err() != nil {
		// Interrupted by signal.
		return nil
	}
	return err
}
