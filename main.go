package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unclealek/SmartHome/internal/config"
	"github.com/unclealek/SmartHome/internal/logger"
	"github.com/unclealek/SmartHome/internal/monitor"
	"github.com/unclealek/SmartHome/internal/server"
)

const shutdownTimeout = 5 * time.Second

var commands = []struct {
	name string
	desc string
}{
	{"monitor", "Live dashboard in the terminal (default)"},
	{"serve", "Poll in the background and serve state over HTTP"},
	{"once", "Poll every sensor once and print the state as JSON"},
	{"light", "Switch the light: light on | light off"},
	{"reset", "Return the device to sound sensor mode"},
}

func main() {
	args := os.Args[1:]
	cmd := "monitor"
	if len(args) > 0 {
		cmd = strings.ToLower(args[0])
		args = args[1:]
	}

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printHelp()
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "monitor":
		err = runMonitor(ctx, cfg)
	case "serve":
		err = runServe(ctx, cfg)
	case "once":
		err = runOnce(ctx, cfg)
	case "light":
		err = runLight(ctx, cfg, args)
	case "reset":
		err = runReset(ctx, cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printHelp()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("Usage: smarthome [command]")
	fmt.Println()
	fmt.Println("Commands:")
	for _, c := range commands {
		fmt.Printf("  %-8s  %s\n", c.name, c.desc)
	}
	fmt.Println()
	fmt.Println("Configuration is read from the environment and an optional .env file.")
	fmt.Println("Set BLYNK_TOKEN and OPENWEATHER_API_KEY, or each *_URL explicitly.")
	fmt.Println()
	fmt.Println("Monitor keys: l light, r reset, p pause, q quit")
}

// runMonitor owns the terminal, so logs go to the configured file.
func runMonitor(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer log.Close()

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	log.Infow("dashboard starting", "interval", a.poller.Interval(), "overlap", a.poller.Overlap())

	model := monitor.New(ctx, a.poller, monitor.Options{
		Interval:    a.poller.Interval(),
		HistorySize: cfg.Poll.HistorySize,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.Log.Level, logger.Stdout)
	if err != nil {
		return err
	}
	defer log.Close()

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Controller: a.poller,
		Logger:     log,
		Metrics:    a.metric.Handler(),
	})
	if err != nil {
		return err
	}

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		a.poller.Run(ctx)
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(cfg.Server.ListenAddr) }()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		log.Infow("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
	}
	<-pollDone
	return err
}

func runOnce(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.Log.Level, logger.Stdout)
	if err != nil {
		return err
	}
	defer log.Close()

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	st := a.poller.PollOnce(ctx)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

func runLight(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return errors.New("usage: smarthome light on|off")
	}

	log, err := logger.New(cfg.Log.Level, logger.Stdout)
	if err != nil {
		return err
	}
	defer log.Close()

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	if err := a.poller.SetLight(ctx, args[0] == "on"); err != nil {
		return err
	}
	fmt.Println(a.poller.State().Notice.Text)
	return nil
}

func runReset(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.Log.Level, logger.Stdout)
	if err != nil {
		return err
	}
	defer log.Close()

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	if err := a.poller.ResetMode(ctx); err != nil {
		return err
	}
	fmt.Println(a.poller.State().Notice.Text)
	return nil
}
