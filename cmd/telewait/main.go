// Command telewait runs one check or wait operation against a live
// telemetry stream and exits non-zero when a check fails.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/halcyonix/telewait/internal/config"
	"github.com/halcyonix/telewait/internal/poll"
	"github.com/halcyonix/telewait/internal/script"
	"github.com/halcyonix/telewait/internal/storage"
	"github.com/halcyonix/telewait/internal/telemetry"
	"github.com/halcyonix/telewait/internal/viewer"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	op := flag.String("op", "check", "operation: check, wait or wait_check")
	valueType := flag.String("value-type", "converted", "value representation: raw, converted, formatted or with_units")
	timeout := flag.Float64("timeout", 5, "wait timeout in seconds")
	pollingRate := flag.Float64("polling-rate", 0, "polling rate in seconds (0 uses the configured default)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("telewait %s\n", version)
		os.Exit(0)
	}

	checkText := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if checkText == "" && *op != "clear_all" {
		fmt.Fprintln(os.Stderr, "usage: telewait [flags] \"TARGET PACKET ITEM <comparison>\"")
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger := setupLogger(cfg.Logging)
	logger.Info("starting telewait", "version", version, "operation", *op)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		logger.Info("received signal, canceling", "signal", sig)
		cancel()
	}()

	switch *op {
	case "display", "clear", "clear_all":
		client := viewer.New(cfg.Viewer.Address, logger)
		client.SetRetry(cfg.Viewer.MaxRetries, cfg.Viewer.RetryBackoff.Std())
		if err := runViewer(ctx, client, *op, checkText); err != nil {
			logger.Error("viewer operation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if cfg.Provider.URL == "" {
		logger.Error("no provider url configured")
		os.Exit(1)
	}
	stream := telemetry.NewStreamProvider(cfg.Provider.URL, logger)
	go func() {
		if err := stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("telemetry stream", "error", err)
			cancel()
		}
	}()

	var provider telemetry.Provider = stream
	if cfg.Engine.MaxSampleRate > 0 {
		provider = telemetry.Limit(provider, cfg.Engine.MaxSampleRate, cfg.Engine.SampleBurst)
	}

	runner := script.NewRunner(provider, poll.SleepDelayer{}, logger)
	runner.SetPollingRate(cfg.Engine.PollingRate.Std())

	if cfg.OutcomeLog.Path != "" {
		store, err := storage.NewSQLiteStore(cfg.OutcomeLog.Path)
		if err != nil {
			logger.Error("open outcome log", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		runner.SetRecorder(store)
	}

	if err := run(ctx, runner, *op, *valueType, checkText, *timeout, *pollingRate); err != nil {
		var failure *script.CheckFailure
		if errors.As(err, &failure) {
			logger.Error(failure.Message)
		} else {
			logger.Error("operation failed", "error", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, runner *script.Runner, op, valueType, checkText string, timeoutSecs, rateSecs float64) error {
	raw := false
	switch valueType {
	case "raw":
		raw = true
	case "converted", "":
	case "formatted", "with_units":
		if op != "check" {
			return fmt.Errorf("value type %q is only available for check", valueType)
		}
	default:
		return fmt.Errorf("unknown value type %q", valueType)
	}

	switch op {
	case "check":
		switch valueType {
		case "raw":
			return runner.CheckRaw(ctx, checkText)
		case "formatted":
			return runner.CheckFormatted(ctx, checkText)
		case "with_units":
			return runner.CheckWithUnits(ctx, checkText)
		default:
			return runner.Check(ctx, checkText)
		}
	case "wait":
		call := runner.Wait
		if raw {
			call = runner.WaitRaw
		}
		_, err := waitCall(call, ctx, checkText, timeoutSecs, rateSecs)
		return err
	case "wait_check":
		call := runner.WaitCheck
		if raw {
			call = runner.WaitCheckRaw
		}
		_, err := waitCall(call, ctx, checkText, timeoutSecs, rateSecs)
		return err
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
}

func runViewer(ctx context.Context, client *viewer.Client, op, name string) error {
	switch op {
	case "display":
		return client.Display(ctx, name, nil, nil)
	case "clear":
		return client.Clear(ctx, name)
	default:
		return client.ClearAll(ctx, name)
	}
}

func waitCall(f func(context.Context, ...any) (time.Duration, error), ctx context.Context, checkText string, timeoutSecs, rateSecs float64) (time.Duration, error) {
	if rateSecs > 0 {
		return f(ctx, checkText, timeoutSecs, rateSecs)
	}
	return f(ctx, checkText, timeoutSecs)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
