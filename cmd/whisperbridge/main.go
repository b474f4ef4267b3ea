// Command whisperbridge serves a whisper.cpp model over HTTP: one-shot
// transcription, language detection, and chunked streaming sessions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/whisperbridge/internal/bridge"
	"github.com/MrWong99/whisperbridge/internal/config"
	"github.com/MrWong99/whisperbridge/internal/engine"
	"github.com/MrWong99/whisperbridge/internal/observe"
	"github.com/MrWong99/whisperbridge/internal/session"

	"github.com/MrWong99/whisperbridge/internal/engine/whispercpp"
)

const defaultListenAddr = ":8080"

// version is stamped by the build via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	watchConfig := flag.Bool("watch-config", false, "reload live-tunable settings when the config file changes")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "whisperbridge: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "whisperbridge: %v\n", err)
		}
		return 1
	}

	// The level var lets the config watcher retune verbosity at runtime.
	level := &slog.LevelVar{}
	level.Set(cfg.Server.LogLevel.Slog())
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	slog.Info("whisperbridge starting",
		"version", version,
		"config", *configPath,
		"listen_addr", listenAddr,
		"model", cfg.Model.Path,
		"accelerator", cfg.Model.UseAccelerator,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry providers. The Prometheus bridge feeds /metrics.
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	if !whispercpp.Available() {
		slog.Error("this binary was built without the whispercpp build tag; no engine is available")
		return 1
	}

	sess, err := session.Open(whispercpp.Loader{}, cfg.Model.Path, engine.ContextConfig{
		UseAccelerator:   cfg.Model.UseAccelerator,
		UseFastAttention: cfg.Model.UseFastAttention,
	})
	if err != nil {
		slog.Error("failed to load model", "path", cfg.Model.Path, "err", err)
		return 1
	}
	defer sess.Close()

	srv := bridge.NewServer(sess, observe.DefaultMetrics(), cfg.Transcribe, cfg.Stream)

	httpSrv := &http.Server{
		Addr:              listenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if *watchConfig {
		watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
			if old.Server.LogLevel != new.Server.LogLevel {
				level.Set(new.Server.LogLevel.Slog())
				slog.Info("log level changed", "level", new.Server.LogLevel)
			}
			if old.Model != new.Model {
				slog.Warn("model settings changed on disk; restart to apply")
			}
		})
		if err != nil {
			slog.Error("failed to start config watcher", "err", err)
			return 1
		}
		defer watcher.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", listenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}
