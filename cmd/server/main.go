// Detection server - runs the content analysis engine behind HTTP/WebSocket
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sightveil/platform/internal/config"
	"github.com/sightveil/platform/internal/detect"
	"github.com/sightveil/platform/internal/grpcclient"
	"github.com/sightveil/platform/internal/monitor"
	"github.com/sightveil/platform/internal/orchestrator"
	"github.com/sightveil/platform/internal/server"
	"github.com/sightveil/platform/internal/warning"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg := config.Load()

	// Connect to the classifier inference server. Failure is tolerated: the
	// engine degrades to the heuristic scorer rather than refusing to start.
	var model detect.ModelScorer
	if cfg.ClassifierAddr != "" {
		classifier, err := grpcclient.New(cfg.ClassifierAddr)
		if err != nil {
			slog.Warn("classifier unavailable, running heuristic-only", "addr", cfg.ClassifierAddr, "error", err)
		} else {
			defer func() { _ = classifier.Close() }()
			model = classifier
		}
	}

	perf := monitor.New()
	engine := detect.NewEngine(model, perf, detect.Options{
		Tier:          detect.ParseTier(cfg.Tier),
		CacheTTL:      cfg.CacheTTL,
		FlagThreshold: cfg.FlagThreshold,
	})

	warnings := warning.New(warning.Config{
		RequiredSeconds: cfg.ReflectionSeconds,
		RepeatExtension: cfg.RepeatExtensionSeconds,
		RepeatWindow:    time.Duration(cfg.RepeatWindowSeconds) * time.Second,
	})

	// Frame acquisition is an external collaborator; frames arrive through
	// the push endpoint, so the manager runs without a local source.
	orch := orchestrator.New(engine, warnings, nil, cfg)

	srv := server.New(orch, engine, warnings, perf, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	warnings.Start(ctx)
	go func() {
		if err := orch.Start(ctx); err != nil {
			slog.Error("orchestrator error", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("detection server starting", "http", cfg.HTTPAddr, "classifier", cfg.ClassifierAddr, "tier", cfg.Tier)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	orch.Stop()
	warnings.Stop()
	slog.Info("shutdown complete")
}
