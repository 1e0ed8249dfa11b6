package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/callwise/relay/internal/generate"
	"github.com/callwise/relay/internal/session"
	"github.com/callwise/relay/internal/turn"
	"github.com/callwise/relay/internal/twilio"
	"github.com/callwise/relay/internal/ws"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	if cfg.authToken == "" {
		slog.Warn("TWILIO_AUTH_TOKEN is unset; all vendor requests will be rejected")
	}
	validator := twilio.NewValidator(cfg.authToken)

	// Generator backends. The engine is fixed at startup; both consume the
	// same opaque streaming-completion contract.
	genRouter := generate.NewRouter(map[string]generate.Streamer{
		"openai": generate.NewOpenAIClient(cfg.openaiAPIKey, cfg.openaiBaseURL, cfg.generatorModel, cfg.generatorMaxTokens),
		"agents": generate.NewAgentClient(cfg.generatorModel, cfg.generatorMaxTokens),
	}, "openai")

	generator, err := genRouter.Route(cfg.generatorEngine)
	if err != nil {
		slog.Error("resolve generator engine", "error", err)
		os.Exit(1)
	}

	coordinator := turn.NewCoordinator(generator, cfg.generatorModel, cfg.deadAirDelay)

	registry := session.NewRegistry()
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go registry.Sweep(sweepCtx, cfg.sweepInterval, cfg.sessionTTL)

	handler := ws.NewHandler(ws.HandlerConfig{
		Validator:         validator,
		Registry:          registry,
		Coordinator:       coordinator,
		SystemPrompt:      cfg.systemPrompt,
		DefaultLanguage:   cfg.language,
		HistoryCap:        cfg.historyCap,
		HeartbeatInterval: cfg.heartbeatInterval,
		MaxConcurrent:     cfg.maxConcurrentCalls,
	})

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		cfg:       cfg,
		validator: validator,
		wsHandler: handler,
	})

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	slog.Info("relay starting",
		"addr", addr,
		"engine", cfg.generatorEngine,
		"model", cfg.generatorModel,
		"max_concurrent", cfg.maxConcurrentCalls,
	)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("relay stopped")
}
