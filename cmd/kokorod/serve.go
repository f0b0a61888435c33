package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/kokoro-openai-server/internal/config"
	"github.com/example/kokoro-openai-server/internal/kokoro"
	"github.com/example/kokoro-openai-server/internal/pool"
	"github.com/example/kokoro-openai-server/internal/server"
	"github.com/example/kokoro-openai-server/internal/telemetry"
	"github.com/example/kokoro-openai-server/internal/tokenizer"
	"github.com/example/kokoro-openai-server/internal/tts"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the TTS HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	defaults := config.DefaultConfig()
	config.RegisterFlags(cmd.Flags(), defaults)

	return cmd
}

func runServe(cfg config.Config) error {
	// The tokenizer is read-only after load; one instance is shared by
	// all workers.
	tok, err := tokenizer.NewSentencePiece(cfg.Paths.TokenizerPath)
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}

	// Every worker gets its own inference context. Any failure aborts
	// startup: the server never comes up with fewer workers than
	// configured.
	p, err := pool.New(cfg.Server.Workers, func(slot int) (*tts.Service, error) {
		eng, err := kokoro.NewEngine(kokoro.Config{
			ModelPath:   cfg.Paths.ModelPath,
			VoicesPath:  cfg.Paths.VoicesPath,
			LibraryPath: cfg.Runtime.ORTLibraryPath,
			APIVersion:  cfg.Runtime.ORTAPIVersion,
		})
		if err != nil {
			return nil, fmt.Errorf("worker %d: %w", slot, err)
		}
		return tts.NewService(tok, eng.Styles(), eng, cfg.TTS.MaxChunkChars), nil
	})
	if err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}
	defer func() { _ = p.Close() }()

	metrics, metricsHandler, shutdownMetrics, err := telemetry.Setup("kokorod")
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}

	handler := server.NewHandler(p, tts.NewCatalog(),
		server.WithLogger(slog.Default()),
		server.WithMetrics(metrics),
		server.WithMetricsHandler(metricsHandler),
		server.WithMaxInputChars(cfg.Server.MaxInputChars),
		server.WithDefaultVoice(cfg.TTS.DefaultVoice),
		server.WithAdmissionTimeout(time.Duration(cfg.Server.AdmissionTimeout)*time.Second),
		server.WithStreamBuffer(cfg.Server.StreamBuffer),
		server.WithAPIKey(cfg.Server.APIKey),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("server starting",
		"addr", cfg.Server.ListenAddr,
		"workers", cfg.Server.Workers,
		"auth", cfg.Server.APIKey != "",
	)

	serveErr := server.New(cfg, handler).Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownMetrics(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("shutdown telemetry: %w", err)
	}

	return serveErr
}
