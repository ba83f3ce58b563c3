package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sergeyvolkov/chatflow/internal/backend"
	"github.com/sergeyvolkov/chatflow/internal/common/config"
	"github.com/sergeyvolkov/chatflow/internal/common/logging"
	"github.com/sergeyvolkov/chatflow/internal/engine"
	"github.com/sergeyvolkov/chatflow/internal/feed"
	"github.com/sergeyvolkov/chatflow/internal/observability"
	"github.com/sergeyvolkov/chatflow/internal/upload"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load(".env")

	if len(os.Args) < 2 {
		return fmt.Errorf("usage: chatflow-agent <partner-id>")
	}
	partnerID := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.Init(
		cfg.Logging.Level,
		cfg.Logging.Format,
		cfg.Logging.Output,
		cfg.Logging.EnableFile,
		cfg.Logging.FilePath,
	)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting chatflow-agent",
		zap.String("version", version),
		zap.String("partner_id", partnerID),
		zap.String("backend", cfg.Backend.BaseURL),
	)

	ctx, cancel := context.WithCancel(logging.WithConversation(
		logging.WithLogger(context.Background(), logger), partnerID))
	defer cancel()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
		go func() {
			if err := metrics.Start(ctx, cfg.Metrics.Addr); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	client := backend.NewHTTPClient(cfg.Backend, logger)
	eventFeed := feed.New(cfg.Feed, logger)
	uploader := upload.New(client, cfg.Upload.ChunkSize, metrics, logger)

	conv := engine.New(engine.Config{
		PartnerID:        partnerID,
		WindowHours:      cfg.Session.WindowHours,
		MessagingProduct: cfg.Provider.MessagingProduct,
		TemplateButtons:  cfg.Provider.TemplateButtons,
		RateLimitEnabled: cfg.RateLimit.Enabled,
		SendsPerMinute:   cfg.RateLimit.SendsPerMinute,
		Burst:            cfg.RateLimit.Burst,
	}, client, eventFeed, uploader, metrics, logger)

	if err := conv.Start(ctx); err != nil {
		return fmt.Errorf("open conversation: %w", err)
	}

	// Drain view updates so the loop never stalls on a full channel; a real
	// frontend would render these.
	go func() {
		for update := range conv.Views() {
			logger.Debug("view updated",
				zap.Int("groups", len(update.View.Groups)),
				zap.Bool("session_open", update.SessionOpen),
				zap.Bool("scroll_to_latest", update.ScrollToLatest),
			)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
	case <-conv.Done():
		logger.Info("conversation ended")
	}

	<-conv.Done()
	return nil
}
