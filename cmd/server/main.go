package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/banking/fraud-analysis/internal/api"
	"github.com/banking/fraud-analysis/internal/app"
	"github.com/banking/fraud-analysis/internal/config"
	"github.com/banking/fraud-analysis/internal/events"
	"github.com/banking/fraud-analysis/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code once every deferred cleanup has run
func run() int {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}

	// 2. Logger
	logger, err := logging.New(cfg.Logging, cfg.Server.Debug)
	if err != nil {
		log.Printf("Failed to initialize logger: %v", err)
		return 1
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Infof("Starting %s v%s...", cfg.App.Name, cfg.App.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Components
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		sugar.Errorf("Failed to initialize service: %v", err)
		return 1
	}
	defer application.Close()

	// Load eagerly so a broken extract shows up at startup; requests retry the load
	if err := application.Store.Load(ctx, false); err != nil {
		sugar.Warnf("Customer data not loaded: %v", err)
	}

	// 4. API Server
	e := api.NewServer(cfg.Server, application.Handler, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infof("Listening on %s", cfg.Server.Addr())
		if err := e.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 5. Kafka refresh consumer
	if cfg.Kafka.Enabled {
		consumer, err := events.NewRefreshConsumer(cfg.Kafka, application.Store, logger)
		if err != nil {
			sugar.Errorf("Failed to create Kafka consumer: %v", err)
			stop()
			_ = g.Wait()
			return 1
		}
		defer consumer.Close()

		g.Go(func() error {
			return consumer.Start(gctx)
		})
	}

	// Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		sugar.Info("Shutting down service...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
		return 1
	}
	sugar.Info("Service stopped")
	return 0
}
