// Package app wires the fraud analysis components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/banking/fraud-analysis/internal/api"
	"github.com/banking/fraud-analysis/internal/config"
	"github.com/banking/fraud-analysis/internal/crypto"
	"github.com/banking/fraud-analysis/internal/datastore"
	"github.com/banking/fraud-analysis/internal/domain"
	"github.com/banking/fraud-analysis/internal/llm"
	"github.com/banking/fraud-analysis/internal/questions"
	"github.com/banking/fraud-analysis/internal/repository/postgres"
	redisrepo "github.com/banking/fraud-analysis/internal/repository/redis"
	"github.com/banking/fraud-analysis/internal/repository/s3"
	"github.com/banking/fraud-analysis/internal/repository/tabular"
	"github.com/banking/fraud-analysis/internal/service"
	"go.uber.org/zap"
)

// App holds the wired components. LLM is nil when no credential is configured.
type App struct {
	Config   *config.Config
	Store    *datastore.Store
	LLM      *llm.Client
	Analysis *service.AnalysisService
	Handler  *api.FraudHandler

	logger  *zap.Logger
	closers []func() error
}

// New builds every component. Data is loaded lazily on first use.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, logger: logger}

	source, closeSource, err := NewSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closeSource != nil {
		a.closers = append(a.closers, closeSource)
	}
	a.Store = datastore.NewStore(source, logger)

	signer, err := crypto.NewReportSigner(cfg.Security.ReportHMACSecret)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize report signer: %w", err)
	}
	if signer == nil {
		logger.Warn("Report signing disabled - no HMAC secret configured")
	}

	var opts []llm.Option
	if cfg.Redis.Enabled {
		cache := redisrepo.NewNarrativeCache(redisrepo.NewClient(cfg.Redis), cfg.OpenAI.NarrativeTTL)
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("Redis unavailable, narrative cache disabled", zap.Error(err))
			_ = cache.Close()
		} else {
			opts = append(opts, llm.WithNarrativeCache(cache))
			a.closers = append(a.closers, cache.Close)
		}
	}

	var analyzer service.Analyzer
	client, err := llm.New(cfg.OpenAI, questions.NewBank(cfg.Questions.Seed), logger, opts...)
	switch {
	case err == nil:
		a.LLM = client
		analyzer = client
	case errors.Is(err, domain.ErrConfig):
		logger.Warn("AI analysis disabled, using local analysis", zap.Error(err))
	default:
		a.Close()
		return nil, fmt.Errorf("failed to initialize AI client: %w", err)
	}

	a.Analysis = service.NewAnalysisService(a.Store, analyzer, signer, cfg.OpenAI.Model, logger)
	a.Handler = api.NewFraudHandler(a.Analysis, a.Store, logger)
	return a, nil
}

// NewSource selects the customer table source. The returned close func may be nil.
func NewSource(ctx context.Context, cfg *config.Config) (tabular.Source, func() error, error) {
	switch cfg.Data.Source {
	case config.SourceFile, "":
		return tabular.NewFileSource(cfg.Data.FilePath, cfg.Data.Sheet), nil, nil
	case config.SourceS3:
		s3cfg := cfg.S3
		if strings.HasPrefix(cfg.Data.FilePath, "s3://") {
			bucket, key, err := s3.ParseURI(cfg.Data.FilePath)
			if err != nil {
				return nil, nil, err
			}
			s3cfg.Bucket, s3cfg.Key = bucket, key
		}
		src, err := s3.NewSheetSource(ctx, s3cfg, cfg.Data.Sheet)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrDataSource, err)
		}
		return src, nil, nil
	case config.SourcePostgres:
		repo, err := postgres.NewTableRepository(ctx, cfg.Database, cfg.Data.Table)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrDataSource, err)
		}
		return repo, func() error { repo.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("%w: unsupported data source %q", domain.ErrConfig, cfg.Data.Source)
	}
}

// Close releases every connection opened by New
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
