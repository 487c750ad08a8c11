package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lostfound/internal/config"
	dbRedis "github.com/kailas-cloud/lostfound/internal/db/redis"
	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/image"
	domitem "github.com/kailas-cloud/lostfound/internal/domain/item"
	"github.com/kailas-cloud/lostfound/internal/metrics"
	"github.com/kailas-cloud/lostfound/internal/repository/embcache"
	itemrepo "github.com/kailas-cloud/lostfound/internal/repository/item"
	chiTransport "github.com/kailas-cloud/lostfound/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/lostfound/internal/transport/openai"
	"github.com/kailas-cloud/lostfound/internal/transport/vision"
	embeddinguc "github.com/kailas-cloud/lostfound/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/lostfound/internal/usecase/health"
	itemuc "github.com/kailas-cloud/lostfound/internal/usecase/item"
	matchuc "github.com/kailas-cloud/lostfound/internal/usecase/match"
	riskuc "github.com/kailas-cloud/lostfound/internal/usecase/risk"
	searchuc "github.com/kailas-cloud/lostfound/internal/usecase/search"
	verificationuc "github.com/kailas-cloud/lostfound/internal/usecase/verification"
)

// repository is the candidate store as seen by the composition root.
type repository interface {
	itemuc.Repository
	Ping(ctx context.Context) error
}

// annotator is the vision collaborator. HealthCheck is optional.
type annotator interface {
	Annotate(ctx context.Context, img image.Ref) (domain.Annotation, error)
}

// app is the fully wired service graph shared by serve and match.
type app struct {
	cfg          config.Config
	repo         repository
	annotator    annotator
	search       *searchuc.Service
	risk         *riskuc.Service
	items        *itemuc.Service
	verification *verificationuc.Service
	health       *healthuc.Service
	closers      []func()
	logger       *zap.Logger
}

// newApp builds the composition root: store, collaborators, use cases.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterProviderMetrics()
	metrics.RegisterMatchingMetrics()

	a := &app{cfg: cfg, logger: logger}

	var seed []domitem.Item
	if cfg.Store.Seed.Enabled(true) {
		seed = itemrepo.SampleItems(time.Now().UTC())
	}

	var storePinger healthuc.StorePinger
	var cache *dbRedis.Store
	switch cfg.Store.Driver {
	case config.DriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Store.Addrs,
			Username: cfg.Store.Username,
			Password: cfg.Store.Password,
			DB:       cfg.Store.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		a.closers = append(a.closers, store.Close)

		if err := store.WaitForReady(ctx, time.Duration(cfg.Store.ReadinessTimeout)*time.Second); err != nil {
			a.Close()
			return nil, fmt.Errorf("store not ready: %w", err)
		}
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Store.Addrs))

		a.repo = itemrepo.NewRedis(store, seed)
		storePinger = store
		if cfg.Embedding.Cache.Enabled(true) {
			cache = store
		}
	default:
		repo := itemrepo.NewMemory(seed)
		a.repo = repo
		storePinger = repo
	}

	embedder := buildEmbedder(cfg.Embedding, cfg.Vision.ImageBaseURL, cache, logger)
	a.annotator = buildAnnotator(cfg.Vision, logger)
	generator := buildGenerator(cfg.Generative, logger)

	var vectors itemuc.Vectorizer
	if embedder != nil {
		vectors = embeddinguc.NewFailClosed(embedder, logger)
	}

	var verifierGen verificationuc.Generator
	if generator != nil {
		verifierGen = generator
	}

	ranker := matchuc.New(a.annotator, logger).
		WithDemoOverride(cfg.Matching.ForceDemoMatch.Enabled(matchuc.DemoAvailable)).
		WithLookupLimits(
			cfg.Matching.LookupRate,
			cfg.Matching.LookupConcurrency,
			time.Duration(cfg.Matching.LookupTimeoutSec)*time.Second,
		)
	a.risk = riskuc.New(a.annotator, time.Duration(cfg.Risk.LookupTimeoutSec)*time.Second, logger)
	a.verification = verificationuc.New(verifierGen, logger)
	a.items = itemuc.New(a.repo, a.annotator, vectors, logger)
	a.search = searchuc.New(a.repo, a.annotator, vectors, ranker, a.risk, a.verification, logger)

	a.health = healthuc.New(storePinger).
		WithComponent("embedding", healthCheckerOf(embedder)).
		WithComponent("vision", healthCheckerOf(a.annotator)).
		WithComponent("generative", healthCheckerOf(generator))

	logger.Info("Service graph ready",
		zap.String("store", cfg.Store.Driver),
		zap.Bool("embedding", embedder != nil),
		zap.String("vision", cfg.Vision.Provider),
		zap.Bool("generative", generator != nil),
		zap.Bool("demo_match", cfg.Matching.ForceDemoMatch.Enabled(matchuc.DemoAvailable)),
	)
	return a, nil
}

// server returns the HTTP API handler.
func (a *app) server() *chiTransport.Server {
	var ann chiTransport.Annotator
	if a.annotator != nil {
		ann = a.annotator
	}
	return chiTransport.NewServer(a.search, a.risk, a.items, a.verification, ann, a.health, a.logger)
}

// Close releases store connections.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// buildEmbedder assembles the decorator chain: OpenAI (caption, then embed) -> Cached -> Instrumented -> Dimension.
// Returns nil when no API key is configured.
func buildEmbedder(
	cfg config.EmbeddingConfig, imageBaseURL string, cache *dbRedis.Store, logger *zap.Logger,
) domain.Embedder {
	if cfg.APIKey == "" {
		logger.Warn("Embedding API key not set, image embeddings disabled")
		return nil
	}

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		Model:        cfg.Model,
		CaptionModel: cfg.CaptionModel,
		Dimensions:   cfg.Dimensions,
		ImageBaseURL: imageBaseURL,
		Provider:     cfg.Provider,
		Logger:       logger,
	})

	var embedder domain.Embedder = base
	if cache != nil {
		embedder = embcache.New(base, cache, cfg.Provider+"/"+cfg.CaptionModel+"/"+cfg.Model,
			time.Duration(cfg.CacheTTLSec)*time.Second, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)

	// Dimension check (outermost, cached vectors are validated too)
	return domain.NewDimensionEmbedder(embedder, cfg.Dimensions)
}

// buildAnnotator returns the configured vision collaborator, or nil when disabled.
func buildAnnotator(cfg config.VisionConfig, logger *zap.Logger) annotator {
	switch cfg.Provider {
	case config.VisionGoogle:
		if cfg.APIKey == "" {
			logger.Warn("Vision API key not set, annotations will be empty")
		}
		return vision.NewGoogle(vision.Config{
			APIKey:       cfg.APIKey,
			Endpoint:     cfg.Endpoint,
			ImageBaseURL: cfg.ImageBaseURL,
			Timeout:      time.Duration(cfg.TimeoutSec) * time.Second,
			Logger:       logger,
		})
	case config.VisionOpenAI:
		if cfg.APIKey == "" {
			logger.Warn("Vision API key not set, annotations disabled")
			return nil
		}
		return openaiTransport.NewAnnotator(&openaiTransport.Config{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.Endpoint,
			Model:        cfg.Model,
			ImageBaseURL: cfg.ImageBaseURL,
			Provider:     config.VisionOpenAI,
			Logger:       logger,
		})
	default:
		return nil
	}
}

// buildGenerator returns the verification text generator, or nil when disabled.
func buildGenerator(cfg config.GenerativeConfig, logger *zap.Logger) *openaiTransport.Generator {
	if !cfg.Enabled.Enabled(true) {
		logger.Info("Generative features disabled, verification uses fixed questions")
		return nil
	}
	if cfg.APIKey == "" {
		logger.Warn("Generative API key not set, verification uses fixed questions")
		return nil
	}
	return openaiTransport.NewGenerator(&openaiTransport.Config{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Provider: "openai",
		Logger:   logger,
	})
}

// healthCheckerOf returns v as a health checker, or nil when it has none.
// Typed nil pointers must not leak into the interface.
func healthCheckerOf(v any) healthuc.Checker {
	switch c := v.(type) {
	case nil:
		return nil
	case *openaiTransport.Generator:
		if c == nil {
			return nil
		}
		return c
	case healthuc.Checker:
		return c
	default:
		return nil
	}
}
