// Package app собирает сервис из конфигурации: каталог, эмбеддинги,
// поисковый движок, извлекатель полей и обучение на обратной связи.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"material-service/internal/config"
	"material-service/internal/embedding"
	"material-service/internal/extract"
	"material-service/internal/fileio"
	"material-service/internal/matching/model"
	"material-service/internal/matching/service"
	"material-service/internal/retrain"
)

type App struct {
	Cfg       config.Config
	Logger    zerolog.Logger
	Engine    *service.Engine
	Extractor *extract.Manager
	Feedback  *retrain.FeedbackStore
	Retrain   *retrain.Coordinator

	encoder embedding.Embedder
}

type Option func(*App)

// WithEncoder подменяет модель эмбеддингов (по умолчанию ollama из конфига).
func WithEncoder(e embedding.Embedder) Option {
	return func(a *App) { a.encoder = e }
}

// New загружает каталог и собирает сервис. Недоступный каталог не фатален:
// сервис стартует с пустым срезом. Фатально только рассогласование матрицы
// эмбеддингов с каталогом при семантической стратегии.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	a := &App{Cfg: cfg, Logger: logger}
	for _, o := range opts {
		o(a)
	}
	if a.encoder == nil && cfg.EmbeddingModel != "" {
		enc, err := embedding.NewOllama(cfg.EmbeddingModel, cfg.OllamaHost, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("embedding model unavailable")
		} else {
			a.encoder = enc
		}
	}

	snap := a.LoadSnapshot()
	if cfg.Strategy == model.StrategySemantic && errors.Is(snap.SemanticErr, service.ErrEmbeddingsMisaligned) {
		return nil, snap.SemanticErr
	}

	a.Engine = service.NewEngine(service.NewStore(snap), service.EngineConfig{
		Strategy:   cfg.Strategy,
		Search:     cfg.SearchOptions(),
		Duplicates: cfg.Duplicates,
		MaxScans:   cfg.MaxScans,
	}, logger)

	a.Extractor = extract.NewManager(a.loadExtractor(snap.Records))
	a.Feedback = retrain.NewFeedbackStore(cfg.FeedbackFile)
	job := retrain.NewJob(a.Feedback, a.Extractor, cfg.ExtractorFile, logger)
	a.Retrain = retrain.NewCoordinator(ctx, retrain.Policy(cfg.RetrainPolicy), job.Run, logger)
	return a, nil
}

// Encoder - модель эмбеддингов сервиса, nil если не настроена.
func (a *App) Encoder() embedding.Embedder { return a.encoder }

// LoadSnapshot читает каталог и матрицу эмбеддингов с диска и строит срез.
func (a *App) LoadSnapshot() *service.Snapshot {
	start := time.Now()
	log := a.Logger.With().Str("catalog", a.Cfg.CatalogPath).Logger()

	records, err := fileio.LoadCatalog(a.Cfg.CatalogPath, a.Cfg.CatalogTable)
	if err != nil {
		log.Error().Err(err).Msg("catalog load failed")
		records = []model.CatalogRecord{}
	}

	var matrix *service.Matrix
	if a.Cfg.EmbeddingsPath != "" {
		matrix, err = service.LoadMatrix(a.Cfg.EmbeddingsPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Info().Str("embeddings", a.Cfg.EmbeddingsPath).Msg("no embeddings file")
		case err != nil:
			log.Error().Err(err).Msg("embeddings load failed")
		}
	}

	var enc service.QueryEncoder
	if a.encoder != nil {
		enc = a.encoder
	}
	snap := service.NewSnapshot(a.Cfg.CatalogPath, records, matrix, enc)
	ev := log.Info()
	if snap.SemanticErr != nil {
		ev = ev.AnErr("semantic", snap.SemanticErr)
	}
	ev.Int("records", len(records)).Dur("elapsed", time.Since(start)).Msg("catalog loaded")
	return snap
}

// Reload перечитывает каталог и публикует новый срез. Запросы, начатые
// до публикации, дорабатывают на старом.
func (a *App) Reload() *service.Snapshot {
	snap := a.LoadSnapshot()
	a.Engine.Swap(snap)
	return snap
}

func (a *App) loadExtractor(records []model.CatalogRecord) *extract.RuleExtractor {
	if a.Cfg.ExtractorFile != "" {
		e, err := extract.LoadRuleExtractor(a.Cfg.ExtractorFile)
		if err == nil {
			a.Logger.Info().Int("version", e.Version).Msg("extractor loaded")
			return e
		}
		if !errors.Is(err, os.ErrNotExist) {
			a.Logger.Warn().Err(err).Msg("extractor load failed, using defaults")
		}
	}
	units := make([]string, 0, len(records))
	for _, r := range records {
		units = append(units, r.Unit)
	}
	return extract.NewRuleExtractor(units...)
}

// GenerateEmbeddings строит матрицу для текущего каталога и пишет её в .npy.
func (a *App) GenerateEmbeddings(ctx context.Context, out string) (int, error) {
	if a.encoder == nil {
		return 0, service.ErrSemanticUnavailable
	}
	snap := a.Engine.Snapshot()
	texts := make([]string, len(snap.Records))
	for i, r := range snap.Records {
		texts[i] = r.Description
	}
	rows, dim, data, err := embedding.Generate(ctx, a.encoder, texts, embedding.GenerateOptions{
		Parallel: 2,
		Limiter:  embedding.NewLimiter(a.Cfg.EmbedRPS),
		Logger:   a.Logger,
	})
	if err != nil {
		return 0, fmt.Errorf("generate embeddings: %w", err)
	}
	if err := service.SaveMatrix(out, rows, dim, data); err != nil {
		return 0, fmt.Errorf("save %s: %w", out, err)
	}
	return rows, nil
}
