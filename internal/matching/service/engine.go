package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"material-service/internal/matching/model"
)

// ErrUnknownStrategy - стратегия поиска не поддерживается.
var ErrUnknownStrategy = errors.New("unknown search strategy")

type EngineConfig struct {
	Strategy   model.Strategy
	Search     model.SearchOptions
	Duplicates model.DuplicateOptions
	MaxScans   int64 // одновременных полных проходов
}

// Engine - точка входа для транспорта: держит текущий срез каталога,
// выбранную стратегию поиска и ограничивает число полных проходов.
type Engine struct {
	store  *Store
	scans  *semaphore.Weighted
	cfg    EngineConfig
	logger zerolog.Logger
}

func NewEngine(store *Store, cfg EngineConfig, logger zerolog.Logger) *Engine {
	if cfg.MaxScans < 1 {
		cfg.MaxScans = 1
	}
	if cfg.Strategy == "" {
		cfg.Strategy = model.StrategyLexical
	}
	return &Engine{
		store:  store,
		scans:  semaphore.NewWeighted(cfg.MaxScans),
		cfg:    cfg,
		logger: logger,
	}
}

func (e *Engine) Config() EngineConfig { return e.cfg }
func (e *Engine) Snapshot() *Snapshot { return e.store.Load() }
func (e *Engine) Swap(s *Snapshot) *Snapshot { return e.store.Swap(s) }

// Search - поиск настроенной стратегией с опциями по умолчанию.
func (e *Engine) Search(ctx context.Context, q model.Query) ([]model.QueryResult, error) {
	return e.SearchWith(ctx, q, e.cfg.Strategy, e.cfg.Search)
}

// SearchWith - поиск явно заданной стратегией. Семантика без индекса
// возвращает ErrSemanticUnavailable, в лексический поиск не откатываемся.
func (e *Engine) SearchWith(ctx context.Context, q model.Query, strategy model.Strategy, opt model.SearchOptions) ([]model.QueryResult, error) {
	if err := e.scans.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.scans.Release(1)

	snap := e.store.Load()
	switch strategy {
	case model.StrategyLexical, "":
		return searchLexicalKeys(q, snap.Records, snap.Keys, opt), nil
	case model.StrategySemantic:
		if snap.Semantic == nil {
			if snap.SemanticErr != nil {
				return nil, snap.SemanticErr
			}
			return nil, ErrSemanticUnavailable
		}
		return snap.Semantic.Search(ctx, q, opt)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownStrategy, strategy)
	}
}

// Duplicates - полный поиск дублей по текущему срезу.
func (e *Engine) Duplicates(ctx context.Context, opt model.DuplicateOptions) (model.DuplicateReport, error) {
	if err := e.scans.Acquire(ctx, 1); err != nil {
		return model.DuplicateReport{}, err
	}
	defer e.scans.Release(1)

	start := time.Now()
	snap := e.store.Load()
	rep, err := findDuplicatesKeys(ctx, snap.Records, snap.Keys, opt)
	if err != nil {
		return model.DuplicateReport{}, err
	}
	e.logger.Info().
		Int("records", len(snap.Records)).
		Int("pairs", len(rep.Rows)).
		Float64("threshold", opt.Threshold).
		Int("window", opt.Window).
		Dur("elapsed", time.Since(start)).
		Msg("duplicates done")
	return rep, nil
}
