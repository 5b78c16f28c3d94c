package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const DefaultBatch = 64

// GenerateOptions - параметры построения матрицы.
type GenerateOptions struct {
	Batch    int           // документов в одном запросе к модели
	Parallel int           // одновременных запросов
	Limiter  *rate.Limiter // nil - без ограничения
	Logger   zerolog.Logger
}

// Generate строит эмбеддинги для описаний в их исходном порядке и
// возвращает плоскую row-major матрицу rows×dim.
func Generate(ctx context.Context, emb Embedder, texts []string, opt GenerateOptions) (rows, dim int, data []float32, err error) {
	if len(texts) == 0 {
		return 0, 0, []float32{}, nil
	}
	batch := opt.Batch
	if batch <= 0 {
		batch = DefaultBatch
	}
	parallel := max(opt.Parallel, 1)

	start := time.Now()
	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for from := 0; from < len(texts); from += batch {
		from, to := from, min(from+batch, len(texts))
		g.Go(func() error {
			if opt.Limiter != nil {
				if err := opt.Limiter.Wait(gctx); err != nil {
					return err
				}
			}
			vs, err := emb.EmbedDocuments(gctx, texts[from:to])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", from, to, err)
			}
			if len(vs) != to-from {
				return fmt.Errorf("batch %d-%d: got %d vectors", from, to, len(vs))
			}
			copy(vectors[from:to], vs)
			opt.Logger.Debug().Int("from", from).Int("to", to).Msg("embeddings batch")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, nil, err
	}

	dim = len(vectors[0])
	data = make([]float32, 0, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return 0, 0, nil, fmt.Errorf("row %d: dimension %d, want %d", i, len(v), dim)
		}
		data = append(data, v...)
	}
	opt.Logger.Info().
		Int("rows", len(vectors)).
		Int("dim", dim).
		Dur("elapsed", time.Since(start)).
		Msg("embeddings generated")
	return len(vectors), dim, data, nil
}

// NewLimiter - rps запросов в секунду; rps <= 0 даёт nil (без ограничения).
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}
