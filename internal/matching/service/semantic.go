package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"material-service/internal/matching/model"
)

var (
	// ErrSemanticUnavailable - модель или матрица эмбеддингов не загружены.
	ErrSemanticUnavailable = errors.New("semantic search unavailable")
	// ErrEmbeddingsMisaligned - число строк матрицы не совпадает с каталогом.
	ErrEmbeddingsMisaligned = errors.New("embeddings misaligned with catalog")
)

// Бонусы семантического поиска в шкале косинуса.
const (
	SemanticUnitBonus   = 0.2
	SemanticFamilyBonus = 0.2
)

// QueryEncoder кодирует текст запроса той же моделью, что строила матрицу.
type QueryEncoder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Semantic struct {
	records []model.CatalogRecord
	matrix  *Matrix
	enc     QueryEncoder
}

func NewSemantic(records []model.CatalogRecord, m *Matrix, enc QueryEncoder) (*Semantic, error) {
	if m == nil || enc == nil {
		return nil, ErrSemanticUnavailable
	}
	if m.Rows() != len(records) {
		return nil, fmt.Errorf("%w: matrix has %d rows, catalog has %d", ErrEmbeddingsMisaligned, m.Rows(), len(records))
	}
	return &Semantic{records: records, matrix: m, enc: enc}, nil
}

// Search ранжирует каталог по косинусу с бонусами за UM и семейство.
func (s *Semantic) Search(ctx context.Context, q model.Query, opt model.SearchOptions) ([]model.QueryResult, error) {
	if s == nil {
		return nil, ErrSemanticUnavailable
	}
	if len(s.records) == 0 {
		return []model.QueryResult{}, nil
	}

	vec, err := s.enc.EmbedQuery(ctx, q.Description)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	sims, err := s.matrix.Cosine(vec)
	if err != nil {
		return nil, err
	}

	top := topN(opt)
	order := make([]int, len(sims))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return sims[order[a]] > sims[order[b]] })
	if len(order) > 2*top {
		order = order[:2*top]
	}

	type scored struct {
		idx   int
		raw   float64
		score float64
	}
	seen := make(map[string]struct{}, len(order))
	cands := make([]scored, 0, len(order))
	for _, i := range order {
		r := s.records[i]
		if _, dup := seen[r.Code]; dup {
			continue
		}
		seen[r.Code] = struct{}{}

		fused := sims[i]
		if q.Unit != "" && r.Unit == q.Unit {
			fused += SemanticUnitBonus
		}
		if q.Family != "" && r.Family == q.Family {
			fused += SemanticFamilyBonus
		}
		fused = min(fused, 1.0) * 100
		if opt.MinScore > 0 && fused < opt.MinScore {
			continue
		}
		cands = append(cands, scored{i, sims[i], fused})
	}

	sort.SliceStable(cands, func(a, b int) bool {
		if cands[a].score != cands[b].score {
			return cands[a].score > cands[b].score
		}
		// после потолка 100 выше тот, чей косинус больше
		if cands[a].raw != cands[b].raw {
			return cands[a].raw > cands[b].raw
		}
		return cands[a].idx < cands[b].idx
	})
	if len(cands) > top {
		cands = cands[:top]
	}
	out := make([]model.QueryResult, 0, len(cands))
	for _, c := range cands {
		out = append(out, toResult(s.records[c.idx], c.score))
	}
	return out, nil
}
