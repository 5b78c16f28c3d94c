package service

import (
	"context"
	"runtime"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"material-service/internal/matching/model"
)

// ниже этого числа кандидатов параллелить нет смысла
const parallelPairsFrom = 4096

// FindDuplicates - полный проход по каталогу: нормализация, блокировка,
// оценка кандидатов и сборка отчёта.
func FindDuplicates(records []model.CatalogRecord, opt model.DuplicateOptions) model.DuplicateReport {
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = Normalize(r.Description)
	}
	// без отмены ошибки быть не может
	rep, _ := findDuplicatesKeys(context.Background(), records, keys, opt)
	return rep
}

func findDuplicatesKeys(ctx context.Context, records []model.CatalogRecord, keys []string, opt model.DuplicateOptions) (model.DuplicateReport, error) {
	if len(records) < 2 {
		return model.NewDuplicateReport(), nil
	}
	cands := SortedNeighbourhood(keys, opt.Window)
	scored, err := ScorePairs(ctx, records, keys, cands, NewPairScorer(opt))
	if err != nil {
		return model.DuplicateReport{}, err
	}
	return Resolve(records, scored, opt.Threshold), nil
}

// через столько пар воркер проверяет отмену
const cancelCheckEvery = 1024

// ScorePairs оценивает кандидатов; результат выровнен по индексам cands.
// Отмена ctx прерывает проход и возвращает ctx.Err().
func ScorePairs(ctx context.Context, records []model.CatalogRecord, keys []string, cands []model.CandidatePair, ps PairScorer) ([]model.ScoredPair, error) {
	out := make([]model.ScoredPair, len(cands))
	score := func(ctx context.Context, from, to int) error {
		for k := from; k < to; k++ {
			if (k-from)%cancelCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			c := cands[k]
			out[k] = model.ScoredPair{
				CandidatePair: c,
				Score:         ps.scoreKeys(keys[c.I], keys[c.J], records[c.I].Unit, records[c.J].Unit),
			}
		}
		return nil
	}

	if len(cands) < parallelPairsFrom {
		if err := score(ctx, 0, len(cands)); err != nil {
			return nil, err
		}
		return out, nil
	}

	workers := runtime.NumCPU()
	chunk := (len(cands) + workers - 1) / workers
	g, gctx := errgroup.WithContext(ctx)
	for from := 0; from < len(cands); from += chunk {
		from, to := from, min(from+chunk, len(cands))
		g.Go(func() error { return score(gctx, from, to) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type pairKey struct{ c1, c2 string }

// Resolve фильтрует по порогу, выкидывает пары с одним кодом,
// схлопывает по каноническому ключу (min код, max код) и сортирует.
func Resolve(records []model.CatalogRecord, scored []model.ScoredPair, threshold float64) model.DuplicateReport {
	rep := model.NewDuplicateReport()

	best := make(map[pairKey]int)
	for _, sp := range scored {
		if sp.Score < threshold || sp.I == sp.J {
			continue
		}
		a, b := records[sp.I], records[sp.J]
		if a.Code == b.Code {
			continue
		}
		if compareCodes(b.Code, a.Code) < 0 {
			a, b = b, a
		}
		key := pairKey{a.Code, b.Code}
		row := model.DuplicateRow{
			Code1: a.Code, Description1: a.Description, Unit1: a.Unit,
			Code2: b.Code, Description2: b.Description, Unit2: b.Unit,
			Score: sp.Score,
		}
		if idx, ok := best[key]; ok {
			// один и тот же код может встречаться в нескольких строках - оставляем лучший балл
			if sp.Score > rep.Rows[idx].Score {
				rep.Rows[idx] = row
			}
			continue
		}
		best[key] = len(rep.Rows)
		rep.Rows = append(rep.Rows, row)
	}

	sort.SliceStable(rep.Rows, func(i, j int) bool {
		ri, rj := rep.Rows[i], rep.Rows[j]
		if ri.Score != rj.Score {
			return ri.Score > rj.Score
		}
		if c := compareCodes(ri.Code1, rj.Code1); c != 0 {
			return c < 0
		}
		return compareCodes(ri.Code2, rj.Code2) < 0
	})
	return rep
}

// compareCodes - полный порядок на кодах: числовые коды по значению и раньше
// нечисловых, нечисловые лексикографически.
func compareCodes(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
