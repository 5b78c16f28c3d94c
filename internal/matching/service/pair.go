package service

import "material-service/internal/matching/model"

// PairScorer считает итоговый балл пары: схожесть описаний + бонус за UM.
// Балл не ограничивается сверху: 0.98 + 0.05 = 1.03.
type PairScorer struct {
	similarity       func(a, b string) float64
	unitBonus        float64
	emptyUnitMatches bool
}

func NewPairScorer(opt model.DuplicateOptions) PairScorer {
	sim := jaroWinkler
	if opt.Metric == model.MetricDamerau {
		sim = damerauSimilarity
	}
	return PairScorer{
		similarity:       sim,
		unitBonus:        opt.UnitBonus,
		emptyUnitMatches: opt.EmptyUnitMatches,
	}
}

// Score нормализует описания и считает балл пары записей.
func (p PairScorer) Score(a, b model.CatalogRecord) float64 {
	return p.scoreKeys(Normalize(a.Description), Normalize(b.Description), a.Unit, b.Unit)
}

// Similarity - только строковая часть, без бонуса.
func (p PairScorer) Similarity(keyA, keyB string) float64 {
	return p.similarity(keyA, keyB)
}

// UnitsMatch - точное равенство UM; две пустые UM совпадают только по опции.
func (p PairScorer) UnitsMatch(a, b string) bool {
	if a != b {
		return false
	}
	return a != "" || p.emptyUnitMatches
}

func (p PairScorer) scoreKeys(keyA, keyB, unitA, unitB string) float64 {
	s := p.similarity(keyA, keyB)
	if p.UnitsMatch(unitA, unitB) {
		s += p.unitBonus
	}
	return s
}
