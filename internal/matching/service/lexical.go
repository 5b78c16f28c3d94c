package service

import (
	"sort"

	"material-service/internal/matching/model"
)

// Бонусы лексического поиска (в пунктах шкалы 0..100).
const (
	SharedTokenBonus = 15.0
	FamilyBonus      = 30.0
	UnitBonus        = 20.0

	DefaultTopN = 5
)

// SearchLexical - полный проход по каталогу для одного запроса.
func SearchLexical(q model.Query, records []model.CatalogRecord, opt model.SearchOptions) []model.QueryResult {
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = Normalize(r.Description)
	}
	return searchLexicalKeys(q, records, keys, opt)
}

func lexicalScore(qKey, key string, q model.Query, r model.CatalogRecord) float64 {
	ratio, shared := tokenSetRatio(qKey, key)
	s := ratio + SharedTokenBonus*float64(shared)
	if q.Family != "" && r.Family == q.Family {
		s += FamilyBonus
	}
	if q.Unit != "" && r.Unit == q.Unit {
		s += UnitBonus
	}
	return s
}

func searchLexicalKeys(q model.Query, records []model.CatalogRecord, keys []string, opt model.SearchOptions) []model.QueryResult {
	if len(records) == 0 {
		return []model.QueryResult{}
	}
	qKey := Normalize(q.Description)

	type scored struct {
		idx   int
		score float64
	}
	all := make([]scored, 0, len(records))
	for i, r := range records {
		s := lexicalScore(qKey, keys[i], q, r)
		if opt.MinScore > 0 && s < opt.MinScore {
			continue
		}
		all = append(all, scored{i, s})
	}
	// all идёт в порядке каталога, стабильная сортировка сохраняет его при равенстве
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	top := topN(opt)
	if len(all) > top {
		all = all[:top]
	}
	out := make([]model.QueryResult, 0, len(all))
	for _, s := range all {
		out = append(out, toResult(records[s.idx], s.score))
	}
	return out
}

func topN(opt model.SearchOptions) int {
	if opt.TopN <= 0 {
		return DefaultTopN
	}
	return opt.TopN
}

func toResult(r model.CatalogRecord, score float64) model.QueryResult {
	return model.QueryResult{
		Code:        r.Code,
		Description: r.Description,
		Unit:        r.Unit,
		Family:      r.Family,
		Score:       score,
	}
}
