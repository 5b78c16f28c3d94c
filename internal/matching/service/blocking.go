package service

import (
	"sort"

	"material-service/internal/matching/model"
)

// SortedNeighbourhood - блокировка по отсортированным ключам.
// Строки сортируются по ключу (при равенстве - по исходной позиции), затем окно из
// window соседних строк скользит по порядку; каждая пара внутри окна - кандидат.
// Пары, чьи ключи далеко друг от друга в сортировке, не сравниваются никогда.
func SortedNeighbourhood(keys []string, window int) []model.CandidatePair {
	n := len(keys)
	if n < 2 {
		return []model.CandidatePair{}
	}
	if window < 1 {
		window = 1
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return keys[order[a]] < keys[order[b]]
	})

	// позиции p<q попадают в одно окно тогда и только тогда, когда q-p < window,
	// поэтому каждая пара порождается ровно один раз
	out := make([]model.CandidatePair, 0, n*(window-1))
	for p := 0; p < n; p++ {
		for q := p + 1; q < n && q-p < window; q++ {
			i, j := order[p], order[q]
			if i > j {
				i, j = j, i
			}
			out = append(out, model.CandidatePair{I: i, J: j})
		}
	}
	return out
}
