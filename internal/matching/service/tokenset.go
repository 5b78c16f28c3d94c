package service

import (
	"sort"
	"strings"
)

// indelRatio - 100 * (1 - indel/(len1+len2)), где indel считается через LCS по рунам.
func indelRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	lcs := lcsLen(ra, rb)
	dist := total - 2*lcs
	return (1 - float64(dist)/float64(total)) * 100
}

func lcsLen(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func sortedTokens(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// tokenSetRatio - схожесть множеств токенов в [0..100], не зависит
// от порядка и повторов слов. Возвращает также число общих токенов.
func tokenSetRatio(a, b string) (float64, int) {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0, 0
	}

	inter := make(map[string]struct{})
	onlyA := make(map[string]struct{})
	onlyB := make(map[string]struct{})
	for t := range ta {
		if _, ok := tb[t]; ok {
			inter[t] = struct{}{}
		} else {
			onlyA[t] = struct{}{}
		}
	}
	for t := range tb {
		if _, ok := ta[t]; !ok {
			onlyB[t] = struct{}{}
		}
	}
	shared := len(inter)

	// одно множество целиком внутри другого
	if shared > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100, shared
	}

	sect := strings.Join(sortedTokens(inter), " ")
	diffA := strings.Join(sortedTokens(onlyA), " ")
	diffB := strings.Join(sortedTokens(onlyB), " ")

	sectA, sectB := diffA, diffB
	if sect != "" {
		sectA = sect + " " + diffA
		sectB = sect + " " + diffB
	}

	best := indelRatio(sectA, sectB)
	if sect != "" {
		best = max(best, indelRatio(sect, sectA), indelRatio(sect, sectB))
	}
	return best, shared
}
