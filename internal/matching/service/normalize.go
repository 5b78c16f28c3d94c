package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NFKD + выкидываем combining marks: "Ação" → "Acao".
// Chain хранит буферы, поэтому на каждый вызов - свой.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
}

// Normalize - ключ для сравнения: без диакритики, в верхнем регистре.
// Пробелы не трогаем: ключ используется и для сортировки, и для метрики.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(stripMarks(), s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(out)
}

// NormalizeAll нормализует описания каталога по порядку строк.
func NormalizeAll(descriptions []string) []string {
	out := make([]string, len(descriptions))
	for i, d := range descriptions {
		out[i] = Normalize(d)
	}
	return out
}

// tokenSet - множество токенов, разделённых пробелами.
func tokenSet(s string) map[string]struct{} {
	f := strings.Fields(s)
	m := make(map[string]struct{}, len(f))
	for _, t := range f {
		m[t] = struct{}{}
	}
	return m
}
