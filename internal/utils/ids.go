package utils

import (
	"regexp"
	"strings"
)

// "303.0", "303,00" → "303"
var rxIntegralFloat = regexp.MustCompile(`^(-?\d+)[.,]0+$`)

var spaceRepl = strings.NewReplacer("\u00a0", " ", "\u202f", " ")

// CanonicalID приводит код или семейство из таблицы к строке: Excel и pandas
// любят отдавать "303.0" вместо "303". Остальное только обрезается, ведущие нули сохраняются.
func CanonicalID(s string) string {
	s = strings.TrimSpace(spaceRepl.Replace(s))
	if m := rxIntegralFloat.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
