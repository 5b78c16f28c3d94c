package fileio

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var rxNonWord = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// normHeaderKey - имя колонки без регистра, диакритики и служебных символов:
// "Descrição do Material" → "descricao do material".
func normHeaderKey(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	s = strings.ToLower(strings.TrimSpace(s))
	s = rxNonWord.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Варианты заголовков для колонок справочника.
var (
	codeHeaders   = []string{"codigo", "cod", "codigo material", "cod material", "code"}
	descHeaders   = []string{"descricao", "descricao material", "desc", "material", "description"}
	unitHeaders   = []string{"um", "u m", "unidade", "unidade medida", "unidade de medida", "unit"}
	familyHeaders = []string{"familia", "cod familia", "codigo familia", "family"}
)

// resolveKey ищет реальный ключ записи по списку вариантов:
// сначала точное совпадение после нормализации, затем вхождение.
func resolveKey(headers []string, want []string) string {
	norms := make([]string, len(headers))
	for i, h := range headers {
		norms[i] = normHeaderKey(h)
	}
	for _, w := range want {
		for i, n := range norms {
			if n == w {
				return headers[i]
			}
		}
	}
	// частичное: "descricao do item" содержит "descricao"
	bestKey, bestLen := "", 0
	for i, n := range norms {
		for _, w := range want {
			if len(w) > 2 && strings.Contains(n, w) && len(w) > bestLen {
				bestKey, bestLen = headers[i], len(w)
			}
		}
	}
	return bestKey
}

type catalogColumns struct {
	code, desc, unit, family string
}

func resolveCatalogColumns(headers []string) catalogColumns {
	return catalogColumns{
		code:   resolveKey(headers, codeHeaders),
		desc:   resolveKey(headers, descHeaders),
		unit:   resolveKey(headers, unitHeaders),
		family: resolveKey(headers, familyHeaders),
	}
}
