package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"material-service/internal/utils"
)

var defaultUnits = []string{
	"PC", "PCS", "UN", "UND", "KG", "G", "M", "M2", "M3", "MM", "CM", "L", "ML",
	"CX", "PCT", "RL", "PAR", "JG", "GL", "TB", "SC", "FD", "LT", "KIT", "CJ", "TON",
}

// фразы-обращения в начале сообщения, не часть описания
var defaultLeadPhrases = []string{
	"preciso de", "preciso", "quero", "queria", "gostaria de", "busco", "buscar",
	"procuro", "procurar", "estou procurando", "tem", "voce tem", "voces tem",
	"me ve", "me veja", "por favor", "um", "uma", "uns", "umas", "o", "a", "os", "as", "de",
}

var defaultTailPhrases = []string{"por favor", "pf", "obrigado", "obrigada"}

var (
	rxFamily       = regexp.MustCompile(`(?i)\bfam[ií]lia\s*[:=]?\s*(\d+(?:[.,]\d+)?)`)
	rxUnitExplicit = regexp.MustCompile(`(?i)(?:\bum|\bu\.m\.|\bunidade(?:\s+de\s+medida)?)\s*[:=]\s*([\p{L}\d]+)`)
	rxUnitHint     = regexp.MustCompile(`(?i)\b(?:em|por|unidade)\s+([\p{L}\d]+)`)
)

const punct = " ,.;:!?-"

// RuleExtractor - детерминированный извлекатель на словаре единиц и фраз.
// Словари дополняются обучением на обратной связи (Train).
type RuleExtractor struct {
	Version     int       `json:"versao"`
	TrainedAt   time.Time `json:"treinado_em"`
	Units       []string  `json:"unidades"`
	LeadPhrases []string  `json:"frases_inicio"`
	TailPhrases []string  `json:"frases_fim"`

	units map[string]struct{}
	lead  [][]string
	tail  [][]string
}

// NewRuleExtractor строит извлекатель; units дополняют стандартный словарь
// (обычно это единицы из каталога).
func NewRuleExtractor(units ...string) *RuleExtractor {
	e := &RuleExtractor{
		Units:       mergeSorted(defaultUnits, upperAll(units)),
		LeadPhrases: mergeSorted(defaultLeadPhrases, nil),
		TailPhrases: mergeSorted(defaultTailPhrases, nil),
	}
	e.compile()
	return e
}

func (e *RuleExtractor) compile() {
	e.units = make(map[string]struct{}, len(e.Units))
	for _, u := range e.Units {
		e.units[strings.ToUpper(u)] = struct{}{}
	}
	e.lead = phraseWords(e.LeadPhrases)
	e.tail = phraseWords(e.TailPhrases)
}

// phraseWords - фразы как слова, длинные первыми.
func phraseWords(phrases []string) [][]string {
	out := make([][]string, 0, len(phrases))
	for _, p := range phrases {
		if w := strings.Fields(fold(p)); len(w) > 0 {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func (e *RuleExtractor) isUnit(s string) bool {
	_, ok := e.units[strings.ToUpper(s)]
	return ok
}

func (e *RuleExtractor) Extract(text string) Fields {
	f := Fields{}
	rest := text

	if m := rxFamily.FindStringSubmatchIndex(rest); m != nil {
		f[LabelFamily] = utils.CanonicalID(rest[m[2]:m[3]])
		rest = rest[:m[0]] + " " + rest[m[1]:]
	}

	if m := rxUnitExplicit.FindStringSubmatchIndex(rest); m != nil {
		f[LabelUnit] = strings.ToUpper(rest[m[2]:m[3]])
		rest = rest[:m[0]] + " " + rest[m[1]:]
	} else {
		for _, m := range rxUnitHint.FindAllStringSubmatchIndex(rest, -1) {
			if u := rest[m[2]:m[3]]; e.isUnit(u) {
				f[LabelUnit] = strings.ToUpper(u)
				rest = rest[:m[0]] + " " + rest[m[1]:]
				break
			}
		}
	}

	if desc := e.description(rest); desc != "" {
		f[LabelDescription] = desc
	}
	return f
}

// description - остаток текста без обращений и пунктуации.
func (e *RuleExtractor) description(s string) string {
	var words []string
	for _, w := range strings.Fields(s) {
		if strings.Trim(w, punct) != "" {
			words = append(words, w)
		}
	}

	for changed := true; changed && len(words) > 0; {
		changed = false
		for _, p := range e.lead {
			if hasPhrase(words, p, true) {
				words = words[len(p):]
				changed = true
				break
			}
		}
	}
	for changed := true; changed && len(words) > 0; {
		changed = false
		for _, p := range e.tail {
			if hasPhrase(words, p, false) {
				words = words[:len(words)-len(p)]
				changed = true
				break
			}
		}
	}
	return strings.Trim(strings.Join(words, " "), punct)
}

func hasPhrase(words, phrase []string, prefix bool) bool {
	if len(phrase) > len(words) {
		return false
	}
	off := 0
	if !prefix {
		off = len(words) - len(phrase)
	}
	for i, p := range phrase {
		if fold(strings.Trim(words[off+i], punct)) != p {
			return false
		}
	}
	return true
}

// Train возвращает новый извлекатель: единицы из примеров попадают в словарь,
// текст перед описанием - в фразы-обращения.
func (e *RuleExtractor) Train(examples []Example) *RuleExtractor {
	var units, lead []string
	for _, ex := range examples {
		rs := []rune(ex.Text)
		for _, sp := range ex.Entities {
			if sp.Start < 0 || sp.End > len(rs) || sp.Start >= sp.End {
				continue
			}
			switch sp.Label {
			case LabelUnit:
				units = append(units, strings.ToUpper(strings.TrimSpace(string(rs[sp.Start:sp.End]))))
			case LabelDescription:
				before := strings.Trim(string(rs[:sp.Start]), punct)
				if n := len(strings.Fields(before)); n > 0 && n <= 4 {
					lead = append(lead, fold(before))
				}
			}
		}
	}
	next := &RuleExtractor{
		Version:     e.Version + 1,
		TrainedAt:   time.Now().UTC(),
		Units:       mergeSorted(e.Units, units),
		LeadPhrases: mergeSorted(e.LeadPhrases, lead),
		TailPhrases: mergeSorted(e.TailPhrases, nil),
	}
	next.compile()
	return next
}

// Save пишет извлекатель в JSON атомарно (tmp + rename).
func (e *RuleExtractor) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadRuleExtractor читает извлекатель, сохранённый Save.
func LoadRuleExtractor(path string) (*RuleExtractor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var e RuleExtractor
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	e.Units = mergeSorted(e.Units, nil)
	e.LeadPhrases = mergeSorted(e.LeadPhrases, nil)
	e.TailPhrases = mergeSorted(e.TailPhrases, nil)
	e.compile()
	return &e, nil
}

// fold - нижний регистр без диакритики, для сравнения фраз.
func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToUpper(strings.TrimSpace(s)))
	}
	return out
}

// mergeSorted - объединение без пустых и повторов, отсортированное.
func mergeSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
