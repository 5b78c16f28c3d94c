package model

// CatalogRecord - одна строка справочника материалов.
type CatalogRecord struct {
	Code        string `json:"CODIGO"`    // уникальный код материала
	Description string `json:"DESCRICAO"` // наименование, как в источнике
	Unit        string `json:"UM"`        // единица измерения, может быть пустой
	Family      string `json:"FAMILIA"`   // код семейства, "" если не задан
}

// CandidatePair - неупорядоченная пара позиций в каталоге (I < J).
type CandidatePair struct {
	I, J int
}

// ScoredPair - кандидат с итоговым баллом.
type ScoredPair struct {
	CandidatePair
	Score float64
}

// Metric выбирает строковую метрику для сравнения пар.
type Metric string

const (
	MetricJaroWinkler Metric = "jarowinkler"
	MetricDamerau     Metric = "damerau"
)

type DuplicateOptions struct {
	Threshold        float64 // порог итогового балла (может быть >= 1)
	UnitBonus        float64 // бонус за совпадение UM
	Window           int     // окно sorted-neighbourhood, нечётное >= 1
	EmptyUnitMatches bool    // считать ли пустые UM совпадением
	Metric           Metric
}

// DefaultDuplicateOptions - значения по умолчанию для поиска дублей.
func DefaultDuplicateOptions() DuplicateOptions {
	return DuplicateOptions{
		Threshold: 0.95,
		UnitBonus: 0.05,
		Window:    9,
		Metric:    MetricJaroWinkler,
	}
}

// DuplicateColumns - порядок колонок отчёта о дублях.
var DuplicateColumns = []string{"CODIGO_1", "DESCRICAO_1", "UM_1", "CODIGO_2", "DESCRICAO_2", "UM_2", "SCORE"}

type DuplicateRow struct {
	Code1        string  `json:"CODIGO_1"`
	Description1 string  `json:"DESCRICAO_1"`
	Unit1        string  `json:"UM_1"`
	Code2        string  `json:"CODIGO_2"`
	Description2 string  `json:"DESCRICAO_2"`
	Unit2        string  `json:"UM_2"`
	Score        float64 `json:"SCORE"`
}

// Values возвращает значения строки в порядке DuplicateColumns.
func (r DuplicateRow) Values() []any {
	return []any{r.Code1, r.Description1, r.Unit1, r.Code2, r.Description2, r.Unit2, r.Score}
}

// DuplicateReport всегда несёт колонки, даже если строк нет.
type DuplicateReport struct {
	Columns []string       `json:"colunas"`
	Rows    []DuplicateRow `json:"pares"`
}

// NewDuplicateReport возвращает пустой отчёт с заполненными колонками.
func NewDuplicateReport() DuplicateReport {
	cols := make([]string, len(DuplicateColumns))
	copy(cols, DuplicateColumns)
	return DuplicateReport{Columns: cols, Rows: []DuplicateRow{}}
}

// Query - структурированный запрос на поиск похожих материалов.
type Query struct {
	Description string `json:"descricao"`
	Unit        string `json:"um,omitempty"`
	Family      string `json:"familia,omitempty"`
}

type SearchOptions struct {
	TopN     int     // сколько строк вернуть, по умолчанию 5
	MinScore float64 // 0 - без фильтра
}

// ResultColumns - порядок колонок результата поиска.
var ResultColumns = []string{"CODIGO", "DESCRICAO", "UM", "FAMILIA", "SCORE"}

type QueryResult struct {
	Code        string  `json:"CODIGO"`
	Description string  `json:"DESCRICAO"`
	Unit        string  `json:"UM"`
	Family      string  `json:"FAMILIA"`
	Score       float64 `json:"SCORE"`
}

// Strategy - способ поиска по одному запросу.
type Strategy string

const (
	StrategyLexical  Strategy = "lexical"
	StrategySemantic Strategy = "semantic"
)
