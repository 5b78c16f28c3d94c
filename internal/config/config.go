package config

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"material-service/internal/matching/model"
)

type Config struct {
	Host         string
	Port         int
	AllowOrigins []string
	LogLevel     string
	MaxUploadMB  int
	LogFile      string
	APIKey       string

	// каталог и эмбеддинги
	CatalogPath    string
	CatalogTable   string
	EmbeddingsPath string
	EmbeddingModel string
	OllamaHost     string
	EmbedRPS       float64

	// поиск
	Strategy model.Strategy
	TopN     int
	MinScore float64

	// дубли
	Duplicates model.DuplicateOptions
	MaxScans   int64

	// извлечение полей и переобучение
	FeedbackFile  string
	ExtractorFile string
	RetrainPolicy string
}

func Load() Config {
	dup := model.DefaultDuplicateOptions()
	dup.Threshold = toFloat(getenv("DUP_THRESHOLD", ""), dup.Threshold)
	dup.UnitBonus = toFloat(getenv("DUP_UNIT_BONUS", ""), dup.UnitBonus)
	dup.Window = atoi(getenv("DUP_WINDOW", ""), dup.Window)
	dup.EmptyUnitMatches = toBool(getenv("EMPTY_UNIT_MATCH", ""), false)
	if m := model.Metric(strings.ToLower(getenv("DUP_METRIC", ""))); m == model.MetricDamerau {
		dup.Metric = m
	}

	strategy := model.StrategyLexical
	if strings.EqualFold(getenv("SEARCH_STRATEGY", ""), string(model.StrategySemantic)) {
		strategy = model.StrategySemantic
	}

	policy := strings.ToLower(getenv("RETRAIN_POLICY", "reject"))
	if policy != "queue" {
		policy = "reject"
	}

	return Config{
		Host:         getenv("HOST", "127.0.0.1"),
		Port:         atoi(getenv("PORT", ""), 8082),
		AllowOrigins: splitList(getenv("ALLOW_ORIGINS", "*")),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		MaxUploadMB:  atoi(getenv("MAX_UPLOAD_MB", ""), 256),
		LogFile:      getenv("LOG_FILE", "logs/material-service.log"),
		APIKey:       os.Getenv("API_KEY"),

		CatalogPath:    getenv("CATALOG_PATH", "materiais.csv"),
		CatalogTable:   getenv("CATALOG_TABLE", "materiais"),
		EmbeddingsPath: getenv("EMBEDDINGS_PATH", "embeddings.npy"),
		EmbeddingModel: getenv("EMBEDDING_MODEL", "all-minilm:l6-v2"),
		OllamaHost:     getenv("OLLAMA_HOST", "http://localhost:11434"),
		EmbedRPS:       toFloat(getenv("EMBED_RPS", ""), 20),

		Strategy: strategy,
		TopN:     atoi(getenv("TOP_N", ""), 5),
		MinScore: toFloat(getenv("MIN_SCORE", ""), 0),

		Duplicates: dup,
		MaxScans:   int64(atoi(getenv("MAX_SCANS", ""), runtime.NumCPU())),

		FeedbackFile:  getenv("FEEDBACK_FILE", "data/feedback.jsonl"),
		ExtractorFile: getenv("EXTRACTOR_FILE", "data/extractor.json"),
		RetrainPolicy: policy,
	}
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// SearchOptions - опции поиска по умолчанию.
func (c Config) SearchOptions() model.SearchOptions {
	return model.SearchOptions{TopN: c.TopN, MinScore: c.MinScore}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return i
}

func toBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func toFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}
