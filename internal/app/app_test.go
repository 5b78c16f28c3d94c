package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"material-service/internal/config"
	"material-service/internal/matching/model"
	"material-service/internal/matching/service"
)

// fakeEmbedder: вектор задаётся первым словом текста.
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	switch strings.ToUpper(strings.Fields(text)[0]) {
	case "PARAFUSO":
		return []float32{1, 0, 0}, nil
	case "CABO":
		return []float32{0, 1, 0}, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.EmbedQuery(ctx, t)
	}
	return out, nil
}

func testConfig(t *testing.T, catalog string) config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "materiais.csv")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))
	return config.Config{
		CatalogPath:    path,
		EmbeddingsPath: filepath.Join(dir, "embeddings.npy"),
		Strategy:       model.StrategyLexical,
		TopN:           5,
		Duplicates:     model.DefaultDuplicateOptions(),
		MaxScans:       2,
		FeedbackFile:   filepath.Join(dir, "feedback.jsonl"),
		ExtractorFile:  filepath.Join(dir, "extractor.json"),
		RetrainPolicy:  "reject",
	}
}

const appCatalog = "CODIGO;DESCRICAO;UM;FAMILIA\n" +
	"1;PARAFUSO SEXTAVADO M8;PC;303\n" +
	"2;CABO FLEXIVEL 2,5MM;M;410\n" +
	"3;TINTA ACRILICA BRANCA;BD;77\n"

func TestNewWithoutEmbeddings(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, appCatalog), zerolog.Nop(), WithEncoder(fakeEmbedder{}))
	require.NoError(t, err)
	t.Cleanup(a.Retrain.Wait)

	snap := a.Engine.Snapshot()
	require.Len(t, snap.Records, 3)
	assert.Nil(t, snap.Semantic)
	assert.ErrorIs(t, snap.SemanticErr, service.ErrSemanticUnavailable)

	// единицы каталога попадают в словарь извлекателя
	assert.Equal(t, "BD", a.Extractor.Extract("tinta branca por bd")["UM"])
}

func TestGenerateEmbeddingsThenReload(t *testing.T) {
	cfg := testConfig(t, appCatalog)
	a, err := New(context.Background(), cfg, zerolog.Nop(), WithEncoder(fakeEmbedder{}))
	require.NoError(t, err)
	t.Cleanup(a.Retrain.Wait)

	rows, err := a.GenerateEmbeddings(context.Background(), cfg.EmbeddingsPath)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)

	snap := a.Reload()
	require.NotNil(t, snap.Semantic)
	assert.Same(t, snap, a.Engine.Snapshot())

	res, err := a.Engine.SearchWith(context.Background(), model.Query{Description: "cabo"}, model.StrategySemantic, model.SearchOptions{TopN: 1})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "2", res[0].Code)
}

func TestSemanticStrategyRejectsMisalignedMatrix(t *testing.T) {
	cfg := testConfig(t, appCatalog)
	require.NoError(t, service.SaveMatrix(cfg.EmbeddingsPath, 2, 3, []float32{1, 0, 0, 0, 1, 0}))

	cfg.Strategy = model.StrategySemantic
	_, err := New(context.Background(), cfg, zerolog.Nop(), WithEncoder(fakeEmbedder{}))
	assert.ErrorIs(t, err, service.ErrEmbeddingsMisaligned)

	// лексическая стратегия стартует, семантика помечена недоступной
	cfg.Strategy = model.StrategyLexical
	a, err := New(context.Background(), cfg, zerolog.Nop(), WithEncoder(fakeEmbedder{}))
	require.NoError(t, err)
	t.Cleanup(a.Retrain.Wait)
	assert.ErrorIs(t, a.Engine.Snapshot().SemanticErr, service.ErrEmbeddingsMisaligned)
}

func TestMissingCatalogStartsEmpty(t *testing.T) {
	cfg := testConfig(t, appCatalog)
	cfg.CatalogPath = filepath.Join(t.TempDir(), "absent.csv")
	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(a.Retrain.Wait)
	assert.Empty(t, a.Engine.Snapshot().Records)
	assert.Nil(t, a.Encoder())
}

func TestGenerateEmbeddingsWithoutEncoder(t *testing.T) {
	cfg := testConfig(t, appCatalog)
	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	_, err = a.GenerateEmbeddings(context.Background(), cfg.EmbeddingsPath)
	assert.ErrorIs(t, err, service.ErrSemanticUnavailable)
}
