package fileio

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"

	"material-service/internal/matching/model"
)

func TestNormHeaderKey(t *testing.T) {
	assert.Equal(t, "descricao do material", normHeaderKey("  Descrição do Material "))
	assert.Equal(t, "cod familia", normHeaderKey("COD_FAMÍLIA"))
}

func TestResolveCatalogColumns(t *testing.T) {
	cols := resolveCatalogColumns([]string{"Código", "Descrição do item", "U.M.", "Família"})
	assert.Equal(t, "Código", cols.code)
	assert.Equal(t, "Descrição do item", cols.desc)
	assert.Equal(t, "U.M.", cols.unit)
	assert.Equal(t, "Família", cols.family)
}

func TestReadCatalogCSV(t *testing.T) {
	data := "CODIGO;DESCRICAO;UM;FAMILIA\n" +
		"1;PARAFUSO M8;pc ;303.0\n" +
		";sem codigo;PC;1\n" +
		"2.0;ARRUELA;;\n"
	recs, err := ReadCatalog(strings.NewReader(data), "materiais.csv")
	require.NoError(t, err)
	assert.Equal(t, []model.CatalogRecord{
		{Code: "1", Description: "PARAFUSO M8", Unit: "PC", Family: "303"},
		{Code: "2", Description: "ARRUELA"},
	}, recs)
}

func TestReadCatalogMissingColumns(t *testing.T) {
	_, err := ReadCatalog(strings.NewReader("A;B\n1;2\n"), "x.csv")
	assert.ErrorIs(t, err, ErrNoColumns)

	_, err = ReadCatalog(strings.NewReader(""), "x.pdf")
	assert.Error(t, err)
}

func TestReadCatalogEmpty(t *testing.T) {
	recs, err := ReadCatalog(strings.NewReader(""), "x.csv")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestLoadCatalogXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"CODIGO", "DESCRICAO", "UM", "FAMILIA"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{101, "Luva PVC 25mm", "PC", 12}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{102, "Cabo flexível", "M", ""}))
	path := filepath.Join(t.TempDir(), "materiais.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	recs, err := LoadCatalog(path, "")
	require.NoError(t, err)
	assert.Equal(t, []model.CatalogRecord{
		{Code: "101", Description: "Luva PVC 25mm", Unit: "PC", Family: "12"},
		{Code: "102", Description: "Cabo flexível", Unit: "M"},
	}, recs)
}

func TestLoadCatalogSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogo.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE materiais (CODIGO INTEGER, DESCRICAO TEXT, UM TEXT, FAMILIA REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO materiais VALUES (1, 'PARAFUSO M8', 'PC', 303.0), (2, 'ARRUELA', NULL, NULL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	recs, err := LoadCatalog(path, "materiais")
	require.NoError(t, err)
	assert.Equal(t, []model.CatalogRecord{
		{Code: "1", Description: "PARAFUSO M8", Unit: "PC", Family: "303"},
		{Code: "2", Description: "ARRUELA"},
	}, recs)

	_, err = LoadCatalog(path, "materiais; DROP TABLE x")
	assert.Error(t, err)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.csv"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteDuplicates(t *testing.T) {
	rep := model.NewDuplicateReport()
	rep.Rows = append(rep.Rows, model.DuplicateRow{
		Code1: "A1", Description1: "PARAFUSO M8", Unit1: "PC",
		Code2: "A2", Description2: "PARAFUSO M8 ", Unit2: "PC",
		Score: 1.0333,
	})

	var csvBuf bytes.Buffer
	require.NoError(t, WriteDuplicates(&csvBuf, "out.csv", rep))
	assert.Equal(t,
		"CODIGO_1;DESCRICAO_1;UM_1;CODIGO_2;DESCRICAO_2;UM_2;SCORE\nA1;PARAFUSO M8;PC;A2;PARAFUSO M8 ;PC;1.0333\n",
		csvBuf.String())

	var xlsxBuf bytes.Buffer
	require.NoError(t, WriteDuplicates(&xlsxBuf, "out.xlsx", rep))
	f, err := excelize.OpenReader(&xlsxBuf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(duplicatesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.DuplicateColumns, rows[0])
	assert.Equal(t, "A2", rows[1][3])

	assert.Error(t, WriteDuplicates(&bytes.Buffer{}, "out.pdf", rep))
}

func TestWriteDuplicatesEmptyKeepsHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDuplicatesCSV(&buf, model.NewDuplicateReport()))
	assert.Equal(t, "CODIGO_1;DESCRICAO_1;UM_1;CODIGO_2;DESCRICAO_2;UM_2;SCORE\n", buf.String())
}
