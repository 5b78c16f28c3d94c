package fileio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"material-service/internal/matching/model"
	"material-service/internal/utils"
)

// ErrNoColumns - в файле нет колонок кода или описания.
var ErrNoColumns = errors.New("catalog: CODIGO/DESCRICAO columns not found")

// LoadCatalog читает справочник с диска; формат по расширению.
// Для .db/.sqlite читается таблица table.
func LoadCatalog(path, table string) ([]model.CatalogRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return readSQLiteCatalog(path, table)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCatalog(f, filepath.Base(path))
}

// ReadCatalog читает справочник из потока (загрузка через HTTP).
func ReadCatalog(r io.Reader, filename string) ([]model.CatalogRecord, error) {
	maps, err := ReadAnyMaps(r, filename, 1)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return ToRecords(maps)
}

// ToRecords переводит строки таблицы в записи каталога в исходном порядке.
// Строки без кода пропускаются.
func ToRecords(maps []map[string]string) ([]model.CatalogRecord, error) {
	if len(maps) == 0 {
		return []model.CatalogRecord{}, nil
	}
	headers := make([]string, 0, len(maps[0]))
	for k := range maps[0] {
		headers = append(headers, k)
	}
	// порядок ключей map случаен, а resolveKey берёт первый подходящий
	sort.Strings(headers)

	cols := resolveCatalogColumns(headers)
	if cols.code == "" || cols.desc == "" {
		return nil, fmt.Errorf("%w (headers: %s)", ErrNoColumns, strings.Join(headers, ", "))
	}

	out := make([]model.CatalogRecord, 0, len(maps))
	for _, m := range maps {
		code := utils.CanonicalID(m[cols.code])
		if code == "" {
			continue
		}
		rec := model.CatalogRecord{
			Code:        code,
			Description: m[cols.desc],
		}
		if cols.unit != "" {
			rec.Unit = strings.ToUpper(strings.TrimSpace(m[cols.unit]))
		}
		if cols.family != "" {
			rec.Family = utils.CanonicalID(m[cols.family])
		}
		out = append(out, rec)
	}
	return out, nil
}
