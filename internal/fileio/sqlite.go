package fileio

import (
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/mattn/go-sqlite3"

	"material-service/internal/matching/model"
)

var rxTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// readSQLiteCatalog читает таблицу справочника из sqlite-файла.
// Колонки определяются так же, как у CSV/XLSX.
func readSQLiteCatalog(path, table string) ([]model.CatalogRecord, error) {
	if !rxTableName.MatchString(table) {
		return nil, fmt.Errorf("sqlite: bad table name %q", table)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT * FROM "` + table + `"`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	vals := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range vals {
		dest[i] = &vals[i]
	}

	var maps []map[string]string
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		m := make(map[string]string, len(cols))
		for i, c := range cols {
			m[c] = vals[i].String
		}
		maps = append(maps, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(maps) == 0 {
		return []model.CatalogRecord{}, nil
	}
	return ToRecords(maps)
}
