package fileio

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	excelize "github.com/xuri/excelize/v2"

	"material-service/internal/matching/model"
)

const duplicatesSheet = "Duplicados"

// WriteDuplicatesXLSX пишет отчёт о дублях в книгу Excel.
// Пустой отчёт даёт лист с одной строкой заголовков.
func WriteDuplicatesXLSX(w io.Writer, rep model.DuplicateReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), duplicatesSheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(duplicatesSheet)
	if err != nil {
		return err
	}

	header := make([]any, len(rep.Columns))
	for i, c := range rep.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, row := range rep.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row.Values()); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// WriteDuplicatesCSV - тот же отчёт в CSV с разделителем ';'.
func WriteDuplicatesCSV(w io.Writer, rep model.DuplicateReport) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(rep.Columns); err != nil {
		return err
	}
	for _, r := range rep.Rows {
		rec := []string{r.Code1, r.Description1, r.Unit1, r.Code2, r.Description2, r.Unit2,
			strconv.FormatFloat(r.Score, 'f', -1, 64)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDuplicates выбирает формат по расширению имени файла.
func WriteDuplicates(w io.Writer, filename string, rep model.DuplicateReport) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return WriteDuplicatesXLSX(w, rep)
	case ".csv":
		return WriteDuplicatesCSV(w, rep)
	default:
		return fmt.Errorf("unsupported report format: %s", filename)
	}
}
