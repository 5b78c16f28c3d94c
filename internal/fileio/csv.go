package fileio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// decoderFor выбирает декодер для всего файла. Валидный UTF-8 (и чистый ASCII)
// читаем как есть, иначе спрашиваем chardet; по умолчанию ISO-8859-1, в ней
// приходят выгрузки справочника. nil - перекодировать не нужно.
func decoderFor(data []byte) encoding.Encoding {
	if utf8.Valid(data) {
		return nil
	}
	cs := ""
	if det, err := chardet.NewTextDetector().DetectBest(data[:min(len(data), detectSize)]); err == nil && det != nil {
		cs = strings.ToLower(det.Charset)
	}
	if cs == "windows-1252" {
		return charmap.Windows1252
	}
	return charmap.ISO8859_1
}

// сколько байт отдаём chardet
const detectSize = 64 << 10

var utf8BOM = []byte("\xef\xbb\xbf")

// sniffComma - разделитель по первой строке: ';' (как в выгрузке) или ','.
func sniffComma(peek []byte) rune {
	line := peek
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		line = peek[:i]
	}
	switch {
	case bytes.Count(line, []byte{';'}) >= bytes.Count(line, []byte{','}) && bytes.Contains(line, []byte{';'}):
		return ';'
	case bytes.Contains(line, []byte{'\t'}) && !bytes.Contains(line, []byte{','}):
		return '\t'
	}
	return ','
}

// readCSV читает CSV с автоопределением кодировки и разделителя.
// Битые строки пропускаются.
func readCSV(r io.Reader, headerRow int) ([]map[string]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var dec io.Reader = bytes.NewReader(data)
	if body, ok := bytes.CutPrefix(data, utf8BOM); ok {
		data = body
		dec = bytes.NewReader(body)
	} else if enc := decoderFor(data); enc != nil {
		dec = transform.NewReader(bytes.NewReader(data), enc.NewDecoder())
	}

	cr := csv.NewReader(dec)
	cr.Comma = sniffComma(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				continue
			}
			return nil, err
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	h := pickHeader(rows, headerRow)
	return rowsToMaps(rows, h, headerRow), nil
}
