package csvimport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is a parsed CSV data row with access by header name.
type Row struct {
	// Line is the 1-based line number in the source file, header included.
	Line   int
	fields map[string]string
}

// Get returns the trimmed value for the given header, or "" when absent.
func (r Row) Get(header string) string {
	return r.fields[header]
}

// Has reports whether the row carries a non-empty value for the header.
func (r Row) Has(header string) bool {
	return r.fields[header] != ""
}

// Fields returns the underlying header->value map.
func (r Row) Fields() map[string]string {
	return r.fields
}

// ParseResult holds the outcome of parsing a CSV file.
type ParseResult struct {
	Headers []string
	Rows    []Row
}

// DetectDelimiter picks the CSV delimiter from the header line. Brazilian
// platform exports commonly use semicolons.
func DetectDelimiter(headerLine string) rune {
	if strings.Count(headerLine, ";") > strings.Count(headerLine, ",") {
		return ';'
	}
	return ','
}

// Parse reads a whole CSV document into memory. It strips a UTF-8 BOM,
// auto-detects the delimiter, trims whitespace around headers and values,
// and tolerates rows with fewer fields than the header.
func Parse(r io.Reader) (*ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}

	firstLine := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		firstLine = data[:idx]
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DetectDelimiter(string(firstLine))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rawHeaders, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	headers := make([]string, len(rawHeaders))
	for i, h := range rawHeaders {
		headers[i] = strings.TrimSpace(h)
	}

	result := &ParseResult{Headers: headers}
	line := 1
	for {
		record, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		fields := make(map[string]string, len(headers))
		empty := true
		for i, h := range headers {
			if i >= len(record) {
				break
			}
			v := strings.TrimSpace(record[i])
			fields[h] = v
			if v != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		result.Rows = append(result.Rows, Row{Line: line, fields: fields})
	}
	return result, nil
}

// NewRow builds a Row from a header->value map. Used by tests and by the
// queue consumer, which receives rows already decoded.
func NewRow(line int, fields map[string]string) Row {
	if fields == nil {
		fields = map[string]string{}
	}
	return Row{Line: line, fields: fields}
}
