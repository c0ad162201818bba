package statement

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
)

// maxXLSRows bounds how much of a workbook is read.
const maxXLSRows = 10000

type columns struct {
	date, description, amount int
}

var positional = columns{date: 0, description: 1, amount: 2}

// ReadFile dispatches on the file extension. Anything that is not .xls is
// treated as delimited text.
func ReadFile(name string, r io.ReadSeeker) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xls":
		return ReadXLS(r)
	default:
		return ReadCSV(r)
	}
}

// ReadCSV reads delimited rows. The delimiter is sniffed from the first
// line; a header row is used to locate columns when present.
func ReadCSV(r io.Reader) ([]Row, error) {
	br := bufio.NewReader(r)
	sample, _ := br.Peek(1024)

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comma = sniffDelimiter(sample)

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				// malformed line; the row is dropped like any other invalid row
				continue
			}
			return nil, fmt.Errorf("failed to read statement: %w", err)
		}
		records = append(records, record)
	}
	return toRows(records), nil
}

// ReadXLS reads the first sheet of a legacy Excel workbook.
func ReadXLS(r io.ReadSeeker) (rows []Row, err error) {
	// the xls decoder panics on some truncated files
	defer func() {
		if p := recover(); p != nil {
			rows, err = nil, fmt.Errorf("error reading workbook: %v", p)
		}
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("error opening workbook: %w", err)
	}
	cells := workbook.ReadAllCells(maxXLSRows)
	if len(cells) == 0 {
		return nil, fmt.Errorf("no data found in sheet")
	}
	return toRows(cells), nil
}

func sniffDelimiter(sample []byte) rune {
	firstLine := string(sample)
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}
	switch {
	case strings.Contains(firstLine, "\t"):
		return '\t'
	case strings.Count(firstLine, ";") > strings.Count(firstLine, ","):
		return ';'
	default:
		return ','
	}
}

func toRows(records [][]string) []Row {
	if len(records) == 0 {
		return nil
	}

	cols := positional
	if header, ok := headerColumns(records[0]); ok {
		cols = header
		records = records[1:]
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if isBlank(rec) {
			continue
		}
		rows = append(rows, Row{
			Date:        field(rec, cols.date),
			Description: field(rec, cols.description),
			Amount:      field(rec, cols.amount),
		})
	}
	return rows
}

func headerColumns(record []string) (columns, bool) {
	cols := columns{date: -1, description: -1, amount: -1}
	for i, name := range record {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date", "transaction date", "posted date", "posting date":
			cols.date = i
		case "description", "memo", "payee", "details", "narrative":
			cols.description = i
		case "amount", "value":
			cols.amount = i
		}
	}
	if cols.date < 0 || cols.description < 0 || cols.amount < 0 {
		return positional, false
	}
	return cols, true
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func isBlank(rec []string) bool {
	return strings.TrimSpace(strings.Join(rec, "")) == ""
}
