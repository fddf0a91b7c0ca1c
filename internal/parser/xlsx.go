package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXParser handles Excel workbooks. Every sheet is dumped in order.
type XLSXParser struct{}

func (p *XLSXParser) Parse(r io.Reader, filename string) (string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var parts []string
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		table := formatTable(trimEmptyRows(rows))
		if table == "" {
			continue
		}
		if len(sheets) > 1 {
			table = "Sheet: " + sheet + "\n" + table
		}
		parts = append(parts, table)
	}
	return strings.Join(parts, "\n\n"), nil
}

func trimEmptyRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
