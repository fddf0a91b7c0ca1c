package parser

import (
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// formatTable renders rows as an aligned, borderless dump with a leading
// row index column. The first row is the header.
func formatTable(records [][]string) string {
	if len(records) == 0 {
		return ""
	}
	header := records[0]
	width := len(header)
	for _, row := range records[1:] {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return ""
	}

	var sb strings.Builder
	tw := tablewriter.NewWriter(&sb)
	tw.SetHeader(append([]string{""}, pad(header, width)...))
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetBorder(false)
	tw.SetHeaderLine(false)
	tw.SetColumnSeparator("")
	tw.SetCenterSeparator("")
	tw.SetRowSeparator("")
	tw.SetTablePadding(" ")
	tw.SetNoWhiteSpace(true)

	rows := make([][]string, 0, len(records)-1)
	for i, row := range records[1:] {
		rows = append(rows, append([]string{strconv.Itoa(i)}, pad(row, width)...))
	}
	tw.AppendBulk(rows)
	tw.Render()

	lines := strings.Split(sb.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func pad(row []string, width int) []string {
	out := make([]string, width)
	for i := range out {
		if i < len(row) {
			out[i] = strings.TrimSpace(row[i])
		}
	}
	return out
}
