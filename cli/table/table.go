// Package table renders aligned plain-text tables. Widths are measured in
// terminal cells, so values with wide characters stay aligned.
package table

import (
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
)

type (
	// Table is a set of rows rendered under column headers.
	Table struct {
		Columns []Column
		Data    []Row
		// Sort lists the column indexes rows are ordered by, most
		// significant first. Rows are left in place when empty.
		Sort          []int
		ColumnSpacing string
	}

	// Row holds one cell per column.
	Row = []string

	// Column describes how a column is laid out.
	Column struct {
		Header string
		// Width is the fixed width of the column. Longer values are cut.
		Width int
		Hide  bool
		// Flexible columns grow to fit their widest cell or header.
		Flexible  bool
		LeftAlign bool
	}
)

const defaultColumnSpacing = "  "

// NewTable returns a table of data under cols, separated by two spaces.
func NewTable(cols []Column, data []Row) Table {
	return Table{
		Columns:       cols,
		Data:          data,
		ColumnSpacing: defaultColumnSpacing,
	}
}

// Render writes the header and then every row to w.
func (t *Table) Render(w io.Writer) {
	widths := t.widths()
	if len(t.Sort) > 0 {
		sort.SliceStable(t.Data, func(i, j int) bool { return t.less(t.Data[i], t.Data[j]) })
	}

	var b strings.Builder
	header := make(Row, len(t.Columns))
	for c, col := range t.Columns {
		header[c] = col.Header
	}
	t.writeRow(&b, header, widths)
	for _, row := range t.Data {
		t.writeRow(&b, row, widths)
	}
	io.WriteString(w, b.String())
}

func (t *Table) widths() []int {
	widths := make([]int, len(t.Columns))
	for c, col := range t.Columns {
		widths[c] = col.Width
		if !col.Flexible {
			continue
		}
		widths[c] = max(widths[c], runewidth.StringWidth(col.Header))
		for _, row := range t.Data {
			widths[c] = max(widths[c], runewidth.StringWidth(row[c]))
		}
	}
	return widths
}

func (t *Table) less(a, b Row) bool {
	for _, c := range t.Sort {
		if a[c] != b[c] {
			return a[c] < b[c]
		}
	}
	return false
}

func (t *Table) writeRow(b *strings.Builder, row Row, widths []int) {
	for c, col := range t.Columns {
		if col.Hide {
			continue
		}
		cell := runewidth.Truncate(row[c], widths[c], "")
		if col.LeftAlign {
			b.WriteString(runewidth.FillRight(cell, widths[c]))
		} else {
			b.WriteString(runewidth.FillLeft(cell, widths[c]))
		}
		b.WriteString(t.ColumnSpacing)
	}
	b.WriteByte('\n')
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
