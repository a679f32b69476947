package render

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// DefaultPadding is the number of spaces between columns.
const DefaultPadding = 2

// ColumnFormatter lays a token stream out in fixed-count, width-aligned columns.
// Token i goes to column i % ColumnsPerRow; each column is as wide as its
// widest token, measured in terminal cells.
type ColumnFormatter struct {
	ColumnsPerRow int
	Padding       int
}

// NewColumnFormatter returns a formatter with cols columns and DefaultPadding.
func NewColumnFormatter(cols int) ColumnFormatter {
	return ColumnFormatter{ColumnsPerRow: cols, Padding: DefaultPadding}
}

// WithPadding returns a copy of f with the given inter-column padding.
func (f ColumnFormatter) WithPadding(padding int) ColumnFormatter {
	f.Padding = padding
	return f
}

// FormatText splits s on whitespace and formats the resulting tokens.
func (f ColumnFormatter) FormatText(s string) string {
	return f.Format(strings.Fields(s))
}

// Format renders tokens row by row. Every row ends with a newline, including
// a short final row. Empty input yields "".
func (f ColumnFormatter) Format(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}

	cols := max(f.ColumnsPerRow, 1)
	padding := strings.Repeat(" ", max(f.Padding, 0))

	widths := make([]int, cols)
	for i, tok := range tokens {
		col := i % cols
		widths[col] = max(widths[col], runewidth.StringWidth(tok))
	}

	var b strings.Builder
	for i, tok := range tokens {
		col := i % cols
		b.WriteString(runewidth.FillRight(tok, widths[col]))
		if col < cols-1 {
			b.WriteString(padding)
		} else {
			b.WriteByte('\n')
		}
	}

	out := b.String()
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}
