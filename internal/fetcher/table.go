// Package fetcher reads uploaded voter-roll files (CSV and Excel) into a
// uniform header-mapped table.
package fetcher

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a parsed roll file: one header row plus data rows. Headers are
// uppercased and trimmed at load time so column lookups are forgiving.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Col returns the index of the first header matching any of the given
// names (case-insensitive), or -1.
func (t *Table) Col(names ...string) int {
	for _, name := range names {
		for i, h := range t.Headers {
			if strings.EqualFold(h, name) {
				return i
			}
		}
	}
	return -1
}

// HasCol reports whether any of the named columns exists.
func (t *Table) HasCol(names ...string) bool {
	return t.Col(names...) >= 0
}

// Get returns the trimmed cell at (row, col), tolerating ragged rows and
// col == -1.
func (t *Table) Get(row, col int) string {
	if col < 0 || row < 0 || row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// ReadFile dispatches on the file extension: .csv, .xlsx, or .xls.
func ReadFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(path)
	case ".xlsx", ".xls":
		return ReadXLSX(path, XLSXOptions{})
	default:
		return nil, eris.Errorf("fetcher: unsupported file type %q", filepath.Ext(path))
	}
}

func newTable(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, eris.New("fetcher: file has no rows")
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToUpper(strings.TrimSpace(h))
	}
	return &Table{Headers: headers, Rows: rows[1:]}, nil
}
