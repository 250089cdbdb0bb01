package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing column")

// Table is a parsed CSV resource: one header row followed by string cells.
// Every row has exactly len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// ParseCSV reads a header row and all records. Short rows are padded with empty cells
// and surplus cells are dropped, so a ragged line never aborts the whole resource.
func ParseCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	header = uniqueHeader(header)

	t := &Table{Header: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse row %d: %w", len(t.Rows)+2, err)
		}
		t.Rows = append(t.Rows, fitRow(rec, len(header)))
	}
	return t, nil
}

// uniqueHeader renames repeated column names to name.1, name.2 and so on, keeping the
// first occurrence under the plain name.
func uniqueHeader(header []string) []string {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[h] = false
	}
	out := make([]string, len(header))
	counts := make(map[string]int)
	for i, h := range header {
		if !seen[h] {
			seen[h] = true
			out[i] = h
			continue
		}
		name := h
		for {
			counts[h]++
			name = fmt.Sprintf("%s.%d", h, counts[h])
			if _, taken := seen[name]; !taken {
				break
			}
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

func fitRow(rec []string, width int) []string {
	if len(rec) == width {
		return rec
	}
	row := make([]string, width)
	copy(row, rec)
	return row
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	if t == nil {
		return -1
	}
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Require returns ErrMissingColumn naming every absent column.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if t.Index(n) < 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Column returns the cells of one column, or nil if it does not exist.
func (t *Table) Column(name string) []string {
	idx := t.Index(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

// Concat is the row-wise union of tables. Columns are aligned by name in order of first
// appearance; a cell is empty where its source table lacked the column. Row order is the
// order of the inputs. Nil tables are skipped. A repeated name within one table is
// renamed the way ParseCSV does, so the first occurrence keeps the plain name.
func Concat(tables ...*Table) *Table {
	out := &Table{}
	pos := make(map[string]int)
	headers := make([][]string, len(tables))
	for ti, t := range tables {
		if t == nil {
			continue
		}
		headers[ti] = uniqueHeader(t.Header)
		for _, h := range headers[ti] {
			if _, ok := pos[h]; !ok {
				pos[h] = len(out.Header)
				out.Header = append(out.Header, h)
			}
		}
	}
	for ti, t := range tables {
		if t == nil {
			continue
		}
		for _, row := range t.Rows {
			merged := make([]string, len(out.Header))
			for i, h := range headers[ti] {
				merged[pos[h]] = row[i]
			}
			out.Rows = append(out.Rows, merged)
		}
	}
	return out
}
