package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Table is the in-memory view of the CSV cache.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Filter matches rows whose column equals Value after trimming spaces.
type Filter struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// Load reads a CSV file written by EnsureCSV. The BOM is optional.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if r, _, err := br.ReadRune(); err == nil && r != '\ufeff' {
		_ = br.UnreadRune()
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return &Table{Headers: records[0], Rows: records[1:]}, nil
}

// ColumnIndex returns the index of a header, or -1.
func (t *Table) ColumnIndex(name string) int {
	name = strings.TrimSpace(name)
	for i, h := range t.Headers {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// Select returns rows matching every filter.
func (t *Table) Select(filters []Filter) ([][]string, error) {
	idx := make([]int, len(filters))
	for i, f := range filters {
		idx[i] = t.ColumnIndex(f.Column)
		if idx[i] < 0 {
			return nil, t.unknownColumn(f.Column)
		}
	}

	var out [][]string
	for _, row := range t.Rows {
		if matches(row, filters, idx) {
			out = append(out, row)
		}
	}
	return out, nil
}

func matches(row []string, filters []Filter, idx []int) bool {
	for i, f := range filters {
		if cell(row, idx[i]) != strings.TrimSpace(f.Value) {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func (t *Table) unknownColumn(name string) error {
	return fmt.Errorf("unknown column %q — available columns: %s", name, strings.Join(t.Headers, ", "))
}

// Markdown renders the header and up to n rows as a GFM table.
func (t *Table) Markdown(n int) string {
	if len(t.Headers) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("| ")
	b.WriteString(strings.Join(t.Headers, " | "))
	b.WriteString(" |\n|")
	for range t.Headers {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")

	for i, row := range t.Rows {
		if i >= n {
			break
		}
		cells := make([]string, len(t.Headers))
		for j := range t.Headers {
			cells[j] = strings.ReplaceAll(cell(row, j), "|", "\\|")
		}
		b.WriteString("| ")
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString(" |\n")
	}
	return b.String()
}
