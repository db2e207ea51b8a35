// Package xlsx provides reading and writing capabilities for .xlsx (Excel) files.
package xlsx

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Sheet represents a single worksheet's data.
type Sheet struct {
	Name string     `json:"name"`
	Rows [][]string `json:"rows"`
}

// Workbook represents a parsed Excel file.
type Workbook struct {
	Sheets []Sheet `json:"sheets"`
}

// ErrNoSheets is returned for a workbook without any worksheet.
var ErrNoSheets = errors.New("workbook has no sheets")

// ReadFirstSheet reads only the first worksheet of an .xlsx file.
// Cells hold their stored values, not their displayed text: numbers keep full
// precision without grouping, and date-formatted cells become ISO dates.
// Rows are normalized to the header width: short rows are padded with empty
// cells and trailing cells beyond the header are kept.
func ReadFirstSheet(path string) (*Sheet, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("spreadsheet not found: %s — check that the path is correct: %w", path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s — is this a valid .xlsx file? %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSheets)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("could not read sheet %q: %w", sheets[0], err)
	}
	if err := newDateCells(f).apply(sheets[0], rows); err != nil {
		return nil, err
	}

	return &Sheet{Name: sheets[0], Rows: normalize(rows)}, nil
}

// normalize drops trailing fully-empty rows and pads every row to the header width.
func normalize(rows [][]string) [][]string {
	for len(rows) > 0 && isEmpty(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return rows
	}

	width := len(rows[0])
	for i, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			rows[i] = padded
		}
	}
	return rows
}

func isEmpty(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// dateCells rewrites date-formatted serial numbers. Style lookups are cached
// per style id.
type dateCells struct {
	f        *excelize.File
	date1904 bool
	isDate   map[int]bool
}

func newDateCells(f *excelize.File) *dateCells {
	d := &dateCells{f: f, isDate: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

func (d *dateCells) apply(sheet string, rows [][]string) error {
	for r, row := range rows {
		for c, v := range row {
			serial, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			ok, err := d.styled(sheet, cell)
			if err != nil {
				return fmt.Errorf("could not read style of %s: %w", cell, err)
			}
			if !ok {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, d.date1904)
			if err != nil {
				continue
			}
			row[c] = formatDate(t.Round(time.Second), serial)
		}
	}
	return nil
}

func (d *dateCells) styled(sheet, cell string) (bool, error) {
	id, err := d.f.GetCellStyle(sheet, cell)
	if err != nil {
		return false, err
	}
	if v, ok := d.isDate[id]; ok {
		return v, nil
	}
	v := false
	if id != 0 {
		style, err := d.f.GetStyle(id)
		if err != nil {
			return false, err
		}
		v = isDateFormat(style.NumFmt, style.CustomNumFmt)
	}
	d.isDate[id] = v
	return v, nil
}

// formatDate renders dates as 2006-01-02, adding the time of day only when
// there is one. Serials below 1 carry a time of day only.
func formatDate(t time.Time, serial float64) string {
	switch {
	case serial < 1:
		return t.Format("15:04:05")
	case t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0:
		return t.Format("2006-01-02")
	default:
		return t.Format("2006-01-02 15:04:05")
	}
}

// isDateFormat reports whether a built-in number format id or a custom format
// code displays a date or time.
func isDateFormat(id int, custom *string) bool {
	if custom != nil && *custom != "" {
		return isDateCode(*custom)
	}
	switch {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58, id >= 71 && id <= 81:
		return true
	}
	return false
}

// isDateCode looks for date tokens outside quoted text, escapes and
// bracketed colors or locales. Elapsed-time brackets like [h] count.
func isDateCode(code string) bool {
	code = strings.ToLower(code)
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '"':
			j := strings.IndexByte(code[i+1:], '"')
			if j < 0 {
				return false
			}
			i += j + 1
		case '\\', '_', '*':
			i++
		case '[':
			j := strings.IndexByte(code[i+1:], ']')
			if j < 0 {
				return false
			}
			inner := code[i+1 : i+1+j]
			if inner != "" && strings.Trim(inner, "hms") == "" {
				return true
			}
			i += j + 1
		case 'y', 'm', 'd', 'h', 's':
			return true
		}
	}
	return false
}
