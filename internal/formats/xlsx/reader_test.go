package xlsx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestReadFirstSheet(t *testing.T) {
	wb := &Workbook{
		Sheets: []Sheet{
			{
				Name: "الفواتير",
				Rows: [][]string{
					{"اسم الشركة", "رقم الفاتورة", "حالة الدفع"},
					{"شركة النقل", "INV-1000", "مدفوعة"},
					{"شركة البناء", "INV-1001"},
				},
			},
			{
				Name: "Other",
				Rows: [][]string{{"ignored"}},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "invoices.xlsx")
	if err := WriteFile(wb, path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	sheet, err := ReadFirstSheet(path)
	if err != nil {
		t.Fatalf("ReadFirstSheet failed: %v", err)
	}

	if sheet.Name != "الفواتير" {
		t.Errorf("expected first sheet, got %q", sheet.Name)
	}
	if len(sheet.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(sheet.Rows))
	}
	if got := sheet.Rows[0][2]; got != "حالة الدفع" {
		t.Errorf("header[2] = %q", got)
	}
	if len(sheet.Rows[2]) != 3 || sheet.Rows[2][2] != "" {
		t.Errorf("short row not padded: %#v", sheet.Rows[2])
	}
}

func TestReadFirstSheetHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	wb := &Workbook{Sheets: []Sheet{{Name: "Sheet1", Rows: [][]string{{"A", "B"}}}}}
	if err := WriteFile(wb, path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	sheet, err := ReadFirstSheet(path)
	if err != nil {
		t.Fatalf("ReadFirstSheet failed: %v", err)
	}
	if len(sheet.Rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(sheet.Rows))
	}
}

func TestNormalizeDropsTrailingEmptyRows(t *testing.T) {
	rows := normalize([][]string{{"A", "B"}, {"1"}, {"", ""}, {}})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if len(rows[1]) != 2 {
		t.Errorf("row not padded: %#v", rows[1])
	}
}

func TestReadFirstSheetNotFound(t *testing.T) {
	_, err := ReadFirstSheet("/nonexistent/file.xlsx")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestReadFirstSheetNotXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	if err := os.WriteFile(path, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFirstSheet(path); err == nil {
		t.Error("expected error for invalid workbook")
	}
}

func TestReadFirstSheetRawValues(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		t.Fatal(err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		t.Fatal(err)
	}
	customDate := "dd/mm/yyyy"
	customStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &customDate})
	if err != nil {
		t.Fatal(err)
	}

	cells := []struct {
		cell  string
		value any
		style int
	}{
		{"A1", "issued", 0},
		{"B1", "amount", 0},
		{"C1", "due", 0},
		{"D1", "at", 0},
		{"A2", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), dateStyle},
		{"B2", 1234.5, amountStyle},
		{"C2", time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC), customStyle},
		{"D2", time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), 0},
	}
	for _, c := range cells {
		if err := f.SetCellValue("Sheet1", c.cell, c.value); err != nil {
			t.Fatal(err)
		}
		if c.style != 0 {
			if err := f.SetCellStyle("Sheet1", c.cell, c.cell, c.style); err != nil {
				t.Fatal(err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "typed.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	sheet, err := ReadFirstSheet(path)
	if err != nil {
		t.Fatalf("ReadFirstSheet failed: %v", err)
	}
	want := []string{"2024-01-02", "1234.5", "1999-12-31", "2024-03-05 14:30:00"}
	for i, w := range want {
		if got := sheet.Rows[1][i]; got != w {
			t.Errorf("column %d = %q, want %q", i, got, w)
		}
	}
}

func TestIsDateFormat(t *testing.T) {
	str := func(s string) *string { return &s }
	tests := []struct {
		name   string
		id     int
		custom *string
		want   bool
	}{
		{"general", 0, nil, false},
		{"thousands", 4, nil, false},
		{"two decimals", 2, nil, false},
		{"short date", 14, nil, true},
		{"date time", 22, nil, true},
		{"time", 21, nil, true},
		{"custom date", 0, str("yyyy-mm-dd"), true},
		{"elapsed hours", 0, str("[h]:mm"), true},
		{"colored number", 0, str("[Red]#,##0.00"), false},
		{"quoted text", 0, str(`0.00 "days"`), false},
		{"currency locale", 0, str("[$SAR-401] #,##0.00"), false},
		{"escaped", 0, str(`0\d`), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDateFormat(tt.id, tt.custom); got != tt.want {
				t.Errorf("isDateFormat(%d, %v) = %v, want %v", tt.id, tt.custom, got, tt.want)
			}
		})
	}
}
