// Package dataset prepares the invoice CSV cache and reads it back as a table.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klytics/invoicechat/internal/formats/xlsx"
)

// BOM is the UTF-8 byte-order mark written at the start of the cache.
const BOM = "\ufeff"

// EnsureCSV materializes the first worksheet of xlsxPath as a UTF-8-with-BOM CSV
// at csvPath unless csvPath already exists. An existing cache is never
// compared against the spreadsheet and never rewritten.
func EnsureCSV(xlsxPath, csvPath string) (created bool, err error) {
	if _, err := os.Stat(csvPath); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("could not stat %s: %w", csvPath, err)
	}

	sheet, err := xlsx.ReadFirstSheet(xlsxPath)
	if err != nil {
		return false, err
	}

	if err := writeAtomic(csvPath, sheet.Rows); err != nil {
		return false, err
	}
	return true, nil
}

// WriteCSV encodes rows as CSV with a leading BOM and \n line endings.
func WriteCSV(w io.Writer, rows [][]string) error {
	if _, err := io.WriteString(w, BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("could not encode CSV: %w", err)
	}
	return nil
}

// writeAtomic writes through a temp file in the target directory so a failed
// conversion never leaves a partial cache behind.
func writeAtomic(path string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".invoicechat-*.csv")
	if err != nil {
		return fmt.Errorf("could not create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not write %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return nil
}
