//go:build ignore

// This program generates a sample invoice workbook for local runs.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klytics/invoicechat/internal/dataset"
	"github.com/klytics/invoicechat/internal/formats/xlsx"
)

func main() {
	path := filepath.Join("testdata", "Invoice.xlsx")
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	wb := &xlsx.Workbook{Sheets: []xlsx.Sheet{{Name: "Invoices", Rows: dataset.SampleInvoices(200, 42)}}}
	if err := xlsx.WriteFile(wb, path); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating %s: %v\n", path, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s (200 invoices).\n", path)
}
