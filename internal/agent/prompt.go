package agent

import (
	"fmt"
	"strings"

	"github.com/klytics/invoicechat/internal/dataset"
)

func systemPrompt(name string, table *dataset.Table, allowCode bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are working with a table loaded from the CSV file %q. ", name)
	fmt.Fprintf(&b, "It has %d rows and %d columns.\n", len(table.Rows), len(table.Headers))
	b.WriteString("Use the tools to inspect and aggregate the table before answering. ")
	b.WriteString("Never guess numbers: compute them with a tool. ")
	b.WriteString("Column names must be passed exactly as they appear in the header.\n")
	if allowCode {
		b.WriteString("You may also run code with run_code; the CSV path is in the CSV_PATH environment variable ")
		b.WriteString("and the file starts with a UTF-8 byte-order mark.\n")
	}
	b.WriteString("\nThese are the first rows of the table:\n\n")
	if preview := table.Markdown(previewRows); preview != "" {
		b.WriteString(preview)
	} else {
		b.WriteString("(the table is empty)\n")
	}
	return b.String()
}
