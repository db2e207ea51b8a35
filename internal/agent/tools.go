package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"

	"github.com/klytics/invoicechat/internal/ai"
	"github.com/klytics/invoicechat/internal/dataset"
)

// Tool is a function the model can call. Arguments are validated against
// the schema from Definition before Run sees them.
type Tool interface {
	Definition() ai.Tool
	Schema() *gojsonschema.Schema
	Run(ctx context.Context, args json.RawMessage) (string, error)
}

// baseTool carries the definition and its compiled schema.
type baseTool struct {
	def    ai.Tool
	schema *gojsonschema.Schema
}

func newBaseTool(name, description, schema string) baseTool {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		// Schemas are constants in this package.
		panic(fmt.Sprintf("invalid schema for tool %s: %v", name, err))
	}
	return baseTool{
		def:    ai.Tool{Name: name, Description: description, Parameters: json.RawMessage(schema)},
		schema: compiled,
	}
}

func (b baseTool) Definition() ai.Tool          { return b.def }
func (b baseTool) Schema() *gojsonschema.Schema { return b.schema }

func runValidated(ctx context.Context, tool Tool, args string) (string, error) {
	result, err := tool.Schema().Validate(gojsonschema.NewStringLoader(args))
	if err != nil {
		return "", fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			msgs[i] = e.String()
		}
		return "", fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
	}
	return tool.Run(ctx, json.RawMessage(args))
}

func toJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

const filtersSchema = `"filters": {
      "type": "array",
      "description": "Rows are kept only when every filter column equals its value exactly.",
      "items": {
        "type": "object",
        "properties": {"column": {"type": "string"}, "value": {"type": "string"}},
        "required": ["column", "value"],
        "additionalProperties": false
      }
    }`

// describe_table

type describeTool struct {
	baseTool
	file  string
	table *dataset.Table
}

func newDescribeTool(file string, table *dataset.Table) *describeTool {
	return &describeTool{
		baseTool: newBaseTool("describe_table",
			"Return the column names, the row count, and up to 8 distinct sample values per column.",
			`{"type": "object", "properties": {}, "additionalProperties": false}`),
		file:  file,
		table: table,
	}
}

type columnSummary struct {
	Name     string   `json:"name"`
	Distinct int      `json:"distinct_values"`
	Samples  []string `json:"samples"`
}

func (t *describeTool) Run(_ context.Context, _ json.RawMessage) (string, error) {
	cols := make([]columnSummary, len(t.table.Headers))
	for i, h := range t.table.Headers {
		seen := make(map[string]bool)
		var samples []string
		for _, row := range t.table.Rows {
			v := cellAt(row, i)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			if len(samples) < 8 {
				samples = append(samples, v)
			}
		}
		cols[i] = columnSummary{Name: h, Distinct: len(seen), Samples: samples}
	}
	return toJSON(map[string]interface{}{
		"file":    t.file,
		"rows":    len(t.table.Rows),
		"columns": cols,
	})
}

// aggregate_column

type aggregateTool struct {
	baseTool
	table *dataset.Table
}

func newAggregateTool(table *dataset.Table) *aggregateTool {
	return &aggregateTool{
		baseTool: newBaseTool("aggregate_column",
			"Count rows, or compute sum/min/max/avg of a numeric column, over the rows matching the filters.",
			`{
  "type": "object",
  "properties": {
    "operation": {"type": "string", "enum": ["count", "sum", "min", "max", "avg"]},
    "column": {"type": "string", "description": "Column to aggregate; not needed for count."},
    `+filtersSchema+`
  },
  "required": ["operation"],
  "additionalProperties": false
}`),
		table: table,
	}
}

type aggregateArgs struct {
	Operation string           `json:"operation"`
	Column    string           `json:"column"`
	Filters   []dataset.Filter `json:"filters"`
}

type aggregateResult struct {
	Operation string `json:"operation"`
	Column    string `json:"column,omitempty"`
	Matched   int    `json:"matched_rows"`
	Numeric   int    `json:"numeric_values,omitempty"`
	Skipped   int    `json:"non_numeric_values,omitempty"`
	Result    string `json:"result"`
}

func (t *aggregateTool) Run(_ context.Context, raw json.RawMessage) (string, error) {
	var args aggregateArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", err
	}

	rows, err := t.table.Select(args.Filters)
	if err != nil {
		return "", err
	}

	res := aggregateResult{Operation: args.Operation, Column: args.Column, Matched: len(rows)}
	if args.Operation == "count" {
		res.Result = fmt.Sprint(len(rows))
		return toJSON(res)
	}

	if args.Column == "" {
		return "", fmt.Errorf("operation %q needs a column", args.Operation)
	}
	idx := t.table.ColumnIndex(args.Column)
	if idx < 0 {
		return "", fmt.Errorf("unknown column %q", args.Column)
	}

	var values []decimal.Decimal
	for _, row := range rows {
		d, ok := parseNumber(cellAt(row, idx))
		if !ok {
			res.Skipped++
			continue
		}
		values = append(values, d)
	}
	res.Numeric = len(values)

	if len(values) == 0 {
		res.Result = "null"
		return toJSON(res)
	}

	switch args.Operation {
	case "sum":
		res.Result = decimal.Sum(values[0], values[1:]...).String()
	case "avg":
		res.Result = decimal.Avg(values[0], values[1:]...).Round(4).String()
	case "min":
		res.Result = decimal.Min(values[0], values[1:]...).String()
	case "max":
		res.Result = decimal.Max(values[0], values[1:]...).String()
	}
	return toJSON(res)
}

// parseNumber accepts plain and thousands-separated numbers, including
// Arabic-Indic digits.
func parseNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r == ',' || r == '٬' || r == ' ':
		case r == '٫':
			b.WriteRune('.')
		default:
			b.WriteRune(r)
		}
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// list_rows

const (
	defaultRowLimit = 20
	maxRowLimit     = 100
)

type listRowsTool struct {
	baseTool
	table *dataset.Table
}

func newListRowsTool(table *dataset.Table) *listRowsTool {
	return &listRowsTool{
		baseTool: newBaseTool("list_rows",
			"Return the rows matching the filters as objects keyed by column name.",
			`{
  "type": "object",
  "properties": {
    "columns": {"type": "array", "items": {"type": "string"}, "description": "Subset of columns to return; all when omitted."},
    "limit": {"type": "integer", "minimum": 1, "maximum": 100},
    `+filtersSchema+`
  },
  "additionalProperties": false
}`),
		table: table,
	}
}

type listRowsArgs struct {
	Columns []string         `json:"columns"`
	Limit   int              `json:"limit"`
	Filters []dataset.Filter `json:"filters"`
}

func (t *listRowsTool) Run(_ context.Context, raw json.RawMessage) (string, error) {
	var args listRowsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", err
	}
	if args.Limit <= 0 {
		args.Limit = defaultRowLimit
	}
	args.Limit = min(args.Limit, maxRowLimit)

	columns := args.Columns
	if len(columns) == 0 {
		columns = t.table.Headers
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.table.ColumnIndex(c)
		if idx[i] < 0 {
			return "", fmt.Errorf("unknown column %q", c)
		}
	}

	rows, err := t.table.Select(args.Filters)
	if err != nil {
		return "", err
	}

	out := make([]map[string]string, 0, min(len(rows), args.Limit))
	for _, row := range rows {
		if len(out) == args.Limit {
			break
		}
		obj := make(map[string]string, len(columns))
		for i, c := range columns {
			obj[c] = cellAt(row, idx[i])
		}
		out = append(out, obj)
	}

	return toJSON(map[string]interface{}{
		"matched_rows": len(rows),
		"returned":     len(out),
		"rows":         out,
	})
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}
