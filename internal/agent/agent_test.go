package agent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/klytics/invoicechat/internal/ai"
	"github.com/klytics/invoicechat/internal/ai/aitest"
	"github.com/klytics/invoicechat/internal/dataset"
)

const (
	colCompany = "اسم الشركة"
	colAmount  = "المبلغ (ر.ق)"
	colStatus  = "حالة الدفع"
	paid       = "مدفوعة"
	unpaid     = "غير مدفوعة"
)

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Invoice.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, dataset.WriteCSV(f, [][]string{
		{colCompany, colAmount, colStatus},
		{"شركة أ", "100.10", unpaid},
		{"شركة ب", "1,200.20", paid},
		{"شركة ج", "200.20", unpaid},
		{"شركة د", "n/a", unpaid},
	}))
	return path
}

func newTestAgent(t *testing.T, srv *aitest.Server, opts Options) *CSVAgent {
	t.Helper()
	p := ai.NewOpenAIProvider("sk-test", "gpt-4o-mini", srv.BaseURL())
	a, err := New(p, writeCSV(t), opts)
	require.NoError(t, err)
	return a
}

func TestInvokeDirectAnswer(t *testing.T) {
	srv := aitest.NewServer(t, aitest.Text("three"))
	a := newTestAgent(t, srv, Options{})

	out, err := a.Invoke(context.Background(), "How many invoices are unpaid?")
	require.NoError(t, err)
	assert.Equal(t, "three", out)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "How many invoices are unpaid?", reqs[0].LastUserContent())
	assert.Equal(t, []string{"describe_table", "aggregate_column", "list_rows"}, reqs[0].ToolNames())
	require.NotNil(t, reqs[0].Temperature)
	assert.Equal(t, 0.0, *reqs[0].Temperature)

	system := reqs[0].Messages[0]
	assert.Equal(t, "system", system.Role)
	assert.Contains(t, system.Content, "Invoice.csv")
	assert.Contains(t, system.Content, "4 rows")
	assert.Contains(t, system.Content, "| شركة أ | 100.10 | "+unpaid+" |")
	assert.NotContains(t, system.Content, "run_code")
}

func TestInvokeToolLoop(t *testing.T) {
	args := `{"operation":"count","filters":[{"column":"` + colStatus + `","value":"` + unpaid + `"}]}`
	srv := aitest.NewServer(t,
		aitest.Tool("call_1", "aggregate_column", args),
		aitest.Text("There are 3 unpaid invoices."),
	)
	a := newTestAgent(t, srv, Options{Verbose: true, Logger: zap.NewNop()})

	out, err := a.Invoke(context.Background(), "How many invoices are unpaid?")
	require.NoError(t, err)
	assert.Equal(t, "There are 3 unpaid invoices.", out)

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	msgs := reqs[1].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "tool", msgs[3].Role)
	assert.Equal(t, "call_1", msgs[3].ToolCallID)

	var res aggregateResult
	require.NoError(t, json.Unmarshal([]byte(msgs[3].Content), &res))
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, "3", res.Result)
}

func TestInvokeToolErrorsAreObservations(t *testing.T) {
	srv := aitest.NewServer(t,
		aitest.Tool("c1", "aggregate_column", `{"operation":"median"}`),
		aitest.Tool("c2", "drop_table", `{}`),
		aitest.Tool("c3", "aggregate_column", `not json`),
		aitest.Text("sorry"),
	)
	a := newTestAgent(t, srv, Options{})

	out, err := a.Invoke(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "sorry", out)

	msgs := srv.Requests()[3].Messages
	var results []string
	for _, m := range msgs {
		if m.Role == "tool" {
			results = append(results, m.Content)
		}
	}
	require.Len(t, results, 3)
	assert.True(t, strings.HasPrefix(results[0], "error: invalid arguments"), results[0])
	assert.Contains(t, results[1], `unknown tool "drop_table"`)
	assert.True(t, strings.HasPrefix(results[2], "error: "), results[2])
}

func TestInvokeMaxIterations(t *testing.T) {
	srv := aitest.NewServer(t)
	srv.Fallback = func(aitest.Request) aitest.Reply {
		return aitest.Tool("loop", "describe_table", `{}`)
	}
	a := newTestAgent(t, srv, Options{MaxIterations: 3})

	_, err := a.Invoke(context.Background(), "q")
	assert.ErrorIs(t, err, ErrMaxIterations)
	assert.Len(t, srv.Requests(), 3)
}

func TestInvokeProviderErrorPropagates(t *testing.T) {
	srv := aitest.NewServer(t, aitest.Reply{Status: 401})
	a := newTestAgent(t, srv, Options{})

	_, err := a.Invoke(context.Background(), "q")
	assert.ErrorIs(t, err, ai.ErrUnauthorized)
}

func TestNewMissingCSV(t *testing.T) {
	_, err := New(ai.NewOpenAIProvider("sk", "", ""), filepath.Join(t.TempDir(), "none.csv"), Options{})
	assert.Error(t, err)
}

func TestDangerousCodeIsOptIn(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	srv := aitest.NewServer(t, aitest.Text("ok"))

	safe := newTestAgent(t, srv, Options{Logger: zap.New(core)})
	assert.NotContains(t, safe.Tools(), "run_code")
	assert.Equal(t, 0, logs.Len())

	unsafe := newTestAgent(t, srv, Options{Logger: zap.New(core), AllowDangerousCode: true, Interpreter: "sh"})
	assert.Contains(t, unsafe.Tools(), "run_code")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, DangerousCodeWarning, logs.All()[0].Message)

	_, err := unsafe.Invoke(context.Background(), "q")
	require.NoError(t, err)
	assert.Contains(t, srv.Requests()[0].Messages[0].Content, "CSV_PATH")
}

func TestDescribeTool(t *testing.T) {
	table, err := dataset.Load(writeCSV(t))
	require.NoError(t, err)

	out, err := runValidated(context.Background(), newDescribeTool("Invoice.csv", table), `{}`)
	require.NoError(t, err)

	var res struct {
		Rows    int             `json:"rows"`
		Columns []columnSummary `json:"columns"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 4, res.Rows)
	require.Len(t, res.Columns, 3)
	assert.Equal(t, colStatus, res.Columns[2].Name)
	assert.Equal(t, 2, res.Columns[2].Distinct)
	assert.Equal(t, []string{unpaid, paid}, res.Columns[2].Samples)

	_, err = runValidated(context.Background(), newDescribeTool("x", table), `{"extra":1}`)
	assert.Error(t, err)
}

func TestAggregateTool(t *testing.T) {
	table, err := dataset.Load(writeCSV(t))
	require.NoError(t, err)
	tool := newAggregateTool(table)

	for _, tc := range []struct {
		args    string
		result  string
		matched int
		skipped int
	}{
		{`{"operation":"sum","column":"` + colAmount + `"}`, "1500.5", 4, 1},
		{`{"operation":"sum","column":"` + colAmount + `","filters":[{"column":"` + colStatus + `","value":"` + unpaid + `"}]}`, "300.3", 3, 1},
		{`{"operation":"max","column":"` + colAmount + `"}`, "1200.2", 4, 1},
		{`{"operation":"min","column":"` + colAmount + `"}`, "100.1", 4, 1},
		{`{"operation":"avg","column":"` + colAmount + `","filters":[{"column":"` + colStatus + `","value":"` + paid + `"}]}`, "1200.2", 1, 0},
		{`{"operation":"sum","column":"` + colCompany + `"}`, "null", 4, 4},
	} {
		out, err := runValidated(context.Background(), tool, tc.args)
		require.NoError(t, err, tc.args)
		var res aggregateResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		assert.Equal(t, tc.result, res.Result, tc.args)
		assert.Equal(t, tc.matched, res.Matched, tc.args)
		assert.Equal(t, tc.skipped, res.Skipped, tc.args)
	}

	_, err = runValidated(context.Background(), tool, `{"operation":"sum"}`)
	assert.ErrorContains(t, err, "needs a column")

	_, err = runValidated(context.Background(), tool, `{"operation":"count","filters":[{"column":"Status","value":"x"}]}`)
	assert.ErrorContains(t, err, "unknown column")
}

func TestListRowsTool(t *testing.T) {
	table, err := dataset.Load(writeCSV(t))
	require.NoError(t, err)
	tool := newListRowsTool(table)

	out, err := runValidated(context.Background(), tool,
		`{"columns":["`+colCompany+`"],"limit":1,"filters":[{"column":"`+colStatus+`","value":"`+unpaid+`"}]}`)
	require.NoError(t, err)

	var res struct {
		Matched  int                 `json:"matched_rows"`
		Returned int                 `json:"returned"`
		Rows     []map[string]string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 1, res.Returned)
	assert.Equal(t, []map[string]string{{colCompany: "شركة أ"}}, res.Rows)

	_, err = runValidated(context.Background(), tool, `{"limit":500}`)
	assert.ErrorContains(t, err, "invalid arguments")
}

func TestParseNumber(t *testing.T) {
	for in, want := range map[string]string{
		"1,250.50": "1250.5",
		"٣٤٥٫٥":    "345.5",
		" 42 ":     "42",
		"-7":       "-7",
	} {
		d, ok := parseNumber(in)
		require.True(t, ok, in)
		assert.Equal(t, want, d.String(), in)
	}
	for _, in := range []string{"", "n/a", "INV-1000"} {
		_, ok := parseNumber(in)
		assert.False(t, ok, in)
	}
}

func TestRunCodeTool(t *testing.T) {
	csvPath := writeCSV(t)
	tool := newRunCodeTool(csvPath, "sh", 0)

	out, err := runValidated(context.Background(), tool, `{"code":"basename \"$CSV_PATH\""}`)
	require.NoError(t, err)
	assert.Equal(t, "Invoice.csv\n", out)

	out, err = runValidated(context.Background(), tool, `{"code":"echo boom >&2; exit 3"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "[exit status 3]")

	_, err = runValidated(context.Background(), tool, `{"code":""}`)
	assert.Error(t, err)
}

func TestRunCodeToolTimeout(t *testing.T) {
	tool := newRunCodeTool(writeCSV(t), "sh", 100_000_000)

	out, err := runValidated(context.Background(), tool, `{"code":"sleep 5"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "[killed after 100ms]")
}
