package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dreschagin/evaluation-dashboard/internal/application/dto"
)

const jsonHistory = `[
  {"id": "e2", "time": "2026-04-02T10:30:00Z", "data": {"project": "sockshop", "stage": "prod", "service": "carts",
    "evaluation": {"score": 40, "result": "fail", "indicatorResults": [
      {"displayName": "error rate", "status": "warning", "value": {"metric": "error_rate", "value": 2}},
      {"displayName": "response time p95", "status": "fail", "value": {"metric": "rt_p95", "value": 900}}
    ]}}},
  {"id": "e1", "time": "2026-04-02T09:30:00Z", "data": {"project": "sockshop", "stage": "prod", "service": "carts",
    "evaluation": {"score": 100, "result": "pass", "indicatorResults": [
      {"displayName": "response time p95", "status": "pass", "value": {"metric": "rt_p95", "value": 200}}
    ]}}}
]`

const yamlHistory = `- id: e1
  time: 2026-04-02T09:30:00Z
  data:
    project: sockshop
    stage: prod
    service: carts
    evaluation:
      score: 100
      result: pass
      indicatorResults:
        - displayName: response time p95
          status: pass
          value:
            metric: rt_p95
            value: 200
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRender_JSONSortsHistoryAndOrdersRows(t *testing.T) {
	input := writeFile(t, "history.json", jsonHistory)

	out, err := run(t, "render", "-i", input, "-f", "json", "--selected", "score|2026-04-02T10:30:00Z")
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	var grid dto.GridDTO
	if err := json.Unmarshal([]byte(out), &grid); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}

	if got := strings.Join(grid.ColKeys, ","); got != "2026-04-02T09:30:00Z,2026-04-02T10:30:00Z" {
		t.Fatalf("columns = %s", got)
	}
	if got := strings.Join(grid.RowKeys, ","); got != "score,response time p95,error rate" {
		t.Fatalf("rows = %s", got)
	}
	if len(grid.Cells) != 5 || grid.Project != "sockshop" {
		t.Fatalf("unexpected grid: %+v", grid)
	}
	if grid.Selected == nil || grid.Selected.Col != "2026-04-02T10:30:00Z" {
		t.Fatalf("selection not applied: %+v", grid.Selected)
	}
}

func TestRender_CustomCanonicalRows(t *testing.T) {
	input := writeFile(t, "history.json", jsonHistory)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "canonical", args: []string{"--rows", "error rate"}, want: "error rate,score,response time p95"},
		{name: "first seen", args: []string{"--rows", "error rate", "--canonical=false"}, want: "score,response time p95,error rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"render", "-i", input, "-f", "json"}, tt.args...)
			out, err := run(t, args...)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			var grid dto.GridDTO
			if err := json.Unmarshal([]byte(out), &grid); err != nil {
				t.Fatalf("decode output: %v", err)
			}
			if got := strings.Join(grid.RowKeys, ","); got != tt.want {
				t.Fatalf("rows = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRender_TerminalFromYAML(t *testing.T) {
	input := writeFile(t, "history.yaml", yamlHistory)

	out, err := run(t, "render", "--input", input)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"✓", "response time p95", "2026-04-02T09:30:00Z"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in terminal output:\n%s", want, out)
		}
	}
}

func TestRender_PNGToFile(t *testing.T) {
	input := writeFile(t, "history.json", jsonHistory)
	output := filepath.Join(t.TempDir(), "heatmap.png")

	if _, err := run(t, "render", "-i", input, "-f", "png", "-o", output); err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatal("expected PNG signature")
	}
}

func TestRender_Errors(t *testing.T) {
	mixed := strings.Replace(jsonHistory, `"service": "carts",
    "evaluation": {"score": 100`, `"service": "orders",
    "evaluation": {"score": 100`, 1)
	invalid := strings.Replace(jsonHistory, `"result": "pass"`, `"result": "info"`, 1)

	tests := []struct {
		name    string
		file    string
		content string
		args    []string
		wantErr string
	}{
		{name: "mixed scopes", file: "h.json", content: mixed, wantErr: "mixes scopes"},
		{name: "invalid category", file: "h.json", content: invalid, wantErr: "invalid result category"},
		{name: "bad selection", file: "h.json", content: jsonHistory, args: []string{"--selected", "score"}, wantErr: "row|col"},
		{name: "unknown format", file: "h.json", content: jsonHistory, args: []string{"-f", "gif"}, wantErr: "unknown format"},
		{name: "malformed json", file: "h.json", content: `[{`, wantErr: "parse json history"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := writeFile(t, tt.file, tt.content)
			args := append([]string{"render", "-i", input}, tt.args...)
			_, err := run(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRender_RequiresInput(t *testing.T) {
	if _, err := run(t, "render"); err == nil {
		t.Fatal("expected missing --input error")
	}
}
