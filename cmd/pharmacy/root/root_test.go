package root

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootWithoutArgsPrintsHelp(t *testing.T) {
	out, err := runCmd(t)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "order") || !strings.Contains(out, "low-stock") {
		t.Fatalf("expected help listing subcommands, got %q", out)
	}
}

func TestOrderRequiresFlags(t *testing.T) {
	if _, err := runCmd(t, "order", "--message", "2 tylenol"); err == nil || !strings.Contains(err.Error(), "--customer") {
		t.Fatalf("expected missing customer error, got %v", err)
	}
	if _, err := runCmd(t, "order", "--customer", "1"); err == nil || !strings.Contains(err.Error(), "--message") {
		t.Fatalf("expected missing message error, got %v", err)
	}
}

func TestSeedOrderAndReports(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", filepath.Join(t.TempDir(), "pharmacy.db"))
	t.Setenv("LLM_STRATEGY", "rules")

	if _, err := runCmd(t, "seed"); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	out, err := runCmd(t, "order", "--customer", "1", "--message", "I need 2 tylenol")
	if err != nil {
		t.Fatalf("order error = %v", err)
	}
	var record struct {
		RunID  string `json:"run_id"`
		Safety struct {
			Approved bool `json:"approved"`
		} `json:"safety"`
		Execution struct {
			OrderID *int64   `json:"order_id"`
			Actions []string `json:"actions"`
		} `json:"execution"`
		DecisionTrace []json.RawMessage `json:"decision_trace"`
	}
	if err := json.Unmarshal([]byte(out), &record); err != nil {
		t.Fatalf("decode record: %v\n%s", err, out)
	}
	if !record.Safety.Approved || record.Execution.OrderID == nil || len(record.DecisionTrace) != 5 {
		t.Fatalf("unexpected record: %s", out)
	}

	out, err = runCmd(t, "traces", "--run", record.RunID)
	if err != nil {
		t.Fatalf("traces error = %v", err)
	}
	var rows []json.RawMessage
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode traces: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 audit rows, got %d", len(rows))
	}

	out, err = runCmd(t, "low-stock", "--threshold", "10")
	if err != nil {
		t.Fatalf("low-stock error = %v", err)
	}
	if !strings.Contains(out, "Aspirin 81mg") || !strings.Contains(out, "Cetirizine 10mg") {
		t.Fatalf("unexpected low stock report: %s", out)
	}

	out, err = runCmd(t, "scan")
	if err != nil {
		t.Fatalf("scan error = %v", err)
	}
	if !strings.Contains(out, "Paracetamol 500mg") {
		t.Fatalf("expected a refill alert for the fresh order, got %s", out)
	}
}
