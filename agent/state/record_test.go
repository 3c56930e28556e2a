package state

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func newTestRecord() *Record {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return NewRecord("run-1", Customer{ID: 7, Name: "Jane"}, "I need paracetamol", now)
}

func TestNewRecordHasAllSections(t *testing.T) {
	t.Parallel()

	rec := newTestRecord()
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"conversation", "customer", "extraction", "safety", "execution", "meta", "decision_trace"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("missing key %q in %s", key, raw)
		}
	}
	if string(decoded["decision_trace"]) != "[]" {
		t.Fatalf("decision_trace = %s, want []", decoded["decision_trace"])
	}
}

func TestRecordWriteOnceSections(t *testing.T) {
	t.Parallel()

	rec := newTestRecord()
	if err := rec.SetExtraction(Extraction{Intent: IntentOrder}); err != nil {
		t.Fatalf("SetExtraction() error = %v", err)
	}
	if err := rec.SetExtraction(Extraction{}); !errors.Is(err, ErrSectionWritten) {
		t.Fatalf("second SetExtraction() error = %v, want ErrSectionWritten", err)
	}
	if err := rec.SetSafety(Safety{Approved: true}); err != nil {
		t.Fatalf("SetSafety() error = %v", err)
	}
	if err := rec.SetSafety(Safety{}); !errors.Is(err, ErrSectionWritten) {
		t.Fatalf("second SetSafety() error = %v, want ErrSectionWritten", err)
	}
	if err := rec.SetRefillAlerts(nil); err != nil {
		t.Fatalf("SetRefillAlerts() error = %v", err)
	}
	if err := rec.SetRefillAlerts(nil); !errors.Is(err, ErrSectionWritten) {
		t.Fatalf("second SetRefillAlerts() error = %v, want ErrSectionWritten", err)
	}
	if rec.Conversation().Message != "I need paracetamol" {
		t.Fatalf("conversation changed: %q", rec.Conversation().Message)
	}
}

func TestRecordSetExtractionDefaults(t *testing.T) {
	t.Parallel()

	rec := newTestRecord()
	if err := rec.SetExtraction(Extraction{}); err != nil {
		t.Fatalf("SetExtraction() error = %v", err)
	}
	got := rec.Extraction()
	if got.Intent != IntentUnknown {
		t.Fatalf("Intent = %q, want unknown", got.Intent)
	}
	if got.Medicines == nil {
		t.Fatal("Medicines must not be nil")
	}
}

func TestRecordTraceIsCopied(t *testing.T) {
	t.Parallel()

	rec := newTestRecord()
	if err := rec.AppendTrace(TraceEntry{Agent: "memory_agent", Decision: "context_provided"}); err != nil {
		t.Fatalf("AppendTrace() error = %v", err)
	}
	if err := rec.AppendTrace(TraceEntry{}); !errors.Is(err, ErrEmptyAgent) {
		t.Fatalf("AppendTrace(empty) error = %v, want ErrEmptyAgent", err)
	}

	trace := rec.Trace()
	trace[0].Agent = "tampered"
	if rec.Trace()[0].Agent != "memory_agent" {
		t.Fatal("Trace() must return a copy")
	}
}

func TestRecordSectionsAreCopied(t *testing.T) {
	t.Parallel()

	rec := newTestRecord()
	items := []RequestedItem{{Name: "Paracetamol 500mg", Quantity: 2}}
	if err := rec.SetExtraction(Extraction{Intent: IntentOrder, Medicines: items}); err != nil {
		t.Fatalf("SetExtraction() error = %v", err)
	}
	if err := rec.SetSafety(Safety{Violations: []string{"blocked"}}); err != nil {
		t.Fatalf("SetSafety() error = %v", err)
	}
	orderID := int64(11)
	if err := rec.SetExecution(Execution{OrderID: &orderID, Actions: []string{ActionOrderCreated}}); err != nil {
		t.Fatalf("SetExecution() error = %v", err)
	}
	if err := rec.SetCustomerHistory([]HistoryItem{{Medicine: "Aspirin 81mg", Quantity: 1}}); err != nil {
		t.Fatalf("SetCustomerHistory() error = %v", err)
	}

	items[0].Quantity = 500
	rec.Extraction().Medicines[0].Quantity = 999
	rec.Safety().Violations[0] = "tampered"
	*rec.Execution().OrderID = 0
	rec.Execution().Actions[0] = "tampered"
	rec.Meta().CustomerHistory[0].Quantity = 999

	if got := rec.Extraction().Medicines[0].Quantity; got != 2 {
		t.Fatalf("extraction quantity = %d, want 2", got)
	}
	if got := rec.Safety().Violations[0]; got != "blocked" {
		t.Fatalf("violation = %q, want blocked", got)
	}
	if got := *rec.Execution().OrderID; got != 11 {
		t.Fatalf("order id = %d, want 11", got)
	}
	if got := rec.Execution().Actions[0]; got != ActionOrderCreated {
		t.Fatalf("action = %q, want %q", got, ActionOrderCreated)
	}
	if got := rec.Meta().CustomerHistory[0].Quantity; got != 1 {
		t.Fatalf("history quantity = %d, want 1", got)
	}
}

func TestRecordOutcome(t *testing.T) {
	t.Parallel()

	orderID := int64(42)
	tests := []struct {
		name      string
		safety    Safety
		execution *Execution
		want      Outcome
	}{
		{name: "rejected", safety: Safety{Approved: false}, want: OutcomeRejected},
		{
			name:      "approved",
			safety:    Safety{Approved: true},
			execution: &Execution{OrderID: &orderID, Actions: []string{ActionOrderCreated}},
			want:      OutcomeApproved,
		},
		{
			name:      "failed",
			safety:    Safety{Approved: true},
			execution: &Execution{Actions: []string{ActionExecutionFailed}},
			want:      OutcomeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := newTestRecord()
			if err := rec.SetSafety(tt.safety); err != nil {
				t.Fatalf("SetSafety() error = %v", err)
			}
			if tt.execution != nil {
				if err := rec.SetExecution(*tt.execution); err != nil {
					t.Fatalf("SetExecution() error = %v", err)
				}
			}
			if got := rec.Outcome(); got != tt.want {
				t.Fatalf("Outcome() = %q, want %q", got, tt.want)
			}
		})
	}
}
