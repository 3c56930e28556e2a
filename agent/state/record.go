package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Record is the unit of work threaded through every pipeline stage.
// - conversation/customer are fixed at creation
// - extraction/safety/execution are write-once sections
// - meta keys are additive, decision_trace is append-only
type Record struct {
	runID        string
	createdAt    time.Time
	conversation Conversation
	customer     Customer

	extraction Extraction
	safety     Safety
	execution  Execution
	meta       Meta
	trace      []TraceEntry

	written section
}

type section uint8

const (
	sectionExtraction section = 1 << iota
	sectionSafety
	sectionExecution
	sectionCustomerHistory
	sectionRefillAlerts
)

func (s section) String() string {
	switch s {
	case sectionExtraction:
		return "extraction"
	case sectionSafety:
		return "safety"
	case sectionExecution:
		return "execution"
	case sectionCustomerHistory:
		return "meta.customer_history"
	case sectionRefillAlerts:
		return "meta.refill_alerts"
	default:
		return "unknown"
	}
}

var (
	ErrNilRecord      = errors.New("record is nil")
	ErrSectionWritten = errors.New("record section already written")
	ErrEmptyAgent     = errors.New("trace entry agent is empty")
)

type Intent string

const (
	IntentOrder   Intent = "order"
	IntentRefill  Intent = "refill"
	IntentQuery   Intent = "query"
	IntentUnknown Intent = "unknown"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentOrder, IntentRefill, IntentQuery, IntentUnknown:
		return true
	default:
		return false
	}
}

type Conversation struct {
	Message string `json:"message"`
}

type Customer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type RequestedItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Dosage   string `json:"dosage,omitempty"`
	OTCHint  *bool  `json:"otc_hint,omitempty"`
}

type Extraction struct {
	Intent     Intent          `json:"intent,omitempty"`
	Medicines  []RequestedItem `json:"medicines"`
	Source     string          `json:"source,omitempty"`
	Confidence float64         `json:"confidence"`
}

type Safety struct {
	Approved   bool     `json:"approved"`
	Reason     string   `json:"reason,omitempty"`
	Violations []string `json:"violations"`
	ErrorType  string   `json:"error_type,omitempty"`
}

const (
	ActionInventoryUpdated = "inventory_updated"
	ActionOrderCreated     = "order_created"
	ActionHistoryRecorded  = "history_recorded"
	ActionExecutionFailed  = "execution_failed"
)

type Execution struct {
	OrderID       *int64   `json:"order_id"`
	Actions       []string `json:"actions"`
	FailureReason string   `json:"failure_reason,omitempty"`
}

func (e Execution) Failed() bool {
	for _, a := range e.Actions {
		if a == ActionExecutionFailed {
			return true
		}
	}
	return false
}

type HistoryItem struct {
	Medicine string    `json:"medicine"`
	Quantity int       `json:"quantity"`
	Date     time.Time `json:"date"`
}

type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

type RefillAlert struct {
	Medicine      string    `json:"medicine"`
	DaysRemaining int       `json:"days_remaining"`
	Urgency       Urgency   `json:"urgency"`
	LastOrderedAt time.Time `json:"last_ordered_at"`
	Message       string    `json:"message"`
}

type Meta struct {
	CustomerHistory []HistoryItem `json:"customer_history,omitempty"`
	RefillAlerts    []RefillAlert `json:"refill_alerts,omitempty"`
}

type TraceEntry struct {
	Agent     string `json:"agent"`
	Input     any    `json:"input"`
	Reasoning any    `json:"reasoning"`
	Decision  string `json:"decision"`
	Output    any    `json:"output"`
}

// Outcome is the caller-facing summary of a finished record.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

func NewRecord(runID string, customer Customer, message string, now time.Time) *Record {
	return &Record{
		runID:        runID,
		createdAt:    now.UTC(),
		conversation: Conversation{Message: message},
		customer:     customer,
		extraction:   Extraction{Medicines: []RequestedItem{}},
		safety:       Safety{Violations: []string{}},
		execution:    Execution{Actions: []string{}},
		trace:        make([]TraceEntry, 0, 5),
	}
}

/* ------------------------------- readers -------------------------------- */

func (r *Record) RunID() string              { return r.runID }
func (r *Record) CreatedAt() time.Time       { return r.createdAt }
func (r *Record) Conversation() Conversation { return r.conversation }
func (r *Record) Customer() Customer         { return r.customer }

// Section readers return copies; sections change only through their setters.

func (r *Record) Extraction() Extraction {
	e := r.extraction
	if e.Medicines != nil {
		e.Medicines = make([]RequestedItem, len(r.extraction.Medicines))
		for i, item := range r.extraction.Medicines {
			if item.OTCHint != nil {
				hint := *item.OTCHint
				item.OTCHint = &hint
			}
			e.Medicines[i] = item
		}
	}
	return e
}

func (r *Record) Safety() Safety {
	s := r.safety
	s.Violations = cloneSlice(r.safety.Violations)
	return s
}

func (r *Record) Execution() Execution {
	e := r.execution
	e.Actions = cloneSlice(r.execution.Actions)
	if e.OrderID != nil {
		id := *e.OrderID
		e.OrderID = &id
	}
	return e
}

func (r *Record) Meta() Meta {
	return Meta{
		CustomerHistory: cloneSlice(r.meta.CustomerHistory),
		RefillAlerts:    cloneSlice(r.meta.RefillAlerts),
	}
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Trace returns a copy of the decision trace.
func (r *Record) Trace() []TraceEntry {
	out := make([]TraceEntry, len(r.trace))
	copy(out, r.trace)
	return out
}

// Executed reports whether the execution section was written.
func (r *Record) Executed() bool {
	return r.written&sectionExecution != 0
}

func (r *Record) Outcome() Outcome {
	switch {
	case !r.safety.Approved:
		return OutcomeRejected
	case r.execution.Failed() || r.execution.OrderID == nil:
		return OutcomeFailed
	default:
		return OutcomeApproved
	}
}

/* ------------------------------- writers -------------------------------- */

func (r *Record) SetExtraction(e Extraction) error {
	if err := r.claim(sectionExtraction); err != nil {
		return err
	}
	e.Medicines = cloneSlice(e.Medicines)
	if e.Medicines == nil {
		e.Medicines = []RequestedItem{}
	}
	if e.Intent == "" {
		e.Intent = IntentUnknown
	}
	r.extraction = e
	return nil
}

func (r *Record) SetSafety(s Safety) error {
	if err := r.claim(sectionSafety); err != nil {
		return err
	}
	s.Violations = cloneSlice(s.Violations)
	if s.Violations == nil {
		s.Violations = []string{}
	}
	r.safety = s
	return nil
}

func (r *Record) SetExecution(e Execution) error {
	if err := r.claim(sectionExecution); err != nil {
		return err
	}
	e.Actions = cloneSlice(e.Actions)
	if e.OrderID != nil {
		id := *e.OrderID
		e.OrderID = &id
	}
	if e.Actions == nil {
		e.Actions = []string{}
	}
	r.execution = e
	return nil
}

func (r *Record) SetCustomerHistory(items []HistoryItem) error {
	if err := r.claim(sectionCustomerHistory); err != nil {
		return err
	}
	items = cloneSlice(items)
	if items == nil {
		items = []HistoryItem{}
	}
	r.meta.CustomerHistory = items
	return nil
}

func (r *Record) SetRefillAlerts(alerts []RefillAlert) error {
	if err := r.claim(sectionRefillAlerts); err != nil {
		return err
	}
	alerts = cloneSlice(alerts)
	if alerts == nil {
		alerts = []RefillAlert{}
	}
	r.meta.RefillAlerts = alerts
	return nil
}

func (r *Record) AppendTrace(entry TraceEntry) error {
	if r == nil {
		return ErrNilRecord
	}
	if entry.Agent == "" {
		return ErrEmptyAgent
	}
	r.trace = append(r.trace, entry)
	return nil
}

func (r *Record) claim(s section) error {
	if r == nil {
		return ErrNilRecord
	}
	if r.written&s != 0 {
		return fmt.Errorf("%w: %s", ErrSectionWritten, s)
	}
	r.written |= s
	return nil
}

/* ------------------------------ encoding -------------------------------- */

type recordJSON struct {
	RunID         string       `json:"run_id"`
	Conversation  Conversation `json:"conversation"`
	Customer      Customer     `json:"customer"`
	Extraction    Extraction   `json:"extraction"`
	Safety        Safety       `json:"safety"`
	Execution     Execution    `json:"execution"`
	Meta          Meta         `json:"meta"`
	DecisionTrace []TraceEntry `json:"decision_trace"`
}

func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return json.Marshal(recordJSON{
		RunID:         r.runID,
		Conversation:  r.conversation,
		Customer:      r.customer,
		Extraction:    r.extraction,
		Safety:        r.safety,
		Execution:     r.execution,
		Meta:          r.meta,
		DecisionTrace: r.trace,
	})
}
