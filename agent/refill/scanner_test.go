package refill

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	"github.com/tanpawarit/agentic-pharmacy/agent/policy"
	qstashx "github.com/tanpawarit/agentic-pharmacy/pkg/qstash"
)

var scanNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeRefillStore struct {
	customers []int64
	history   map[int64][]contractx.HistoryRow
	pending   map[int64]map[string]bool
	inserted  []contractx.RefillAlertRow
	listErr   error
	limits    []int
}

func (f *fakeRefillStore) ListCustomerIDs(ctx context.Context) ([]int64, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.customers, nil
}

func (f *fakeRefillStore) RecentHistory(ctx context.Context, customerID int64, limit int) ([]contractx.HistoryRow, error) {
	f.limits = append(f.limits, limit)
	return f.history[customerID], nil
}

func (f *fakeRefillStore) HasPendingRefillAlert(ctx context.Context, customerID int64, medicineName string) (bool, error) {
	return f.pending[customerID][medicineName], nil
}

func (f *fakeRefillStore) InsertRefillAlerts(ctx context.Context, alerts []contractx.RefillAlertRow) error {
	f.inserted = append(f.inserted, alerts...)
	return nil
}

type fakeNotifier struct {
	err   error
	calls int
	got   []contractx.RefillAlertRow
}

func (f *fakeNotifier) NotifyRefillAlerts(ctx context.Context, alerts []contractx.RefillAlertRow) error {
	f.calls++
	f.got = append(f.got, alerts...)
	return f.err
}

func newTestScanner(t *testing.T, store contractx.RefillStore, notifier contractx.Notifier) *Scanner {
	t.Helper()

	s, err := NewScanner(store, notifier, policy.DefaultConfig)
	if err != nil {
		t.Fatalf("NewScanner() error = %v", err)
	}
	s.now = func() time.Time { return scanNow }
	return s
}

func daysAgo(n int) time.Time {
	return scanNow.Add(-time.Duration(n) * 24 * time.Hour)
}

func TestScanCreatesAlertsAndSkipsPending(t *testing.T) {
	t.Parallel()

	store := &fakeRefillStore{
		customers: []int64{1, 2},
		history: map[int64][]contractx.HistoryRow{
			1: {
				// newest paracetamol: 3 units 2 days ago -> 1 day left
				{ID: 3, MedicineName: "Paracetamol 500mg", Quantity: 3, CreatedAt: daysAgo(2)},
				{ID: 1, MedicineName: "Paracetamol 500mg", Quantity: 30, CreatedAt: daysAgo(20)},
				// 30 units yesterday -> plenty left
				{ID: 2, MedicineName: "Vitamin C 500mg", Quantity: 30, CreatedAt: daysAgo(1)},
			},
			2: {
				{ID: 4, MedicineName: "Ibuprofen 200mg", Quantity: 5, CreatedAt: daysAgo(2)},
			},
		},
		pending: map[int64]map[string]bool{
			2: {"Ibuprofen 200mg": true},
		},
	}
	notifier := &fakeNotifier{}
	s := newTestScanner(t, store, notifier)

	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if res.CustomersScanned != 2 {
		t.Fatalf("unexpected customers scanned: %d", res.CustomersScanned)
	}
	if res.Skipped != 1 {
		t.Fatalf("expected one skipped pending alert, got %d", res.Skipped)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected one inserted alert, got %#v", store.inserted)
	}
	alert := store.inserted[0]
	if alert.CustomerID != 1 || alert.MedicineName != "Paracetamol 500mg" || alert.DaysRemaining != 1 || alert.Urgency != "high" {
		t.Fatalf("unexpected alert: %#v", alert)
	}
	if alert.Status != "pending" || !alert.CreatedAt.Equal(scanNow) {
		t.Fatalf("unexpected alert status/time: %#v", alert)
	}
	if notifier.calls != 1 || len(notifier.got) != 1 || !res.Notified {
		t.Fatalf("expected one notification, calls=%d notified=%v", notifier.calls, res.Notified)
	}
	for _, limit := range store.limits {
		if limit != policy.DefaultConfig.ScanLimit {
			t.Fatalf("unexpected history limit: %d", limit)
		}
	}
}

func TestScanNothingToNotify(t *testing.T) {
	t.Parallel()

	store := &fakeRefillStore{customers: []int64{1}, history: map[int64][]contractx.HistoryRow{}}
	notifier := &fakeNotifier{}
	s := newTestScanner(t, store, notifier)

	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(res.Created) != 0 || notifier.calls != 0 {
		t.Fatalf("expected no alerts and no notification, got %#v calls=%d", res.Created, notifier.calls)
	}
}

func TestScanNotifyFailureKeepsAlerts(t *testing.T) {
	t.Parallel()

	store := &fakeRefillStore{
		customers: []int64{1},
		history: map[int64][]contractx.HistoryRow{
			1: {{ID: 1, MedicineName: "Aspirin 81mg", Quantity: 1, CreatedAt: daysAgo(5)}},
		},
	}
	notifier := &fakeNotifier{err: errors.New("qstash down")}
	s := newTestScanner(t, store, notifier)

	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.Notified {
		t.Fatal("expected notified=false")
	}
	if len(store.inserted) != 1 || store.inserted[0].DaysRemaining != 0 {
		t.Fatalf("expected stored alert, got %#v", store.inserted)
	}
}

func TestScanListErrorPropagates(t *testing.T) {
	t.Parallel()

	listErr := errors.New("db down")
	s := newTestScanner(t, &fakeRefillStore{listErr: listErr}, nil)

	if _, err := s.Scan(context.Background()); !errors.Is(err, listErr) {
		t.Fatalf("expected list error, got %v", err)
	}
}

func TestQStashNotifierPublishesBatch(t *testing.T) {
	t.Parallel()

	var body alertBatch
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"messageId":"msg_1"}`))
	}))
	defer server.Close()

	client := qstashx.MustNew(qstashx.Config{URL: server.URL, Token: "tok"}, qstashx.WithHTTPClient(server.Client()))
	notifier, err := NewQStashNotifier(client, "https://hooks.example.com/refill")
	if err != nil {
		t.Fatalf("NewQStashNotifier() error = %v", err)
	}

	err = notifier.NotifyRefillAlerts(context.Background(), []contractx.RefillAlertRow{
		{CustomerID: 1, MedicineName: "Aspirin 81mg", DaysRemaining: 0, Urgency: "high", Status: "pending", CreatedAt: scanNow},
	})
	if err != nil {
		t.Fatalf("NotifyRefillAlerts() error = %v", err)
	}
	if len(body.Alerts) != 1 || body.Alerts[0].MedicineName != "Aspirin 81mg" {
		t.Fatalf("unexpected published body: %#v", body)
	}
}

func TestNewQStashNotifierValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewQStashNotifier(nil, "https://hooks.example.com"); err == nil {
		t.Fatal("expected error for nil client")
	}
	client := qstashx.MustNew(qstashx.Config{URL: "https://qstash.upstash.io", Token: "tok"})
	if _, err := NewQStashNotifier(client, " "); err == nil {
		t.Fatal("expected error for empty destination")
	}
}
