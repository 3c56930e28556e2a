package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	contractx "github.com/tanpawarit/agentic-pharmacy/agent/contract"
	statex "github.com/tanpawarit/agentic-pharmacy/agent/state"
)

const pgLockNotAvailable = "55P03"

var (
	_ contractx.Store       = (*Store)(nil)
	_ contractx.RefillStore = (*Store)(nil)
	_ contractx.OrderTx     = (*orderTx)(nil)
)

// Store is the bun-backed persistence layer for PostgreSQL and SQLite.
type Store struct {
	db          *bun.DB
	lockTimeout time.Duration
}

// Open connects to the configured database. SQLite is limited to a single
// connection so concurrent writers are serialised.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var db *bun.DB
	switch strings.TrimSpace(cfg.Driver) {
	case DriverPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
		if cfg.MaxOpenConns > 0 {
			sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		sqldb.SetMaxIdleConns(1)
		sqldb.SetConnMaxLifetime(0)
		db = bun.NewDB(sqldb, sqlitedialect.New())

		pragmas := []string{
			"PRAGMA foreign_keys = ON",
			fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.LockTimeout.Milliseconds()),
		}
		for _, p := range pragmas {
			if _, err := db.ExecContext(ctx, p); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("sqlite %q: %w", p, err)
			}
		}
	}

	if cfg.Debug {
		db.AddQueryHook(queryLogger{})
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	return New(db, cfg.LockTimeout), nil
}

// New wraps an existing bun handle.
func New(db *bun.DB, lockTimeout time.Duration) *Store {
	return &Store{db: db, lockTimeout: lockTimeout}
}

func (s *Store) DB() *bun.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetCustomer(ctx context.Context, customerID int64) (*contractx.Customer, error) {
	var m customerModel
	err := s.db.NewSelect().Model(&m).Where("c.id = ?", customerID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%d", contractx.ErrCustomerNotFound, customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("get customer %d: %w", customerID, err)
	}
	c := m.contract()
	return &c, nil
}

func (s *Store) FindMedicine(ctx context.Context, name string) (*contractx.Medicine, error) {
	return findMedicine(ctx, s.db, name, false)
}

func (s *Store) HasValidPrescription(ctx context.Context, customerID, medicineID int64, now time.Time) (bool, error) {
	var rows []prescriptionModel
	err := s.db.NewSelect().
		Model(&rows).
		Where("p.customer_id = ?", customerID).
		Where("p.medicine_id = ?", medicineID).
		Scan(ctx)
	if err != nil {
		return false, fmt.Errorf("list prescriptions: %w", err)
	}
	for _, row := range rows {
		if row.contract().Valid(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) RecentHistory(ctx context.Context, customerID int64, limit int) ([]contractx.HistoryRow, error) {
	var rows []historyModel
	q := s.db.NewSelect().
		Model(&rows).
		Where("h.customer_id = ?", customerID).
		OrderExpr("h.created_at DESC").
		OrderExpr("h.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}

	out := make([]contractx.HistoryRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.contract())
	}
	return out, nil
}

// AppendAuditRows writes one row per trace entry under runID in a single transaction.
func (s *Store) AppendAuditRows(ctx context.Context, runID string, entries []statex.TraceEntry, now time.Time) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]decisionTraceModel, 0, len(entries))
	for i, e := range entries {
		input, err := marshalColumn(e.Input)
		if err != nil {
			return fmt.Errorf("audit entry %d input: %w", i, err)
		}
		reasoning, err := marshalColumn(e.Reasoning)
		if err != nil {
			return fmt.Errorf("audit entry %d reasoning: %w", i, err)
		}
		output, err := marshalColumn(e.Output)
		if err != nil {
			return fmt.Errorf("audit entry %d output: %w", i, err)
		}
		rows = append(rows, decisionTraceModel{
			RunID:     runID,
			AgentName: e.Agent,
			Input:     input,
			Reasoning: reasoning,
			Decision:  e.Decision,
			Output:    output,
			CreatedAt: now.UTC(),
		})
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("insert audit rows: %w", err)
		}
		return nil
	})
}

// RunInTx runs fn in one transaction. Any error from fn rolls back every write.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx contractx.OrderTx) error) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if tx.Dialect().Name() == dialect.PG && s.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}
		return fn(ctx, &orderTx{tx: tx})
	})
	return mapLockError(err)
}

func (s *Store) ListCustomerIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.NewSelect().
		Model((*customerModel)(nil)).
		ColumnExpr("c.id").
		OrderExpr("c.id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return ids, nil
}

func (s *Store) HasPendingRefillAlert(ctx context.Context, customerID int64, medicineName string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*refillAlertModel)(nil)).
		Where("ra.customer_id = ?", customerID).
		Where("ra.medicine_name = ?", medicineName).
		Where("ra.status = ?", refillStatusPending).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check pending refill alert: %w", err)
	}
	return exists, nil
}

func (s *Store) InsertRefillAlerts(ctx context.Context, alerts []contractx.RefillAlertRow) error {
	if len(alerts) == 0 {
		return nil
	}

	rows := make([]refillAlertModel, 0, len(alerts))
	for _, a := range alerts {
		status := a.Status
		if status == "" {
			status = refillStatusPending
		}
		rows = append(rows, refillAlertModel{
			CustomerID:    a.CustomerID,
			MedicineName:  a.MedicineName,
			DaysRemaining: a.DaysRemaining,
			Urgency:       a.Urgency,
			Status:        status,
			CreatedAt:     a.CreatedAt.UTC(),
		})
	}

	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert refill alerts: %w", err)
	}
	return nil
}

func (s *Store) ListRefillAlerts(ctx context.Context, customerID int64) ([]contractx.RefillAlertRow, error) {
	var rows []refillAlertModel
	if err := s.db.NewSelect().
		Model(&rows).
		Where("ra.customer_id = ?", customerID).
		OrderExpr("ra.id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list refill alerts: %w", err)
	}

	out := make([]contractx.RefillAlertRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.contract())
	}
	return out, nil
}

// LowStock lists medicines at or below threshold, lowest stock first.
func (s *Store) LowStock(ctx context.Context, threshold int) ([]contractx.LowStockEntry, error) {
	var rows []medicineModel
	if err := s.db.NewSelect().
		Model(&rows).
		Where("m.stock_quantity <= ?", threshold).
		OrderExpr("m.stock_quantity ASC").
		OrderExpr("m.id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}

	out := make([]contractx.LowStockEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, contractx.LowStockEntry{
			Medicine: row.contract(),
			Status:   stockStatus(row.StockQuantity),
		})
	}
	return out, nil
}

func (s *Store) RecentAuditRows(ctx context.Context, limit int) ([]contractx.AuditRow, error) {
	var rows []decisionTraceModel
	q := s.db.NewSelect().Model(&rows).OrderExpr("dt.id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("recent audit rows: %w", err)
	}

	out := make([]contractx.AuditRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.contract())
	}
	return out, nil
}

// AuditRowsForRun returns the rows of one run in insertion order.
func (s *Store) AuditRowsForRun(ctx context.Context, runID string) ([]contractx.AuditRow, error) {
	var rows []decisionTraceModel
	if err := s.db.NewSelect().
		Model(&rows).
		Where("dt.run_id = ?", runID).
		OrderExpr("dt.id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("audit rows for run %s: %w", runID, err)
	}

	out := make([]contractx.AuditRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.contract())
	}
	return out, nil
}

func stockStatus(quantity int) contractx.StockStatus {
	if quantity <= 5 {
		return contractx.StockCritical
	}
	return contractx.StockLow
}

func findMedicine(ctx context.Context, db bun.IDB, name string, forUpdate bool) (*contractx.Medicine, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, fmt.Errorf("%w: empty name", contractx.ErrMedicineNotFound)
	}

	var m medicineModel
	q := db.NewSelect().
		Model(&m).
		Where("LOWER(m.name) LIKE ? ESCAPE '!'", "%"+escapeLike(needle)+"%").
		OrderExpr("m.id ASC").
		Limit(1)
	if forUpdate && db.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}

	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", contractx.ErrMedicineNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("find medicine %q: %w", name, mapLockError(err))
	}
	med := m.contract()
	return &med, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// mapLockError folds driver-level lock contention into ErrLockTimeout.
func mapLockError(err error) error {
	if err == nil || errors.Is(err, contractx.ErrLockTimeout) {
		return err
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == pgLockNotAvailable {
		return fmt.Errorf("%w: %v", contractx.ErrLockTimeout, err)
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_BUSY {
		return fmt.Errorf("%w: %v", contractx.ErrLockTimeout, err)
	}
	return err
}

func marshalColumn(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

type queryLogger struct{}

func (queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	evt := log.Debug()
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		evt = log.Warn().Err(event.Err)
	}
	evt.Str("operation", event.Operation()).
		Dur("took", time.Since(event.StartTime)).
		Str("query", event.Query).
		Msg("db query")
}
