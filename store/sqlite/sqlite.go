/*
Package sqlite provides a SQLite-backed implementation of vacation.TxStore.

PURPOSE:
  Durable storage for the ledger, employees, vacation requests and balance
  snapshots. Every service in the vacation package runs against this store.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on transactions table
  - No DELETE statements on transactions table
  - Corrections via reversal transactions only

KEY TABLES:
  transactions:       Immutable ledger (pending / consumption / reversal)
  employees:          Employee forest (jefe_id -> employees.id)
  requests:           Vacation requests, versioned for compare-and-swap
  balance_snapshots:  Cached balances per (employee, period)

INDEXES:
  - idx_transactions_entity_period: availability check (hot path)
  - idx_transactions_reference:     reservation state by token
  - idx_requests_requester_dates:   overlap check on submit
  - idx_employees_jefe:             subordinate lookups

CONCURRENCY:
  WithTx holds a process-wide mutex and opens an IMMEDIATE transaction, so
  writers never deadlock on a lock upgrade. Reads outside WithTx go straight
  to the pool; WAL lets them proceed while a writer is active.

USAGE:
  store, err := sqlite.New("./data/vacaciones.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/vacation-engine/generic"
	"github.com/warp/vacation-engine/vacation"
)

// Store implements vacation.TxStore using SQLite.
type Store struct {
	queries
	db *sql.DB
	mu sync.Mutex
}

var _ vacation.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if strings.HasPrefix(dbPath, ":memory:") {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{queries: queries{q: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		period INTEGER NOT NULL,
		resource_type TEXT NOT NULL,
		effective_at TEXT NOT NULL,
		delta_value TEXT NOT NULL,
		delta_unit TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		reference_id TEXT,
		reason TEXT,
		idempotency_key TEXT UNIQUE,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_entity_period
		ON transactions(entity_id, period, resource_type);
	CREATE INDEX IF NOT EXISTS idx_transactions_reference
		ON transactions(reference_id) WHERE reference_id IS NOT NULL;

	-- Employees (self-referencing forest)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		hire_date TEXT NOT NULL,
		foreign_national INTEGER NOT NULL DEFAULT 0,
		jefe_id TEXT REFERENCES employees(id),
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_jefe
		ON employees(jefe_id) WHERE jefe_id IS NOT NULL;

	-- Vacation requests (never deleted)
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		requester_id TEXT NOT NULL REFERENCES employees(id),
		approver_id TEXT,
		superior_id TEXT,
		kind TEXT NOT NULL,
		days INTEGER NOT NULL CHECK (days > 0),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL CHECK (end_date >= start_date),
		weekend_days INTEGER NOT NULL DEFAULT 0,
		period INTEGER NOT NULL,
		state TEXT NOT NULL,
		submitted_at TEXT NOT NULL,
		decided_at TEXT,
		comments TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		cancel_reason TEXT NOT NULL DEFAULT '',
		cancelled_by TEXT,
		cancelled_at TEXT,
		token_id TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_requests_requester_dates
		ON requests(requester_id, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_requests_state
		ON requests(state);

	-- Balance snapshots (cache, safe to drop)
	CREATE TABLE IF NOT EXISTS balance_snapshots (
		employee_id TEXT NOT NULL,
		period INTEGER NOT NULL,
		vencidas INTEGER NOT NULL,
		pendientes INTEGER NOT NULL,
		truncas INTEGER NOT NULL,
		dias_libres INTEGER NOT NULL,
		dias_bloque INTEGER NOT NULL,
		fecha_corte TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, period)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (vacation.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(vacation.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &generic.StorageError{Op: "begin transaction", Err: err}
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{queries{q: sqlTx}}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &generic.StorageError{Op: "commit transaction", Err: err}
	}
	return nil
}

type txStore struct {
	queries
}

var _ vacation.Store = (*txStore)(nil)

// =============================================================================
// QUERIES - shared by Store and txStore
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q querier
}

// =============================================================================
// TRANSACTION STORE (generic.EntityStore interface)
// =============================================================================

const transactionColumns = `id, entity_id, period, resource_type, effective_at, delta_value, delta_unit,
	tx_type, reference_id, reason, idempotency_key, created_by, created_at`

// Append adds a transaction to the ledger.
func (qs queries) Append(ctx context.Context, tx generic.Transaction) error {
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	resource := ""
	if tx.ResourceType != nil {
		resource = tx.ResourceType.ResourceID()
	}

	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(tx.ID),
		string(tx.EntityID),
		tx.Period,
		resource,
		tx.EffectiveAt.String(),
		tx.Delta.Value.String(),
		string(tx.Delta.Unit),
		string(tx.Type),
		nullString(tx.ReferenceID),
		tx.Reason,
		nullString(tx.IdempotencyKey),
		nullString(tx.CreatedBy),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// AppendBatch adds multiple transactions. Atomic when called on the store
// handed out by WithTx; on the bare Store it opens its own transaction.
func (qs queries) AppendBatch(ctx context.Context, txs []generic.Transaction) error {
	seen := make(map[string]bool, len(txs))
	for _, tx := range txs {
		if tx.IdempotencyKey == "" {
			continue
		}
		if seen[tx.IdempotencyKey] {
			return generic.ErrDuplicateIdempotencyKey
		}
		seen[tx.IdempotencyKey] = true
	}

	if db, ok := qs.q.(*sql.DB); ok {
		sqlTx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer sqlTx.Rollback()
		if err := (queries{q: sqlTx}).appendAll(ctx, txs); err != nil {
			return err
		}
		return sqlTx.Commit()
	}
	return qs.appendAll(ctx, txs)
}

func (qs queries) appendAll(ctx context.Context, txs []generic.Transaction) error {
	for _, tx := range txs {
		if err := qs.Append(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

// Load returns all transactions for an entity+period.
func (qs queries) Load(ctx context.Context, entityID generic.EntityID, period int) ([]generic.Transaction, error) {
	return qs.queryTransactions(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE entity_id = ? AND period = ?
		ORDER BY effective_at ASC, rowid ASC`,
		string(entityID), period)
}

// LoadByReference returns the transactions of one reservation.
func (qs queries) LoadByReference(ctx context.Context, referenceID string) ([]generic.Transaction, error) {
	return qs.queryTransactions(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE reference_id = ?
		ORDER BY rowid ASC`,
		referenceID)
}

// LoadByEntity returns every transaction of an entity.
func (qs queries) LoadByEntity(ctx context.Context, entityID generic.EntityID) ([]generic.Transaction, error) {
	return qs.queryTransactions(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE entity_id = ?
		ORDER BY period ASC, effective_at ASC, rowid ASC`,
		string(entityID))
}

// Exists checks if an idempotency key exists.
func (qs queries) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	var count int
	err := qs.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)
	return count > 0, err
}

func (qs queries) queryTransactions(ctx context.Context, query string, args ...any) ([]generic.Transaction, error) {
	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []generic.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (generic.Transaction, error) {
	var (
		tx             generic.Transaction
		resourceTypeID string
		effectiveAt    string
		deltaValue     string
		deltaUnit      string
		referenceID    sql.NullString
		reason         sql.NullString
		idempotencyKey sql.NullString
		createdBy      sql.NullString
		createdAt      string
	)

	err := rows.Scan(
		&tx.ID, &tx.EntityID, &tx.Period, &resourceTypeID,
		&effectiveAt, &deltaValue, &deltaUnit, &tx.Type,
		&referenceID, &reason, &idempotencyKey, &createdBy, &createdAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	value, err := decimal.NewFromString(deltaValue)
	if err != nil {
		return tx, fmt.Errorf("transaction %s: bad delta %q: %w", tx.ID, deltaValue, err)
	}

	tx.ResourceType = generic.GetOrCreateResource(resourceTypeID)
	tx.EffectiveAt = parseDate(effectiveAt)
	tx.Delta = generic.Amount{Value: value, Unit: generic.Unit(deltaUnit)}
	tx.ReferenceID = referenceID.String
	tx.Reason = reason.String
	tx.IdempotencyKey = idempotencyKey.String
	tx.CreatedBy = createdBy.String
	tx.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return tx, nil
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

const employeeColumns = `id, name, email, hire_date, foreign_national, jefe_id`

// SaveEmployee inserts or replaces an employee.
func (qs queries) SaveEmployee(ctx context.Context, e vacation.Employee) error {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			hire_date = excluded.hire_date,
			foreign_national = excluded.foreign_national,
			jefe_id = excluded.jefe_id,
			updated_at = excluded.updated_at`,
		string(e.ID), e.Name, e.Email, e.HireDate.String(), e.Foreign,
		nullString(string(e.JefeID)), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// GetEmployee retrieves an employee by ID.
func (qs queries) GetEmployee(ctx context.Context, id generic.EntityID) (vacation.Employee, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, string(id))
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return vacation.Employee{}, fmt.Errorf("employee %s: %w", id, generic.ErrNotFound)
	}
	return e, err
}

// ListSubordinates returns the direct reports of id ordered by name.
func (qs queries) ListSubordinates(ctx context.Context, id generic.EntityID) ([]vacation.Employee, error) {
	rows, err := qs.q.QueryContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE jefe_id = ? ORDER BY name ASC, id ASC`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var out []vacation.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (vacation.Employee, error) {
	var (
		e        vacation.Employee
		hireDate string
		jefeID   sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Email, &hireDate, &e.Foreign, &jefeID); err != nil {
		return e, err
	}
	e.HireDate = parseDate(hireDate)
	e.JefeID = generic.EntityID(jefeID.String)
	return e, nil
}

// =============================================================================
// REQUEST STORE
// =============================================================================

const requestColumns = `id, requester_id, approver_id, superior_id, kind, days, start_date, end_date,
	weekend_days, period, state, submitted_at, decided_at, comments, notes, cancel_reason,
	cancelled_by, cancelled_at, token_id, version`

// CreateRequest inserts a new request.
func (qs queries) CreateRequest(ctx context.Context, r vacation.VacationRequest) error {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		string(r.RequesterID),
		nullString(string(r.ApproverID)),
		nullString(string(r.SuperiorID)),
		string(r.Kind),
		r.Days,
		r.Start.String(),
		r.End.String(),
		r.WeekendDays,
		r.Period,
		string(r.State),
		r.SubmittedAt.UTC().Format(time.RFC3339Nano),
		nullTime(r.DecidedAt),
		r.Comments,
		r.Notes,
		r.CancelReason,
		nullString(string(r.CancelledBy)),
		nullTime(r.CancelledAt),
		r.TokenID,
		r.Version,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("request %s: %w", r.ID, generic.ErrConflict)
		}
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

// GetRequest retrieves a request by ID.
func (qs queries) GetRequest(ctx context.Context, id string) (vacation.VacationRequest, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return vacation.VacationRequest{}, fmt.Errorf("request %s: %w", id, generic.ErrNotFound)
	}
	return r, err
}

// TransitionRequest is a compare-and-swap on (state, version).
func (qs queries) TransitionRequest(ctx context.Context, r vacation.VacationRequest, from vacation.RequestState, version int) error {
	res, err := qs.q.ExecContext(ctx, `
		UPDATE requests SET
			state = ?,
			approver_id = ?,
			decided_at = ?,
			comments = ?,
			cancel_reason = ?,
			cancelled_by = ?,
			cancelled_at = ?,
			version = version + 1
		WHERE id = ? AND state = ? AND version = ?`,
		string(r.State),
		nullString(string(r.ApproverID)),
		nullTime(r.DecidedAt),
		r.Comments,
		r.CancelReason,
		nullString(string(r.CancelledBy)),
		nullTime(r.CancelledAt),
		r.ID, string(from), version,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := qs.GetRequest(ctx, r.ID); err != nil {
		return err
	}
	return generic.ErrConcurrentModification
}

// ListRequestsByEmployee returns the requests of a requester.
func (qs queries) ListRequestsByEmployee(ctx context.Context, id generic.EntityID) ([]vacation.VacationRequest, error) {
	return qs.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE requester_id = ? ORDER BY submitted_at DESC`, string(id))
}

// ListRequestsByState returns every request in state.
func (qs queries) ListRequestsByState(ctx context.Context, state vacation.RequestState) ([]vacation.VacationRequest, error) {
	return qs.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE state = ? ORDER BY submitted_at ASC`, string(state))
}

// FindOverlapping returns requests of id in states that share a day with [start, end].
func (qs queries) FindOverlapping(ctx context.Context, id generic.EntityID, start, end generic.TimePoint, states ...vacation.RequestState) ([]vacation.VacationRequest, error) {
	if len(states) == 0 {
		return nil, nil
	}
	args := []any{string(id), end.String(), start.String()}
	placeholders := make([]string, len(states))
	for i, st := range states {
		placeholders[i] = "?"
		args = append(args, string(st))
	}
	return qs.queryRequests(ctx, `
		SELECT `+requestColumns+` FROM requests
		WHERE requester_id = ? AND start_date <= ? AND end_date >= ?
		  AND state IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY start_date ASC`, args...)
}

func (qs queries) queryRequests(ctx context.Context, query string, args ...any) ([]vacation.VacationRequest, error) {
	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var out []vacation.VacationRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRequest(row scanner) (vacation.VacationRequest, error) {
	var (
		r                       vacation.VacationRequest
		approverID, superiorID  sql.NullString
		cancelledBy             sql.NullString
		start, end, submittedAt string
		decidedAt, cancelledAt  sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.RequesterID, &approverID, &superiorID, &r.Kind, &r.Days, &start, &end,
		&r.WeekendDays, &r.Period, &r.State, &submittedAt, &decidedAt, &r.Comments, &r.Notes,
		&r.CancelReason, &cancelledBy, &cancelledAt, &r.TokenID, &r.Version,
	)
	if err != nil {
		return r, err
	}
	r.ApproverID = generic.EntityID(approverID.String)
	r.SuperiorID = generic.EntityID(superiorID.String)
	r.CancelledBy = generic.EntityID(cancelledBy.String)
	r.Start = parseDate(start)
	r.End = parseDate(end)
	r.SubmittedAt, _ = time.Parse(time.RFC3339Nano, submittedAt)
	r.DecidedAt = parseNullTime(decidedAt)
	r.CancelledAt = parseNullTime(cancelledAt)
	return r, nil
}

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

// GetSnapshot returns the cached balance, if any.
func (qs queries) GetSnapshot(ctx context.Context, id generic.EntityID, period int) (vacation.Balance, bool, error) {
	var (
		b          = vacation.Balance{EmployeeID: id, Period: period}
		fechaCorte string
	)
	err := qs.q.QueryRowContext(ctx, `
		SELECT vencidas, pendientes, truncas, dias_libres, dias_bloque, fecha_corte
		FROM balance_snapshots WHERE employee_id = ? AND period = ?`,
		string(id), period,
	).Scan(&b.Vencidas, &b.Pendientes, &b.Truncas, &b.DiasLibres, &b.DiasBloque, &fechaCorte)
	if errors.Is(err, sql.ErrNoRows) {
		return vacation.Balance{}, false, nil
	}
	if err != nil {
		return vacation.Balance{}, false, fmt.Errorf("failed to get snapshot: %w", err)
	}
	b.FechaCorte = parseDate(fechaCorte)
	return b, true, nil
}

// SaveSnapshot upserts the cached balance.
func (qs queries) SaveSnapshot(ctx context.Context, b vacation.Balance) error {
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO balance_snapshots
		(employee_id, period, vencidas, pendientes, truncas, dias_libres, dias_bloque, fecha_corte, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, period) DO UPDATE SET
			vencidas = excluded.vencidas,
			pendientes = excluded.pendientes,
			truncas = excluded.truncas,
			dias_libres = excluded.dias_libres,
			dias_bloque = excluded.dias_bloque,
			fecha_corte = excluded.fecha_corte,
			updated_at = excluded.updated_at`,
		string(b.EmployeeID), b.Period, b.Vencidas, b.Pendientes, b.Truncas, b.DiasLibres, b.DiasBloque,
		b.FechaCorte.String(), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// InvalidateSnapshot drops the cached balance.
func (qs queries) InvalidateSnapshot(ctx context.Context, id generic.EntityID, period int) error {
	_, err := qs.q.ExecContext(ctx,
		`DELETE FROM balance_snapshots WHERE employee_id = ? AND period = ?`, string(id), period)
	if err != nil {
		return fmt.Errorf("failed to invalidate snapshot: %w", err)
	}
	return nil
}

// InvalidateEmployeeSnapshots drops the cached balances of every period.
func (qs queries) InvalidateEmployeeSnapshots(ctx context.Context, id generic.EntityID) error {
	_, err := qs.q.ExecContext(ctx, `DELETE FROM balance_snapshots WHERE employee_id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to invalidate snapshots: %w", err)
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseDate(s string) generic.TimePoint {
	tp, _ := generic.ParseDate(s)
	return tp
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
