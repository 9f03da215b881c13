package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresLedger persists balances and records in PostgreSQL. Every mutation
// of a balance shares one database transaction with the record it belongs to.
type PostgresLedger struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const recordColumns = `id, record_type, account_id, kind, label, category, amount::text, status,
        details, description, resolved_by, created_at, updated_at`

// EnsureAccount guarantees a balance row exists for the account.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, accountID string) error {
	_, err := l.db.Exec(ctx, `INSERT INTO balances (account_id, balance) VALUES ($1, 0)
        ON CONFLICT (account_id) DO NOTHING`, accountID)
	return err
}

// Balance returns the committed balance for the account.
func (l *PostgresLedger) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var raw string
	err := l.db.QueryRow(ctx, `SELECT balance::text FROM balances WHERE account_id = $1`, accountID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// Request stores a new Pending record. The balance is not consulted.
func (l *PostgresLedger) Request(ctx context.Context, m Movement) (Record, error) {
	rec, err := newPendingRecord(m, l.now())
	if err != nil {
		return Record{}, err
	}

	var exists bool
	if err := l.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM balances WHERE account_id = $1)`, m.AccountID).Scan(&exists); err != nil {
		return Record{}, err
	}
	if !exists {
		return Record{}, ErrAccountNotFound
	}

	if err := insertRecord(ctx, l.db, rec, ""); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Get fetches a single record.
func (l *PostgresLedger) Get(ctx context.Context, t RecordType, id string) (Record, error) {
	row := l.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM ledger_records WHERE id = $1 AND record_type = $2`, id, string(t))
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// List returns records matching the filter, newest first.
func (l *PostgresLedger) List(ctx context.Context, f Filter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if f.AccountID != "" {
		args = append(args, f.AccountID)
		where = append(where, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		where = append(where, fmt.Sprintf("record_type = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + recordColumns + ` FROM ledger_records`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Approve transitions a Pending record to Approved, applies its delta and
// appends any audit record in one database transaction.
func (l *PostgresLedger) Approve(ctx context.Context, r Resolution) (Outcome, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Outcome{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	rec, err := lockRecord(ctx, tx, r.Type, r.RecordID)
	if err != nil {
		return Outcome{}, err
	}
	if rec.Status != StatusPending {
		return Outcome{}, ErrAlreadyProcessed
	}

	now := l.now()
	delta, audit := approvalPlan(rec, r.Actor, now)
	balance, err := applyDelta(ctx, tx, rec.AccountID, delta)
	if err != nil {
		return Outcome{}, err
	}

	rec.Status = StatusApproved
	rec.Details = mergeDetails(rec.Details, r.Patch)
	rec.ResolvedBy = r.Actor
	rec.UpdatedAt = now
	if err := transition(ctx, tx, rec); err != nil {
		return Outcome{}, err
	}
	if audit != nil {
		if err := insertRecord(ctx, tx, *audit, ""); err != nil {
			return Outcome{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Outcome{}, err
	}
	return Outcome{Record: rec, Audit: audit, Delta: delta, Balance: balance}, nil
}

// Reject transitions a Pending record to Rejected.
func (l *PostgresLedger) Reject(ctx context.Context, r Resolution) (Record, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	rec, err := lockRecord(ctx, tx, r.Type, r.RecordID)
	if err != nil {
		return Record{}, err
	}
	if rec.Status != StatusPending {
		return Record{}, ErrAlreadyProcessed
	}
	rec.Status = StatusRejected
	rec.ResolvedBy = r.Actor
	rec.UpdatedAt = l.now()
	if err := transition(ctx, tx, rec); err != nil {
		return Record{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Fund credits the account and records an Admin Credit transaction.
func (l *PostgresLedger) Fund(ctx context.Context, a Adjustment) (Outcome, error) {
	return l.adjust(ctx, a, KindAdminCredit, "Account funded by admin")
}

// Deduct debits the account when the balance covers it and records an Admin Debit transaction.
func (l *PostgresLedger) Deduct(ctx context.Context, a Adjustment) (Outcome, error) {
	return l.adjust(ctx, a, KindAdminDebit, "Deducted by admin")
}

func (l *PostgresLedger) adjust(ctx context.Context, a Adjustment, kind Kind, fallback string) (Outcome, error) {
	rec, err := adjustmentRecord(a, kind, fallback, l.now())
	if err != nil {
		return Outcome{}, err
	}

	if a.ClientTxID != "" {
		out, found, err := replayed(ctx, l.db, a.AccountID, kind, a.ClientTxID)
		if err != nil {
			return Outcome{}, err
		}
		if found {
			return out, ErrDuplicateTransaction
		}
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Outcome{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	delta := rec.Effect().Signed(rec.Amount)
	balance, err := applyDelta(ctx, tx, a.AccountID, delta)
	if err != nil {
		return Outcome{}, err
	}
	if err := insertRecord(ctx, tx, rec, a.ClientTxID); err != nil {
		if !isUniqueViolation(err) || a.ClientTxID == "" {
			return Outcome{}, err
		}
		// A concurrent adjustment with the same key committed first.
		_ = tx.Rollback(ctx)
		out, found, rerr := replayed(ctx, l.db, a.AccountID, kind, a.ClientTxID)
		if rerr != nil {
			return Outcome{}, rerr
		}
		if !found {
			return Outcome{}, err
		}
		return out, ErrDuplicateTransaction
	}
	if err := tx.Commit(ctx); err != nil {
		return Outcome{}, err
	}
	return Outcome{Record: rec, Audit: &rec, Delta: delta, Balance: balance}, nil
}

// replayed loads the adjustment already committed under a client transaction id.
func replayed(ctx context.Context, q queryRower, accountID string, kind Kind, clientTxID string) (Outcome, bool, error) {
	row := q.QueryRow(ctx, `SELECT `+recordColumns+` FROM ledger_records
        WHERE account_id = $1 AND kind = $2 AND client_tx_id = $3`, accountID, string(kind), clientTxID)
	existing, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Outcome{}, false, nil
	}
	if err != nil {
		return Outcome{}, false, err
	}
	balance, err := currentBalance(ctx, q, existing.AccountID)
	if err != nil {
		return Outcome{}, false, err
	}
	audit := existing
	audit.Details = copyDetails(existing.Details)
	return Outcome{Record: existing, Audit: &audit, Delta: existing.Effect().Signed(existing.Amount), Balance: balance}, true, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Reconcile compares every balance with the approved transaction history.
// Both reads share one repeatable-read snapshot so a concurrent approval
// cannot show up in one and not the other.
func (l *PostgresLedger) Reconcile(ctx context.Context) ([]Drift, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	rows, err := tx.Query(ctx, `SELECT `+recordColumns+` FROM ledger_records
        WHERE record_type = 'transaction' AND status = 'Approved'`)
	if err != nil {
		return nil, err
	}
	var approved []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		approved = append(approved, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	expected := expectedBalances(approved)

	balRows, err := tx.Query(ctx, `SELECT account_id, balance::text FROM balances ORDER BY account_id`)
	if err != nil {
		return nil, err
	}
	defer balRows.Close()

	var drifts []Drift
	for balRows.Next() {
		var (
			id  string
			raw string
		)
		if err := balRows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		balance, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		if want := expected[id]; !balance.Equal(want) {
			drifts = append(drifts, Drift{AccountID: id, Balance: balance, Expected: want})
		}
	}
	return drifts, balRows.Err()
}

// applyDelta adds delta to the committed balance. Negative deltas are
// conditional on the result staying non-negative.
func applyDelta(ctx context.Context, tx pgx.Tx, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	var raw string
	err := tx.QueryRow(ctx, `UPDATE balances
        SET balance = balance + $2::numeric, updated_at = now()
        WHERE account_id = $1 AND ($2::numeric >= 0 OR balance + $2::numeric >= 0)
        RETURNING balance::text`, accountID, delta.String()).Scan(&raw)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, err
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM balances WHERE account_id = $1)`, accountID).Scan(&exists); err != nil {
			return decimal.Zero, err
		}
		if !exists {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, ErrInsufficientFunds
	}
	return decimal.NewFromString(raw)
}

func currentBalance(ctx context.Context, q queryRower, accountID string) (decimal.Decimal, error) {
	var raw string
	if err := q.QueryRow(ctx, `SELECT balance::text FROM balances WHERE account_id = $1`, accountID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func lockRecord(ctx context.Context, tx pgx.Tx, t RecordType, id string) (Record, error) {
	row := tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM ledger_records
        WHERE id = $1 AND record_type = $2 FOR UPDATE`, id, string(t))
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// transition writes a terminal status; the Pending guard makes it a compare-and-set.
func transition(ctx context.Context, tx pgx.Tx, rec Record) error {
	cmd, err := tx.Exec(ctx, `UPDATE ledger_records
        SET status = $2, details = $3, resolved_by = $4, updated_at = $5
        WHERE id = $1 AND status = 'Pending'`,
		rec.ID, string(rec.Status), rec.Details, rec.ResolvedBy, rec.UpdatedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queryExecer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertRecord(ctx context.Context, db queryExecer, rec Record, clientTxID string) error {
	var clientID any
	if clientTxID != "" {
		clientID = clientTxID
	}
	_, err := db.Exec(ctx, `INSERT INTO ledger_records
        (id, record_type, account_id, kind, label, category, amount, status, details, description,
         resolved_by, client_tx_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, string(rec.Type), rec.AccountID, string(rec.Kind), rec.Label, string(rec.Category),
		rec.Amount.String(), string(rec.Status), rec.Details, rec.Description, rec.ResolvedBy,
		clientID, rec.CreatedAt, rec.UpdatedAt)
	return err
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec                        Record
		recordType, kind, category string
		status, rawAmount          string
		details                    map[string]string
	)
	if err := row.Scan(&rec.ID, &recordType, &rec.AccountID, &kind, &rec.Label, &category, &rawAmount,
		&status, &details, &rec.Description, &rec.ResolvedBy, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return Record{}, fmt.Errorf("decode amount for %s: %w", rec.ID, err)
	}
	rec.Type = RecordType(recordType)
	rec.Kind = Kind(kind)
	rec.Category = Category(category)
	rec.Status = Status(status)
	rec.Amount = amount
	if details == nil {
		details = map[string]string{}
	}
	rec.Details = details
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}
