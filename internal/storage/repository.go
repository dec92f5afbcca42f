package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	listTransactionsSQL = `SELECT
        id,
        user_id,
        account_id,
        txn_date,
        amount,
        merchant,
        category,
        created_at
    FROM transactions
    WHERE user_id = $1
      AND txn_date >= $2
      AND txn_date <= $3
    ORDER BY txn_date, id;`

	latestSnapshotsSQL = `SELECT DISTINCT ON (account_id)
        id,
        user_id,
        account_id,
        account_type,
        account_subtype,
        as_of,
        balance,
        credit_limit,
        minimum_payment,
        last_payment,
        overdue,
        created_at
    FROM account_snapshots
    WHERE user_id = $1
      AND as_of <= $2
    ORDER BY account_id, as_of DESC;`

	earliestRecordSQL = `SELECT LEAST(
        (SELECT MIN(txn_date) FROM transactions WHERE user_id = $1),
        (SELECT MIN(as_of) FROM account_snapshots WHERE user_id = $1)
    );`

	listUserIDsSQL = `SELECT DISTINCT user_id FROM transactions
    UNION
    SELECT DISTINCT user_id FROM account_snapshots
    ORDER BY 1;`

	upsertAssignmentSQL = `INSERT INTO persona_assignments (
        user_id,
        reference_date,
        persona_id,
        priority_rank,
        resolution_reason,
        matched_count,
        evidence
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    ON CONFLICT (user_id, reference_date) DO UPDATE
    SET persona_id        = EXCLUDED.persona_id,
        priority_rank     = EXCLUDED.priority_rank,
        resolution_reason = EXCLUDED.resolution_reason,
        matched_count     = EXCLUDED.matched_count,
        evidence          = EXCLUDED.evidence
    RETURNING id, created_at;`

	listRecentAssignmentsSQL = `SELECT
        id,
        user_id,
        reference_date,
        persona_id,
        priority_rank,
        resolution_reason,
        matched_count,
        evidence,
        created_at
    FROM persona_assignments
    ORDER BY created_at DESC
    LIMIT $1;`

	listAssignmentsBetweenSQL = `SELECT
        id,
        user_id,
        reference_date,
        persona_id,
        priority_rank,
        resolution_reason,
        matched_count,
        evidence,
        created_at
    FROM persona_assignments
    WHERE reference_date >= $1
      AND reference_date <= $2
    ORDER BY reference_date, user_id;`

	countAssignmentsSQL = `SELECT COUNT(*) FROM persona_assignments;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// FinancialDataSource exposes read access to the transaction/account store.
type FinancialDataSource interface {
	GetTransactions(ctx context.Context, userID string, from, to time.Time) ([]Transaction, error)
	GetAccountsSnapshot(ctx context.Context, userID string, asOf time.Time) ([]AccountSnapshot, error)
	EarliestRecordDate(ctx context.Context, userID string) (time.Time, bool, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

// AssignmentStore defines operations for assignment auditing.
type AssignmentStore interface {
	UpsertAssignment(ctx context.Context, rec AssignmentRecord) (AssignmentRecord, error)
	ListRecentAssignments(ctx context.Context, limit int) ([]AssignmentRecord, error)
	ListAssignmentsBetween(ctx context.Context, from, to time.Time) ([]AssignmentRecord, error)
	CountAssignments(ctx context.Context) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to financial records and assignment audit rows.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Best effort; the lock dies with the session either way.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// GetTransactions lists a user's transactions with dates inside [from, to].
func (s *Store) GetTransactions(ctx context.Context, userID string, from, to time.Time) ([]Transaction, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listTransactionsSQL, userID, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list transactions: %w", queryErr)
	}
	defer rows.Close()

	txns := make([]Transaction, 0)
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		txns = append(txns, txn)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return txns, nil
}

// GetAccountsSnapshot returns the latest snapshot per account at or before asOf.
func (s *Store) GetAccountsSnapshot(ctx context.Context, userID string, asOf time.Time) ([]AccountSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, latestSnapshotsSQL, userID, asOf)
	if queryErr != nil {
		return nil, fmt.Errorf("list account snapshots: %w", queryErr)
	}
	defer rows.Close()

	snaps := make([]AccountSnapshot, 0)
	for rows.Next() {
		snap, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		snaps = append(snaps, snap)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snaps, nil
}

// EarliestRecordDate reports the user's first-ever record date. The second
// return value is false when the user has no records at all.
func (s *Store) EarliestRecordDate(ctx context.Context, userID string) (time.Time, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return time.Time{}, false, err
	}

	var earliest sql.NullTime
	if scanErr := pool.QueryRow(ctx, earliestRecordSQL, userID).Scan(&earliest); scanErr != nil {
		return time.Time{}, false, fmt.Errorf("earliest record date: %w", scanErr)
	}
	if !earliest.Valid {
		return time.Time{}, false, nil
	}
	return earliest.Time, true, nil
}

// ListUserIDs returns every user id present in the store.
func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listUserIDsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list user ids: %w", queryErr)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, scanErr
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

// UpsertAssignment persists or updates the assignment audit row for a
// (user, reference date) pair.
func (s *Store) UpsertAssignment(ctx context.Context, rec AssignmentRecord) (AssignmentRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AssignmentRecord{}, err
	}

	row := pool.QueryRow(ctx, upsertAssignmentSQL,
		rec.UserID,
		rec.ReferenceDate,
		rec.PersonaID,
		rec.PriorityRank,
		rec.ResolutionReason,
		rec.MatchedCount,
		rec.Evidence,
	)
	if scanErr := row.Scan(&rec.ID, &rec.CreatedAt); scanErr != nil {
		return AssignmentRecord{}, fmt.Errorf("upsert assignment: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAssignments lists the most recent audit rows.
func (s *Store) ListRecentAssignments(ctx context.Context, limit int) ([]AssignmentRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAssignmentsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent assignments: %w", queryErr)
	}
	defer rows.Close()

	return collectAssignments(rows, limit)
}

// ListAssignmentsBetween lists audit rows with reference dates inside [from, to].
func (s *Store) ListAssignmentsBetween(ctx context.Context, from, to time.Time) ([]AssignmentRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAssignmentsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list assignments between: %w", queryErr)
	}
	defer rows.Close()

	return collectAssignments(rows, 0)
}

// CountAssignments counts stored audit rows.
func (s *Store) CountAssignments(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countAssignmentsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count assignments: %w", scanErr)
	}
	return count, nil
}

func collectAssignments(rows pgx.Rows, sizeHint int) ([]AssignmentRecord, error) {
	recs := make([]AssignmentRecord, 0, sizeHint)
	for rows.Next() {
		var rec AssignmentRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.ReferenceDate,
			&rec.PersonaID,
			&rec.PriorityRank,
			&rec.ResolutionReason,
			&rec.MatchedCount,
			&rec.Evidence,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return recs, nil
}

func scanTransaction(rows pgx.Rows) (Transaction, error) {
	var (
		txn       Transaction
		amountStr string
	)

	if err := rows.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.AccountID,
		&txn.Date,
		&amountStr,
		&txn.Merchant,
		&txn.Category,
		&txn.CreatedAt,
	); err != nil {
		return Transaction{}, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	txn.Amount = amount

	return txn, nil
}

func scanSnapshot(rows pgx.Rows) (AccountSnapshot, error) {
	var (
		snap       AccountSnapshot
		balanceStr string
		limitStr   sql.NullString
		minPayStr  sql.NullString
		lastPayStr sql.NullString
	)

	if err := rows.Scan(
		&snap.ID,
		&snap.UserID,
		&snap.AccountID,
		&snap.Type,
		&snap.Subtype,
		&snap.AsOf,
		&balanceStr,
		&limitStr,
		&minPayStr,
		&lastPayStr,
		&snap.Overdue,
		&snap.CreatedAt,
	); err != nil {
		return AccountSnapshot{}, err
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return AccountSnapshot{}, fmt.Errorf("parse balance: %w", err)
	}
	snap.Balance = balance

	if snap.CreditLimit, err = optionalDecimal(limitStr, "credit limit"); err != nil {
		return AccountSnapshot{}, err
	}
	if snap.MinimumPayment, err = optionalDecimal(minPayStr, "minimum payment"); err != nil {
		return AccountSnapshot{}, err
	}
	if snap.LastPayment, err = optionalDecimal(lastPayStr, "last payment"); err != nil {
		return AccountSnapshot{}, err
	}

	return snap, nil
}

func optionalDecimal(v sql.NullString, field string) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", field, err)
	}
	return &d, nil
}
