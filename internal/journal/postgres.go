package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey is a stable PostgreSQL advisory lock key used to serialise
// concurrent appends. The value is arbitrary but must be consistent across
// all instances sharing a journal.
const advisoryLockKey = int64(7_415_550_021)

// PostgresJournal persists the hash-chained audit journal to PostgreSQL.
// It implements the Journal interface.
type PostgresJournal struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresJournal creates a PostgresJournal backed by the given pool.
// The pool_journal table must exist (see migrations/).
func NewPostgresJournal(pool *pgxpool.Pool, logger *zap.Logger) *PostgresJournal {
	return &PostgresJournal{pool: pool, logger: logger}
}

// RecordDeposit implements Journal.
func (j *PostgresJournal) RecordDeposit(ctx context.Context, contributor string, amount, poolBalance string, cycle uint64) (*Entry, error) {
	return j.append(ctx, ActionDeposit, contributor, amount, poolBalance, cycle)
}

// RecordWithdrawal implements Journal.
func (j *PostgresJournal) RecordWithdrawal(ctx context.Context, owner string, amount string, cycle uint64) (*Entry, error) {
	return j.append(ctx, ActionWithdrawal, owner, amount, "0", cycle)
}

// append acquires a PostgreSQL advisory lock, reads the chain tail, computes
// the new entry hash, and inserts it — all within a single transaction.
func (j *PostgresJournal) append(ctx context.Context, action, contributor, amount, poolBalance string, cycle uint64) (*Entry, error) {
	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Serialise concurrent appends with a transaction-scoped advisory lock.
	// The lock is released when the transaction commits or rolls back.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	var prevIdx int
	var prevHash string
	if err := tx.QueryRow(ctx,
		"SELECT idx, hash FROM pool_journal ORDER BY idx DESC LIMIT 1",
	).Scan(&prevIdx, &prevHash); err != nil {
		return nil, fmt.Errorf("read journal tail: %w", err)
	}

	// timestamptz stores microseconds; truncate so the stored timestamp
	// hashes identically after a round trip.
	entry := &Entry{
		Index:       prevIdx + 1,
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC().Truncate(time.Microsecond),
		Action:      action,
		Contributor: contributor,
		Amount:      amount,
		PoolBalance: poolBalance,
		Cycle:       cycle,
		PrevHash:    prevHash,
	}
	entry.Hash = hashEntry(entry)

	if _, err := tx.Exec(ctx,
		`INSERT INTO pool_journal (idx, id, ts, action, contributor, amount, pool_balance, cycle, prev_hash, hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.Index, entry.ID, entry.Timestamp, entry.Action, entry.Contributor,
		entry.Amount, entry.PoolBalance, entry.Cycle, entry.PrevHash, entry.Hash,
	); err != nil {
		return nil, fmt.Errorf("insert journal entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit journal tx: %w", err)
	}

	j.logger.Debug("journal entry appended",
		zap.Int("idx", entry.Index),
		zap.String("action", entry.Action),
		zap.String("contributor", entry.Contributor),
		zap.Uint64("cycle", entry.Cycle),
	)
	return entry, nil
}

// Get implements Journal.
func (j *PostgresJournal) Get(ctx context.Context, index int) (*Entry, error) {
	entry := &Entry{}
	if err := j.pool.QueryRow(ctx,
		`SELECT idx, id, ts, action, contributor, amount, pool_balance, cycle, prev_hash, hash
		 FROM pool_journal WHERE idx = $1`, index,
	).Scan(
		&entry.Index, &entry.ID, &entry.Timestamp, &entry.Action, &entry.Contributor,
		&entry.Amount, &entry.PoolBalance, &entry.Cycle, &entry.PrevHash, &entry.Hash,
	); err != nil {
		return nil, fmt.Errorf("get journal entry %d: %w", index, err)
	}
	return entry, nil
}

// Len implements Journal.
func (j *PostgresJournal) Len(ctx context.Context) (int, error) {
	var n int
	if err := j.pool.QueryRow(ctx, "SELECT COUNT(*) FROM pool_journal").Scan(&n); err != nil {
		return 0, fmt.Errorf("count journal entries: %w", err)
	}
	return n, nil
}

// Verify implements Journal. It streams all rows ordered by idx and validates
// the hash chain, without holding the whole journal in memory.
func (j *PostgresJournal) Verify(ctx context.Context) error {
	rows, err := j.pool.Query(ctx,
		`SELECT idx, id, ts, action, contributor, amount, pool_balance, cycle, prev_hash, hash
		 FROM pool_journal ORDER BY idx ASC`)
	if err != nil {
		return fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	prevHash := ""
	for rows.Next() {
		entry := &Entry{}
		if err := rows.Scan(
			&entry.Index, &entry.ID, &entry.Timestamp, &entry.Action, &entry.Contributor,
			&entry.Amount, &entry.PoolBalance, &entry.Cycle, &entry.PrevHash, &entry.Hash,
		); err != nil {
			return fmt.Errorf("scan journal entry: %w", err)
		}

		if entry.Index == 0 {
			if entry.Hash != GenesisHash {
				return fmt.Errorf("genesis entry has wrong hash: got %q", entry.Hash)
			}
			prevHash = entry.Hash
			continue
		}

		if entry.PrevHash != prevHash {
			return fmt.Errorf("hash chain broken at index %d", entry.Index)
		}
		if entry.Hash != hashEntry(entry) {
			return fmt.Errorf("entry %d has invalid hash", entry.Index)
		}
		prevHash = entry.Hash
	}
	return rows.Err()
}

// Root implements Journal.
func (j *PostgresJournal) Root(ctx context.Context) (string, error) {
	var hash string
	err := j.pool.QueryRow(ctx,
		"SELECT hash FROM pool_journal ORDER BY idx DESC LIMIT 1",
	).Scan(&hash)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read journal root: %w", err)
	}
	return hash, nil
}
