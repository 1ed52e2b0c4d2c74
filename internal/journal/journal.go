// Package journal implements a hash-chained audit journal of pool activity.
//
// Every accepted deposit and completed withdrawal is appended as an entry
// that records the SHA-256 of its predecessor, so tampering with the history
// is detectable via Verify. The chain begins with a well-known genesis entry
// whose Hash equals GenesisHash.
//
// The journal is an audit trail, not the pool's source of truth: the ledger
// state lives in the Pool aggregate and is never reconstructed from here.
//
// Two implementations of the Journal interface are provided:
//   - MemoryJournal: in-process, for testing and development.
//   - PostgresJournal: durable, for production use.
package journal

import "context"

// Journal is the interface for the append-only pool audit journal.
type Journal interface {
	// RecordDeposit appends an entry for an accepted deposit.
	// poolBalance is the pool balance after the deposit was applied.
	RecordDeposit(ctx context.Context, contributor string, amount, poolBalance string, cycle uint64) (*Entry, error)

	// RecordWithdrawal appends an entry for a completed withdrawal of amount
	// to the owner, closing the given funding cycle.
	RecordWithdrawal(ctx context.Context, owner string, amount string, cycle uint64) (*Entry, error)

	// Get returns the entry at the given zero-based index.
	Get(ctx context.Context, index int) (*Entry, error)

	// Len returns the total number of entries (including the genesis entry).
	Len(ctx context.Context) (int, error)

	// Verify walks the entire chain and checks hash consistency.
	// Returns nil if the chain is intact.
	Verify(ctx context.Context) error

	// Root returns the hash of the most recent entry (the chain tip).
	Root(ctx context.Context) (string, error)
}
