package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GenesisHash is the canonical well-known hash of the genesis entry.
// All subsequent entry hashes chain from this constant.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry actions.
const (
	ActionGenesis    = "genesis"
	ActionDeposit    = "deposit"
	ActionWithdrawal = "withdrawal"
)

// Entry is a single audit record in the pool journal.
//
// Amount and PoolBalance are decimal strings of 18-decimal fixed-point
// native-unit values; string form keeps full 2^96-range precision across
// JSON and SQL round trips.
type Entry struct {
	Index       int       `json:"index"`
	ID          string    `json:"id"` // UUID, stable across backends
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"` // genesis, deposit, withdrawal
	Contributor string    `json:"contributor,omitempty"`
	Amount      string    `json:"amount"`
	PoolBalance string    `json:"pool_balance"`
	Cycle       uint64    `json:"cycle"`
	PrevHash    string    `json:"prev_hash"`
	Hash        string    `json:"hash"`
}

// hashEntry computes a deterministic SHA-256 hash over an entry's fields.
// This function must never be called on the genesis entry (index 0).
func hashEntry(e *Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%s|%s|%s|%d|%s",
		e.Index, e.ID, e.Timestamp.Format(time.RFC3339Nano),
		e.Action, e.Contributor, e.Amount, e.PoolBalance, e.Cycle, e.PrevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}

// genesisEntry returns the canonical first entry of a fresh journal.
func genesisEntry() *Entry {
	return &Entry{
		Index:       0,
		ID:          "00000000-0000-0000-0000-000000000000",
		Timestamp:   time.Now().UTC(),
		Action:      ActionGenesis,
		Amount:      "0",
		PoolBalance: "0",
		PrevHash:    GenesisHash,
		Hash:        GenesisHash, // genesis hash is the well-known constant, not computed
	}
}
