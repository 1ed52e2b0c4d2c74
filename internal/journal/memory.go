package journal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryJournal is an in-memory, thread-safe Journal implementation.
// It is primarily useful for testing and for single-process deployments
// that do not require a durable audit trail across restarts.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []*Entry
}

// New creates a MemoryJournal initialised with the canonical genesis entry.
func New() *MemoryJournal {
	return &MemoryJournal{entries: []*Entry{genesisEntry()}}
}

// RecordDeposit implements Journal.
func (j *MemoryJournal) RecordDeposit(_ context.Context, contributor string, amount, poolBalance string, cycle uint64) (*Entry, error) {
	return j.append(ActionDeposit, contributor, amount, poolBalance, cycle)
}

// RecordWithdrawal implements Journal.
func (j *MemoryJournal) RecordWithdrawal(_ context.Context, owner string, amount string, cycle uint64) (*Entry, error) {
	return j.append(ActionWithdrawal, owner, amount, "0", cycle)
}

func (j *MemoryJournal) append(action, contributor, amount, poolBalance string, cycle uint64) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	prev := j.entries[len(j.entries)-1]
	entry := &Entry{
		Index:       len(j.entries),
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		Action:      action,
		Contributor: contributor,
		Amount:      amount,
		PoolBalance: poolBalance,
		Cycle:       cycle,
		PrevHash:    prev.Hash,
	}
	entry.Hash = hashEntry(entry)
	j.entries = append(j.entries, entry)
	return entry, nil
}

// Get implements Journal.
func (j *MemoryJournal) Get(_ context.Context, index int) (*Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if index < 0 || index >= len(j.entries) {
		return nil, fmt.Errorf("index %d out of range", index)
	}
	return j.entries[index], nil
}

// Len implements Journal.
func (j *MemoryJournal) Len(_ context.Context) (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries), nil
}

// Verify implements Journal. It walks the chain and checks that all hashes
// are consistent. The genesis entry (index 0) is validated against GenesisHash.
func (j *MemoryJournal) Verify(_ context.Context) error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	for i, curr := range j.entries {
		if i == 0 {
			if curr.Hash != GenesisHash {
				return fmt.Errorf("genesis entry has wrong hash: got %q", curr.Hash)
			}
			continue
		}

		prev := j.entries[i-1]
		if curr.PrevHash != prev.Hash {
			return fmt.Errorf("hash chain broken at index %d", curr.Index)
		}
		if curr.Hash != hashEntry(curr) {
			return fmt.Errorf("entry %d has invalid hash", curr.Index)
		}
	}
	return nil
}

// Root implements Journal.
func (j *MemoryJournal) Root(_ context.Context) (string, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.entries[len(j.entries)-1].Hash, nil
}
