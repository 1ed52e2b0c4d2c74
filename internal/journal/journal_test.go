package journal_test

import (
	"context"
	"testing"

	"github.com/fundpool/fundpool/internal/journal"
)

var ctx = context.Background()

func TestNew_genesisEntry(t *testing.T) {
	j := journal.New()

	n, err := j.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 genesis entry, got %d", n)
	}

	entry, err := j.Get(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Action != journal.ActionGenesis {
		t.Errorf("expected genesis action, got %q", entry.Action)
	}
	if entry.Hash != journal.GenesisHash {
		t.Errorf("genesis hash: got %q, want GenesisHash", entry.Hash)
	}
}

func TestRecordDeposit_chainsCorrectly(t *testing.T) {
	j := journal.New()

	e1, err := j.RecordDeposit(ctx, "alice", "100000000000000000", "100000000000000000", 1)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := j.RecordDeposit(ctx, "bob", "200000000000000000", "300000000000000000", 1)
	if err != nil {
		t.Fatal(err)
	}

	if e2.PrevHash != e1.Hash {
		t.Errorf("chain broken: e2.PrevHash=%q, want e1.Hash=%q", e2.PrevHash, e1.Hash)
	}
	if e1.Contributor != "alice" || e1.Amount != "100000000000000000" {
		t.Errorf("unexpected entry fields: %+v", e1)
	}

	n, err := j.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 { // genesis + 2
		t.Errorf("expected 3 entries, got %d", n)
	}
}

func TestRecordWithdrawal_closesCycle(t *testing.T) {
	j := journal.New()
	_, _ = j.RecordDeposit(ctx, "alice", "5", "5", 1)

	e, err := j.RecordWithdrawal(ctx, "owner", "5", 1)
	if err != nil {
		t.Fatal(err)
	}
	if e.Action != journal.ActionWithdrawal || e.Cycle != 1 {
		t.Errorf("unexpected withdrawal entry: %+v", e)
	}
	if e.PoolBalance != "0" {
		t.Errorf("withdrawal entry pool balance = %q, want 0", e.PoolBalance)
	}
}

func TestVerify_valid(t *testing.T) {
	j := journal.New()
	_, _ = j.RecordDeposit(ctx, "alice", "5", "5", 1)
	_, _ = j.RecordWithdrawal(ctx, "owner", "5", 1)
	_, _ = j.RecordDeposit(ctx, "bob", "7", "7", 2)

	if err := j.Verify(ctx); err != nil {
		t.Errorf("Verify() failed on valid chain: %v", err)
	}
}

func TestVerify_genesisOnlyChain(t *testing.T) {
	j := journal.New()
	if err := j.Verify(ctx); err != nil {
		t.Errorf("Verify() on genesis-only chain should pass: %v", err)
	}
}

func TestRoot_returnsLastHash(t *testing.T) {
	j := journal.New()
	e, _ := j.RecordDeposit(ctx, "alice", "5", "5", 1)

	root, err := j.Root(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if root != e.Hash {
		t.Errorf("Root(): got %q, want %q", root, e.Hash)
	}
}

func TestGet_outOfRange(t *testing.T) {
	j := journal.New()
	if _, err := j.Get(ctx, 5); err == nil {
		t.Error("expected error for out-of-range index")
	}
	if _, err := j.Get(ctx, -1); err == nil {
		t.Error("expected error for negative index")
	}
}
