package treasury_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/fundpool/fundpool/internal/treasury"
	"go.uber.org/zap"
)

var ctx = context.Background()

func TestTransfer_movesFunds(t *testing.T) {
	book := treasury.NewAccountBook(zap.NewNop())
	if err := book.Credit("alice", big.NewInt(100)); err != nil {
		t.Fatal(err)
	}

	if err := book.Transfer(ctx, "alice", "pool", big.NewInt(60)); err != nil {
		t.Fatal(err)
	}

	if got := book.BalanceOf("alice"); got.Cmp(big.NewInt(40)) != 0 {
		t.Errorf("alice balance = %s, want 40", got)
	}
	if got := book.BalanceOf("pool"); got.Cmp(big.NewInt(60)) != 0 {
		t.Errorf("pool balance = %s, want 60", got)
	}
}

func TestTransfer_insufficientFundsChangesNothing(t *testing.T) {
	book := treasury.NewAccountBook(zap.NewNop())
	_ = book.Credit("alice", big.NewInt(10))

	err := book.Transfer(ctx, "alice", "pool", big.NewInt(11))
	if !errors.Is(err, treasury.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if got := book.BalanceOf("alice"); got.Cmp(big.NewInt(10)) != 0 {
		t.Errorf("alice balance = %s, want 10 (unchanged)", got)
	}
	if got := book.BalanceOf("pool"); got.Sign() != 0 {
		t.Errorf("pool balance = %s, want 0", got)
	}
}

func TestTransfer_unknownSource(t *testing.T) {
	book := treasury.NewAccountBook(zap.NewNop())
	err := book.Transfer(ctx, "nobody", "pool", big.NewInt(1))
	if !errors.Is(err, treasury.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestTransfer_zeroAmountIsNoop(t *testing.T) {
	book := treasury.NewAccountBook(zap.NewNop())
	if err := book.Transfer(ctx, "alice", "pool", big.NewInt(0)); err != nil {
		t.Errorf("zero transfer should succeed: %v", err)
	}
}

func TestTransfer_rejectsNegativeAndNil(t *testing.T) {
	book := treasury.NewAccountBook(zap.NewNop())
	if err := book.Transfer(ctx, "a", "b", big.NewInt(-1)); !errors.Is(err, treasury.ErrInvalidAmount) {
		t.Errorf("negative amount: got %v", err)
	}
	if err := book.Transfer(ctx, "a", "b", nil); !errors.Is(err, treasury.ErrInvalidAmount) {
		t.Errorf("nil amount: got %v", err)
	}
}

func TestBalanceOf_returnsCopy(t *testing.T) {
	book := treasury.NewAccountBook(zap.NewNop())
	_ = book.Credit("alice", big.NewInt(5))

	book.BalanceOf("alice").SetInt64(999)

	if got := book.BalanceOf("alice"); got.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("internal balance mutated through returned value: %s", got)
	}
}

func TestTransfer_fullRangeAmounts(t *testing.T) {
	// Native unit magnitudes up to 2^96 must move without truncation.
	book := treasury.NewAccountBook(zap.NewNop())
	huge := new(big.Int).Lsh(big.NewInt(1), 96)
	_ = book.Credit("whale", huge)

	if err := book.Transfer(ctx, "whale", "pool", huge); err != nil {
		t.Fatal(err)
	}
	if got := book.BalanceOf("pool"); got.Cmp(huge) != 0 {
		t.Errorf("pool balance = %s, want %s", got, huge)
	}

	if got := book.BalanceOf("whale"); got.Sign() != 0 {
		t.Errorf("whale balance = %s, want 0", got)
	}
}
