// Package treasury provides the in-process value-transfer capability backing
// the contribution pool: a book of native-unit account balances with atomic
// transfers between identities.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"go.uber.org/zap"

	"github.com/fundpool/fundpool/internal/ledger"
)

// ErrInsufficientFunds is returned when a transfer would overdraw the source
// account. Accounts that have never been credited hold a zero balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInvalidAmount is returned for nil or negative transfer amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// AccountBook is a mutex-guarded map of account balances implementing the
// pool's Transferor capability. A transfer debits and credits under one lock
// acquisition, so it either fully applies or fails with no effect.
type AccountBook struct {
	mu       sync.Mutex
	balances map[ledger.Identity]*big.Int
	logger   *zap.Logger
}

// NewAccountBook creates an empty AccountBook.
func NewAccountBook(logger *zap.Logger) *AccountBook {
	return &AccountBook{
		balances: make(map[ledger.Identity]*big.Int),
		logger:   logger,
	}
}

// Credit mints amount into id's account. Used to seed balances; there is no
// corresponding burn.
func (b *AccountBook) Credit(id ledger.Identity, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(id, amount)
	return nil
}

// Transfer implements ledger.Transferor. It moves amount from one account to
// another, failing with ErrInsufficientFunds if the source cannot cover it.
// A zero-amount transfer succeeds without touching either account.
func (b *AccountBook) Transfer(_ context.Context, from, to ledger.Identity, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	source := b.balances[from]
	if source == nil || source.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientFunds, from, zeroIfNil(source), amount)
	}

	source.Sub(source, amount)
	if source.Sign() == 0 {
		delete(b.balances, from)
	}
	b.credit(to, amount)

	b.logger.Debug("transfer",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("amount", amount.String()),
	)
	return nil
}

// BalanceOf returns id's current balance; unknown accounts read 0.
func (b *AccountBook) BalanceOf(id ledger.Identity) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bal, ok := b.balances[id]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// credit adds amount to id's balance. Callers hold b.mu.
func (b *AccountBook) credit(id ledger.Identity, amount *big.Int) {
	bal := b.balances[id]
	if bal == nil {
		bal = new(big.Int)
		b.balances[id] = bal
	}
	bal.Add(bal, amount)
}

func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
