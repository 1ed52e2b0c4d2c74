// Package ledger implements the contribution pool: a single-owner ledger that
// accepts native-unit deposits above a minimum USD threshold and lets the
// owner drain the accumulated balance, resetting the funding cycle.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"go.uber.org/zap"

	"github.com/fundpool/fundpool/internal/journal"
	"github.com/fundpool/fundpool/internal/oracle"
)

// Identity is an opaque, comparable participant identity.
type Identity string

// RateSource provides the current USD price of one native value unit.
// *oracle.Adapter satisfies this interface.
type RateSource interface {
	CurrentRate(ctx context.Context) (value *big.Int, decimals uint8, err error)
}

// Transferor moves value between identities. Transfers are atomic: they
// either fully apply or fail with no effect. *treasury.AccountBook satisfies
// this interface.
type Transferor interface {
	Transfer(ctx context.Context, from, to Identity, amount *big.Int) error
}

// DefaultMinimumUSD is the default deposit threshold: 5 USD at 18 decimals.
var DefaultMinimumUSD = new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18))

// Pool is the contribution ledger aggregate. A single mutex serialises all
// operations, including the oracle read and value transfer inside them, so
// no caller ever observes a partially applied deposit or withdrawal.
//
// Invariants held between operations:
//   - every identity in contributors has a non-zero record in contributions;
//   - contributors holds no duplicates and preserves first-deposit order;
//   - balance equals the sum of all contribution records.
type Pool struct {
	mu sync.Mutex

	owner   Identity
	account Identity // the pool's own account with the transferor
	minimum *big.Int // minimum deposit value, 18-decimal USD

	rates   RateSource
	funds   Transferor
	journal journal.Journal // nil = no audit trail
	logger  *zap.Logger

	contributions map[Identity]*big.Int
	contributors  []Identity
	balance       *big.Int
	cycle         uint64 // current funding cycle, starts at 1
}

// New creates an empty Pool owned by owner. account is the pool's own
// identity with the transferor; rates and funds are fixed for the pool's
// lifetime. The minimum threshold defaults to DefaultMinimumUSD.
func New(owner, account Identity, rates RateSource, funds Transferor, logger *zap.Logger) *Pool {
	return &Pool{
		owner:         owner,
		account:       account,
		minimum:       new(big.Int).Set(DefaultMinimumUSD),
		rates:         rates,
		funds:         funds,
		logger:        logger,
		contributions: make(map[Identity]*big.Int),
		balance:       new(big.Int),
		cycle:         1,
	}
}

// SetJournal configures the audit journal. Journal writes are best-effort:
// a journal failure never fails or rolls back the recorded operation.
func (p *Pool) SetJournal(j journal.Journal) {
	p.journal = j
}

// SetMinimumUSD replaces the deposit threshold. Must be called before the
// pool is shared; the threshold is immutable once operations begin.
func (p *Pool) SetMinimumUSD(minimum *big.Int) {
	p.minimum = new(big.Int).Set(minimum)
}

// Deposit records a contribution of amount native units from caller.
//
// The amount is converted to USD at the current oracle rate and rejected
// with ErrInsufficientContribution if it falls below the minimum threshold.
// Value is pulled from the caller only after all checks pass, and the
// contribution record, contributor list, and pool balance are updated only
// after the pull succeeds — a failure at any step leaves no trace.
func (p *Pool) Deposit(ctx context.Context, caller Identity, amount *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInsufficientContribution)
	}

	value, decimals, err := p.rates.CurrentRate(ctx)
	if err != nil {
		return fmt.Errorf("read price: %w", err)
	}

	usd := oracle.ConvertToUSD(amount, value, decimals)
	if usd.Cmp(p.minimum) < 0 {
		return fmt.Errorf("%w: %s USD < %s USD", ErrInsufficientContribution, usd, p.minimum)
	}

	if err := p.funds.Transfer(ctx, caller, p.account, amount); err != nil {
		return fmt.Errorf("%w: pull deposit from %s: %v", ErrTransferFailed, caller, err)
	}

	record, known := p.contributions[caller]
	if !known {
		record = new(big.Int)
		p.contributions[caller] = record
		p.contributors = append(p.contributors, caller)
	}
	record.Add(record, amount)
	p.balance.Add(p.balance, amount)

	p.logger.Info("deposit accepted",
		zap.String("contributor", string(caller)),
		zap.String("amount", amount.String()),
		zap.String("usd_value", usd.String()),
		zap.Uint64("cycle", p.cycle),
	)
	p.record(ctx, journal.ActionDeposit, caller, amount)
	return nil
}

// Withdraw transfers the full pool balance to the owner and starts a new
// funding cycle. Only the owner may call it; any other caller gets
// ErrUnauthorized and the pool is untouched.
//
// State is cleared before the outbound transfer so a reentrant transfer
// callee can never observe (or re-drain) a balance the pool still claims.
// If the transfer fails the prior state is restored exactly and the call
// returns ErrTransferFailed.
func (p *Pool) Withdraw(ctx context.Context, caller Identity) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.owner {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}

	payout := new(big.Int).Set(p.balance)
	snap := p.snapshot()

	// Clear in place: delete each record, then reset index and balance.
	for _, id := range p.contributors {
		delete(p.contributions, id)
	}
	p.contributors = nil
	p.balance = new(big.Int)

	if err := p.funds.Transfer(ctx, p.account, p.owner, payout); err != nil {
		p.restore(snap)
		return fmt.Errorf("%w: pay out %s: %v", ErrTransferFailed, payout, err)
	}

	p.finishCycle(ctx, payout)
	return nil
}

// WithdrawCompact is observably equivalent to Withdraw. It reads the
// contributor list into a transient working copy and swaps in fresh storage
// instead of deleting records in place; final state, authorization rule, and
// failure behaviour are identical.
func (p *Pool) WithdrawCompact(ctx context.Context, caller Identity) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.owner {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}

	payout := new(big.Int).Set(p.balance)
	snap := p.snapshot()

	// Work from a transient copy of the index: reconcile the records against
	// the held balance, then swap in fresh storage wholesale.
	drained := make([]Identity, len(p.contributors))
	copy(drained, p.contributors)
	sum := new(big.Int)
	for _, id := range drained {
		sum.Add(sum, p.contributions[id])
	}
	if sum.Cmp(payout) != 0 {
		p.logger.Error("contribution records do not reconcile with pool balance",
			zap.String("records_sum", sum.String()),
			zap.String("balance", payout.String()),
		)
	}

	p.contributions = make(map[Identity]*big.Int)
	p.contributors = nil
	p.balance = new(big.Int)

	if err := p.funds.Transfer(ctx, p.account, p.owner, payout); err != nil {
		p.restore(snap)
		return fmt.Errorf("%w: pay out %s: %v", ErrTransferFailed, payout, err)
	}

	p.finishCycle(ctx, payout)
	return nil
}

// AmountContributed returns caller's cumulative contribution in the current
// funding cycle, or 0 for an identity that has never deposited.
func (p *Pool) AmountContributed(id Identity) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if record, ok := p.contributions[id]; ok {
		return new(big.Int).Set(record)
	}
	return new(big.Int)
}

// ContributorAt returns the identity at position index in first-deposit
// order. Fails with ErrIndexOutOfRange if index >= ContributorCount().
func (p *Pool) ContributorAt(index int) (Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.contributors) {
		return "", fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(p.contributors))
	}
	return p.contributors[index], nil
}

// ContributorCount returns the number of distinct contributors in the
// current funding cycle.
func (p *Pool) ContributorCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.contributors)
}

// Balance returns the total value currently held by the pool.
func (p *Pool) Balance() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.balance)
}

// Owner returns the immutable owner identity.
func (p *Pool) Owner() Identity { return p.owner }

// MinimumUSDThreshold returns the immutable deposit threshold (18-decimal USD).
func (p *Pool) MinimumUSDThreshold() *big.Int {
	return new(big.Int).Set(p.minimum)
}

// Cycle returns the current funding cycle number, starting at 1.
func (p *Pool) Cycle() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycle
}

type snapshot struct {
	contributions map[Identity]*big.Int
	contributors  []Identity
	balance       *big.Int
}

// snapshot deep-copies the mutable ledger state. Callers hold p.mu.
func (p *Pool) snapshot() snapshot {
	contributions := make(map[Identity]*big.Int, len(p.contributions))
	for id, record := range p.contributions {
		contributions[id] = new(big.Int).Set(record)
	}
	contributors := make([]Identity, len(p.contributors))
	copy(contributors, p.contributors)
	return snapshot{
		contributions: contributions,
		contributors:  contributors,
		balance:       new(big.Int).Set(p.balance),
	}
}

// restore puts back a snapshot after a failed transfer. Callers hold p.mu.
func (p *Pool) restore(snap snapshot) {
	p.contributions = snap.contributions
	p.contributors = snap.contributors
	p.balance = snap.balance
}

// finishCycle logs and journals a completed withdrawal and advances the
// funding cycle. Callers hold p.mu.
func (p *Pool) finishCycle(ctx context.Context, payout *big.Int) {
	p.logger.Info("pool withdrawn",
		zap.String("owner", string(p.owner)),
		zap.String("payout", payout.String()),
		zap.Uint64("cycle", p.cycle),
	)
	p.record(ctx, journal.ActionWithdrawal, p.owner, payout)
	p.cycle++
}

// record appends an audit entry if a journal is configured. Journal errors
// are logged and dropped; the operation itself has already succeeded.
func (p *Pool) record(ctx context.Context, action string, id Identity, amount *big.Int) {
	if p.journal == nil {
		return
	}
	var err error
	switch action {
	case journal.ActionDeposit:
		_, err = p.journal.RecordDeposit(ctx, string(id), amount.String(), p.balance.String(), p.cycle)
	case journal.ActionWithdrawal:
		_, err = p.journal.RecordWithdrawal(ctx, string(id), amount.String(), p.cycle)
	}
	if err != nil {
		p.logger.Warn("journal append failed", zap.String("action", action), zap.Error(err))
	}
}
