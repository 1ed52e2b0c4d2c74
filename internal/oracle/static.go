package oracle

import (
	"context"
	"math/big"
	"sync"
)

// StaticFeed is a PriceFeed that always reports a fixed price. It is used for
// development deployments and tests, where no live feed is available.
type StaticFeed struct {
	mu       sync.Mutex
	value    *big.Int
	decimals uint8
	version  uint64
	err      error
}

// NewStaticFeed creates a StaticFeed reporting the given price.
func NewStaticFeed(value *big.Int, decimals uint8, version uint64) *StaticFeed {
	return &StaticFeed{
		value:    new(big.Int).Set(value),
		decimals: decimals,
		version:  version,
	}
}

// LatestPrice implements PriceFeed.
func (f *StaticFeed) LatestPrice(_ context.Context) (*big.Int, uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, 0, f.err
	}
	return new(big.Int).Set(f.value), f.decimals, nil
}

// Version implements PriceFeed.
func (f *StaticFeed) Version() uint64 { return f.version }

// SetPrice replaces the reported price.
func (f *StaticFeed) SetPrice(value *big.Int, decimals uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = new(big.Int).Set(value)
	f.decimals = decimals
}

// SetError makes every subsequent LatestPrice call fail with err.
// Passing nil restores normal operation.
func (f *StaticFeed) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}
