// Package oracle normalises external price feed readings into USD rates.
//
// A PriceFeed is a black-box capability that reports the latest price of the
// native value unit together with its fixed-point scale. The Adapter wraps a
// feed, maps read failures onto ErrOracleUnavailable, and exposes the
// conversion from native-unit amounts to 18-decimal USD values.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"
)

// ErrOracleUnavailable is returned when the underlying price feed cannot be read.
var ErrOracleUnavailable = errors.New("price oracle unavailable")

// USDDecimals is the fixed-point scale of all USD values produced by this
// package, and the assumed scale of native value unit amounts.
const USDDecimals = 18

// PriceFeed reports the latest USD price of one native value unit.
type PriceFeed interface {
	// LatestPrice returns the current price and its fixed-point scale
	// (number of fractional decimal digits in value).
	LatestPrice(ctx context.Context) (value *big.Int, decimals uint8, err error)

	// Version returns the feed's declared interface version.
	Version() uint64
}

// Adapter wraps a PriceFeed with failure normalisation and logging.
// The wrapped feed is fixed for the adapter's lifetime.
type Adapter struct {
	feed   PriceFeed
	logger *zap.Logger
}

// NewAdapter creates an Adapter around feed.
func NewAdapter(feed PriceFeed, logger *zap.Logger) *Adapter {
	return &Adapter{feed: feed, logger: logger}
}

// CurrentRate returns the latest price reading from the feed.
// Feed failures are reported as ErrOracleUnavailable.
func (a *Adapter) CurrentRate(ctx context.Context) (*big.Int, uint8, error) {
	value, decimals, err := a.feed.LatestPrice(ctx)
	if err != nil {
		a.logger.Warn("price feed read failed", zap.Error(err))
		return nil, 0, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	if value == nil || value.Sign() < 0 {
		return nil, 0, fmt.Errorf("%w: feed returned invalid price", ErrOracleUnavailable)
	}
	return value, decimals, nil
}

// SchemaVersion returns the wrapped feed's declared interface version.
func (a *Adapter) SchemaVersion() uint64 {
	return a.feed.Version()
}

// ConvertToUSD converts amount (native units, 18 decimals) to an 18-decimal
// USD value using the price reading (value, decimals).
//
// The computation is amount * value * 10^(18-decimals) / 10^18 when the feed
// scale is at most 18 decimals, and amount * value / 10^(decimals-18) / 10^18
// otherwise. All arithmetic is exact big.Int; the only precision loss is the
// final floor truncation. Exact for amounts up to 2^96.
func ConvertToUSD(amount, value *big.Int, decimals uint8) *big.Int {
	usd := new(big.Int).Mul(amount, value)
	if decimals <= USDDecimals {
		usd.Mul(usd, pow10(uint(USDDecimals-decimals)))
	} else {
		usd.Quo(usd, pow10(uint(decimals-USDDecimals)))
	}
	return usd.Quo(usd, pow10(USDDecimals))
}

func pow10(n uint) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
