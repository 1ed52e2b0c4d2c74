package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// httpFeedVersion is the interface version reported by HTTPFeed.
const httpFeedVersion = 1

// spotQuote is the response body expected from the configured price endpoint,
// e.g. {"symbol":"ETHUSD","price":"2643.18"}.
type spotQuote struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// HTTPFeed is a PriceFeed backed by a JSON spot-price HTTP endpoint.
//
// The endpoint's decimal price string is parsed into fixed-point at the
// configured scale. The last good reading is cached and served when a fetch
// fails, as long as it is younger than the staleness window.
type HTTPFeed struct {
	url      string
	decimals uint8
	maxStale time.Duration
	client   *http.Client
	logger   *zap.Logger

	mu        sync.Mutex
	lastValue *big.Int
	lastAt    time.Time
}

// NewHTTPFeed creates an HTTPFeed polling url. decimals is the fixed-point
// scale of the values this feed reports; maxStale bounds how long a cached
// reading may substitute for a failed fetch.
func NewHTTPFeed(url string, decimals uint8, maxStale time.Duration, logger *zap.Logger) *HTTPFeed {
	if maxStale == 0 {
		maxStale = time.Minute
	}
	return &HTTPFeed{
		url:      url,
		decimals: decimals,
		maxStale: maxStale,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// LatestPrice implements PriceFeed.
func (f *HTTPFeed) LatestPrice(ctx context.Context) (*big.Int, uint8, error) {
	value, err := f.fetch(ctx)
	if err != nil {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.lastValue != nil && time.Since(f.lastAt) <= f.maxStale {
			f.logger.Warn("price fetch failed, serving cached reading",
				zap.Error(err),
				zap.Duration("age", time.Since(f.lastAt)),
			)
			return new(big.Int).Set(f.lastValue), f.decimals, nil
		}
		return nil, 0, err
	}

	f.mu.Lock()
	f.lastValue = new(big.Int).Set(value)
	f.lastAt = time.Now()
	f.mu.Unlock()

	return value, f.decimals, nil
}

// Version implements PriceFeed.
func (f *HTTPFeed) Version() uint64 { return httpFeedVersion }

func (f *HTTPFeed) fetch(ctx context.Context) (*big.Int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build price request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("read price response: %w", err)
	}

	var quote spotQuote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("decode price response: %w", err)
	}

	value, err := ParseDecimal(quote.Price, f.decimals)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", quote.Price, err)
	}
	return value, nil
}

// ParseDecimal parses a non-negative decimal string ("2643.18") into a
// fixed-point integer at the given scale. Fractional digits beyond the scale
// are truncated.
func ParseDecimal(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return nil, fmt.Errorf("empty decimal")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	value, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("not a non-negative decimal")
	}
	return value, nil
}
