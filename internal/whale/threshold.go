package whale

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeThreshold is returned when a threshold below zero is requested
	ErrNegativeThreshold = errors.New("threshold must not be negative")
	// ErrUnknownAsset is returned for assets the thresholds were not configured with
	ErrUnknownAsset = errors.New("unknown asset")
)

// Thresholds holds the USD whale threshold of each tracked asset.
// Updates are visible to every later Passes call.
type Thresholds struct {
	mu     sync.RWMutex
	values map[Asset]decimal.Decimal
}

// NewThresholds creates thresholds for the given assets. The set of assets is fixed
// at construction; Set only changes values of assets present here.
func NewThresholds(initial map[Asset]decimal.Decimal) (*Thresholds, error) {
	t := &Thresholds{values: make(map[Asset]decimal.Decimal, len(initial))}
	for asset, usd := range initial {
		if usd.IsNegative() {
			return nil, fmt.Errorf("%s: %w", asset, ErrNegativeThreshold)
		}
		t.values[asset] = usd
	}
	return t, nil
}

// Passes reports whether usd reaches the asset's threshold. Assets without a
// threshold never pass.
func (t *Thresholds) Passes(asset Asset, usd decimal.Decimal) bool {
	t.mu.RLock()
	threshold, ok := t.values[asset]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	return usd.GreaterThanOrEqual(threshold)
}

// Set replaces an asset's threshold. Invalid changes leave the prior value in place.
func (t *Thresholds) Set(asset Asset, usd decimal.Decimal) error {
	if usd.IsNegative() {
		return fmt.Errorf("set %s threshold to %s: %w", asset, usd.String(), ErrNegativeThreshold)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.values[asset]; !ok {
		return fmt.Errorf("set %q threshold: %w", asset, ErrUnknownAsset)
	}
	t.values[asset] = usd
	return nil
}

// Get returns the current threshold of an asset
func (t *Thresholds) Get(asset Asset) (decimal.Decimal, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[asset]
	return v, ok
}

// Snapshot returns a copy of all thresholds
func (t *Thresholds) Snapshot() map[Asset]decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[Asset]decimal.Decimal, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}
