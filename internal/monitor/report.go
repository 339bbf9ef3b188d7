package monitor

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liamashdown/whalewatch/internal/whale"
)

// topN is how many transfers and orders a check report lists
const topN = 3

// AssetActivity counts the whale events of one asset
type AssetActivity struct {
	Asset     whale.Asset
	PriceUSD  decimal.Decimal
	Confirmed int // transfers from confirmed blocks
	Pending   int // mempool transfers
	Orders    int // exchange book levels
}

// Report is the result of an on-demand check
type Report struct {
	CheckedAt     time.Time
	Activity      []AssetActivity
	TopTransfers  []*whale.Transfer
	TopOrders     []*whale.Order
	FailedSources []string
}

// Check fetches every source once and summarises what is above threshold right
// now. Nothing is sent and the alert history is left untouched.
func (m *Monitor) Check(ctx context.Context) (*Report, error) {
	prices := m.refreshPrices(ctx)
	events, failed := m.collect(ctx, prices)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	activity := make(map[whale.Asset]*AssetActivity, len(trackedAssets))
	report := &Report{CheckedAt: time.Now().UTC(), FailedSources: failed}
	for _, asset := range trackedAssets {
		report.Activity = append(report.Activity, AssetActivity{Asset: asset, PriceUSD: prices[asset]})
	}
	for i := range report.Activity {
		activity[report.Activity[i].Asset] = &report.Activity[i]
	}

	for _, ev := range events {
		switch e := ev.(type) {
		case *whale.Transfer:
			if a, ok := activity[e.Asset]; ok {
				if e.Confirmed {
					a.Confirmed++
				} else {
					a.Pending++
				}
			}
			report.TopTransfers = append(report.TopTransfers, e)
		case *whale.Order:
			if a, ok := activity[e.Asset]; ok {
				a.Orders++
			}
			report.TopOrders = append(report.TopOrders, e)
		}
	}

	sortByUSD(report.TopTransfers)
	sortByUSD(report.TopOrders)
	if len(report.TopTransfers) > topN {
		report.TopTransfers = report.TopTransfers[:topN]
	}
	if len(report.TopOrders) > topN {
		report.TopOrders = report.TopOrders[:topN]
	}

	return report, nil
}

// PriceQuote is an asset price with its threshold in USD and native units
type PriceQuote struct {
	Asset           whale.Asset
	PriceUSD        decimal.Decimal
	ThresholdUSD    decimal.Decimal
	ThresholdNative decimal.Decimal // zero when no price is known
}

// Prices refreshes prices and returns a quote for every tracked asset
func (m *Monitor) Prices(ctx context.Context) []PriceQuote {
	prices := m.refreshPrices(ctx)

	quotes := make([]PriceQuote, 0, len(trackedAssets))
	for _, asset := range trackedAssets {
		q := PriceQuote{Asset: asset, PriceUSD: prices[asset]}
		q.ThresholdUSD, _ = m.thresholds.Get(asset)
		if q.PriceUSD.IsPositive() {
			q.ThresholdNative = q.ThresholdUSD.DivRound(q.PriceUSD, 8)
		}
		quotes = append(quotes, q)
	}
	return quotes
}

// Stats describes the monitor's running state
type Stats struct {
	Running      bool
	Thresholds   map[whale.Asset]decimal.Decimal
	Sources      []string
	Cycles       int
	AlertsSent   int
	AlertsFailed int
	Fingerprints int // distinct events alerted so far
	LastCycle    time.Time
	Persistent   bool // thresholds survive restarts
}

// Stats returns a snapshot of the monitor's state
func (m *Monitor) Stats() Stats {
	s := Stats{
		Running:      m.Running(),
		Thresholds:   m.thresholds.Snapshot(),
		Fingerprints: m.dedup.Len(),
		Persistent:   m.store != nil,
	}
	for _, src := range m.sources.Transactions {
		s.Sources = append(s.Sources, src.Name())
	}
	for _, src := range m.sources.OrderBooks {
		s.Sources = append(s.Sources, src.Name())
	}

	m.mu.Lock()
	s.Cycles = m.cycles
	s.AlertsSent = m.alertsSent
	s.AlertsFailed = m.alertsFailed
	s.LastCycle = m.lastCycle
	m.mu.Unlock()

	return s
}
