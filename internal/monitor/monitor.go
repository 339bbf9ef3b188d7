package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/liamashdown/whalewatch/internal/alerts"
	"github.com/liamashdown/whalewatch/internal/metrics"
	"github.com/liamashdown/whalewatch/internal/whale"
)

// TransactionSource produces one on-chain batch per call
type TransactionSource interface {
	Name() string
	Fetch(ctx context.Context) whale.TransactionBatch
}

// OrderBookSource produces one order book snapshot per call
type OrderBookSource interface {
	Name() string
	Fetch(ctx context.Context) whale.OrderBookBatch
}

// PriceSource quotes USD prices
type PriceSource interface {
	Prices(ctx context.Context) (map[whale.Asset]decimal.Decimal, error)
}

// ThresholdStore persists threshold overrides across restarts
type ThresholdStore interface {
	LoadThresholds(ctx context.Context) (map[whale.Asset]decimal.Decimal, error)
	SaveThreshold(ctx context.Context, asset whale.Asset, usd decimal.Decimal) error
}

// Options tunes a monitor
type Options struct {
	Environment       string
	MaxAlertsPerCycle int
	FetchWorkers      int           // concurrent source fetches, 0 = unlimited
	FetchTimeout      time.Duration // per cycle, 0 = none
	FallbackPrices    map[whale.Asset]decimal.Decimal
}

// Sources groups the upstream collaborators polled each cycle
type Sources struct {
	Transactions []TransactionSource
	OrderBooks   []OrderBookSource
	Prices       PriceSource
}

// trackedAssets is the fixed price/report order
var trackedAssets = []whale.Asset{whale.AssetBTC, whale.AssetETH}

// Monitor runs the polling cycle: fetch, build, dedup, alert
type Monitor struct {
	opts       Options
	sources    Sources
	thresholds *whale.Thresholds
	builder    *whale.Builder
	dedup      *whale.Deduplicator
	sender     alerts.Sender
	store      ThresholdStore // nil when persistence is disabled
	log        *logrus.Logger

	cycleMu sync.Mutex // one cycle at a time
	running atomic.Bool

	mu           sync.Mutex
	lastPrices   map[whale.Asset]decimal.Decimal
	alertsSent   int
	alertsFailed int
	cycles       int
	lastCycle    time.Time
}

// New creates a monitor. store may be nil.
func New(
	opts Options,
	sources Sources,
	thresholds *whale.Thresholds,
	classifier *whale.Classifier,
	sender alerts.Sender,
	store ThresholdStore,
	log *logrus.Logger,
) *Monitor {
	if opts.MaxAlertsPerCycle <= 0 {
		opts.MaxAlertsPerCycle = 3
	}

	m := &Monitor{
		opts:       opts,
		sources:    sources,
		thresholds: thresholds,
		builder:    whale.NewBuilder(thresholds, classifier),
		dedup:      whale.NewDeduplicator(),
		sender:     sender,
		store:      store,
		log:        log,
		lastPrices: make(map[whale.Asset]decimal.Decimal),
	}
	m.publishThresholds()
	return m
}

// CycleResult summarises one polling cycle
type CycleResult struct {
	Events        int
	Alerted       int
	Failed        int // alerts whose delivery failed
	Suppressed    int // already alerted
	Deferred      int // left for a later cycle by the per-cycle cap
	FailedSources []string
	Duration      time.Duration
}

// Run polls every interval until ctx is cancelled. The first cycle starts immediately.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	m.running.Store(true)
	defer m.running.Store(false)

	m.runLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runLogged(ctx)
		}
	}
}

func (m *Monitor) runLogged(ctx context.Context) {
	res, err := m.RunCycle(ctx)
	if err != nil {
		m.log.WithError(err).Error("Polling cycle aborted")
		return
	}
	m.log.WithFields(logrus.Fields{
		"events":         res.Events,
		"alerted":        res.Alerted,
		"failed":         res.Failed,
		"suppressed":     res.Suppressed,
		"deferred":       res.Deferred,
		"failed_sources": res.FailedSources,
		"duration_ms":    res.Duration.Milliseconds(),
	}).Info("Polling cycle complete")
}

// RunCycle performs one full cycle. Source failures never fail the cycle;
// an error is returned only when ctx is done.
func (m *Monitor) RunCycle(ctx context.Context) (*CycleResult, error) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	start := time.Now()
	prices := m.refreshPrices(ctx)
	events, failed := m.collect(ctx, prices)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &CycleResult{Events: len(events), FailedSources: failed}
	for _, ev := range events {
		metrics.RecordEvent(string(ev.Kind()), eventAsset(ev))

		if res.Alerted+res.Failed >= m.opts.MaxAlertsPerCycle {
			res.Deferred++
			continue
		}
		if !m.dedup.ShouldAlert(ev) {
			res.Suppressed++
			metrics.RecordAlert(string(ev.Kind()), nil, true)
			continue
		}

		if err := m.sender.Send(ctx, alerts.NewPayload(ev, m.opts.Environment)); err != nil {
			res.Failed++
			metrics.RecordAlert(string(ev.Kind()), err, false)
			m.log.WithError(err).WithFields(eventFields(ev)).Error("Failed to send alert")
			continue
		}
		res.Alerted++
		metrics.RecordAlert(string(ev.Kind()), nil, false)
		m.log.WithFields(eventFields(ev)).Info("Whale detected")
	}

	res.Duration = time.Since(start)
	metrics.RecordCycle(res.Duration, len(failed))

	m.mu.Lock()
	m.alertsSent += res.Alerted
	m.alertsFailed += res.Failed
	m.cycles++
	m.lastCycle = time.Now()
	m.mu.Unlock()

	return res, nil
}

type fetched struct {
	transactions []whale.TransactionBatch
	orderBooks   []whale.OrderBookBatch
}

// fetchAll polls every source concurrently. Results keep source order.
func (m *Monitor) fetchAll(ctx context.Context) fetched {
	if m.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.FetchTimeout)
		defer cancel()
	}

	out := fetched{
		transactions: make([]whale.TransactionBatch, len(m.sources.Transactions)),
		orderBooks:   make([]whale.OrderBookBatch, len(m.sources.OrderBooks)),
	}

	var g errgroup.Group
	if m.opts.FetchWorkers > 0 {
		g.SetLimit(m.opts.FetchWorkers)
	}
	for i, src := range m.sources.Transactions {
		g.Go(func() error {
			out.transactions[i] = src.Fetch(ctx)
			return nil
		})
	}
	for i, src := range m.sources.OrderBooks {
		g.Go(func() error {
			out.orderBooks[i] = src.Fetch(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// collect fetches all sources and builds events in source order: transaction
// sources first, then order books. It returns the names of failed sources.
func (m *Monitor) collect(ctx context.Context, prices map[whale.Asset]decimal.Decimal) ([]whale.Event, []string) {
	batches := m.fetchAll(ctx)

	var events []whale.Event
	var failed []string

	for i, batch := range batches.transactions {
		name := m.sources.Transactions[i].Name()
		if batch.Err != nil {
			failed = append(failed, name)
			metrics.RecordSourceFailure(name)
			m.log.WithError(batch.Err).WithField("source", name).Warn("Source unavailable, skipping for this cycle")
			continue
		}
		price, ok := prices[batch.Asset]
		if !ok {
			m.log.WithField("source", name).WithField("asset", batch.Asset).Warn("No price for asset, skipping batch")
			continue
		}
		events = append(events, m.builder.BuildTransfers(batch, price)...)
	}

	for i, batch := range batches.orderBooks {
		name := m.sources.OrderBooks[i].Name()
		if batch.Err != nil {
			failed = append(failed, name)
			metrics.RecordSourceFailure(name)
			m.log.WithError(batch.Err).WithField("source", name).Warn("Source unavailable, skipping for this cycle")
			continue
		}
		events = append(events, m.builder.BuildOrders(batch)...)
	}

	return events, failed
}

// refreshPrices returns a price for every tracked asset: the fresh quote, else
// the last known quote, else the configured fallback.
func (m *Monitor) refreshPrices(ctx context.Context) map[whale.Asset]decimal.Decimal {
	var quotes map[whale.Asset]decimal.Decimal
	if m.sources.Prices != nil {
		var err error
		quotes, err = m.sources.Prices.Prices(ctx)
		if err != nil {
			m.log.WithError(err).Warn("Price fetch failed, using last known prices")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prices := make(map[whale.Asset]decimal.Decimal, len(trackedAssets))
	for _, asset := range trackedAssets {
		if p, ok := quotes[asset]; ok && p.IsPositive() {
			m.lastPrices[asset] = p
			prices[asset] = p
			continue
		}
		if p, ok := m.lastPrices[asset]; ok {
			prices[asset] = p
			continue
		}
		if p, ok := m.opts.FallbackPrices[asset]; ok {
			prices[asset] = p
		}
	}
	return prices
}

// SetThreshold changes an asset's threshold at runtime and persists it when a
// store is configured. Invalid values are rejected and the prior value kept.
func (m *Monitor) SetThreshold(ctx context.Context, asset whale.Asset, usd decimal.Decimal) error {
	if err := m.thresholds.Set(asset, usd); err != nil {
		return err
	}
	metrics.SetThreshold(string(asset), usd.InexactFloat64())

	m.log.WithFields(logrus.Fields{
		"asset":         asset,
		"threshold_usd": usd.String(),
	}).Info("Threshold updated")

	if m.store != nil {
		if err := m.store.SaveThreshold(ctx, asset, usd); err != nil {
			m.log.WithError(err).WithField("asset", asset).Error("Threshold applied but not persisted")
		}
	}
	return nil
}

// RestoreThresholds applies persisted overrides. Invalid entries are logged and skipped.
func (m *Monitor) RestoreThresholds(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	saved, err := m.store.LoadThresholds(ctx)
	if err != nil {
		return fmt.Errorf("restore thresholds: %w", err)
	}
	for asset, usd := range saved {
		if err := m.thresholds.Set(asset, usd); err != nil {
			m.log.WithError(err).WithField("asset", asset).Warn("Ignoring persisted threshold")
			continue
		}
		m.log.WithFields(logrus.Fields{
			"asset":         asset,
			"threshold_usd": usd.String(),
		}).Info("Restored persisted threshold")
	}
	m.publishThresholds()
	return nil
}

func (m *Monitor) publishThresholds() {
	for asset, usd := range m.thresholds.Snapshot() {
		metrics.SetThreshold(string(asset), usd.InexactFloat64())
	}
}

// Running reports whether the polling loop is active
func (m *Monitor) Running() bool {
	return m.running.Load()
}

func eventAsset(ev whale.Event) string {
	switch e := ev.(type) {
	case *whale.Transfer:
		return string(e.Asset)
	case *whale.Order:
		return string(e.Asset)
	}
	return ""
}

func eventFields(ev whale.Event) logrus.Fields {
	fields := logrus.Fields{
		"kind":      ev.Kind(),
		"usd_value": ev.USDValue().StringFixed(2),
	}
	switch e := ev.(type) {
	case *whale.Transfer:
		fields["asset"] = e.Asset
		fields["hash"] = e.Hash
		fields["type"] = e.TransactionType
		fields["confirmed"] = e.Confirmed
	case *whale.Order:
		fields["exchange"] = e.Exchange
		fields["symbol"] = e.Symbol
		fields["side"] = e.Side
	}
	return fields
}

func sortByUSD[T whale.Event](events []T) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].USDValue().GreaterThan(events[j].USDValue())
	})
}
