package server

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liamashdown/whalewatch/internal/monitor"
	"github.com/liamashdown/whalewatch/internal/whale"
)

// flexDecimal decodes a JSON number or a string such as "1,000,000"
type flexDecimal struct {
	decimal.Decimal
}

func (f *flexDecimal) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid amount %s", b)
	}
	f.Decimal = d
	return nil
}

type addressView struct {
	Address  string `json:"address"`
	Category string `json:"category"`
	Entity   string `json:"entity,omitempty"`
	Value    string `json:"value,omitempty"`
}

type transferView struct {
	Asset       string        `json:"asset"`
	Hash        string        `json:"hash"`
	Amount      string        `json:"amount"`
	USD         string        `json:"usd_value"`
	Type        string        `json:"type"`
	Pattern     string        `json:"pattern"`
	Confirmed   bool          `json:"confirmed"`
	BlockHeight int64         `json:"block_height,omitempty"`
	Timestamp   int64         `json:"timestamp,omitempty"`
	From        []addressView `json:"from"`
	To          []addressView `json:"to"`
	InputCount  int           `json:"input_count"`
	OutputCount int           `json:"output_count"`
	Message     string        `json:"message"`
}

type orderView struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	USD      string `json:"usd_value"`
	Message  string `json:"message"`
}

type activityView struct {
	Asset     string `json:"asset"`
	PriceUSD  string `json:"price_usd"`
	Confirmed int    `json:"confirmed"`
	Pending   int    `json:"pending"`
	Orders    int    `json:"exchange_orders"`
}

type reportView struct {
	CheckedAt     time.Time      `json:"checked_at"`
	Activity      []activityView `json:"activity"`
	TopTransfers  []transferView `json:"top_transfers"`
	TopOrders     []orderView    `json:"top_orders"`
	FailedSources []string       `json:"failed_sources"`
}

func newReportView(r *monitor.Report) reportView {
	v := reportView{
		CheckedAt:     r.CheckedAt,
		Activity:      make([]activityView, 0, len(r.Activity)),
		TopTransfers:  make([]transferView, 0, len(r.TopTransfers)),
		TopOrders:     make([]orderView, 0, len(r.TopOrders)),
		FailedSources: r.FailedSources,
	}
	if v.FailedSources == nil {
		v.FailedSources = []string{}
	}
	for _, a := range r.Activity {
		v.Activity = append(v.Activity, activityView{
			Asset:     string(a.Asset),
			PriceUSD:  a.PriceUSD.StringFixed(2),
			Confirmed: a.Confirmed,
			Pending:   a.Pending,
			Orders:    a.Orders,
		})
	}
	for _, t := range r.TopTransfers {
		v.TopTransfers = append(v.TopTransfers, newTransferView(t))
	}
	for _, o := range r.TopOrders {
		v.TopOrders = append(v.TopOrders, orderView{
			Exchange: o.Exchange,
			Symbol:   o.Symbol,
			Side:     string(o.Side),
			Price:    o.Price.String(),
			Quantity: o.Quantity.String(),
			USD:      o.USD.StringFixed(2),
			Message:  whale.Format(o),
		})
	}
	return v
}

func newTransferView(t *whale.Transfer) transferView {
	return transferView{
		Asset:       string(t.Asset),
		Hash:        t.Hash,
		Amount:      t.Amount.String(),
		USD:         t.USD.StringFixed(2),
		Type:        string(t.TransactionType),
		Pattern:     string(t.Pattern),
		Confirmed:   t.Confirmed,
		BlockHeight: t.BlockHeight,
		Timestamp:   t.Timestamp,
		From:        newAddressViews(t.FromAddresses),
		To:          newAddressViews(t.ToAddresses),
		InputCount:  t.InputCount,
		OutputCount: t.OutputCount,
		Message:     whale.Format(t),
	}
}

func newAddressViews(addrs []whale.ClassifiedAddress) []addressView {
	out := make([]addressView, 0, len(addrs))
	for _, a := range addrs {
		v := addressView{
			Address:  a.Address,
			Category: string(a.Category),
			Entity:   a.Entity,
		}
		if a.ValueMoved.Valid {
			v.Value = a.ValueMoved.Decimal.String()
		}
		out = append(out, v)
	}
	return out
}

type priceView struct {
	Asset           string `json:"asset"`
	PriceUSD        string `json:"price_usd"`
	ThresholdUSD    string `json:"threshold_usd"`
	ThresholdNative string `json:"threshold_native"`
}

func newPricesView(quotes []monitor.PriceQuote) []priceView {
	out := make([]priceView, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, priceView{
			Asset:           string(q.Asset),
			PriceUSD:        q.PriceUSD.StringFixed(2),
			ThresholdUSD:    q.ThresholdUSD.StringFixed(2),
			ThresholdNative: q.ThresholdNative.StringFixed(4),
		})
	}
	return out
}

type statsView struct {
	Running      bool              `json:"running"`
	Thresholds   map[string]string `json:"thresholds_usd"`
	Sources      []string          `json:"sources"`
	Cycles       int               `json:"cycles"`
	AlertsSent   int               `json:"alerts_sent"`
	AlertsFailed int               `json:"alerts_failed"`
	Fingerprints int               `json:"events_seen"`
	LastCycle    *time.Time        `json:"last_cycle,omitempty"`
	Persistent   bool              `json:"thresholds_persistent"`
}

func newStatsView(s monitor.Stats) statsView {
	v := statsView{
		Running:      s.Running,
		Thresholds:   thresholdStrings(s.Thresholds),
		Sources:      s.Sources,
		Cycles:       s.Cycles,
		AlertsSent:   s.AlertsSent,
		AlertsFailed: s.AlertsFailed,
		Fingerprints: s.Fingerprints,
		Persistent:   s.Persistent,
	}
	if !s.LastCycle.IsZero() {
		last := s.LastCycle.UTC()
		v.LastCycle = &last
	}
	return v
}

type configView struct {
	Thresholds map[string]string `json:"thresholds_usd"`
}

func newConfigView(thresholds map[whale.Asset]decimal.Decimal) configView {
	return configView{Thresholds: thresholdStrings(thresholds)}
}

func thresholdStrings(thresholds map[whale.Asset]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(thresholds))
	for asset, usd := range thresholds {
		out[string(asset)] = usd.StringFixed(2)
	}
	return out
}
