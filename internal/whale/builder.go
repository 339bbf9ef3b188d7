package whale

import (
	"github.com/shopspring/decimal"
)

// RawTransaction is an on-chain transaction as delivered by a chain source.
// Input and output values are in base units (satoshi, wei).
type RawTransaction struct {
	Hash        string
	Inputs      []AddressValue
	Outputs     []AddressValue
	Timestamp   int64
	BlockHeight int64 // 0 when unknown
}

// TransactionBatch is one source's result for a polling cycle
type TransactionBatch struct {
	Source       string
	Asset        Asset
	Confirmed    bool
	BlockHeight  int64 // applied to transactions that carry none
	Transactions []RawTransaction
	Err          error // set when the source failed before returning records
}

// OrderBookBatch is one order book snapshot normalized to price/quantity levels
type OrderBookBatch struct {
	Exchange string
	Symbol   string
	Bids     []Level
	Asks     []Level
	Err      error
}

// Builder turns raw batches into whale events
type Builder struct {
	thresholds *Thresholds
	classifier *Classifier
}

// NewBuilder creates a builder
func NewBuilder(thresholds *Thresholds, classifier *Classifier) *Builder {
	return &Builder{
		thresholds: thresholds,
		classifier: classifier,
	}
}

// BuildTransfers returns a Transfer for every transaction in the batch whose
// total output value, priced at price USD per native unit, reaches the asset
// threshold. Input order is preserved. Transactions without a hash are skipped.
func (b *Builder) BuildTransfers(batch TransactionBatch, price decimal.Decimal) []Event {
	if batch.Err != nil || len(batch.Transactions) == 0 {
		return nil
	}

	var events []Event
	for i := range batch.Transactions {
		tx := &batch.Transactions[i]
		if tx.Hash == "" {
			continue
		}

		total := decimal.Zero
		for _, out := range tx.Outputs {
			total = total.Add(out.Value)
		}
		amount := total.Shift(-batch.Asset.Decimals())
		usd := amount.Mul(price)

		if !b.thresholds.Passes(batch.Asset, usd) {
			continue
		}

		events = append(events, b.buildTransfer(batch, tx, amount, usd))
	}
	return events
}

func (b *Builder) buildTransfer(batch TransactionBatch, tx *RawTransaction, amount, usd decimal.Decimal) *Transfer {
	inputAddrs := make([]string, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		inputAddrs = append(inputAddrs, in.Address)
	}
	// zero-value outputs (e.g. data carriers) do not count towards the shape
	outputAddrs := make([]string, 0, len(tx.Outputs))
	for _, out := range tx.Outputs {
		if out.Value.IsZero() {
			continue
		}
		outputAddrs = append(outputAddrs, out.Address)
	}
	pattern := AnalyzePattern(inputAddrs, outputAddrs)

	from := b.classifier.ClassifyAll(tx.Inputs, batch.Asset, false)
	to := b.classifier.ClassifyAll(tx.Outputs, batch.Asset, true)
	txType := ResolveType(from, to, pattern)

	height := tx.BlockHeight
	if height == 0 {
		height = batch.BlockHeight
	}

	return &Transfer{
		Asset:           batch.Asset,
		Amount:          amount,
		USD:             usd,
		Hash:            tx.Hash,
		Timestamp:       tx.Timestamp,
		BlockHeight:     height,
		Pattern:         pattern,
		TransactionType: txType,
		FromAddresses:   truncate(from),
		ToAddresses:     truncate(to),
		InputCount:      len(tx.Inputs),
		OutputCount:     len(tx.Outputs),
		Confirmed:       batch.Confirmed,
	}
}

func truncate(addrs []ClassifiedAddress) []ClassifiedAddress {
	if len(addrs) > MaxDisplayAddresses {
		return addrs[:MaxDisplayAddresses:MaxDisplayAddresses]
	}
	return addrs
}

// BuildOrders returns an Order for every bid (buy) and ask (sell) level whose
// value reaches the threshold of the symbol's asset. Bids come before asks and
// each side keeps its book order.
func (b *Builder) BuildOrders(batch OrderBookBatch) []Event {
	if batch.Err != nil {
		return nil
	}
	asset, ok := AssetForSymbol(batch.Symbol)
	if !ok {
		return nil
	}

	var events []Event
	collect := func(levels []Level, side Side) {
		for _, lvl := range levels {
			usd := lvl.Price.Mul(lvl.Quantity)
			if !b.thresholds.Passes(asset, usd) {
				continue
			}
			events = append(events, &Order{
				Exchange: batch.Exchange,
				Symbol:   batch.Symbol,
				Asset:    asset,
				Side:     side,
				Price:    lvl.Price,
				Quantity: lvl.Quantity,
				USD:      usd,
			})
		}
	}
	collect(batch.Bids, SideBuy)
	collect(batch.Asks, SideSell)

	return events
}
