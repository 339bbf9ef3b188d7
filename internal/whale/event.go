package whale

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// EventKind tags the variant of a whale event
type EventKind string

const (
	KindOnChainTransfer EventKind = "onchain_transfer"
	KindExchangeOrder   EventKind = "exchange_order"
)

// Side of an order book level
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// MaxDisplayAddresses caps the from/to lists carried on a transfer
const MaxDisplayAddresses = 3

// Event is a normalized whale event
type Event interface {
	Kind() EventKind
	USDValue() decimal.Decimal
	// Fingerprint identifies the real-world event across polling cycles
	Fingerprint() string
}

// Transfer is a large on-chain transaction
type Transfer struct {
	Asset           Asset
	Amount          decimal.Decimal // native units
	USD             decimal.Decimal
	Hash            string
	Timestamp       int64
	BlockHeight     int64 // 0 when unknown
	Pattern         Pattern
	TransactionType TransactionType
	FromAddresses   []ClassifiedAddress
	ToAddresses     []ClassifiedAddress
	InputCount      int
	OutputCount     int
	Confirmed       bool
}

func (t *Transfer) Kind() EventKind           { return KindOnChainTransfer }
func (t *Transfer) USDValue() decimal.Decimal { return t.USD }
func (t *Transfer) Fingerprint() string       { return fingerprint(t.Hash, "", t.USD) }

// Order is a large resting order on an exchange book
type Order struct {
	Exchange string
	Symbol   string
	Asset    Asset
	Side     Side
	Price    decimal.Decimal
	Quantity decimal.Decimal
	USD      decimal.Decimal
}

func (o *Order) Kind() EventKind           { return KindExchangeOrder }
func (o *Order) USDValue() decimal.Decimal { return o.USD }
func (o *Order) Fingerprint() string       { return fingerprint("", o.Symbol, o.USD) }

func fingerprint(hash, symbol string, usd decimal.Decimal) string {
	return fmt.Sprintf("%s|%s|%s", hash, symbol, usd.StringFixed(2))
}
