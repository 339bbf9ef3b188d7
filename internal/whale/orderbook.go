package whale

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Level is one price level of an order book
type Level struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

type objectLevel struct {
	Price    *decimal.Decimal `json:"price"`
	Amount   *decimal.Decimal `json:"amount"`
	Quantity *decimal.Decimal `json:"quantity"`
}

// NormalizeLevels converts raw order book levels to price/quantity pairs.
// Accepted shapes are arrays ["price", "qty", ...] with string or numeric
// members, and objects {"price": ..., "amount"|"quantity": ...}.
// Malformed or non-positive levels are skipped.
func NormalizeLevels(raw []json.RawMessage) []Level {
	levels := make([]Level, 0, len(raw))
	for _, r := range raw {
		lvl, ok := parseLevel(r)
		if !ok {
			continue
		}
		levels = append(levels, lvl)
	}
	return levels
}

func parseLevel(r json.RawMessage) (Level, bool) {
	var arr []json.RawMessage
	if err := json.Unmarshal(r, &arr); err == nil {
		if len(arr) < 2 {
			return Level{}, false
		}
		var price, qty decimal.Decimal
		if err := price.UnmarshalJSON(arr[0]); err != nil {
			return Level{}, false
		}
		if err := qty.UnmarshalJSON(arr[1]); err != nil {
			return Level{}, false
		}
		return validLevel(price, qty)
	}

	var obj objectLevel
	if err := json.Unmarshal(r, &obj); err != nil || obj.Price == nil {
		return Level{}, false
	}
	qty := obj.Amount
	if qty == nil {
		qty = obj.Quantity
	}
	if qty == nil {
		return Level{}, false
	}
	return validLevel(*obj.Price, *qty)
}

func validLevel(price, qty decimal.Decimal) (Level, bool) {
	if !price.IsPositive() || !qty.IsPositive() {
		return Level{}, false
	}
	return Level{Price: price, Quantity: qty}, true
}
