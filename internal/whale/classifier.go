package whale

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AddressValue is one input or output of a raw transaction; Value is in base units
type AddressValue struct {
	Address string
	Value   decimal.Decimal
}

// ClassifiedAddress is an address annotated with its role
type ClassifiedAddress struct {
	Address    string
	Category   Category
	Entity     string
	ValueMoved decimal.NullDecimal // native units, set for outputs only
}

// Classifier assigns categories to addresses using a directory first and prefix heuristics second
type Classifier struct {
	dir *Directory
}

// NewClassifier creates a classifier backed by dir (DefaultDirectory when nil)
func NewClassifier(dir *Directory) *Classifier {
	if dir == nil {
		dir = DefaultDirectory()
	}
	return &Classifier{dir: dir}
}

// Classify returns the category and entity label for an address.
// Directory hits always win over the heuristics.
func (c *Classifier) Classify(address string) (Category, string) {
	if address == "" {
		return CategoryUnknown, "Unknown"
	}

	if e, ok := c.dir.Lookup(address); ok {
		return e.Category, e.Name
	}

	if name, ok := c.dir.MatchMixer(address); ok {
		return CategoryMixer, name
	}

	switch {
	case strings.HasPrefix(address, "bc1q"):
		if len(address) > 50 {
			return CategoryWallet, "Cold Storage (Bech32)"
		}
		return CategoryWallet, "Personal Wallet (Bech32)"
	case strings.HasPrefix(address, "3"):
		return CategoryWallet, "Multi-sig Wallet"
	case strings.HasPrefix(address, "1"):
		return CategoryWallet, "Legacy Wallet"
	default:
		return CategoryUnknown, "Unknown Address Type"
	}
}

// ClassifyAll classifies every addressed entry in order. Repeated addresses are
// merged into their first occurrence. When withValue is set the entry values are
// summed and converted to native units of asset.
func (c *Classifier) ClassifyAll(entries []AddressValue, asset Asset, withValue bool) []ClassifiedAddress {
	out := make([]ClassifiedAddress, 0, len(entries))
	index := make(map[string]int, len(entries))

	for _, e := range entries {
		if e.Address == "" {
			continue
		}
		native := e.Value.Shift(-asset.Decimals())

		if i, ok := index[e.Address]; ok {
			if withValue {
				out[i].ValueMoved.Decimal = out[i].ValueMoved.Decimal.Add(native)
			}
			continue
		}

		category, entity := c.Classify(e.Address)
		ca := ClassifiedAddress{
			Address:  e.Address,
			Category: category,
			Entity:   entity,
		}
		if withValue {
			ca.ValueMoved = decimal.NullDecimal{Decimal: native, Valid: true}
		}
		index[e.Address] = len(out)
		out = append(out, ca)
	}

	return out
}
