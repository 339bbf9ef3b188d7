package whale

import "strings"

// Asset identifies a tracked crypto asset class
type Asset string

const (
	AssetBTC Asset = "BTC"
	AssetETH Asset = "ETH"
)

type assetInfo struct {
	name     string
	decimals int32 // base units per native unit, as a power of ten
}

var knownAssets = map[Asset]assetInfo{
	AssetBTC: {name: "Bitcoin", decimals: 8},  // satoshi
	AssetETH: {name: "Ethereum", decimals: 18}, // wei
}

// Name returns the display name of the asset
func (a Asset) Name() string {
	if info, ok := knownAssets[a]; ok {
		return info.name
	}
	return string(a)
}

// Decimals returns how many decimal places separate the base unit from the native unit
func (a Asset) Decimals() int32 {
	return knownAssets[a].decimals
}

// Known reports whether the asset is registered
func (a Asset) Known() bool {
	_, ok := knownAssets[a]
	return ok
}

// ParseAsset parses a case-insensitive asset ticker
func ParseAsset(s string) (Asset, bool) {
	a := Asset(strings.ToUpper(strings.TrimSpace(s)))
	if !a.Known() {
		return "", false
	}
	return a, true
}

// AssetForSymbol maps an exchange market symbol (BTC-USD, XBTUSD, ethusd...) to its base asset
func AssetForSymbol(symbol string) (Asset, bool) {
	s := strings.ToUpper(symbol)
	switch {
	case strings.Contains(s, "BTC"), strings.Contains(s, "XBT"):
		return AssetBTC, true
	case strings.Contains(s, "ETH"):
		return AssetETH, true
	default:
		return "", false
	}
}
