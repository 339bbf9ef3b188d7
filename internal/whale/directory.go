package whale

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is the economic role of an address
type Category string

const (
	CategoryExchange Category = "exchange"
	CategoryMixer    Category = "mixer"
	CategoryWallet   Category = "wallet"
	CategoryUnknown  Category = "unknown"
)

// Entity is a directory entry
type Entity struct {
	Category Category
	Name     string
}

type mixerPattern struct {
	pattern string // lower-cased
	name    string
}

// Directory maps known addresses to the organisations that own them.
// It is read-only once built and safe for concurrent use.
type Directory struct {
	exchanges map[string]Entity
	mixers    []mixerPattern
}

// Default known addresses (US-focused exchanges plus Binance for reference)
var defaultExchanges = map[string]string{
	"bc1qgdjqv0av3q56jvd82tkdjpy7gdp9ut8tlqmgrpmv24sq90ecnvqqjwvw97": "Coinbase",
	"3M219KBk7ZjsPUe7UpzPcTg1z5y7R25Acz":                             "Coinbase",
	"bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq":                     "Coinbase",
	"3FupZp77ySr7jwoLYBUagcEp3nhKxggdy5":                             "Coinbase",
	"bc1qjasf9z3h7w3jspkhtgatgpyvvzgpa2wwd2lr0eh5tx44reyn2k7sfc27a4": "Kraken",
	"3BMEXhash77KHeEqgQkZTBC5m4D7dTwq6J":                             "Kraken",
	"bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh":                     "Kraken",
	"bc1qmxjefnuy06v345v6vhwpwt05dztztmx2xajzd6xtzch7cceh6k8q7xl5ah": "Gemini",
	"3DZ1K9a8rQn3qNLNLHbfkKBtkGWbMw6xhF":                             "Gemini",
	"bc1qm34lsc65zpw79lxes69zkqmk6ee3ewf0j77s3h":                     "Binance (Non-US)",
	"34xp4vRoCGJym3xR7yCVPFHoCNxv4Twseo":                             "Binance (Non-US)",
}

var defaultMixers = map[string]string{
	"1mixer": "Mixing Service",
}

// NewDirectory builds a directory from exact exchange addresses and mixer substrings
func NewDirectory(exchanges, mixers map[string]string) *Directory {
	d := &Directory{
		exchanges: make(map[string]Entity, len(exchanges)),
		mixers:    make([]mixerPattern, 0, len(mixers)),
	}
	for addr, name := range exchanges {
		if addr == "" {
			continue
		}
		d.exchanges[addr] = Entity{Category: CategoryExchange, Name: name}
	}
	for pattern, name := range mixers {
		if pattern == "" {
			continue
		}
		d.mixers = append(d.mixers, mixerPattern{pattern: strings.ToLower(pattern), name: name})
	}
	// Deterministic match order when several patterns hit the same address
	sort.Slice(d.mixers, func(i, j int) bool { return d.mixers[i].pattern < d.mixers[j].pattern })
	return d
}

// DefaultDirectory returns the built-in directory
func DefaultDirectory() *Directory {
	return NewDirectory(defaultExchanges, defaultMixers)
}

type directoryFile struct {
	Exchanges map[string]string `yaml:"exchanges"`
	Mixers    map[string]string `yaml:"mixers"`
}

// LoadDirectoryFile reads a YAML directory file and merges it over the defaults.
//
//	exchanges:
//	  3M219KBk7ZjsPUe7UpzPcTg1z5y7R25Acz: Coinbase
//	mixers:
//	  1mixer: Mixing Service
func LoadDirectoryFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}

	var f directoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse directory file %s: %w", path, err)
	}

	exchanges := make(map[string]string, len(defaultExchanges)+len(f.Exchanges))
	for k, v := range defaultExchanges {
		exchanges[k] = v
	}
	for k, v := range f.Exchanges {
		exchanges[k] = v
	}

	mixers := make(map[string]string, len(defaultMixers)+len(f.Mixers))
	for k, v := range defaultMixers {
		mixers[k] = v
	}
	for k, v := range f.Mixers {
		mixers[k] = v
	}

	return NewDirectory(exchanges, mixers), nil
}

// Lookup returns the exact directory entry for an address
func (d *Directory) Lookup(address string) (Entity, bool) {
	e, ok := d.exchanges[address]
	return e, ok
}

// MatchMixer returns the mixing service whose pattern occurs in the address (case-insensitive)
func (d *Directory) MatchMixer(address string) (string, bool) {
	lower := strings.ToLower(address)
	for _, m := range d.mixers {
		if strings.Contains(lower, m.pattern) {
			return m.name, true
		}
	}
	return "", false
}

// Size returns the number of exact entries and mixer patterns
func (d *Directory) Size() (exchanges, mixers int) {
	return len(d.exchanges), len(d.mixers)
}
