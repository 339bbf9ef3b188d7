package whale

// Pattern is the structural shape of a transaction
type Pattern string

const (
	PatternSimpleTransfer      Pattern = "simple_transfer"
	PatternWalletTransfer      Pattern = "wallet_transfer"
	PatternConsolidation       Pattern = "consolidation"
	PatternDistribution        Pattern = "distribution"
	PatternComplexTransaction  Pattern = "complex_transaction"
	PatternStandardTransaction Pattern = "standard_transaction"
	PatternUnknown             Pattern = "unknown"
)

// AnalyzePattern classifies a transaction from the number of distinct input and
// output addresses only. Empty addresses are ignored and repeats count once.
func AnalyzePattern(inputs, outputs []string) Pattern {
	in := countDistinct(inputs)
	out := countDistinct(outputs)

	switch {
	case in == 0 || out == 0:
		return PatternUnknown
	case in == 1 && out == 1:
		return PatternSimpleTransfer
	case in == 1 && out == 2:
		// most likely a payment plus change
		return PatternWalletTransfer
	case in > 5 && out == 1:
		return PatternConsolidation
	case in == 1 && out > 10:
		return PatternDistribution
	case in > 1 && out > 1:
		return PatternComplexTransaction
	default:
		return PatternStandardTransaction
	}
}

func countDistinct(addrs []string) int {
	seen := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		if a == "" {
			continue
		}
		seen[a] = struct{}{}
	}
	return len(seen)
}
