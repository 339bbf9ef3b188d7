package whale

// TransactionType describes the economic relationship between the parties
type TransactionType string

const (
	TypeExchangeWithdrawal  TransactionType = "exchange_withdrawal"
	TypeExchangeDeposit     TransactionType = "exchange_deposit"
	TypeExchangeTransfer    TransactionType = "exchange_transfer"
	TypeWalletTransfer      TransactionType = "wallet_transfer"
	TypeWalletConsolidation TransactionType = "wallet_consolidation"
	TypeWalletDistribution  TransactionType = "wallet_distribution"
	TypePrivacyTransaction  TransactionType = "privacy_transaction"
	TypeFundsConsolidation  TransactionType = "funds_consolidation"
	TypeFundsDistribution   TransactionType = "funds_distribution"
	TypeLargeTransfer       TransactionType = "large_transfer"
	TypeUnknownTransfer     TransactionType = "unknown_transfer"
)

type categorySet map[Category]struct{}

func categoriesOf(addrs []ClassifiedAddress) categorySet {
	set := make(categorySet, 4)
	for _, a := range addrs {
		set[a.Category] = struct{}{}
	}
	return set
}

func (s categorySet) has(c Category) bool {
	_, ok := s[c]
	return ok
}

// only reports whether c is the sole category in the set
func (s categorySet) only(c Category) bool {
	return len(s) == 1 && s.has(c)
}

// ResolveType derives the transaction type from the categories on each side
// and the structural pattern. Rules are evaluated in a fixed order: the
// exchange withdrawal and deposit rules are checked before the mixer rule.
func ResolveType(from, to []ClassifiedAddress, pattern Pattern) TransactionType {
	if len(from) == 0 || len(to) == 0 {
		return TypeUnknownTransfer
	}

	fromCats := categoriesOf(from)
	toCats := categoriesOf(to)

	if fromCats.has(CategoryExchange) && toCats.has(CategoryWallet) {
		return TypeExchangeWithdrawal
	}
	if fromCats.has(CategoryWallet) && toCats.has(CategoryExchange) {
		return TypeExchangeDeposit
	}
	if fromCats.has(CategoryExchange) && toCats.has(CategoryExchange) {
		return TypeExchangeTransfer
	}

	if fromCats.only(CategoryWallet) && toCats.only(CategoryWallet) {
		switch pattern {
		case PatternConsolidation:
			return TypeWalletConsolidation
		case PatternDistribution:
			return TypeWalletDistribution
		default:
			return TypeWalletTransfer
		}
	}

	if fromCats.has(CategoryMixer) || toCats.has(CategoryMixer) {
		return TypePrivacyTransaction
	}

	switch pattern {
	case PatternConsolidation:
		return TypeFundsConsolidation
	case PatternDistribution:
		return TypeFundsDistribution
	default:
		return TypeLargeTransfer
	}
}
