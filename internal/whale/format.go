package whale

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var typeEmoji = map[TransactionType]string{
	TypeExchangeWithdrawal:  "🏦➡️💼",
	TypeExchangeDeposit:     "💼➡️🏦",
	TypeExchangeTransfer:    "🏦➡️🏦",
	TypeWalletTransfer:      "💼➡️💼",
	TypeWalletConsolidation: "🔄💼",
	TypeWalletDistribution:  "💼📤",
	TypeFundsConsolidation:  "🔄💰",
	TypeFundsDistribution:   "💰📤",
	TypePrivacyTransaction:  "🔒💰",
	TypeLargeTransfer:       "💰➡️",
	TypeUnknownTransfer:     "❓➡️",
}

// TypeEmoji returns the emoji shown next to a transaction type
func TypeEmoji(t TransactionType) string {
	if e, ok := typeEmoji[t]; ok {
		return e
	}
	return "💰"
}

// Label turns a snake_case identifier into title case ("exchange_withdrawal" -> "Exchange Withdrawal")
func Label(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// Title is the headline used for rich transfer alerts
func Title(t *Transfer) string {
	return fmt.Sprintf("%s Large %s %s Detected", TypeEmoji(t.TransactionType), t.Asset, Label(string(t.TransactionType)))
}

// Format renders an event as a chat message. It never fails: unrecognised
// variants get a generic message.
func Format(ev Event) string {
	switch e := ev.(type) {
	case *Transfer:
		if e == nil {
			break
		}
		if e.Asset == AssetETH {
			return formatEthereumTransfer(e)
		}
		return formatTransfer(e)
	case *Order:
		if e == nil {
			break
		}
		return formatOrder(e)
	}

	usd := decimal.Zero
	if ev != nil && !isNilEvent(ev) {
		usd = ev.USDValue()
	}
	return fmt.Sprintf("🐋 Whale activity detected: %s", FormatUSD(usd))
}

func isNilEvent(ev Event) bool {
	switch e := ev.(type) {
	case *Transfer:
		return e == nil
	case *Order:
		return e == nil
	}
	return false
}

func formatTransfer(t *Transfer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🐋 **%s Whale Alert** 🐋\n", t.Asset.Name())
	fmt.Fprintf(&b, "💰 **Amount:** %s %s (%s)\n", t.Amount.StringFixed(2), t.Asset, FormatUSD(t.USD))
	fmt.Fprintf(&b, "📋 **Hash:** `%s`", ShortHash(t.Hash))
	if t.Timestamp > 0 {
		fmt.Fprintf(&b, "\n⏰ **Time:** %s", time.Unix(t.Timestamp, 0).UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	return b.String()
}

func formatEthereumTransfer(t *Transfer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🐋 **Ethereum Whale Alert** 🐋\n")
	fmt.Fprintf(&b, "💰 **Amount:** %s ETH (%s)\n", t.Amount.StringFixed(2), FormatUSD(t.USD))
	fmt.Fprintf(&b, "📋 **Hash:** `%s`", ShortHash(t.Hash))
	if len(t.FromAddresses) > 0 {
		fmt.Fprintf(&b, "\n👤 **From:** `%s`", shortAddress(t.FromAddresses[0].Address))
	}
	if len(t.ToAddresses) > 0 {
		fmt.Fprintf(&b, "\n👤 **To:** `%s`", shortAddress(t.ToAddresses[0].Address))
	}
	return b.String()
}

func formatOrder(o *Order) string {
	emoji := "📉"
	if o.Side == SideBuy {
		emoji = "📈"
	}
	return fmt.Sprintf("%s **Large %s Order** %s\n🏛️ **Exchange:** %s\n💱 **Symbol:** %s\n💰 **Value:** %s\n💵 **Price:** %s",
		emoji, Label(string(o.Side)), emoji,
		Label(o.Exchange),
		o.Symbol,
		FormatUSD(o.USD),
		FormatUSD(o.Price),
	)
}

// FormatUSD renders a dollar amount with thousands separators and cents
func FormatUSD(d decimal.Decimal) string {
	return "$" + humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}

// ShortHash keeps the first 16 characters of a hash
func ShortHash(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16] + "..."
}

func shortAddress(a string) string {
	if len(a) <= 10 {
		return a
	}
	return a[:10] + "..."
}
