package crypto

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/newthinker/compass/internal/core"
)

// Quote currencies recognised as pair suffixes, checked in order.
var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "BTC", "ETH", "BNB"}

var validPair = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

// NormalizeSymbol converts "btc", "BTC-USDT", "btc/usdt" and "BTCUSDT" alike
// into the exchange pair form "BTCUSDT". A bare base asset gets defaultQuote.
func NormalizeSymbol(input string, defaultQuote string) string {
	s := strip(input)
	if s == "" {
		return ""
	}

	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s
		}
	}
	return s + strings.ToUpper(defaultQuote)
}

// ParseSymbol splits a normalized pair: "BTCUSDT" -> ("BTC", "USDT").
func ParseSymbol(symbol string) (base, quote string) {
	s := strings.ToUpper(symbol)

	for _, q := range quoteCurrencies {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return strings.TrimSuffix(s, q), q
		}
	}
	if len(s) > 4 {
		return s[:len(s)-4], s[len(s)-4:]
	}
	return s, ""
}

// ValidateSymbol rejects empty or malformed crypto symbols.
func ValidateSymbol(symbol string) error {
	s := strip(symbol)
	if s == "" {
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("symbol cannot be empty"))
	}
	if !validPair.MatchString(s) {
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("invalid crypto symbol: %s", symbol))
	}
	return nil
}

func strip(s string) string {
	return strings.NewReplacer("-", "", "/", "", "_", "", " ", "").Replace(strings.ToUpper(s))
}
