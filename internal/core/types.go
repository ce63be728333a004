package core

import (
	"fmt"
	"strings"
	"time"
)

// AssetClass is the coarse class an asset is limited and scored under.
type AssetClass string

const (
	AssetEquity AssetClass = "EQUITY"
	AssetCrypto AssetClass = "CRYPTO"
)

// AllAssetClasses returns every supported asset class.
func AllAssetClasses() []AssetClass {
	return []AssetClass{AssetEquity, AssetCrypto}
}

// ParseAssetClass accepts the canonical names plus a few common aliases.
func ParseAssetClass(s string) (AssetClass, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EQUITY", "STOCK", "STOCKS":
		return AssetEquity, nil
	case "CRYPTO", "CRYPTOCURRENCY":
		return AssetCrypto, nil
	default:
		return "", WrapError(ErrInvalidInput, fmt.Errorf("unknown asset class %q", s))
	}
}

// Regime is the market-risk classification.
type Regime string

const (
	RegimeRiskOn  Regime = "RISK_ON"
	RegimeNeutral Regime = "NEUTRAL"
	RegimeRiskOff Regime = "RISK_OFF"
)

// AllRegimes returns every regime ordered from lowest to highest risk.
func AllRegimes() []Regime {
	return []Regime{RegimeRiskOn, RegimeNeutral, RegimeRiskOff}
}

// Action is the signal tier emitted for an asset
type Action string

const (
	ActionStrongBuy Action = "STRONG_BUY"
	ActionBuy       Action = "BUY"
	ActionHold      Action = "HOLD"
	ActionReduce    Action = "REDUCE"
	ActionSell      Action = "SELL"
)

// IsBuy reports whether the action is one of the buy tiers.
func (a Action) IsBuy() bool {
	return a == ActionStrongBuy || a == ActionBuy
}

// Quote represents a real-time price quote
type Quote struct {
	Symbol        string
	Price         float64
	PrevClose     float64
	ChangePercent float64
	Volume        int64
	Time          time.Time
	Source        string
}

// IsValid checks if the quote has required fields
func (q Quote) IsValid() bool {
	return q.Symbol != "" && q.Price > 0
}

// OHLCV represents a candlestick/bar
type OHLCV struct {
	Symbol   string
	Interval string // "1h", "1d"
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Time     time.Time
}

// Closes extracts close prices in order.
func Closes(bars []OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Float returns a pointer to v; handy for optional inputs.
func Float(v float64) *float64 {
	return &v
}
