// Package binance reads spot tickers and klines from the Binance public API.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/newthinker/compass/internal/collector"
	"github.com/newthinker/compass/internal/core"
)

const (
	baseURL = "https://api.binance.com"

	// maxKlines is the largest page the klines endpoint serves.
	maxKlines = 1000
)

// Binance implements collector.Collector for pair symbols such as "BTCUSDT".
type Binance struct {
	client  *http.Client
	baseURL string
}

// New creates a new Binance venue
func New() *Binance {
	return &Binance{
		client:  collector.NewHTTPClient(),
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates a Binance venue with custom base URL (for testing)
func NewWithBaseURL(u string) *Binance {
	b := New()
	b.baseURL = u
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

// FetchQuote fetches the rolling 24h ticker.
func (b *Binance) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	u := fmt.Sprintf("%s/api/v3/ticker/24hr?%s", b.baseURL, url.Values{"symbol": {symbol}}.Encode())

	var t ticker24hr
	if err := collector.GetJSON(ctx, b.client, u, &t); err != nil {
		return nil, err
	}

	price := parse(t.LastPrice)
	if price <= 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no price for %s", symbol))
	}

	return &core.Quote{
		Symbol:        symbol,
		Price:         price,
		PrevClose:     parse(t.PrevClosePrice),
		ChangePercent: parse(t.PriceChangePercent),
		Volume:        int64(parse(t.Volume)),
		Time:          time.UnixMilli(t.CloseTime).UTC(),
		Source:        "binance",
	}, nil
}

// FetchHistory fetches klines between start and end, oldest first.
func (b *Binance) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	q := url.Values{
		"symbol":    {symbol},
		"interval":  {toInterval(interval)},
		"startTime": {strconv.FormatInt(start.UnixMilli(), 10)},
		"endTime":   {strconv.FormatInt(end.UnixMilli(), 10)},
		"limit":     {strconv.Itoa(maxKlines)},
	}
	u := fmt.Sprintf("%s/api/v3/klines?%s", b.baseURL, q.Encode())

	var klines [][]any
	if err := collector.GetJSON(ctx, b.client, u, &klines); err != nil {
		return nil, err
	}

	data := make([]core.OHLCV, 0, len(klines))
	for _, k := range klines {
		if len(k) < 6 {
			continue
		}
		openTime, _ := k[0].(float64)
		data = append(data, core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     parseAny(k[1]),
			High:     parseAny(k[2]),
			Low:      parseAny(k[3]),
			Close:    parseAny(k[4]),
			Volume:   int64(parseAny(k[5])),
			Time:     time.UnixMilli(int64(openTime)).UTC(),
		})
	}
	return data, nil
}

func toInterval(interval string) string {
	switch interval {
	case "1h", "4h", "1d", "1w":
		return interval
	default:
		return "1d"
	}
}

func parse(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseAny(v any) float64 {
	s, _ := v.(string)
	return parse(s)
}

// Binance API response types
type ticker24hr struct {
	Symbol             string `json:"symbol"`
	PriceChangePercent string `json:"priceChangePercent"`
	LastPrice          string `json:"lastPrice"`
	Volume             string `json:"volume"`
	PrevClosePrice     string `json:"prevClosePrice"`
	CloseTime          int64  `json:"closeTime"`
}
