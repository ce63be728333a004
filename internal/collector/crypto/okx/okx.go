// Package okx reads spot tickers and candles from the OKX public API.
package okx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/newthinker/compass/internal/collector"
	"github.com/newthinker/compass/internal/collector/crypto"
	"github.com/newthinker/compass/internal/core"
)

const (
	baseURL = "https://www.okx.com"

	// maxCandles is the largest page the history endpoint serves.
	maxCandles = 300
)

// OKX implements collector.Collector for pair symbols such as "BTCUSDT".
type OKX struct {
	client  *http.Client
	baseURL string
}

// New creates a new OKX venue
func New() *OKX {
	return &OKX{
		client:  collector.NewHTTPClient(),
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates an OKX venue with custom base URL (for testing)
func NewWithBaseURL(u string) *OKX {
	o := New()
	o.baseURL = u
	return o
}

func (o *OKX) Name() string {
	return "okx"
}

// instID converts a pair symbol to an OKX instrument ID: BTCUSDT -> BTC-USDT.
func instID(symbol string) string {
	base, quote := crypto.ParseSymbol(symbol)
	return base + "-" + quote
}

// FetchQuote fetches the ticker. OKX reports no previous close, so the 24h
// open stands in for it.
func (o *OKX) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	u := fmt.Sprintf("%s/api/v5/market/ticker?%s", o.baseURL, url.Values{"instId": {instID(symbol)}}.Encode())

	var resp envelope[ticker]
	if err := collector.GetJSON(ctx, o.client, u, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no ticker for %s", symbol))
	}

	t := resp.Data[0]
	price, open := parse(t.Last), parse(t.Open24h)
	if price <= 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no price for %s", symbol))
	}
	var changePct float64
	if open > 0 {
		changePct = (price - open) / open * 100
	}
	ts, _ := strconv.ParseInt(t.Ts, 10, 64)

	return &core.Quote{
		Symbol:        symbol,
		Price:         price,
		PrevClose:     open,
		ChangePercent: changePct,
		Volume:        int64(parse(t.Vol24h)),
		Time:          time.UnixMilli(ts).UTC(),
		Source:        "okx",
	}, nil
}

// FetchHistory fetches candles between start and end, oldest first.
func (o *OKX) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	q := url.Values{
		"instId": {instID(symbol)},
		"bar":    {toBar(interval)},
		"before": {strconv.FormatInt(start.UnixMilli(), 10)},
		"after":  {strconv.FormatInt(end.UnixMilli(), 10)},
		"limit":  {strconv.Itoa(maxCandles)},
	}
	u := fmt.Sprintf("%s/api/v5/market/history-candles?%s", o.baseURL, q.Encode())

	var resp envelope[[]string]
	if err := collector.GetJSON(ctx, o.client, u, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}

	// Candles arrive newest first.
	data := make([]core.OHLCV, 0, len(resp.Data))
	for i := len(resp.Data) - 1; i >= 0; i-- {
		c := resp.Data[i]
		if len(c) < 6 {
			continue
		}
		ts, _ := strconv.ParseInt(c[0], 10, 64)
		data = append(data, core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     parse(c[1]),
			High:     parse(c[2]),
			Low:      parse(c[3]),
			Close:    parse(c[4]),
			Volume:   int64(parse(c[5])),
			Time:     time.UnixMilli(ts).UTC(),
		})
	}
	return data, nil
}

func toBar(interval string) string {
	switch interval {
	case "1h":
		return "1H"
	case "4h":
		return "4H"
	case "1w":
		return "1W"
	default:
		return "1D"
	}
}

func parse(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// OKX API response types
type envelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

func (e envelope[T]) err() error {
	if e.Code != "0" {
		return core.WrapError(core.ErrProviderFailed, fmt.Errorf("okx error %s: %s", e.Code, e.Msg))
	}
	return nil
}

type ticker struct {
	InstID  string `json:"instId"`
	Last    string `json:"last"`
	Open24h string `json:"open24h"`
	Vol24h  string `json:"vol24h"`
	Ts      string `json:"ts"`
}
