// Package yahoo collects equity, index and volatility data from the Yahoo
// Finance chart API.
package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/compass/internal/collector"
	"github.com/newthinker/compass/internal/core"
)

const (
	baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
)

// validSymbol matches tickers like AAPL, BRK-B, 0700.HK and indices like ^VIX.
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9-]{1,10}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("symbol cannot be empty"))
	}
	if !validSymbol.MatchString(symbol) {
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("invalid symbol format: %s", symbol))
	}
	return nil
}

// Yahoo implements collector.Collector for Yahoo Finance.
type Yahoo struct {
	client  *http.Client
	baseURL string
}

// New creates a new Yahoo collector
func New() *Yahoo {
	return &Yahoo{
		client:  collector.NewHTTPClient(),
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates a Yahoo collector against a custom endpoint (for testing).
func NewWithBaseURL(u string) *Yahoo {
	y := New()
	y.baseURL = strings.TrimSuffix(u, "/")
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// FetchQuote fetches the latest quote.
func (y *Yahoo) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}

	r, err := y.chart(ctx, symbol, url.Values{"interval": {"1d"}, "range": {"5d"}})
	if err != nil {
		return nil, err
	}

	meta := r.Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no price for symbol: %s", symbol))
	}

	prev := meta.ChartPreviousClose
	if meta.PreviousClose > 0 {
		prev = meta.PreviousClose
	}
	var changePct float64
	if prev > 0 {
		changePct = (meta.RegularMarketPrice - prev) / prev * 100
	}

	return &core.Quote{
		Symbol:        symbol,
		Price:         meta.RegularMarketPrice,
		PrevClose:     prev,
		ChangePercent: changePct,
		Volume:        meta.RegularMarketVolume,
		Time:          time.Unix(meta.RegularMarketTime, 0).UTC(),
		Source:        "yahoo",
	}, nil
}

// FetchHistory fetches historical OHLCV bars, skipping bars Yahoo reports
// with missing prices.
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}

	r, err := y.chart(ctx, symbol, url.Values{
		"interval": {toYahooInterval(interval)},
		"period1":  {fmt.Sprint(start.Unix())},
		"period2":  {fmt.Sprint(end.Unix())},
	})
	if err != nil {
		return nil, err
	}
	if len(r.Indicators.Quote) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no bars for symbol: %s", symbol))
	}
	q := r.Indicators.Quote[0]

	data := make([]core.OHLCV, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		open, high, low, closePx := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
		if open == nil || high == nil || low == nil || closePx == nil {
			continue
		}
		var volume int64
		if i < len(q.Volume) && q.Volume[i] != nil {
			volume = *q.Volume[i]
		}
		data = append(data, core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     *open,
			High:     *high,
			Low:      *low,
			Close:    *closePx,
			Volume:   volume,
			Time:     time.Unix(ts, 0).UTC(),
		})
	}
	return data, nil
}

func (y *Yahoo) chart(ctx context.Context, symbol string, q url.Values) (*chartResult, error) {
	u := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(symbol), q.Encode())

	var result chartResponse
	if err := collector.GetJSON(ctx, y.client, u, &result); err != nil {
		return nil, err
	}
	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no data for symbol: %s", symbol))
	}
	return &result.Chart.Result[0], nil
}

func at(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

func toYahooInterval(interval string) string {
	switch interval {
	case "1h":
		return "60m"
	case "1w":
		return "1wk"
	default:
		return "1d"
	}
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol              string  `json:"symbol"`
	RegularMarketPrice  float64 `json:"regularMarketPrice"`
	RegularMarketVolume int64   `json:"regularMarketVolume"`
	RegularMarketTime   int64   `json:"regularMarketTime"`
	PreviousClose       float64 `json:"previousClose"`
	ChartPreviousClose  float64 `json:"chartPreviousClose"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}
