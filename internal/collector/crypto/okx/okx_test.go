package okx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/compass/internal/collector"
	"github.com/newthinker/compass/internal/core"
)

func TestOKX_ImplementsCollector(t *testing.T) {
	var _ collector.Collector = (*OKX)(nil)
}

func TestInstID(t *testing.T) {
	tests := map[string]string{
		"BTCUSDT": "BTC-USDT",
		"ETHBTC":  "ETH-BTC",
		"SOLUSDC": "SOL-USDC",
	}
	for in, want := range tests {
		if got := instID(in); got != want {
			t.Errorf("instID(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestOKX_FetchQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("instId"); got != "BTC-USDT" {
			t.Errorf("expected instId BTC-USDT, got %s", got)
		}
		w.Write([]byte(`{"code":"0","msg":"","data":[{"instId":"BTC-USDT",
			"last":"66000","open24h":"60000","vol24h":"812.4","ts":"1717000000000"}]}`))
	}))
	defer srv.Close()

	q, err := NewWithBaseURL(srv.URL).FetchQuote(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("FetchQuote failed: %v", err)
	}
	if q.Price != 66000 || q.PrevClose != 60000 {
		t.Errorf("unexpected quote %+v", q)
	}
	if q.ChangePercent != 10 {
		t.Errorf("expected change 10%%, got %v", q.ChangePercent)
	}
}

func TestOKX_FetchQuote_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"51001","msg":"Instrument ID does not exist","data":[]}`))
	}))
	defer srv.Close()

	_, err := NewWithBaseURL(srv.URL).FetchQuote(context.Background(), "NOPEUSDT")
	if !errors.Is(err, core.ErrProviderFailed) {
		t.Errorf("expected provider failure, got %v", err)
	}
}

func TestOKX_FetchHistory_Chronological(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("bar"); got != "1D" {
			t.Errorf("expected bar 1D, got %s", got)
		}
		w.Write([]byte(`{"code":"0","msg":"","data":[
			["1717113600000","61800","63000","61000","62500","50","0","0","1"],
			["1717027200000","60500","62000","60000","61800","90","0","0","1"]
		]}`))
	}))
	defer srv.Close()

	end := time.UnixMilli(1717200000000)
	bars, err := NewWithBaseURL(srv.URL).FetchHistory(context.Background(), "BTCUSDT", end.AddDate(0, 0, -3), end, "1d")
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Close != 61800 || bars[1].Close != 62500 {
		t.Errorf("expected oldest first, got closes %v, %v", bars[0].Close, bars[1].Close)
	}
}

func TestToBar(t *testing.T) {
	tests := map[string]string{"1h": "1H", "4h": "4H", "1d": "1D", "1w": "1W", "": "1D"}
	for in, want := range tests {
		if got := toBar(in); got != want {
			t.Errorf("toBar(%q) = %s, want %s", in, got, want)
		}
	}
}
