package yahoo

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

func TestYahoo_ImplementsCollector(t *testing.T) {
	var _ collector.Collector = (*Yahoo)(nil)
}

func TestValidateSymbol(t *testing.T) {
	valid := []string{"AAPL", "BRK-B", "0700.HK", "^VIX", "^GSPC"}
	for _, s := range valid {
		if err := validateSymbol(s); err != nil {
			t.Errorf("validateSymbol(%q) unexpected error: %v", s, err)
		}
	}

	invalid := []string{"", "AAPL/../x", "^^VIX", "TOOLONGSYMBOL1"}
	for _, s := range invalid {
		if err := validateSymbol(s); !errors.Is(err, core.ErrInvalidInput) {
			t.Errorf("validateSymbol(%q) expected invalid input, got %v", s, err)
		}
	}
}

func TestYahoo_FetchQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/%5EVIX" && r.URL.Path != "/^VIX" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"chart":{"result":[{"meta":{
			"symbol":"^VIX","regularMarketPrice":18.5,"previousClose":20,
			"regularMarketTime":1717000000}}],"error":null}}`))
	}))
	defer srv.Close()

	q, err := NewWithBaseURL(srv.URL).FetchQuote(context.Background(), "^VIX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price != 18.5 || q.PrevClose != 20 {
		t.Errorf("unexpected quote %+v", q)
	}
	if q.ChangePercent != -7.5 {
		t.Errorf("expected change -7.5%%, got %v", q.ChangePercent)
	}
	if q.Source != "yahoo" {
		t.Errorf("expected source yahoo, got %s", q.Source)
	}
}

func TestYahoo_FetchHistory_SkipsMissingBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("interval"); got != "1d" {
			t.Errorf("expected interval 1d, got %s", got)
		}
		w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"SPY"},
			"timestamp":[1717000000,1717086400,1717172800],
			"indicators":{"quote":[{
				"open":[500,null,502],"high":[505,null,506],"low":[498,null,500],
				"close":[503,null,505],"volume":[1000,null,null]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	end := time.Unix(1717200000, 0)
	bars, err := NewWithBaseURL(srv.URL).FetchHistory(context.Background(), "SPY", end.AddDate(0, 0, -5), end, "1d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Close != 503 || bars[1].Close != 505 {
		t.Errorf("unexpected closes %v, %v", bars[0].Close, bars[1].Close)
	}
	if bars[0].Volume != 1000 || bars[1].Volume != 0 {
		t.Errorf("unexpected volumes %v, %v", bars[0].Volume, bars[1].Volume)
	}
}

func TestYahoo_FetchQuote_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *core.Error
	}{
		{"api error", `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, core.ErrProviderFailed},
		{"empty result", `{"chart":{"result":[],"error":null}}`, core.ErrNoData},
		{"zero price", `{"chart":{"result":[{"meta":{"symbol":"X"}}],"error":null}}`, core.ErrNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewWithBaseURL(srv.URL).FetchQuote(context.Background(), "AAPL")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want.Code, err)
			}
		})
	}
}

func TestToYahooInterval(t *testing.T) {
	tests := map[string]string{"1h": "60m", "1d": "1d", "1w": "1wk", "": "1d"}
	for in, want := range tests {
		if got := toYahooInterval(in); got != want {
			t.Errorf("toYahooInterval(%q) = %s, want %s", in, got, want)
		}
	}
}
