package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPMiddleware(t *testing.T) {
	reg := NewRegistry()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	wrapped := HTTPMiddleware(reg)(handler)

	req := httptest.NewRequest("GET", "/api/v1/regime", nil)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if got := counterValue(t, reg, "http_requests_total", map[string]string{"path": "/api/v1/regime", "status": "2xx"}); got != 1 {
		t.Errorf("expected one recorded request, got %v", got)
	}
	if family(t, reg, "http_request_duration_seconds") == nil {
		t.Error("expected http_request_duration_seconds to be recorded")
	}
}

func TestHTTPMiddleware_UsesRoutePattern(t *testing.T) {
	reg := NewRegistry()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/signals/{ticker}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := HTTPMiddleware(reg)(mux)

	for _, ticker := range []string{"AAPL", "MSFT", "BTC"} {
		req := httptest.NewRequest("GET", "/api/v1/signals/"+ticker, nil)
		wrapped.ServeHTTP(httptest.NewRecorder(), req)
	}

	got := counterValue(t, reg, "http_requests_total", map[string]string{"path": "GET /api/v1/signals/{ticker}"})
	if got != 3 {
		t.Errorf("expected 3 requests under the route pattern, got %v", got)
	}
}

func TestHTTPMiddleware_TracksInFlight(t *testing.T) {
	reg := NewRegistry()

	inFlightDuringRequest := float64(-1)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mf := family(t, reg, "http_requests_in_flight"); mf != nil {
			inFlightDuringRequest = mf.GetMetric()[0].GetGauge().GetValue()
		}
		w.WriteHeader(http.StatusOK)
	})

	wrapped := HTTPMiddleware(reg)(handler)
	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/test", nil))

	if inFlightDuringRequest != 1 {
		t.Errorf("expected in-flight to be 1 during request, got %v", inFlightDuringRequest)
	}
	if v := family(t, reg, "http_requests_in_flight").GetMetric()[0].GetGauge().GetValue(); v != 0 {
		t.Errorf("expected in-flight to be 0 after request, got %v", v)
	}
}

func TestHTTPMiddleware_CapturesStatusCode(t *testing.T) {
	reg := NewRegistry()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	HTTPMiddleware(reg)(handler).ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/portfolios/missing/compliance", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if got := counterValue(t, reg, "http_requests_total", map[string]string{"status": "4xx"}); got != 1 {
		t.Errorf("expected one 4xx request, got %v", got)
	}
}
