package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Decision metrics
	regimeRefreshes    *prometheus.CounterVec
	regimeLookups      *prometheus.CounterVec
	signalsScored      *prometheus.CounterVec
	signalsGated       *prometheus.CounterVec
	providerErrors     *prometheus.CounterVec
	validations        *prometheus.CounterVec
	violations         *prometheus.CounterVec
	batchSize          prometheus.Histogram
	batchDuration      prometheus.Histogram
	breakerTransitions *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Decision metrics
	r.regimeRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_regime_refreshes_total",
			Help: "Total number of regime recomputations",
		},
		[]string{"regime", "degraded"},
	)
	r.regimeLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_regime_cache_lookups_total",
			Help: "Regime cache lookups by result",
		},
		[]string{"result"},
	)
	r.signalsScored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_signals_scored_total",
			Help: "Total number of asset signals scored",
		},
		[]string{"asset_class", "signal", "degraded"},
	)
	r.signalsGated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_signals_gated_total",
			Help: "Buy signals capped at HOLD by the regime",
		},
		[]string{"asset_class"},
	)
	r.providerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_provider_errors_total",
			Help: "Upstream provider failures treated as missing inputs",
		},
		[]string{"provider"},
	)
	r.validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_allocation_validations_total",
			Help: "Allocation validations by outcome",
		},
		[]string{"outcome"},
	)
	r.violations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_allocation_violations_total",
			Help: "Limit violations reported by rule",
		},
		[]string{"rule"},
	)
	r.batchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "compass_batch_size",
			Help:    "Number of assets per batch scoring request",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		},
	)
	r.batchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "compass_batch_duration_seconds",
			Help:    "Batch scoring duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)
	r.breakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_breaker_state_changes_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"breaker", "to"},
	)

	reg.MustRegister(r.regimeRefreshes)
	reg.MustRegister(r.regimeLookups)
	reg.MustRegister(r.signalsScored)
	reg.MustRegister(r.signalsGated)
	reg.MustRegister(r.providerErrors)
	reg.MustRegister(r.validations)
	reg.MustRegister(r.violations)
	reg.MustRegister(r.batchSize)
	reg.MustRegister(r.batchDuration)
	reg.MustRegister(r.breakerTransitions)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordRegimeRefresh records a regime recomputation.
func (r *Registry) RecordRegimeRefresh(regime string, degraded bool) {
	r.regimeRefreshes.WithLabelValues(regime, strconv.FormatBool(degraded)).Inc()
}

// RecordRegimeLookup records a regime cache lookup result.
func (r *Registry) RecordRegimeLookup(result string) {
	r.regimeLookups.WithLabelValues(result).Inc()
}

// RecordSignal records a scored signal.
func (r *Registry) RecordSignal(assetClass, signal string, gated, degraded bool) {
	r.signalsScored.WithLabelValues(assetClass, signal, strconv.FormatBool(degraded)).Inc()
	if gated {
		r.signalsGated.WithLabelValues(assetClass).Inc()
	}
}

// RecordProviderError records an upstream provider failure.
func (r *Registry) RecordProviderError(provider string) {
	r.providerErrors.WithLabelValues(provider).Inc()
}

// RecordValidation records an allocation validation and its violations.
func (r *Registry) RecordValidation(withinLimits bool, rules []string) {
	outcome := "within_limits"
	if !withinLimits {
		outcome = "violations"
	}
	r.validations.WithLabelValues(outcome).Inc()
	for _, rule := range rules {
		r.violations.WithLabelValues(rule).Inc()
	}
}

// RecordBatch records a batch scoring request.
func (r *Registry) RecordBatch(size int, duration float64) {
	r.batchSize.Observe(float64(size))
	r.batchDuration.Observe(duration)
}

// RecordBreakerStateChange records a circuit breaker transition.
func (r *Registry) RecordBreakerStateChange(name, to string) {
	r.breakerTransitions.WithLabelValues(name, to).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
