package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "market_reconcile_"

	ResultSuccess = "success"
	ResultError   = "error"

	FetchCached   = "cached"
	FetchOK       = "downloaded"
	FetchEmpty    = "empty"
	FetchFailed   = "failed"
	FetchNotFound = "not_found"
)

var (
	registerOnce sync.Once

	fetchAttempts *prometheus.CounterVec
	fetchBytes    prometheus.Counter
	parseFailures prometheus.Counter
	buildTotal    *prometheus.CounterVec
	buildLatency  *prometheus.HistogramVec
	buildPoints   *prometheus.GaugeVec
	comparisons   *prometheus.CounterVec
	exportsTotal  *prometheus.CounterVec
)

// Init registers the metrics with the default registry.
// Observe* calls before Init are no-ops, which keeps library code usable in tests.
func Init() {
	registerOnce.Do(func() {
		fetchAttempts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fetch_attempts_total",
				Help: "Day file candidate attempts by result",
			},
			[]string{"result"},
		)
		fetchBytes = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "fetch_bytes_total",
			Help: "Bytes of day files downloaded from the market operator",
		})
		parseFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "parse_failures_total",
			Help: "Day files rejected by the parser",
		})
		buildTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "year_builds_total",
				Help: "Year builds by result",
			},
			[]string{"result"},
		)
		buildLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "year_build_duration_seconds",
				Help:    "Year build duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"result"},
		)
		buildPoints = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "series_points",
				Help: "Points in the last persisted series per year",
			},
			[]string{"year"},
		)
		comparisons = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "comparisons_total",
				Help: "Comparison queries by result",
			},
			[]string{"result"},
		)
		exportsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "exports_total",
				Help: "Comparison exports by format",
			},
			[]string{"format"},
		)
		prometheus.MustRegister(
			fetchAttempts,
			fetchBytes,
			parseFailures,
			buildTotal,
			buildLatency,
			buildPoints,
			comparisons,
			exportsTotal,
		)
	})
}

func IncFetchAttempt(result string) {
	if fetchAttempts != nil {
		fetchAttempts.WithLabelValues(result).Inc()
	}
}

func AddFetchedBytes(n int64) {
	if n <= 0 {
		return
	}
	if fetchBytes != nil {
		fetchBytes.Add(float64(n))
	}
}

func IncParseFailure() {
	if parseFailures != nil {
		parseFailures.Inc()
	}
}

func ObserveBuild(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if buildTotal != nil {
		buildTotal.WithLabelValues(result).Inc()
	}
	if buildLatency != nil {
		buildLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

func SetSeriesPoints(year string, n int) {
	if buildPoints != nil {
		buildPoints.WithLabelValues(year).Set(float64(n))
	}
}

func IncComparison(result string) {
	if comparisons != nil {
		comparisons.WithLabelValues(result).Inc()
	}
}

func IncExport(format string) {
	if exportsTotal != nil {
		exportsTotal.WithLabelValues(format).Inc()
	}
}
