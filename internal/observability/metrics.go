package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// location resolution and fare pipeline.
type Metrics struct {
	ResolveRequests *prometheus.CounterVec // labels: direction={forward,reverse}, outcome={success,invalid_input,unresolvable,address_not_found,out_of_bounds,out_of_service_area,error}
	GazetteerHits   prometheus.Counter
	ProviderUp      prometheus.Gauge

	// Provider query layer metrics.
	ProviderRequests *prometheus.CounterVec   // labels: provider, outcome={success,empty,error}
	ProviderDuration *prometheus.HistogramVec // labels: provider

	// Cache metrics.
	CacheLookups *prometheus.CounterVec // labels: direction={forward,reverse}, result={hit,miss}

	// Geography gate and fare metrics.
	GateChecks      *prometheus.CounterVec // labels: outcome={accepted,out_of_bounds,out_of_service_area}
	FareQuotes      prometheus.Counter
	QuoteDistanceKm prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ResolveRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ride_geo",
			Name:      "resolve_requests_total",
			Help:      "Resolution requests by direction and outcome.",
		}, []string{"direction", "outcome"}),
		GazetteerHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ride_geo",
			Name:      "gazetteer_hits_total",
			Help:      "Resolutions short-circuited by the local gazetteer.",
		}),
		ProviderUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ride_geo",
			Name:      "providers_configured",
			Help:      "Number of external geocoding providers configured.",
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ride_geo",
			Name:      "provider_requests_total",
			Help:      "External geocoder requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ride_geo",
			Name:      "provider_request_duration_seconds",
			Help:      "External geocoder request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ride_geo",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by direction and result.",
		}, []string{"direction", "result"}),
		GateChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ride_geo",
			Name:      "gate_checks_total",
			Help:      "Geography gate decisions by outcome.",
		}, []string{"outcome"}),
		FareQuotes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ride_geo",
			Name:      "fare_quotes_total",
			Help:      "Fare quotes computed.",
		}),
		QuoteDistanceKm: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ride_geo",
			Name:      "quote_distance_km",
			Help:      "Trip distance per fare quote in kilometers.",
			Buckets:   []float64{1, 2.5, 5, 7.5, 10, 15, 20, 30, 50},
		}),
	}

	prometheus.MustRegister(
		m.ResolveRequests,
		m.GazetteerHits,
		m.ProviderUp,
		m.ProviderRequests,
		m.ProviderDuration,
		m.CacheLookups,
		m.GateChecks,
		m.FareQuotes,
		m.QuoteDistanceKm,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ResolveRequests:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "ride_geo", Name: "resolve_requests_total"}, []string{"direction", "outcome"}),
		GazetteerHits:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "ride_geo", Name: "gazetteer_hits_total"}),
		ProviderUp:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "ride_geo", Name: "providers_configured"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "ride_geo", Name: "provider_requests_total"}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "ride_geo", Name: "provider_request_duration_seconds"}, []string{"provider"}),
		CacheLookups:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "ride_geo", Name: "cache_lookups_total"}, []string{"direction", "result"}),
		GateChecks:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "ride_geo", Name: "gate_checks_total"}, []string{"outcome"}),
		FareQuotes:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "ride_geo", Name: "fare_quotes_total"}),
		QuoteDistanceKm:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "ride_geo", Name: "quote_distance_km"}),
	}
}
