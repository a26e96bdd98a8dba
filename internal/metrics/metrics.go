package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics of the extraction pipeline and the
// HTTP API.
type Collector struct {
	gatherer prometheus.Gatherer

	TilesProcessed     prometheus.Counter
	BuildingsExtracted prometheus.Counter
	PointsExtracted    prometheus.Counter
	TileFailures       *prometheus.CounterVec
	TileDuration       prometheus.Histogram

	HTTPRequests *prometheus.CounterVec
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil. Metrics already registered on reg are reused.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.TilesProcessed, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gml_tiles_processed_total",
		Help: "Total number of tiles extracted successfully.",
	})); err != nil {
		return nil, err
	}
	if c.BuildingsExtracted, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gml_buildings_extracted_total",
		Help: "Total number of buildings extracted.",
	})); err != nil {
		return nil, err
	}
	if c.PointsExtracted, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gml_points_extracted_total",
		Help: "Total number of roof-edge points extracted.",
	})); err != nil {
		return nil, err
	}
	if c.TileFailures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gml_tile_failures_total",
		Help: "Total number of tiles that failed, labeled by reason.",
	}, []string{"reason"})); err != nil {
		return nil, err
	}
	if c.TileDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gml_tile_duration_seconds",
		Help:    "Time spent decoding and extracting one tile.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})); err != nil {
		return nil, err
	}
	if c.HTTPRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gml_http_requests_total",
		Help: "Total number of API requests, labeled by route and status code.",
	}, []string{"route", "code"})); err != nil {
		return nil, err
	}

	return c, nil
}

// Handler returns an HTTP handler exposing the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// ObserveTile records one successfully extracted tile.
func (c *Collector) ObserveTile(buildings, points int, seconds float64) {
	if c == nil {
		return
	}
	c.TilesProcessed.Inc()
	c.BuildingsExtracted.Add(float64(buildings))
	c.PointsExtracted.Add(float64(points))
	c.TileDuration.Observe(seconds)
}

// ObserveFailure records a failed tile.
func (c *Collector) ObserveFailure(reason string) {
	if c == nil {
		return
	}
	c.TileFailures.WithLabelValues(reason).Inc()
}

func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return col, nil
}
