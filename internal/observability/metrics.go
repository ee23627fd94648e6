package observability

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UploadsTotal counts ingested originals by detected format.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heirloom_uploads_total",
		Help: "Total number of ingested photo originals by detected format",
	}, []string{"format"})

	// UploadPipelineDuration records end-to-end ingestion latency.
	UploadPipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "heirloom_upload_pipeline_seconds",
		Help:    "Ingestion pipeline latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// ThumbnailsRendered counts rendered thumbnails by crop mode.
	ThumbnailsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heirloom_thumbnails_rendered_total",
		Help: "Total number of rendered thumbnails by crop mode",
	}, []string{"mode"})

	// FeedCacheRequests counts feed cache lookups by result.
	FeedCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heirloom_feed_cache_total",
		Help: "Feed cache lookups by result (hit/miss/bypass)",
	}, []string{"result"})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "heirloom_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)

// Crop mode labels for ThumbnailsRendered.
const (
	CropModeAnchor = "anchor"
	CropModeCoords = "coords"
	CropModeAuto   = "auto"
)

var (
	promOnce       sync.Once
	promMiddleware *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the Prometheus HTTP middleware for the given service
// name. The middleware registers collectors globally, so it is created once
// and shared across server instances.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMiddleware = fiberprometheus.New(serviceName)
	})
	return promMiddleware
}
