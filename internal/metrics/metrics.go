package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "certvault",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "certvault",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// Uploads counts upload flow outcomes ("succeeded", "failed", "rejected").
	Uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "certvault",
		Name:      "certificate_uploads_total",
		Help:      "Certificate upload attempts by outcome.",
	}, []string{"outcome"})

	// Deletes counts certificate deletions by outcome.
	Deletes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "certvault",
		Name:      "certificate_deletes_total",
		Help:      "Certificate deletions by outcome.",
	}, []string{"outcome"})

	// OrphanedObjects counts stored objects left without a metadata record.
	OrphanedObjects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "certvault",
		Name:      "orphaned_objects_total",
		Help:      "Objects left in storage after a partial failure.",
	})

	// SignedURLs counts signed URLs issued by kind ("presigned", "token").
	SignedURLs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "certvault",
		Name:      "signed_urls_total",
		Help:      "Signed object URLs issued by kind.",
	}, []string{"kind"})

	initOnce sync.Once
)

// InitMetrics registers collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, Uploads, Deletes, OrphanedObjects, SignedURLs)
	})
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
