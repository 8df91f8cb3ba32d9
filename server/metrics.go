package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/krau/fashiontagger/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"path", "method", "status"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"},
	)
	predictedLabels = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fashiontagger_predicted_labels_total",
			Help: "Predicted labels per attribute",
		}, []string{"attribute", "label"},
	)
)

func init() {
	prometheus.MustRegister(requestCount, requestDuration, predictedLabels)
}

func metricsMiddleware(c *gin.Context) {
	start := time.Now()
	c.Next()
	path := c.FullPath()
	if path == "" {
		path = "unmatched"
	}
	requestCount.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	requestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
}

func observePrediction(r *service.PredictionResult) {
	for _, attr := range service.Attributes {
		predictedLabels.WithLabelValues(string(attr), r.Get(attr)).Inc()
	}
}

func metricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
