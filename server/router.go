package server

import (
	"io"

	"github.com/gin-gonic/gin"
)

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestIDMiddleware, accessLog)
	if s.metrics {
		r.Use(metricsMiddleware)
	}
	// innermost, so panics still reach the access log and metrics as a 500
	r.Use(gin.CustomRecoveryWithWriter(io.Discard, recoverPanic))

	r.POST("/predict", s.PredictHandler)
	r.GET("/health", HealthHandler)
	if s.metrics {
		r.GET("/metrics", metricsHandler())
	}
	return r
}
