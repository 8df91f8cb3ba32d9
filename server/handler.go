package server

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/krau/fashiontagger/service"
)

var (
	errUnauthorized = errors.New("unauthorized")
)

func (s *Server) authenticate(c *gin.Context) error {
	auth := c.GetHeader("Authorization")

	expectedToken := s.token
	if expectedToken == "" {
		return nil
	}
	providedToken := ""
	if len(auth) > 7 && auth[:7] == "Bearer " {
		providedToken = auth[7:]
	}
	if subtle.ConstantTimeCompare([]byte(providedToken), []byte(expectedToken)) != 1 {
		return errUnauthorized
	}

	return nil
}

func (s *Server) PredictHandler(c *gin.Context) {
	if err := s.authenticate(c); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if s.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			invalidImage(c, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		invalidImage(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		invalidImage(c, err)
		return
	}

	result, err := s.classifier.Classify(c.Request.Context(), data)
	if err != nil {
		s.classifyError(c, err)
		return
	}
	if s.metrics {
		observePrediction(result)
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) classifyError(c *gin.Context, err error) {
	var (
		invalid  *service.InvalidImageError
		mismatch *service.OutputMismatchError
		index    *service.InvalidIndexError
	)
	switch {
	case errors.As(err, &invalid):
		invalidImage(c, invalid.Err)
	case errors.As(err, &mismatch):
		slog.Error("Prediction output mismatch",
			slog.Int("expected", mismatch.Expected),
			slog.Int("received", mismatch.Received),
			slog.String("request_id", requestID(c)))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":            "Prediction output mismatch",
			"expected_outputs": mismatch.Expected,
			"received_outputs": mismatch.Received,
		})
	case errors.As(err, &index):
		slog.Error("Invalid prediction index",
			slog.String("column", index.Column),
			slog.Int("index", index.Index),
			slog.String("request_id", requestID(c)))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Invalid prediction index",
			"column": index.Column,
			"index":  index.Index,
		})
	default:
		slog.Error("Prediction failed",
			slog.String("error", err.Error()),
			slog.String("request_id", requestID(c)))
		internalError(c, err.Error())
	}
}

func invalidImage(c *gin.Context, cause error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid image format",
		"details": cause.Error(),
	})
}

func internalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal Server Error",
		"message": message,
	})
}

// recoverPanic turns a handler panic into the generic 500 body and logs the
// stack.
func recoverPanic(c *gin.Context, recovered any) {
	slog.Error("Unhandled panic",
		slog.String("panic", fmt.Sprint(recovered)),
		slog.String("request_id", requestID(c)),
		slog.String("stack", string(debug.Stack())))
	internalError(c, fmt.Sprint(recovered))
	c.Abort()
}

func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
