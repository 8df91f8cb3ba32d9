package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/krau/fashiontagger/config"
	"github.com/krau/fashiontagger/logging"
	"github.com/krau/fashiontagger/onnx"
	"github.com/krau/fashiontagger/server"
)

func main() {
	imagePath := flag.String("image", "", "classify a local image, print the result and exit")
	flag.Parse()

	if err := run(*imagePath); err != nil {
		slog.Error("FashionTagger failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(imagePath string) error {
	cfg, err := config.C()
	if err != nil {
		return err
	}
	logging.Init(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	slog.Info("Starting FashionTagger")

	if err := onnx.Init(cfg.Libonnx); err != nil {
		return err
	}
	defer onnx.Destroy()

	if imagePath != "" {
		return classifyFile(ctx, cfg, imagePath)
	}

	srv, err := server.Init(cfg)
	if err != nil {
		return err
	}
	defer srv.Close()

	gin.SetMode(gin.ReleaseMode)
	addr := cfg.Host + ":" + cfg.Port
	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Router(),
	}

	slog.Info("Listening on", slog.String("address", addr))
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer stop()
	return httpServer.Shutdown(shutdownCtx)
}

func classifyFile(ctx context.Context, cfg config.Config, path string) error {
	classifier, err := server.LoadClassifier(cfg)
	if err != nil {
		return err
	}
	defer classifier.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	result, err := classifier.Classify(ctx, data)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
