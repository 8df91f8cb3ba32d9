package onnx

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var pathOnce sync.Once
var libPath string

var env struct {
	once sync.Once
	err  error
}

func LibPath(configured string) string {
	pathOnce.Do(func() {
		libPath = resolveLibPath(configured, runtime.GOOS)
		if libPath == "" {
			slog.Error("ONNX Runtime library path could not be determined for this OS")
		} else {
			slog.Info("Using ONNX Runtime library", slog.String("path", libPath))
		}
	})
	return libPath
}

// resolveLibPath prefers the configured path, then a copy shipped next to the
// binary under onnxlibs/, then the platform install location.
func resolveLibPath(configured, goos string) string {
	if configured != "" {
		return configured
	}
	switch goos {
	case "linux":
		path := filepath.Join("onnxlibs", "libonnxruntime.so")
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return "/usr/local/lib/libonnxruntime.so"
	case "darwin":
		return "/usr/local/lib/libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return ""
	}
}

// Init initializes the ONNX Runtime environment once per process. configured
// is the libonnx setting; empty falls back to the default locations.
func Init(configured string) error {
	env.once.Do(func() {
		ort.SetSharedLibraryPath(LibPath(configured))
		env.err = ort.InitializeEnvironment()
	})
	return env.err
}

func Destroy() {
	if ort.IsInitialized() {
		if err := ort.DestroyEnvironment(); err != nil {
			slog.Error("Failed to destroy ONNX Runtime environment", slog.String("error", err.Error()))
		}
	}
}
