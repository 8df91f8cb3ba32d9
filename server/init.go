package server

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/krau/fashiontagger/config"
	"github.com/krau/fashiontagger/service"
)

type Server struct {
	classifier *service.Classifier
	token      string
	maxUpload  int64
	metrics    bool
}

// Init loads the mapping tables and the model. The ONNX Runtime environment
// must already be initialized.
func Init(cfg config.Config) (*Server, error) {
	classifier, err := LoadClassifier(cfg)
	if err != nil {
		return nil, err
	}
	return New(classifier, cfg), nil
}

// LoadClassifier builds the shared classifier from the configured mapping
// directory and model file.
func LoadClassifier(cfg config.Config) (*service.Classifier, error) {
	mappings, err := service.LoadMappings(cfg.MappingsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings: %w", err)
	}
	for _, attr := range service.Attributes {
		slog.Info("Loaded mapping",
			slog.String("attribute", string(attr)),
			slog.Int("labels", mappings[attr].Len()))
	}

	onnxPath := filepath.Join(cfg.ModelDir, cfg.ModelFileName)
	model, err := service.OpenONNXModel(onnxPath, service.Contract(mappings, cfg.OutputNames), cfg.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", onnxPath, err)
	}
	return service.NewClassifier(model, mappings), nil
}

func New(classifier *service.Classifier, cfg config.Config) *Server {
	return &Server{
		classifier: classifier,
		token:      cfg.Token,
		maxUpload:  cfg.MaxUploadMB << 20,
		metrics:    cfg.Metrics,
	}
}

func (s *Server) Close() error {
	return s.classifier.Close()
}
