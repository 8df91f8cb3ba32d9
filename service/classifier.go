package service

import (
	"context"
	"fmt"
)

// Classifier holds the load-once model and mapping tables. Both are read-only
// after construction and shared by all requests.
type Classifier struct {
	model    Model
	mappings Mappings
}

func NewClassifier(model Model, mappings Mappings) *Classifier {
	return &Classifier{model: model, mappings: mappings}
}

// Classify runs preprocess, inference and decode on raw upload bytes.
// Errors are *InvalidImageError, *OutputMismatchError, *InvalidIndexError
// or a wrapped inference failure.
func (c *Classifier) Classify(ctx context.Context, data []byte) (*PredictionResult, error) {
	input, err := Preprocess(data)
	if err != nil {
		return nil, err
	}
	outputs, err := c.model.Predict(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("model predict: %w", err)
	}
	return Decode(outputs, c.mappings)
}

func (c *Classifier) Close() error {
	return c.model.Close()
}
