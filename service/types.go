package service

import "context"

const ImageSize = 224

// Attribute names a classification head. The order of Attributes is the
// order of the model's outputs.
type Attribute string

const (
	SubCategory Attribute = "subCategory"
	ArticleType Attribute = "articleType"
	BaseColour  Attribute = "baseColour"
	Season      Attribute = "season"
	Usage       Attribute = "usage"
)

var Attributes = []Attribute{SubCategory, ArticleType, BaseColour, Season, Usage}

// Tensor is a batched NHWC float32 image.
type Tensor struct {
	Shape [4]int64
	Data  []float32
}

type PredictionResult struct {
	SubCategory string `json:"subCategory"`
	ArticleType string `json:"articleType"`
	BaseColour  string `json:"baseColour"`
	Season      string `json:"season"`
	Usage       string `json:"usage"`
}

func (r *PredictionResult) Get(attr Attribute) string {
	switch attr {
	case SubCategory:
		return r.SubCategory
	case ArticleType:
		return r.ArticleType
	case BaseColour:
		return r.BaseColour
	case Season:
		return r.Season
	case Usage:
		return r.Usage
	}
	return ""
}

func (r *PredictionResult) set(attr Attribute, label string) {
	switch attr {
	case SubCategory:
		r.SubCategory = label
	case ArticleType:
		r.ArticleType = label
	case BaseColour:
		r.BaseColour = label
	case Season:
		r.Season = label
	case Usage:
		r.Usage = label
	}
}

// Model runs a forward pass and returns one score vector per output head,
// taken from the first batch row, in the model's output order.
type Model interface {
	Predict(ctx context.Context, input *Tensor) ([][]float32, error)
	Close() error
}
