package service

import "math"

// Argmax returns the index of the largest value, the lowest index on ties,
// and -1 for an empty vector. NaN ranks above every number, so the first NaN
// wins.
func Argmax(v []float32) int {
	if len(v) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(v); i++ {
		if isNaN(v[best]) {
			break
		}
		if v[i] > v[best] || isNaN(v[i]) {
			best = i
		}
	}
	return best
}

func isNaN(f float32) bool {
	return math.IsNaN(float64(f))
}

// Decode resolves one score vector per attribute into labels. It returns
// either a complete result or an error, never a partial result.
func Decode(outputs [][]float32, mappings Mappings) (*PredictionResult, error) {
	if len(outputs) != len(Attributes) {
		return nil, &OutputMismatchError{Expected: len(Attributes), Received: len(outputs)}
	}

	result := &PredictionResult{}
	for i, attr := range Attributes {
		idx := Argmax(outputs[i])
		label, ok := mappings[attr].Lookup(idx)
		if !ok {
			return nil, &InvalidIndexError{Column: string(attr), Index: idx}
		}
		result.set(attr, label)
	}
	return result, nil
}
