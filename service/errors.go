package service

import "fmt"

type InvalidImageError struct {
	Err error
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("invalid image: %v", e.Err)
}

func (e *InvalidImageError) Unwrap() error {
	return e.Err
}

// OutputMismatchError means the model returned a different number of heads
// than there are attributes.
type OutputMismatchError struct {
	Expected int
	Received int
}

func (e *OutputMismatchError) Error() string {
	return fmt.Sprintf("prediction output mismatch: expected %d outputs, received %d", e.Expected, e.Received)
}

// InvalidIndexError means a head predicted a class its mapping table lacks.
type InvalidIndexError struct {
	Column string
	Index  int
}

func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("invalid prediction index %d for column %q", e.Index, e.Column)
}
