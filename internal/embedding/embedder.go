// Package embedding maps text to fixed-length dense vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// DefaultDimension is the vector length used throughout the pipeline.
const DefaultDimension = 384

// ErrInvalidInput marks input the embedder refuses to encode.
var ErrInvalidInput = errors.New("invalid embedding input")

// Embedder encodes text. EmbedMany output is positionally aligned with its
// input and every vector has Dimension() entries. The empty string is a
// valid input.
type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	ModelName() string
}

// Error is returned for any embedding failure.
type Error struct {
	Model string
	Index int
	Err   error
}

func (e *Error) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("embedding (%s) input %d: %v", e.Model, e.Index, e.Err)
	}
	return fmt.Sprintf("embedding (%s): %v", e.Model, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func validateInputs(model string, texts []string) error {
	if texts == nil {
		return &Error{Model: model, Index: -1, Err: fmt.Errorf("%w: nil batch", ErrInvalidInput)}
	}
	for i, t := range texts {
		if !utf8.ValidString(t) {
			return &Error{Model: model, Index: i, Err: fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidInput)}
		}
	}
	return nil
}

func checkDimensions(model string, vectors [][]float32, want, dim int) error {
	if len(vectors) != want {
		return &Error{Model: model, Index: -1, Err: fmt.Errorf("provider returned %d vectors for %d inputs", len(vectors), want)}
	}
	for i, v := range vectors {
		if len(v) != dim {
			return &Error{Model: model, Index: i, Err: fmt.Errorf("provider returned %d dimensions, expected %d", len(v), dim)}
		}
	}
	return nil
}

// embedOne is the shared EmbedOne in terms of EmbedMany.
func embedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// l2normalize scales v to unit length in place. Zero vectors are left alone.
func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
