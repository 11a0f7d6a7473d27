package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

const (
	wordWeight    = 1.0
	trigramWeight = 0.3
)

// HashEmbedder is a deterministic local embedder. It hashes lower-cased
// word tokens and their character trigrams into signed buckets and
// L2-normalises the result, so texts sharing vocabulary land close together.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder returns a HashEmbedder of the given dimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &HashEmbedder{dim: dimension}
}

// EmbedMany embeds every text.
func (e *HashEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateInputs(e.ModelName(), texts); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Model: e.ModelName(), Index: i, Err: err}
		}
		out[i] = e.vector(t)
	}
	return out, nil
}

// EmbedOne embeds a single text.
func (e *HashEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e, text)
}

// Dimension returns the vector length.
func (e *HashEmbedder) Dimension() int { return e.dim }

// ModelName identifies the hashing scheme and dimension.
func (e *HashEmbedder) ModelName() string { return fmt.Sprintf("hash-%d-v1", e.dim) }

func (e *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, tok := range tokens {
		e.add(vec, "w:"+tok, wordWeight)
		padded := []rune(" " + tok + " ")
		for i := 0; i+3 <= len(padded); i++ {
			e.add(vec, "c:"+string(padded[i:i+3]), trigramWeight)
		}
	}
	l2normalize(vec)
	return vec
}

func (e *HashEmbedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(len(vec)))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
