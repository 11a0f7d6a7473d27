// Package vectorindex stores (id, vector, metadata) records in namespaced
// indexes and answers top-K cosine similarity queries.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MetricCosine is the only supported similarity metric.
const MetricCosine = "cosine"

var (
	// ErrUnsupportedMetric is returned by EnsureIndex for metrics other than cosine.
	ErrUnsupportedMetric = errors.New("unsupported similarity metric")
	// ErrMetricMismatch is returned when an existing index uses a different metric.
	ErrMetricMismatch = errors.New("index exists with a different metric")
	// ErrInvalidTopK is returned by Query when topK < 1.
	ErrInvalidTopK = errors.New("top_k must be at least 1")
	// ErrEmptyNamespace is returned when a namespace is blank.
	ErrEmptyNamespace = errors.New("namespace is required")
	// ErrIndexNotReady is returned when EnsureIndex has not been called.
	ErrIndexNotReady = errors.New("index not ensured")
)

// Spec describes an index.
type Spec struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
}

// RecordMetadata is stored alongside every vector.
type RecordMetadata struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Record is one indexed vector.
type Record struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata RecordMetadata `json:"metadata"`
}

// Match is one query result. Metadata is nil unless it was requested.
type Match struct {
	ID       string          `json:"id"`
	Score    float64         `json:"score"`
	Metadata *RecordMetadata `json:"metadata,omitempty"`
}

// Stats summarises one namespace of the bound index.
type Stats struct {
	Index     string `json:"index"`
	Namespace string `json:"namespace"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Count     int    `json:"count"`
}

// Index is the vector store contract. EnsureIndex binds the client to the
// named index; every other call operates on the bound index.
type Index interface {
	EnsureIndex(ctx context.Context, spec Spec) error
	Upsert(ctx context.Context, namespace string, records []Record) (int, error)
	Query(ctx context.Context, namespace string, vector []float32, topK int, includeMetadata bool) ([]Match, error)
	Stats(ctx context.Context, namespace string) (Stats, error)
	Close() error
}

// DimensionMismatchError reports a vector whose length differs from the index dimension.
type DimensionMismatchError struct {
	Index    string
	ID       string
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("index %s: record %s has dimension %d, expected %d", e.Index, e.ID, e.Got, e.Expected)
	}
	return fmt.Sprintf("index %s: dimension %d, expected %d", e.Index, e.Got, e.Expected)
}

func validateSpec(spec Spec) error {
	if strings.TrimSpace(spec.Name) == "" {
		return errors.New("index name is required")
	}
	if spec.Dimension <= 0 {
		return fmt.Errorf("index %s: dimension must be greater than zero", spec.Name)
	}
	if spec.Metric != MetricCosine {
		return fmt.Errorf("%w: %q", ErrUnsupportedMetric, spec.Metric)
	}
	return nil
}

// compareSpec checks a requested spec against an existing one.
func compareSpec(existing, requested Spec) error {
	if existing.Dimension != requested.Dimension {
		return &DimensionMismatchError{Index: existing.Name, Expected: existing.Dimension, Got: requested.Dimension}
	}
	if existing.Metric != requested.Metric {
		return fmt.Errorf("%w: index %s uses %s, requested %s", ErrMetricMismatch, existing.Name, existing.Metric, requested.Metric)
	}
	return nil
}

func validateRecords(spec Spec, records []Record) error {
	for _, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("index %s: record id is required", spec.Name)
		}
		if len(r.Values) != spec.Dimension {
			return &DimensionMismatchError{Index: spec.Name, ID: r.ID, Expected: spec.Dimension, Got: len(r.Values)}
		}
	}
	return nil
}

func validateQuery(spec Spec, namespace string, vector []float32, topK int) error {
	if strings.TrimSpace(namespace) == "" {
		return ErrEmptyNamespace
	}
	if topK < 1 {
		return ErrInvalidTopK
	}
	if len(vector) != spec.Dimension {
		return &DimensionMismatchError{Index: spec.Name, Expected: spec.Dimension, Got: len(vector)}
	}
	return nil
}

// rankMatches sorts by descending score, ties by ascending id, and keeps topK.
func rankMatches(matches []Match, topK int) []Match {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches
}
