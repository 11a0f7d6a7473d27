package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mwiater/pdfrag/internal/embedding"
	"github.com/mwiater/pdfrag/internal/logging"
	"github.com/mwiater/pdfrag/internal/metrics"
	"github.com/mwiater/pdfrag/internal/pdftext"
	"github.com/mwiater/pdfrag/internal/vectorindex"
)

const (
	defaultEmbedBatch  = 64
	defaultUpsertBatch = 100
)

// IngestOptions locates the corpus, the caches and the target index.
type IngestOptions struct {
	PDFDir         string
	ChunksPath     string
	EmbeddingsPath string
	Namespace      string
	Spec           vectorindex.Spec
	Force          bool
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	Chunks              int
	ChunksFromCache     bool
	EmbeddingsFromCache bool
	Upserted            int
	Duration            time.Duration
}

// Ingestor runs the prepare-data flow: chunk, embed, ensure the index, upsert.
type Ingestor struct {
	Splitter *Splitter
	Embedder embedding.Embedder
	Index    vectorindex.Index
	Extract  pdftext.Extractor
	Metrics  *metrics.Metrics
	// Status receives progress lines; nil logs only.
	Status func(msg string)
}

func (in *Ingestor) status(start time.Time, format string, args ...any) {
	elapsed := time.Since(start).Truncate(time.Millisecond)
	msg := fmt.Sprintf("[%s] %s", elapsed, fmt.Sprintf(format, args...))
	logging.Logf(logging.Ingest, "%s", msg)
	if in.Status != nil {
		in.Status(msg)
	}
}

// Run executes the flow. Caches are reused unless opts.Force is set.
func (in *Ingestor) Run(ctx context.Context, opts IngestOptions) (IngestReport, error) {
	if in.Splitter == nil || in.Embedder == nil || in.Index == nil {
		return IngestReport{}, fmt.Errorf("ingestor is missing a splitter, embedder or index")
	}
	if strings.TrimSpace(opts.Namespace) == "" {
		return IngestReport{}, vectorindex.ErrEmptyNamespace
	}
	start := time.Now()
	var report IngestReport

	in.status(start, "[INGEST] Corpus: %s", opts.PDFDir)
	chunks, fromCache, err := in.loadOrBuildChunks(ctx, opts)
	if err != nil {
		return report, err
	}
	if len(chunks) == 0 {
		return report, fmt.Errorf("no chunks produced from %s", opts.PDFDir)
	}
	report.Chunks = len(chunks)
	report.ChunksFromCache = fromCache
	in.status(start, "[INGEST] %d chunks (cached: %v)", len(chunks), fromCache)

	vectors, fromCache, err := in.loadOrEmbed(ctx, opts, chunks)
	if err != nil {
		return report, err
	}
	report.EmbeddingsFromCache = fromCache
	in.status(start, "[INGEST] %d embeddings from %s (cached: %v)", len(vectors), in.Embedder.ModelName(), fromCache)

	if err := in.Index.EnsureIndex(ctx, opts.Spec); err != nil {
		return report, fmt.Errorf("ensure index %s: %w", opts.Spec.Name, err)
	}

	records := BuildRecords(chunks, vectors)
	for lo := 0; lo < len(records); lo += defaultUpsertBatch {
		hi := min(lo+defaultUpsertBatch, len(records))
		n, err := in.Index.Upsert(ctx, opts.Namespace, records[lo:hi])
		report.Upserted += n
		in.Metrics.AddIndexed(n)
		if err != nil {
			return report, fmt.Errorf("upsert records %d-%d: %w", lo, hi-1, err)
		}
		in.status(start, "[INGEST] Upserted %d/%d records into %s/%s", report.Upserted, len(records), opts.Spec.Name, opts.Namespace)
	}

	report.Duration = time.Since(start)
	in.status(start, "[INGEST] Complete")
	return report, nil
}

func (in *Ingestor) loadOrBuildChunks(ctx context.Context, opts IngestOptions) ([]Chunk, bool, error) {
	if !opts.Force && opts.ChunksPath != "" {
		chunks, err := LoadChunks(opts.ChunksPath)
		if err == nil {
			return chunks, true, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
	}
	chunks, err := LoadCorpus(ctx, opts.PDFDir, in.Splitter, in.Extract)
	if err != nil {
		return nil, false, err
	}
	if opts.ChunksPath != "" && len(chunks) > 0 {
		if err := SaveChunks(opts.ChunksPath, chunks); err != nil {
			return nil, false, err
		}
	}
	return chunks, false, nil
}

func (in *Ingestor) loadOrEmbed(ctx context.Context, opts IngestOptions, chunks []Chunk) ([][]float32, bool, error) {
	model, dim := in.Embedder.ModelName(), in.Embedder.Dimension()
	if dim != opts.Spec.Dimension {
		return nil, false, &vectorindex.DimensionMismatchError{Index: opts.Spec.Name, Expected: opts.Spec.Dimension, Got: dim}
	}
	if !opts.Force && opts.EmbeddingsPath != "" {
		cached, err := LoadEmbeddings(opts.EmbeddingsPath)
		switch {
		case err == nil && cached.Matches(chunks, model, dim):
			return cached.Vectors, true, nil
		case err == nil:
			logging.Logf(logging.Ingest, "Embeddings cache is stale, recomputing")
		case !errors.Is(err, ErrNotFound):
			return nil, false, err
		}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors := make([][]float32, 0, len(texts))
	for lo := 0; lo < len(texts); lo += defaultEmbedBatch {
		hi := min(lo+defaultEmbedBatch, len(texts))
		batch, err := in.Embedder.EmbedMany(ctx, texts[lo:hi])
		if err != nil {
			return nil, false, fmt.Errorf("embed chunks %d-%d: %w", lo, hi-1, err)
		}
		vectors = append(vectors, batch...)
	}

	if opts.EmbeddingsPath != "" {
		matrix := EmbeddingMatrix{Model: model, Dimension: dim, Fingerprint: Fingerprint(chunks), Vectors: vectors}
		if err := SaveEmbeddings(opts.EmbeddingsPath, matrix); err != nil {
			return nil, false, err
		}
	}
	return vectors, false, nil
}

// BuildRecords pairs chunks with their vectors and assigns stable ids.
func BuildRecords(chunks []Chunk, vectors [][]float32) []vectorindex.Record {
	records := make([]vectorindex.Record, 0, len(chunks))
	ordinals := make(map[string]int)
	for i, c := range chunks {
		if i >= len(vectors) {
			break
		}
		ord := ordinals[c.Metadata.Source]
		ordinals[c.Metadata.Source] = ord + 1
		records = append(records, vectorindex.Record{
			ID:     RecordID(c.Metadata.Source, ord),
			Values: vectors[i],
			Metadata: vectorindex.RecordMetadata{
				Text:   c.Text,
				Source: c.Metadata.Source,
			},
		})
	}
	return records
}
