package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mwiater/pdfrag/internal/logging"
	"github.com/mwiater/pdfrag/internal/pdftext"
)

// LoadCorpus extracts and chunks every PDF directly under dir. Files are
// visited in name order; unreadable PDFs are logged and skipped.
func LoadCorpus(ctx context.Context, dir string, splitter *Splitter, extract pdftext.Extractor) ([]Chunk, error) {
	if splitter == nil {
		return nil, fmt.Errorf("splitter is nil")
	}
	if extract == nil {
		extract = pdftext.Extract
	}

	files, err := discoverPDFs(dir)
	if err != nil {
		return nil, err
	}
	logging.Logf(logging.Ingest, "Discovered %d PDF files in %s", len(files), dir)

	var chunks []Chunk
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, name)
		text, err := extract(path)
		if err != nil {
			var extractErr *pdftext.ExtractionError
			if errors.As(err, &extractErr) {
				logging.Logf(logging.Ingest, "Skipping %s: %v", name, err)
				continue
			}
			return nil, err
		}
		pieces := splitter.Split(text)
		logging.Logf(logging.Ingest, "Chunked %s into %d chunks", name, len(pieces))
		for _, p := range pieces {
			chunks = append(chunks, Chunk{Text: p, Metadata: ChunkMetadata{Source: name}})
		}
	}
	return chunks, nil
}

func discoverPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read pdf directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
