package rag

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mwiater/pdfrag/internal/util"
)

// ErrNotFound is returned when an expected cache file is absent.
var ErrNotFound = errors.New("cache file not found")

// SaveChunks writes chunks to path as a JSON array of
// {"page_content", "metadata"} objects, replacing any existing file.
func SaveChunks(path string, chunks []Chunk) error {
	if chunks == nil {
		chunks = []Chunk{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(chunks); err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}
	if err := util.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}
	return nil
}

// LoadChunks reads a chunk cache written by SaveChunks. A missing file
// yields an error matching ErrNotFound.
func LoadChunks(path string) ([]Chunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read chunks: %w", err)
	}
	var chunks []Chunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return nil, fmt.Errorf("parse chunks %s: %w", path, err)
	}
	return chunks, nil
}
