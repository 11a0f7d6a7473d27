package rag

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/mwiater/pdfrag/internal/util"
)

// SaveEmbeddings gob-encodes the matrix to path atomically.
func SaveEmbeddings(path string, m EmbeddingMatrix) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("encode embeddings: %w", err)
	}
	if err := util.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("save embeddings: %w", err)
	}
	return nil
}

// LoadEmbeddings reads a matrix written by SaveEmbeddings. A missing file
// yields an error matching ErrNotFound.
func LoadEmbeddings(path string) (EmbeddingMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return EmbeddingMatrix{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return EmbeddingMatrix{}, fmt.Errorf("open embeddings: %w", err)
	}
	defer f.Close()

	var m EmbeddingMatrix
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return EmbeddingMatrix{}, fmt.Errorf("decode embeddings %s: %w", path, err)
	}
	return m, nil
}

// Fingerprint hashes the source and text of every chunk in order.
func Fingerprint(chunks []Chunk) string {
	h := sha256.New()
	for _, c := range chunks {
		h.Write([]byte(c.Metadata.Source))
		h.Write([]byte{0})
		h.Write([]byte(c.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Matches reports whether the cached matrix was computed for exactly these
// chunks with the given model and dimension.
func (m EmbeddingMatrix) Matches(chunks []Chunk, model string, dimension int) bool {
	if m.Model != model || m.Dimension != dimension || len(m.Vectors) != len(chunks) {
		return false
	}
	for _, v := range m.Vectors {
		if len(v) != dimension {
			return false
		}
	}
	return m.Fingerprint == Fingerprint(chunks)
}
