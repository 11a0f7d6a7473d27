package rag

// ChunkMetadata carries the provenance of a chunk.
type ChunkMetadata struct {
	Source string `json:"source"`
}

// Chunk is a bounded excerpt of one source file. The JSON shape is the
// chunk cache format.
type Chunk struct {
	Text     string        `json:"page_content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// EmbeddingMatrix is the embeddings cache payload: one vector per cached
// chunk, positionally aligned with the chunk cache.
type EmbeddingMatrix struct {
	Model       string
	Dimension   int
	Fingerprint string
	Vectors     [][]float32
}
