package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mwiater/pdfrag/internal/logging"
)

var metaKey = []byte("_meta")

// BoltIndex keeps indexes in a local bbolt file: one top-level bucket per
// index holding its spec under _meta, and one nested bucket per namespace.
type BoltIndex struct {
	db *bolt.DB

	mu   sync.RWMutex
	spec *Spec
}

// OpenBolt opens (or creates) the bbolt file at path.
func OpenBolt(path string) (*BoltIndex, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create vector store directory: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt vector store %s: %w", path, err)
	}
	return &BoltIndex{db: db}, nil
}

// EnsureIndex creates the index bucket if absent and binds to it.
func (b *BoltIndex) EnsureIndex(ctx context.Context, spec Spec) error {
	if err := validateSpec(spec); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(spec.Name))
		if err != nil {
			return fmt.Errorf("create index bucket: %w", err)
		}
		if raw := bucket.Get(metaKey); raw != nil {
			var existing Spec
			if err := json.Unmarshal(raw, &existing); err != nil {
				return fmt.Errorf("decode index spec: %w", err)
			}
			return compareSpec(existing, spec)
		}
		raw, err := json.Marshal(spec)
		if err != nil {
			return err
		}
		logging.Logf(logging.Index, "Created index %s (dim %d, %s)", spec.Name, spec.Dimension, spec.Metric)
		return bucket.Put(metaKey, raw)
	})
	if err != nil {
		return err
	}
	b.mu.Lock()
	s := spec
	b.spec = &s
	b.mu.Unlock()
	return nil
}

func (b *BoltIndex) bound() (Spec, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.spec == nil {
		return Spec{}, ErrIndexNotReady
	}
	return *b.spec, nil
}

func namespaceKey(namespace string) []byte {
	return []byte("ns:" + namespace)
}

// Upsert writes every record into the namespace, replacing records with the same id.
func (b *BoltIndex) Upsert(ctx context.Context, namespace string, records []Record) (int, error) {
	spec, err := b.bound()
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(namespace) == "" {
		return 0, ErrEmptyNamespace
	}
	if err := validateRecords(spec, records); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	written := 0
	err = b.db.Update(func(tx *bolt.Tx) error {
		idx := tx.Bucket([]byte(spec.Name))
		if idx == nil {
			return ErrIndexNotReady
		}
		ns, err := idx.CreateBucketIfNotExists(namespaceKey(namespace))
		if err != nil {
			return fmt.Errorf("create namespace bucket: %w", err)
		}
		for _, r := range records {
			raw, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("encode record %s: %w", r.ID, err)
			}
			if err := ns.Put([]byte(r.ID), raw); err != nil {
				return fmt.Errorf("put record %s: %w", r.ID, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// Query scans the namespace and returns the topK most similar records.
func (b *BoltIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, includeMetadata bool) ([]Match, error) {
	spec, err := b.bound()
	if err != nil {
		return nil, err
	}
	if err := validateQuery(spec, namespace, vector, topK); err != nil {
		return nil, err
	}
	var matches []Match
	err = b.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket([]byte(spec.Name))
		if idx == nil {
			return ErrIndexNotReady
		}
		ns := idx.Bucket(namespaceKey(namespace))
		if ns == nil {
			return nil
		}
		return ns.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode record %s: %w", k, err)
			}
			m := Match{ID: r.ID, Score: Cosine(vector, r.Values)}
			if includeMetadata {
				md := r.Metadata
				m.Metadata = &md
			}
			matches = append(matches, m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rankMatches(matches, topK), nil
}

// Stats counts the records in a namespace.
func (b *BoltIndex) Stats(ctx context.Context, namespace string) (Stats, error) {
	spec, err := b.bound()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Index: spec.Name, Namespace: namespace, Dimension: spec.Dimension, Metric: spec.Metric}
	err = b.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket([]byte(spec.Name))
		if idx == nil {
			return ErrIndexNotReady
		}
		ns := idx.Bucket(namespaceKey(namespace))
		if ns == nil {
			return nil
		}
		return ns.ForEach(func(_, _ []byte) error {
			stats.Count++
			return nil
		})
	})
	return stats, err
}

// Close closes the bbolt file.
func (b *BoltIndex) Close() error {
	return b.db.Close()
}
