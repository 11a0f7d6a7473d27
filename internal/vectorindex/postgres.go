package vectorindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/mwiater/pdfrag/internal/logging"
)

// Migrator applies schema migrations before an index is ensured.
type Migrator func(ctx context.Context) error

var tableNameSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// PostgresIndex stores each index in its own pgvector table. The
// vector_indexes catalogue records dimension and metric per index.
type PostgresIndex struct {
	db      *sql.DB
	migrate Migrator

	mu    sync.RWMutex
	spec  *Spec
	table string
}

// OpenPostgres connects to dsn and runs the embedded migrations on EnsureIndex.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresIndex, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresIndex(db, func(ctx context.Context) error { return Migrate(dsn) }), nil
}

// NewPostgresIndex wraps an existing connection. migrate may be nil.
func NewPostgresIndex(db *sql.DB, migrate Migrator) *PostgresIndex {
	return &PostgresIndex{db: db, migrate: migrate}
}

// maxTableBase keeps vi_<base>_<hash> under the 63 byte identifier limit.
const maxTableBase = 48

// TableName maps an index name to its table, e.g. ragproj-v1 ->
// vi_ragproj_v1_<fnv32a of the name>. The hash keeps names that sanitise
// alike, such as ragproj-v1 and ragproj_v1, in separate tables.
func TableName(index string) string {
	base := tableNameSanitizer.ReplaceAllString(strings.ToLower(index), "_")
	if len(base) > maxTableBase {
		base = base[:maxTableBase]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(index))
	return fmt.Sprintf("vi_%s_%08x", base, h.Sum32())
}

// EnsureIndex registers the index in the catalogue and creates its table.
func (p *PostgresIndex) EnsureIndex(ctx context.Context, spec Spec) error {
	if err := validateSpec(spec); err != nil {
		return err
	}
	if p.migrate != nil {
		if err := p.migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	var existing Spec
	err := p.db.QueryRowContext(ctx,
		`SELECT name, dimension, metric FROM vector_indexes WHERE name = $1`, spec.Name).
		Scan(&existing.Name, &existing.Dimension, &existing.Metric)
	switch {
	case err == nil:
		if err := compareSpec(existing, spec); err != nil {
			return err
		}
	case errors.Is(err, sql.ErrNoRows):
		if _, err := p.db.ExecContext(ctx,
			`INSERT INTO vector_indexes (name, dimension, metric) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`,
			spec.Name, spec.Dimension, spec.Metric); err != nil {
			return fmt.Errorf("register index %s: %w", spec.Name, err)
		}
		logging.Logf(logging.Index, "Created index %s (dim %d, %s)", spec.Name, spec.Dimension, spec.Metric)
	default:
		return fmt.Errorf("lookup index %s: %w", spec.Name, err)
	}

	table := TableName(spec.Name)
	quoted := pq.QuoteIdentifier(table)
	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	namespace TEXT NOT NULL,
	id TEXT NOT NULL,
	embedding vector(%d) NOT NULL,
	text TEXT NOT NULL,
	source TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (namespace, id)
)`, quoted, spec.Dimension)
	if _, err := p.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	p.mu.Lock()
	s := spec
	p.spec = &s
	p.table = table
	p.mu.Unlock()
	return nil
}

func (p *PostgresIndex) bound() (Spec, string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.spec == nil {
		return Spec{}, "", ErrIndexNotReady
	}
	return *p.spec, pq.QuoteIdentifier(p.table), nil
}

// Upsert inserts or replaces records. Records written before a failure stay written.
func (p *PostgresIndex) Upsert(ctx context.Context, namespace string, records []Record) (int, error) {
	spec, table, err := p.bound()
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(namespace) == "" {
		return 0, ErrEmptyNamespace
	}
	if err := validateRecords(spec, records); err != nil {
		return 0, err
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (namespace, id, embedding, text, source, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (namespace, id) DO UPDATE SET embedding = EXCLUDED.embedding, text = EXCLUDED.text, source = EXCLUDED.source, updated_at = NOW()`, table)
	written := 0
	for _, r := range records {
		if _, err := p.db.ExecContext(ctx, stmt, namespace, r.ID, pgvector.NewVector(r.Values), r.Metadata.Text, r.Metadata.Source); err != nil {
			return written, fmt.Errorf("upsert record %s: %w", r.ID, err)
		}
		written++
	}
	return written, nil
}

// Query orders by cosine distance and reports similarity as 1 - distance.
func (p *PostgresIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, includeMetadata bool) ([]Match, error) {
	spec, table, err := p.bound()
	if err != nil {
		return nil, err
	}
	if err := validateQuery(spec, namespace, vector, topK); err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT id, 1 - (embedding <=> $1) AS score, text, source FROM %s
WHERE namespace = $2
ORDER BY embedding <=> $1, id
LIMIT $3`, table)
	rows, err := p.db.QueryContext(ctx, q, pgvector.NewVector(vector), namespace, topK)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", spec.Name, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var md RecordMetadata
		if err := rows.Scan(&m.ID, &m.Score, &md.Text, &md.Source); err != nil {
			return nil, err
		}
		// A zero query vector has no cosine distance.
		if math.IsNaN(m.Score) {
			m.Score = 0
		}
		if includeMetadata {
			m.Metadata = &md
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rankMatches(matches, topK), nil
}

// Stats counts the records in a namespace.
func (p *PostgresIndex) Stats(ctx context.Context, namespace string) (Stats, error) {
	spec, table, err := p.bound()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Index: spec.Name, Namespace: namespace, Dimension: spec.Dimension, Metric: spec.Metric}
	err = p.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE namespace = $1`, table), namespace).Scan(&stats.Count)
	if err != nil {
		return Stats{}, fmt.Errorf("count %s: %w", spec.Name, err)
	}
	return stats, nil
}

// Close closes the connection pool.
func (p *PostgresIndex) Close() error {
	return p.db.Close()
}
