package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mwiater/pdfrag/internal/logging"
)

// KV is the slice of the Redis client the cache uses. *redis.Client satisfies it.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedEmbedder serves vectors from Redis and embeds only the misses.
// Redis errors are logged and treated as misses.
type CachedEmbedder struct {
	inner Embedder
	kv    KV
	ttl   time.Duration
}

// NewCachedEmbedder wraps inner with a Redis cache. A zero ttl keeps entries forever.
func NewCachedEmbedder(inner Embedder, kv KV, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, kv: kv, ttl: ttl}
}

// NewRedisClient opens a client for addr and checks it with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// EmbedMany returns cached vectors where present and embeds the rest in one batch.
func (c *CachedEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateInputs(c.ModelName(), texts); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if vec, ok := c.lookup(ctx, t); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.inner.EmbedMany(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		out[idx] = fresh[j]
		c.store(ctx, missTexts[j], fresh[j])
	}
	return out, nil
}

// EmbedOne embeds a single text.
func (c *CachedEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, c, text)
}

// Dimension returns the wrapped embedder's dimension.
func (c *CachedEmbedder) Dimension() int { return c.inner.Dimension() }

// ModelName returns the wrapped embedder's model.
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("pdfrag:emb:%s:%d:%s", c.inner.ModelName(), c.inner.Dimension(), hex.EncodeToString(sum[:]))
}

func (c *CachedEmbedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	raw, err := c.kv.Get(ctx, c.key(text)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.Logf(logging.Embed, "cache get failed: %v", err)
		}
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil || len(vec) != c.inner.Dimension() {
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) store(ctx context.Context, text string, vec []float32) {
	payload, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.kv.Set(ctx, c.key(text), payload, c.ttl).Err(); err != nil {
		logging.Logf(logging.Embed, "cache set failed: %v", err)
	}
}
