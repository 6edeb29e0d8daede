// Package redis implements the vector store contract on Redis 8+ via rueidis:
// one FT index per collection over chunk hashes with a FLOAT32 vector field.
// Embedding happens inside the adapter so the core never touches vectors.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/quillan-ai/docdex/internal/vectorstore"
)

// Compile-time check: Store implements vectorstore.Store.
var _ vectorstore.Store = (*Store)(nil)

// Embedder vectorizes text. The adapter embeds both chunks and queries; the
// core stays embedding-free.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config holds connection and layout parameters.
type Config struct {
	Addrs      []string
	Username   string
	Password   string
	KeyPrefix  string
	Dimensions int
}

// Store implements vectorstore.Store via rueidis.
type Store struct {
	client rueidis.Client
	embed  Embedder
	prefix string
	dim    int
}

// NewStore creates a Redis-backed vector store.
func NewStore(cfg Config, embed Embedder) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if embed == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "docdex:"
	}

	return &Store{client: client, embed: embed, prefix: prefix, dim: cfg.Dimensions}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for vector store: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// EnsureCollection creates the FT index for a collection if absent.
func (s *Store) EnsureCollection(ctx context.Context, name string, metadata map[string]string) error {
	args := []string{
		s.indexName(name),
		"ON", "HASH",
		"PREFIX", "1", s.chunkPrefix(name),
		"SCHEMA",
		"text", "TEXT",
		"vector", "VECTOR", "FLAT", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.dim),
		"DISTANCE_METRIC", "COSINE",
	}

	cmd := s.client.B().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if !isRedisErr(err, "index already exists") {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
	}

	if len(metadata) > 0 {
		hset := s.client.B().Hset().Key(s.metaKey(name)).FieldValue()
		for k, v := range metadata {
			hset = hset.FieldValue(k, v)
		}
		if err := s.client.Do(ctx, hset.Build()).Error(); err != nil {
			return fmt.Errorf("store collection metadata %s: %w", name, err)
		}
	}

	return nil
}

// AddChunks embeds each chunk and stores text+vector hashes in one DoMulti
// round-trip. Stable ids make repeated indexing idempotent at this layer.
func (s *Store) AddChunks(ctx context.Context, collection string, texts, ids []string) error {
	if len(texts) != len(ids) {
		return fmt.Errorf("texts/ids length mismatch: %d != %d", len(texts), len(ids))
	}
	if len(texts) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(texts))
	for i, text := range texts {
		vec, err := s.embed.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", ids[i], err)
		}
		cmds[i] = s.client.B().Hset().Key(s.chunkKey(collection, ids[i])).
			FieldValue().
			FieldValue("text", text).
			FieldValue("vector", vectorToBytes(vec)).
			Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return fmt.Errorf("store chunk %s: %w", ids[i], err)
		}
	}
	return nil
}

// Query embeds the query text and runs a KNN search against the collection.
func (s *Store) Query(ctx context.Context, collection, query string, k int) ([]vectorstore.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	vec, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	queryStr := fmt.Sprintf("*=>[KNN %d @vector $BLOB]", k)
	args := []string{
		s.indexName(collection), queryStr,
		"RETURN", "2", "text", "__vector_score",
		"SORTBY", "__vector_score",
		"PARAMS", "2", "BLOB", vectorToBytes(vec),
		"DIALECT", "2",
	}

	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}

	return parseKNNResult(raw)
}

// DeleteCollection drops the FT index together with its chunk hashes (DD) and
// the metadata hash. A missing collection is treated as already deleted.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	cmd := s.client.B().Arbitrary("FT.DROPINDEX").Args(s.indexName(name), "DD").Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if !isRedisErr(err, "unknown index name") {
			return fmt.Errorf("drop collection %s: %w", name, err)
		}
	}

	del := s.client.B().Del().Key(s.metaKey(name)).Build()
	if err := s.client.Do(ctx, del).Error(); err != nil {
		return fmt.Errorf("delete collection metadata %s: %w", name, err)
	}
	return nil
}

// ListCollections enumerates FT indexes carrying this store's prefix.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	cmd := s.client.B().Arbitrary("FT._LIST").Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	idxPrefix := s.prefix + "idx:"
	names := make([]string, 0, len(raw))
	for _, msg := range raw {
		idx, err := msg.ToString()
		if err != nil {
			continue
		}
		if strings.HasPrefix(idx, idxPrefix) {
			names = append(names, strings.TrimPrefix(idx, idxPrefix))
		}
	}
	return names, nil
}

func (s *Store) indexName(collection string) string {
	return s.prefix + "idx:" + collection
}

func (s *Store) chunkPrefix(collection string) string {
	return s.prefix + "chunk:" + collection + ":"
}

func (s *Store) chunkKey(collection, id string) string {
	return s.chunkPrefix(collection) + id
}

func (s *Store) metaKey(collection string) string {
	return s.prefix + "meta:" + collection
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
