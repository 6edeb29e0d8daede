package redis

import "github.com/redis/rueidis"

// NewStoreForTest creates a Store with the provided rueidis client (test-only).
func NewStoreForTest(c rueidis.Client, embed Embedder) *Store {
	return &Store{client: c, embed: embed, prefix: "docdex:", dim: 4}
}
