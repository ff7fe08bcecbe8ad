package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

const (
	KindEmbedding = "embedding"
	KindSearch    = "search"
)

// Derive maps a canonical input string to a kind-prefixed cache key.
// The kind prefix keeps the embedding and search namespaces disjoint; the
// digest makes equal inputs collide and distinct inputs practically never.
// Changing the hash or the canonical form invalidates every written key,
// so neither may change in place.
func Derive(input string, kind string) string {
	sum := sha256.Sum256([]byte(input))
	return kind + ":" + hex.EncodeToString(sum[:])
}

type searchInput struct {
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters"`
}

// CanonicalSearchInput serializes a query plus filter set into a stable
// string. encoding/json writes map keys in sorted order, so filter
// insertion order never changes the output.
func CanonicalSearchInput(query string, filters map[string]string) string {
	if filters == nil {
		filters = map[string]string{}
	}
	data, _ := json.Marshal(searchInput{Query: query, Filters: filters})
	return string(data)
}

// ForSearch derives the cache key for a search request.
func ForSearch(query string, filters map[string]string) string {
	return Derive(CanonicalSearchInput(query, filters), KindSearch)
}

// ForEmbedding derives the cache key for a text embedding.
func ForEmbedding(text string) string {
	return Derive(text, KindEmbedding)
}
