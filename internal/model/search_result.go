package model

// SearchResult is one ranked hit from a similarity search. Similarity is
// 1 - distance, so 1.0 means a zero-distance match.
type SearchResult struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Similarity  float64 `json:"similarity"`
}

type CacheStats struct {
	Status        string `json:"status"`
	TotalKeys     int64  `json:"total_keys"`
	EmbeddingKeys int    `json:"embedding_cache_entries"`
	SearchKeys    int    `json:"search_cache_entries"`
	MemoryUsage   string `json:"memory_usage"`
	HitRate       string `json:"hit_rate"`
}
