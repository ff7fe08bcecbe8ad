package cachestore

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Config struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Store is a fail-open adapter over a Redis keyspace. If the server is
// unreachable when New runs, the store stays permanently degraded and every
// operation becomes a logged no-op returning a miss. Runtime errors are
// absorbed the same way: callers only ever observe "absent", never a
// connectivity failure.
type Store struct {
	client *redis.Client
}

func New(cfg Config) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logutil.GetLogger(ctx).Warn("cache store unreachable, running degraded", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = client.Close()
		return &Store{}
	}
	return &Store{client: client}
}

// NewWithClient wires an existing client, used by tests.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Available() bool {
	return s != nil && s.client != nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	if !s.Available() {
		return nil, false
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logutil.GetLogger(ctx).Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if !s.Available() {
		return
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logutil.GetLogger(ctx).Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Store) DeleteMany(ctx context.Context, keys []string) {
	if !s.Available() || len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		logutil.GetLogger(ctx).Warn("cache delete failed", zap.Int("keys", len(keys)), zap.Error(err))
	}
}

// ScanByPrefix walks the keyspace with SCAN rather than KEYS so a large
// namespace never blocks the server.
func (s *Store) ScanByPrefix(ctx context.Context, prefix string) []string {
	if !s.Available() {
		return nil
	}
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logutil.GetLogger(ctx).Warn("cache scan failed", zap.String("prefix", prefix), zap.Error(err))
		return nil
	}
	return keys
}

type Info struct {
	KeyCount   int64
	UsedMemory string
}

// Stats reads DBSIZE and the memory section of INFO. The ok result is false
// when the store is degraded or the calls fail.
func (s *Store) Stats(ctx context.Context) (Info, bool) {
	if !s.Available() {
		return Info{}, false
	}
	count, err := s.client.DBSize(ctx).Result()
	if err != nil {
		logutil.GetLogger(ctx).Warn("cache dbsize failed", zap.Error(err))
		return Info{}, false
	}
	info := Info{KeyCount: count, UsedMemory: "N/A"}
	raw, err := s.client.Info(ctx, "memory").Result()
	if err == nil {
		info.UsedMemory = parseUsedMemory(raw)
	}
	return info, true
}

func (s *Store) Close() error {
	if !s.Available() {
		return nil
	}
	return s.client.Close()
}

func parseUsedMemory(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "used_memory_human:"); ok {
			return v
		}
		if v, ok := strings.CutPrefix(line, "used_memory:"); ok {
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				return v + "B"
			}
		}
	}
	return "N/A"
}
