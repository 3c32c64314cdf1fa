package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/orasync/orasync-backend/internal/platform/envutil"
	"github.com/orasync/orasync-backend/internal/platform/logger"
)

// ImageCache maps generation parameters to previously produced image URLs so
// identical prompts within the TTL reuse one upload. Only full-quality
// generations are cached; placeholder URLs never are.
type ImageCache interface {
	Get(ctx context.Context, prompt, level, styleHint, aspectRatio string) (string, bool)
	Put(ctx context.Context, prompt, level, styleHint, aspectRatio, url string)
}

// CacheKey is the stable digest of one generation parameter set.
func CacheKey(prompt, level, styleHint, aspectRatio string) string {
	h := sha256.Sum256([]byte(prompt + "|" + level + "|" + styleHint + "|" + aspectRatio))
	return "imgcache:" + hex.EncodeToString(h[:])
}

// NewImageCache prefers redis and falls back to an in-process map when
// REDIS_ADDR is unset or unreachable.
func NewImageCache(log *logger.Logger) ImageCache {
	serviceLog := log.With("service", "ImageCache")
	ttl := envutil.Duration("IMAGE_CACHE_TTL", time.Hour)

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		serviceLog.Info("REDIS_ADDR not set; using in-memory image cache")
		return newMemoryImageCache(ttl)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		serviceLog.Warn("Redis unreachable; using in-memory image cache", "addr", addr, "error", err.Error())
		return newMemoryImageCache(ttl)
	}

	return &redisImageCache{log: serviceLog, rdb: rdb, ttl: ttl}
}

type redisImageCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func (c *redisImageCache) Get(ctx context.Context, prompt, level, styleHint, aspectRatio string) (string, bool) {
	url, err := c.rdb.Get(ctx, CacheKey(prompt, level, styleHint, aspectRatio)).Result()
	if err == goredis.Nil {
		return "", false
	}
	if err != nil {
		c.log.Warn("Image cache read failed", "error", err.Error())
		return "", false
	}
	return url, url != ""
}

func (c *redisImageCache) Put(ctx context.Context, prompt, level, styleHint, aspectRatio, url string) {
	if strings.TrimSpace(url) == "" {
		return
	}
	if err := c.rdb.Set(ctx, CacheKey(prompt, level, styleHint, aspectRatio), url, c.ttl).Err(); err != nil {
		c.log.Warn("Image cache write failed", "error", err.Error())
	}
}

type memoryImageCache struct {
	ttl time.Duration
	mu  sync.Mutex
	m   map[string]cachedURL
}

type cachedURL struct {
	url       string
	expiresAt time.Time
}

func newMemoryImageCache(ttl time.Duration) *memoryImageCache {
	return &memoryImageCache{ttl: ttl, m: map[string]cachedURL{}}
}

func (c *memoryImageCache) Get(_ context.Context, prompt, level, styleHint, aspectRatio string) (string, bool) {
	key := CacheKey(prompt, level, styleHint, aspectRatio)
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.m[key]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.m, key)
		return "", false
	}
	return entry.url, true
}

func (c *memoryImageCache) Put(_ context.Context, prompt, level, styleHint, aspectRatio, url string) {
	if strings.TrimSpace(url) == "" {
		return
	}
	key := CacheKey(prompt, level, styleHint, aspectRatio)
	c.mu.Lock()
	c.m[key] = cachedURL{url: url, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
