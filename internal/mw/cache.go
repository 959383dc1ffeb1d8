package mw

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// CachedResponse is a stored GET response.
type CachedResponse struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// ResponseCache stores responses by key.
type ResponseCache interface {
	Get(ctx context.Context, key string) (CachedResponse, bool)
	Set(ctx context.Context, key string, resp CachedResponse, ttl time.Duration)
}

// MemoryCache keeps responses in process memory.
type MemoryCache struct {
	store *cache.Cache
}

// NewMemoryCache creates an in-process cache swept every cleanup.
func NewMemoryCache(defaultTTL, cleanup time.Duration) *MemoryCache {
	return &MemoryCache{store: cache.New(defaultTTL, cleanup)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (CachedResponse, bool) {
	v, found := m.store.Get(key)
	if !found {
		return CachedResponse{}, false
	}
	return v.(CachedResponse), true
}

func (m *MemoryCache) Set(_ context.Context, key string, resp CachedResponse, ttl time.Duration) {
	m.store.Set(key, resp, ttl)
}

// RedisCache shares responses between instances through Redis.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache creates a cache namespaced by prefix.
func NewRedisCache(rdb *redis.Client, prefix string) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (r *RedisCache) key(k string) string {
	sum := sha1.Sum([]byte(k))
	return fmt.Sprintf("%s:%x", r.prefix, sum[:])
}

func (r *RedisCache) Get(ctx context.Context, key string) (CachedResponse, bool) {
	bs, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		return CachedResponse{}, false
	}
	return decodePayload(bs)
}

func (r *RedisCache) Set(ctx context.Context, key string, resp CachedResponse, ttl time.Duration) {
	payload, err := encodePayload(resp)
	if err != nil {
		return
	}
	_ = r.rdb.SetEx(ctx, r.key(key), payload, ttl).Err()
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(resp CachedResponse) ([]byte, error) {
	hdr, err := json.Marshal(resp.Headers)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdr)+len(resp.Body))
	binary.BigEndian.PutUint32(out[0:4], uint32(resp.Status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	copy(out[8:], hdr)
	copy(out[8+len(hdr):], resp.Body)
	return out, nil
}

func decodePayload(bs []byte) (CachedResponse, bool) {
	if len(bs) < 8 {
		return CachedResponse{}, false
	}
	status := int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return CachedResponse{}, false
	}
	hdr := make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return CachedResponse{}, false
		}
	}
	return CachedResponse{Status: status, Headers: hdr, Body: bs[8+hlen:]}, true
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache serves repeated anonymous GET requests from store. Requests
// carrying credentials bypass it, since their responses may depend on
// who asks.
func Cache(store ResponseCache, duration time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || c.GetHeader("Authorization") != "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := c.Request.RequestURI
		if cached, found := store.Get(ctx, key); found {
			for k, v := range cached.Headers {
				if strings.EqualFold(k, "Content-Length") {
					continue
				}
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.Status)
			c.Writer.Write(cached.Body)
			c.Abort()
			return
		}

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw
		c.Writer.Header().Set("X-Cache", "MISS")

		c.Next()

		// Only cache successful responses
		if blw.Status() >= 200 && blw.Status() < 300 {
			headers := blw.Header().Clone()
			headers.Del("X-Cache")
			store.Set(ctx, key, CachedResponse{
				Status:  blw.Status(),
				Headers: headers,
				Body:    blw.body.Bytes(),
			}, duration)
		}
	}
}
