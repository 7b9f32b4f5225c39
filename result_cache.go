package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"
)

type cacheEntry struct {
	value     string
	expiresAt time.Time
	createdAt time.Time
}

// ResultCache holds rendered tool results keyed by a digest of their input.
type ResultCache struct {
	mu         sync.Mutex
	items      map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	hits       int
	misses     int
}

const (
	defaultToolCacheMaxEntries = 256
)

func NewResultCache(ttl time.Duration, maxEntries int) *ResultCache {
	if maxEntries <= 0 {
		maxEntries = defaultToolCacheMaxEntries
	}
	return &ResultCache{
		items:      make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

func (c *ResultCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		c.misses++
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.items, key)
		c.misses++
		return "", false
	}
	c.hits++
	return entry.value, true
}

func (c *ResultCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.items[key] = cacheEntry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(c.ttl),
	}

	if c.maxEntries > 0 && len(c.items) > c.maxEntries {
		c.evictOldest(len(c.items) - c.maxEntries)
	}
}

// Len reports the number of entries, expired ones included.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CacheStats is the cache summary reported by formatter_info.
type CacheStats struct {
	Enabled    bool   `json:"enabled"`
	TTL        string `json:"ttl,omitempty"`
	Entries    int    `json:"entries"`
	MaxEntries int    `json:"max_entries,omitempty"`
	Hits       int    `json:"hits"`
	Misses     int    `json:"misses"`
}

func (c *ResultCache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Enabled:    true,
		TTL:        c.ttl.String(),
		Entries:    len(c.items),
		MaxEntries: c.maxEntries,
		Hits:       c.hits,
		Misses:     c.misses,
	}
}

func (c *ResultCache) evictOldest(count int) {
	if count <= 0 {
		return
	}
	type kv struct {
		key       string
		createdAt time.Time
	}
	var items []kv
	for k, v := range c.items {
		items = append(items, kv{key: k, createdAt: v.createdAt})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].createdAt.Before(items[j].createdAt)
	})
	for i := 0; i < count && i < len(items); i++ {
		delete(c.items, items[i].key)
	}
	log.Printf("[CACHE] evicted %d entr(ies)", count)
}

var (
	resultCache     *ResultCache
	resultCacheOnce sync.Once
)

// getResultCache returns the shared cache, or nil when caching is disabled.
func getResultCache() *ResultCache {
	resultCacheOnce.Do(func() {
		cfg := GetConfig()
		if cfg.CacheTTL <= 0 {
			resultCache = nil
			return
		}
		resultCache = NewResultCache(cfg.CacheTTL, cfg.CacheMaxEntries)
		log.Printf("[CACHE] result cache enabled (ttl %v, max %d)", cfg.CacheTTL, cfg.CacheMaxEntries)
	})
	return resultCache
}

// resetResultCache drops the shared cache so the next call re-reads config.
func resetResultCache() {
	resultCache = nil
	resultCacheOnce = sync.Once{}
}

// buildCacheKey digests everything that changes a tool's output: the tool,
// the language the result is tagged with and the arguments.
func buildCacheKey(toolName string, languageID string, args map[string]interface{}) string {
	sanitized := sanitizeCacheArgs(args)
	normalized := canonicalJSON(sanitized)
	payload := fmt.Sprintf("%s|%s|%s", toolName, languageID, normalized)
	sum := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("%x", sum)
}

// sanitizeCacheArgs drops arguments that only affect side channels.
func sanitizeCacheArgs(args map[string]interface{}) map[string]interface{} {
	if args == nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(args))
	for k, v := range args {
		switch k {
		case "mcp_logging":
			continue
		default:
			out[k] = v
		}
	}
	return out
}

func canonicalJSON(v interface{}) string {
	var buf bytes.Buffer
	writeCanonical(&buf, v)
	return buf.String()
}

func writeCanonical(buf *bytes.Buffer, v interface{}) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		data, _ := json.Marshal(t)
		buf.Write(data)
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case int:
		buf.WriteString(strconv.Itoa(t))
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case float64:
		buf.WriteString(strconv.FormatFloat(t, 'f', -1, 64))
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, item)
		}
		buf.WriteByte(']')
	case map[string]interface{}:
		buf.WriteByte('{')
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, _ := json.Marshal(k)
			buf.Write(keyBytes)
			buf.WriteByte(':')
			writeCanonical(buf, t[k])
		}
		buf.WriteByte('}')
	default:
		buf.WriteString(fmt.Sprintf("%q", fmt.Sprintf("%v", t)))
	}
}
