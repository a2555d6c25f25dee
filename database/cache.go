package database

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const queryCacheSize = 512

type cacheEntry struct {
	result   *QueryResult
	storedAt time.Time
}

// QueryCache memoizes successful query results for a TTL, keyed by database
// ID plus statement text.
type QueryCache struct {
	mu  sync.Mutex
	lru *lru.Cache
	ttl time.Duration
	now func() time.Time
}

func NewQueryCache(ttl time.Duration) (*QueryCache, error) {
	c, err := lru.New(queryCacheSize)
	if err != nil {
		return nil, err
	}
	return &QueryCache{lru: c, ttl: ttl, now: time.Now}, nil
}

func cacheKey(databaseID, query string) string {
	sum := sha256.Sum256([]byte(databaseID + "\x00" + query))
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of the cached result so callers can decorate it
// without corrupting the shared entry.
func (c *QueryCache) Get(databaseID, query string) (QueryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(databaseID, query)
	v, ok := c.lru.Get(key)
	if !ok {
		return QueryResult{}, false
	}
	entry := v.(cacheEntry)
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.lru.Remove(key)
		return QueryResult{}, false
	}
	return *entry.result, true
}

func (c *QueryCache) Put(databaseID, query string, result *QueryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(cacheKey(databaseID, query), cacheEntry{result: result, storedAt: c.now()})
}
