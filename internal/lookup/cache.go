package lookup

import "sync"

// recordCache holds resolved records keyed by normalized name. It is safe
// for concurrent use. The bound keeps a long-running service from
// accumulating every name ever scanned; when full, the oldest inserted
// entry is dropped, which is adequate for a cache whose hit pattern is a
// small set of repeated staples.
type recordCache struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string // insertion order, oldest first
	maxSize int
}

func newRecordCache(maxSize int) *recordCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &recordCache{
		records: make(map[string]Record, maxSize),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

func (c *recordCache) get(key string) (Record, bool) {
	c.mu.RLock()
	rec, ok := c.records[key]
	c.mu.RUnlock()
	return rec, ok
}

func (c *recordCache) put(key string, rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.records[key]; !exists {
		if len(c.records) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.records, oldest)
		}
		c.order = append(c.order, key)
	}
	c.records[key] = rec
}

func (c *recordCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
