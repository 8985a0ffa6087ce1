package smartsearch

import (
	"sort"
	"strings"
	"sync"

	"github.com/kalambet/podquote/internal/retrieval"
)

// DefaultSessionCapacity is the number of filter sessions kept between the
// filter and complete phases.
const DefaultSessionCapacity = 10

// SessionKey derives the cache key of a filter session from the query and
// its expansion terms. The terms are sorted so their order does not matter.
func SessionKey(query string, terms []string) string {
	sorted := append([]string(nil), terms...)
	sort.Strings(sorted)
	return query + "|" + strings.Join(sorted, "|")
}

// SessionCache holds the ranked candidates of recent filter phases. It
// evicts the oldest inserted session once more than capacity are stored.
// It is safe for concurrent use.
type SessionCache struct {
	mu       sync.Mutex
	capacity int
	order    []string
	sessions map[string][]retrieval.Result
}

// NewSessionCache returns an empty cache. A capacity below one means
// DefaultSessionCapacity.
func NewSessionCache(capacity int) *SessionCache {
	if capacity < 1 {
		capacity = DefaultSessionCapacity
	}
	return &SessionCache{
		capacity: capacity,
		sessions: make(map[string][]retrieval.Result),
	}
}

// Put stores results under key. Re-putting a key makes it the newest.
func (c *SessionCache) Put(key string, results []retrieval.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sessions[key]; ok {
		c.removeLocked(key)
	}
	c.sessions[key] = results
	c.order = append(c.order, key)

	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.sessions, oldest)
	}
}

func (c *SessionCache) Get(key string) ([]retrieval.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	results, ok := c.sessions[key]
	return results, ok
}

func (c *SessionCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sessions[key]; ok {
		c.removeLocked(key)
	}
}

func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func (c *SessionCache) removeLocked(key string) {
	delete(c.sessions, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
