package decision

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"agent-arena-go/internal/telemetry"
	"go.uber.org/zap"
)

// keyDisplayLength truncates the sha256 hex digest for readable keys. 16 hex
// chars (64 bits) keep the collision probability negligible for any realistic
// number of cached decisions; truncation is a readability choice, not a
// uniqueness guarantee.
const keyDisplayLength = 16

// cacheEntry is the persisted form of one decision.
type cacheEntry struct {
	AgentName string   `json:"agent_name"`
	Timestamp string   `json:"timestamp"`
	Summary   string   `json:"summary"`
	Reasoning string   `json:"reasoning"`
	Actions   []Action `json:"actions"`
	CachedAt  string   `json:"cached_at"`
}

// Cache memoizes agent decisions keyed by a content hash of (agent, prompt,
// timestamp). The backing store is a single flat JSON file, reloaded fully at
// startup and rewritten fully after every Put - simplicity over
// write-amplification. With an empty path the cache is disabled: Get always
// misses and Put is a no-op.
type Cache struct {
	mu     sync.Mutex
	path   string
	store  map[string]cacheEntry
	hits   int
	misses int
	broken bool // IO failure degraded the cache to pass-through
	logger *zap.Logger
}

// NewCache opens (or creates) the cache at path. A load failure is logged and
// leaves the cache in pass-through mode rather than failing the run.
func NewCache(path string, logger *zap.Logger) *Cache {
	c := &Cache{
		path:   path,
		store:  make(map[string]cacheEntry),
		logger: logger,
	}
	if path == "" {
		return c
	}
	if err := c.load(); err != nil {
		logger.Warn("Decision cache load failed, degrading to pass-through", zap.Error(err))
		c.broken = true
	}
	return c
}

func computeKey(agentName, prompt, timestamp string) string {
	sum := sha256.Sum256([]byte(agentName + "|" + timestamp + "|" + prompt))
	return hex.EncodeToString(sum[:])[:keyDisplayLength]
}

// Get returns the cached decision for (agent, prompt, timestamp) if present.
func (c *Cache) Get(agentName, prompt, timestamp string) (Decision, bool) {
	if c.path == "" || c.broken {
		return Decision{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.store[computeKey(agentName, prompt, timestamp)]
	if !ok {
		c.misses++
		telemetry.CacheMisses.Inc()
		return Decision{}, false
	}
	c.hits++
	telemetry.CacheHits.Inc()
	return Decision{
		Summary:   entry.Summary,
		Reasoning: entry.Reasoning,
		Actions:   entry.Actions,
	}, true
}

// Put stores the decision and persists the whole cache synchronously before
// returning, so a crash right after an expensive agent call loses nothing.
func (c *Cache) Put(agentName, prompt, timestamp string, d Decision) {
	if c.path == "" || c.broken {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[computeKey(agentName, prompt, timestamp)] = cacheEntry{
		AgentName: agentName,
		Timestamp: timestamp,
		Summary:   d.Summary,
		Reasoning: d.Reasoning,
		Actions:   d.Actions,
		CachedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	if err := c.save(); err != nil {
		c.logger.Warn("Decision cache save failed, degrading to pass-through", zap.Error(err))
		c.broken = true
	}
}

// Stats returns entry count, hits and misses since the last Clear.
func (c *Cache) Stats() (entries, hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.store), c.hits, c.misses
}

// Clear drops all entries, resets the counters and removes the backing file.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]cacheEntry)
	c.hits, c.misses = 0, 0
	c.broken = false
	if c.path == "" {
		return nil
	}
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	return nil
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cache file: %w", err)
	}
	if err := json.Unmarshal(data, &c.store); err != nil {
		return fmt.Errorf("failed to parse cache file: %w", err)
	}
	c.logger.Info("Loaded decision cache", zap.Int("entries", len(c.store)), zap.String("path", c.path))
	return nil
}

func (c *Cache) save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.MarshalIndent(c.store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}
