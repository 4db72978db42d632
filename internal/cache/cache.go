// Package cache stores analysis results keyed by repository and revision,
// valid only while the content fingerprint they were computed from matches.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dejo1307/frontdoc/internal/facts"
)

// storeVersion identifies the persisted layout. Stores with another version
// are discarded on load.
const storeVersion = 1

// Entry is one cached result.
type Entry struct {
	Fingerprint string          `json:"fingerprint"`
	Result      json.RawMessage `json:"result"`
	StoredAt    time.Time       `json:"stored_at"`
}

type persisted struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// Cache is an in-memory view of the persisted store. It is loaded once per
// run and written back with Save.
type Cache struct {
	backend Backend

	mu      sync.RWMutex
	entries map[string]Entry
	dirty   bool
}

// New creates an empty cache persisted through backend.
func New(backend Backend) *Cache {
	if backend == nil {
		backend = NopBackend{}
	}
	return &Cache{
		backend: backend,
		entries: make(map[string]Entry),
	}
}

// Key builds the cache key for a repository at a revision.
func Key(repo, revision string) string {
	return repo + "@" + revision
}

// Load replaces the in-memory entries with the persisted store. An unreadable
// or corrupt store leaves the cache empty and is not an error.
func (c *Cache) Load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
	c.dirty = false

	data, err := c.backend.Load(ctx)
	if err != nil {
		log.Printf("[cache] warning: loading %s: %v, starting cold", c.backend, err)
		return
	}
	if len(data) == 0 {
		return
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		log.Printf("[cache] warning: corrupt store %s: %v, starting cold", c.backend, err)
		return
	}
	if p.Version != storeVersion {
		log.Printf("[cache] store %s has version %d, want %d, starting cold", c.backend, p.Version, storeVersion)
		return
	}
	for k, e := range p.Entries {
		c.entries[k] = e
	}
	log.Printf("[cache] loaded %d entries from %s", len(c.entries), c.backend)
}

// Get returns the stored result for key iff its fingerprint equals fp.
func (c *Cache) Get(key, fp string) (*facts.AnalysisResult, bool) {
	if fp == "" {
		return nil, false
	}
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || e.Fingerprint != fp {
		return nil, false
	}

	var r facts.AnalysisResult
	if err := json.Unmarshal(e.Result, &r); err != nil {
		log.Printf("[cache] warning: entry %s unreadable: %v", key, err)
		return nil, false
	}
	return &r, true
}

// Set upserts the result for key under fingerprint fp. An empty fingerprint
// is never stored, since it could not be validated later.
func (c *Cache) Set(key, fp string, r *facts.AnalysisResult) error {
	if fp == "" || r == nil {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding result for %s: %w", key, err)
	}

	c.mu.Lock()
	c.entries[key] = Entry{Fingerprint: fp, Result: data, StoredAt: time.Now().UTC()}
	c.dirty = true
	c.mu.Unlock()
	return nil
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Save writes the entries back through the backend if anything changed.
func (c *Cache) Save(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	data, err := json.Marshal(persisted{Version: storeVersion, Entries: c.entries})
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := c.backend.Save(ctx, data); err != nil {
		return fmt.Errorf("saving cache to %s: %w", c.backend, err)
	}
	c.dirty = false
	log.Printf("[cache] saved %d entries to %s", len(c.entries), c.backend)
	return nil
}
