package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mattsolo1/grove-casebook/pkg/handle"
	"github.com/mattsolo1/grove-casebook/pkg/metrics"
)

// Cache memoizes decoded document text by tree path. It is only emptied by
// Clear; the session clears it when the query becomes empty.
//
// Concurrent misses for the same path share one read. Each Clear starts a
// new epoch, and a read that began in an earlier epoch never stores its
// result, so a cleared cache cannot be repopulated with stale text.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
	epoch   uint64

	sf      singleflight.Group
	metrics *metrics.Metrics
}

// NewCache creates an empty cache. m may be nil.
func NewCache(m *metrics.Metrics) *Cache {
	return &Cache{
		entries: make(map[string]string),
		metrics: m,
	}
}

// Content returns the text of the file at path, reading it through f on a
// miss. Read failures are reported as handle.ErrIO.
func (c *Cache) Content(ctx context.Context, path string, f handle.File) (string, error) {
	// Fast path: check cache with read lock
	c.mu.RLock()
	text, ok := c.entries[path]
	epoch := c.epoch
	c.mu.RUnlock()
	if ok {
		c.metrics.RecordCacheHit()
		return text, nil
	}
	c.metrics.RecordCacheMiss()

	key := strconv.FormatUint(epoch, 10) + "\x00" + path
	ch := c.sf.DoChan(key, func() (interface{}, error) {
		// The shared read outlives any single caller's cancellation.
		text, err := handle.ReadText(context.WithoutCancel(ctx), f)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.epoch == epoch {
			c.entries[path] = text
		}
		c.mu.Unlock()
		return text, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", asIOError(path, res.Err)
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Clear drops every entry and starts a new epoch.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
	c.epoch++
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Has reports whether path is cached.
func (c *Cache) Has(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[path]
	return ok
}

func asIOError(path string, err error) error {
	if errors.Is(err, handle.ErrIO) {
		return err
	}
	return &handle.PathError{Op: "read", Path: path, Err: fmt.Errorf("%w: %w", handle.ErrIO, err)}
}
