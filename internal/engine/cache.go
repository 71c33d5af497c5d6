package engine

import "sync"

// cacheSlot holds at most one table. Storing a table for a different source
// replaces the previous one; there is no other eviction.
type cacheSlot struct {
	mu     sync.RWMutex
	source string
	table  *MovieTable
}

func (c *cacheSlot) get(source string) (*MovieTable, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.table == nil || c.source != source {
		return nil, false
	}
	return c.table, true
}

func (c *cacheSlot) put(source string, t *MovieTable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = source
	c.table = t
}

// cached reports the source currently held in the cache, if any.
func (l *Loader) cached() (source string, ok bool) {
	l.slot.mu.RLock()
	defer l.slot.mu.RUnlock()
	return l.slot.source, l.slot.table != nil
}
