package highway

import "sync"

// fallbackCache is the process-local, non-persistent stand-in used when the
// backing store is unreachable. It mirrors the remote bounding policy: newest
// first, trimmed to recordCap per session. It is not shared across processes
// and is lost on restart.
type fallbackCache struct {
	mu       sync.Mutex
	sessions map[string][]ContextRecord
}

func newFallbackCache() *fallbackCache {
	return &fallbackCache{sessions: make(map[string][]ContextRecord)}
}

func (c *fallbackCache) push(record ContextRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := append([]ContextRecord{record}, c.sessions[record.SessionID]...)
	if len(records) > recordCap {
		records = records[:recordCap]
	}
	c.sessions[record.SessionID] = records
}

func (c *fallbackCache) recent(sessionID string, limit int) []ContextRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := c.sessions[sessionID]
	if limit > len(records) {
		limit = len(records)
	}
	out := make([]ContextRecord, limit)
	copy(out, records[:limit])
	return out
}
