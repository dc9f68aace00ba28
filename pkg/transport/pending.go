package transport

import (
	"context"
	"fmt"
	"sync"
)

// errSuperseded marks a dispatch whose registry slot was taken by a newer
// identical request while it was waiting to retry.
var errSuperseded = fmt.Errorf("%s - superseded by a newer identical request: %w", logPrefix, context.Canceled)

// pendingEntry is the cancellation handle of one in-flight dispatch.
type pendingEntry struct {
	cancel context.CancelFunc
}

// pendingRegistry holds at most one live entry per key.
type pendingRegistry struct {
	mu      sync.Mutex
	entries map[RequestKey]*pendingEntry
}

func newPendingRegistry() *pendingRegistry {
	return &pendingRegistry{entries: make(map[RequestKey]*pendingEntry)}
}

// register installs a new handle under key. Without prev, any live entry is
// canceled and replaced. With prev (the caller's own parked entry), the slot
// is taken over only if prev still owns it; otherwise errSuperseded.
func (p *pendingRegistry) register(key RequestKey, cancel context.CancelFunc, prev *pendingEntry) (*pendingEntry, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	superseded := false
	if cur, ok := p.entries[key]; ok {
		if prev != nil && cur != prev {
			return nil, false, errSuperseded
		}
		cur.cancel()
		delete(p.entries, key)
		PendingRequests.Dec()
		superseded = cur != prev
	} else if prev != nil {
		return nil, false, errSuperseded
	}

	entry := &pendingEntry{cancel: cancel}
	p.entries[key] = entry
	PendingRequests.Inc()
	return entry, superseded, nil
}

// park installs a waiting entry for a dispatch between retries. An occupied
// slot means a newer identical request exists, so the waiting one yields.
func (p *pendingRegistry) park(key RequestKey, cancel context.CancelFunc) (*pendingEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[key]; ok {
		return nil, errSuperseded
	}
	entry := &pendingEntry{cancel: cancel}
	p.entries[key] = entry
	PendingRequests.Inc()
	return entry, nil
}

// release removes key only while entry still owns it.
func (p *pendingRegistry) release(key RequestKey, entry *pendingEntry) bool {
	if entry == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.entries[key]; ok && cur == entry {
		delete(p.entries, key)
		PendingRequests.Dec()
		return true
	}
	return false
}

// cancel aborts and removes the entry for key, if any.
func (p *pendingRegistry) cancel(key RequestKey) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.entries[key]
	if !ok {
		return false
	}
	cur.cancel()
	delete(p.entries, key)
	PendingRequests.Dec()
	return true
}

// cancelAll aborts every entry and empties the registry.
func (p *pendingRegistry) cancelAll() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.entries)
	for key, entry := range p.entries {
		entry.cancel()
		delete(p.entries, key)
	}
	PendingRequests.Sub(float64(n))
	return n
}

func (p *pendingRegistry) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
