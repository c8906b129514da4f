package service

import (
	"container/list"
	"sync"
	"time"

	"github.com/yndnr/tagurl-go/internal/core/domain"
)

// CounterGuard remembers the highest counter accepted per tag and rejects
// readings that do not move it forward. It is a bounded LRU: the least
// recently seen tags are evicted at capacity and entries expire after ttl,
// after which any counter for that tag is accepted again.
type CounterGuard struct {
	mu       sync.Mutex
	items    map[domain.TagID]*list.Element
	order    *list.List
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

type counterEntry struct {
	tagID   domain.TagID
	counter uint32
	seenAt  time.Time
}

// NewCounterGuard creates a guard. capacity <= 0 means 100,000 tags and
// ttl <= 0 means entries never expire.
func NewCounterGuard(capacity int, ttl time.Duration) *CounterGuard {
	if capacity <= 0 {
		capacity = 100000
	}
	return &CounterGuard{
		items:    make(map[domain.TagID]*list.Element),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Accept records counter for tagID if it is ahead of the last accepted one.
// It returns domain.ErrReplay otherwise. Check and update are atomic.
func (g *CounterGuard) Accept(tagID domain.TagID, counter uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if elem, ok := g.items[tagID]; ok {
		entry := elem.Value.(*counterEntry)
		if !g.expired(entry, now) {
			if counter <= entry.counter {
				g.order.MoveToFront(elem)
				return domain.ErrReplay
			}
			entry.counter = counter
			entry.seenAt = now
			g.order.MoveToFront(elem)
			return nil
		}
		g.order.Remove(elem)
		delete(g.items, tagID)
	}

	g.evictLocked(now)
	g.items[tagID] = g.order.PushFront(&counterEntry{tagID: tagID, counter: counter, seenAt: now})
	return nil
}

func (g *CounterGuard) expired(e *counterEntry, now time.Time) bool {
	return g.ttl > 0 && now.Sub(e.seenAt) >= g.ttl
}

// evictLocked drops expired entries from the back, then the least recently
// seen until there is room for one more.
func (g *CounterGuard) evictLocked(now time.Time) {
	for elem := g.order.Back(); elem != nil; {
		entry := elem.Value.(*counterEntry)
		if !g.expired(entry, now) {
			break
		}
		prev := elem.Prev()
		g.order.Remove(elem)
		delete(g.items, entry.tagID)
		elem = prev
	}
	for g.order.Len() >= g.capacity {
		oldest := g.order.Back()
		g.order.Remove(oldest)
		delete(g.items, oldest.Value.(*counterEntry).tagID)
	}
}
