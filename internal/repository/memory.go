package repository

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	slots     []string
	expiresAt time.Time
}

type memoryCounter struct {
	count     int
	expiresAt time.Time
}

// MemoryCache is the single-process stand-in for RedisCache.
type MemoryCache struct {
	ttl      time.Duration
	slots    sync.Map // string -> memoryEntry
	mu       sync.Mutex
	counters map[string]*memoryCounter
	now      func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:      ttl,
		counters: make(map[string]*memoryCounter),
		now:      time.Now,
	}
}

func (m *MemoryCache) GetSlots(_ context.Context, date time.Time, staffID, serviceID int64) ([]string, bool, error) {
	key := slotKey(date, staffID, serviceID)
	val, ok := m.slots.Load(key)
	if !ok {
		return nil, false, nil
	}
	entry := val.(memoryEntry)
	if m.now().After(entry.expiresAt) {
		m.slots.Delete(key)
		return nil, false, nil
	}
	return append([]string(nil), entry.slots...), true, nil
}

func (m *MemoryCache) SetSlots(_ context.Context, date time.Time, staffID, serviceID int64, slots []string) error {
	m.slots.Store(slotKey(date, staffID, serviceID), memoryEntry{
		slots:     append([]string{}, slots...),
		expiresAt: m.now().Add(m.ttl),
	})
	return nil
}

func (m *MemoryCache) InvalidateDay(_ context.Context, date time.Time, staffID int64) error {
	prefix := slotDayPrefix(date, staffID)
	m.slots.Range(func(k, _ any) bool {
		if key := k.(string); strings.HasPrefix(key, prefix) {
			m.slots.Delete(key)
		}
		return true
	})
	return nil
}

func (m *MemoryCache) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	c, ok := m.counters[key]
	if !ok || now.After(c.expiresAt) {
		c = &memoryCounter{expiresAt: now.Add(window)}
		m.counters[key] = c
	}
	c.count++
	return c.count <= limit, nil
}
