package availability

import (
	"fmt"
	"sync"
	"time"

	"salonbook/internal/models"
)

// pruneThreshold is the number of tracked days above which past days are dropped.
const pruneThreshold = 1024

// dayGeneration counts invalidations of one staff member's day. Its mutex is held
// across the cache write or delete so a slot list read before a booking can never
// be stored after that booking's invalidation.
type dayGeneration struct {
	mu   sync.Mutex
	gen  uint64
	date time.Time
}

type generations struct {
	mu   sync.Mutex
	days map[string]*dayGeneration
}

func (g *generations) day(date time.Time, staffID int64, today time.Time) *dayGeneration {
	key := fmt.Sprintf("%s:%d", date.Format(models.DateLayout), staffID)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.days == nil {
		g.days = make(map[string]*dayGeneration)
	}
	if d, ok := g.days[key]; ok {
		return d
	}
	if len(g.days) >= pruneThreshold {
		for k, d := range g.days {
			if d.date.Before(today) {
				delete(g.days, k)
			}
		}
	}
	d := &dayGeneration{date: date}
	g.days[key] = d
	return d
}

func (d *dayGeneration) current() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}
