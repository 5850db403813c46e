package app

import (
	"sync"
	"time"
)

// overlaps reports whether two half-open windows [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back bookings share an instant and do
// not overlap.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// calendarLocks serializes bookings per assignee so two concurrent writes
// for the same calendar cannot both pass the overlap check. Different
// assignees never contend.
type calendarLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newCalendarLocks() *calendarLocks {
	return &calendarLocks{locks: make(map[string]*sync.Mutex)}
}

func (c *calendarLocks) lock(assigneeID string) func() {
	c.mu.Lock()
	lock, ok := c.locks[assigneeID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[assigneeID] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
