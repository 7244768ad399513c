package service

import "sync"

// TicketLocks serializes mutations per ticket. The sweep and a
// user-triggered decide operation on the same ticket must not interleave;
// at most one mutation proceeds per ticket at a time.
type TicketLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTicketLocks creates the lock registry.
func NewTicketLocks() *TicketLocks {
	return &TicketLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for a ticket id, creating it on first use.
// Entries are never evicted; ticket cardinality is low.
func (l *TicketLocks) Lock(ticketID string) func() {
	l.mu.Lock()
	m, ok := l.locks[ticketID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[ticketID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
