package alerts

import (
	"sync"
	"time"
)

// DefaultStoreLimit bounds the recent-alert history when no limit is given.
const DefaultStoreLimit = 500

// Store keeps the most recent alerts in a bounded in-memory buffer. When the
// buffer is full the oldest alert is dropped.
type Store struct {
	mu    sync.RWMutex
	buf   []Alert
	limit int
}

// NewStore returns an empty alert buffer holding at most limit entries.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultStoreLimit
	}
	return &Store{limit: limit}
}

// Add records an alert, evicting the oldest entry when full.
func (s *Store) Add(alert Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) < s.limit {
		s.buf = append(s.buf, alert)
		return
	}
	copy(s.buf, s.buf[1:])
	s.buf[len(s.buf)-1] = alert
}

// Recent returns up to limit alerts, newest first. A non-positive limit
// returns everything.
func (s *Store) Recent(limit int) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.buf) {
		limit = len(s.buf)
	}
	out := make([]Alert, 0, limit)
	for i := len(s.buf) - 1; i >= len(s.buf)-limit; i-- {
		out = append(out, s.buf[i])
	}
	return out
}

// Since returns alerts created at or after ts, oldest first.
func (s *Store) Since(ts time.Time) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Alert, 0)
	for _, alert := range s.buf {
		if !alert.CreatedAt.Before(ts) {
			out = append(out, alert)
		}
	}
	return out
}

// Acknowledge marks an alert handled. It returns false when the id is
// unknown, typically because the alert was already evicted.
func (s *Store) Acknowledge(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.buf {
		if s.buf[i].ID == id {
			s.buf[i].Acknowledged = true
			return true
		}
	}
	return false
}

// Count returns the number of buffered alerts.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buf)
}

// Clear drops the buffered history.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
}
