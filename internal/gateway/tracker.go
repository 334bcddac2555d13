package gateway

import (
	"sync"
	"sync/atomic"
)

// defaultTrackerCapacity bounds the subject FIFO when no capacity is given.
const defaultTrackerCapacity = 64

// HandshakeTracker records client certificate subjects accepted during TLS
// handshakes. It keeps a monotonic handshake counter and a bounded FIFO of
// the most recent subjects; old entries are evicted when the bound is hit.
// Safe for concurrent use; readers see a consistent snapshot.
type HandshakeTracker struct {
	capacity int
	count    atomic.Uint64

	mu       sync.Mutex
	subjects []string
}

// NewHandshakeTracker creates a tracker retaining up to capacity subjects.
func NewHandshakeTracker(capacity int) *HandshakeTracker {
	if capacity <= 0 {
		capacity = defaultTrackerCapacity
	}
	return &HandshakeTracker{capacity: capacity}
}

// Record notes one accepted handshake.
func (t *HandshakeTracker) Record(subject string) {
	t.count.Add(1)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.subjects = append(t.subjects, subject)
	if excess := len(t.subjects) - t.capacity; excess > 0 {
		t.subjects = append(t.subjects[:0], t.subjects[excess:]...)
	}
}

// Count returns the total number of recorded handshakes, including evicted
// ones.
func (t *HandshakeTracker) Count() uint64 {
	return t.count.Load()
}

// Subjects returns a copy of the retained subjects, oldest first.
func (t *HandshakeTracker) Subjects() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.subjects))
	copy(out, t.subjects)
	return out
}
