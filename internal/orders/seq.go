package orders

import (
	"sync"
	"time"
)

// keyCounterBits leaves room for 65536 creations inside one millisecond
// before keys spill into the next millisecond slot.
const keyCounterBits = 16

// Sequencer hands out creation keys: wall-clock milliseconds shifted left
// with a tie-break counter in the low bits. Keys are strictly increasing
// across concurrent callers, so two orders created in the same millisecond
// still have an unambiguous front-to-back order. Ordering by a bare
// timestamp cannot give that.
type Sequencer struct {
	mu   sync.Mutex
	last int64

	// now is swappable for tests; nil means time.Now.
	now func() time.Time
}

// Next returns a creation key strictly greater than every key returned
// before it, in call order.
func (s *Sequencer) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	clock := time.Now
	if s.now != nil {
		clock = s.now
	}
	key := clock().UnixMilli() << keyCounterBits
	if key <= s.last {
		key = s.last + 1
	}
	s.last = key
	return key
}
