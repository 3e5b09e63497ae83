// Package scheduler provides the event queue that drives the emulator.
package scheduler

import (
	"fmt"
	"math"
	"strings"

	"github.com/thelolagemann/nescore/internal/types"
)

// Capacity is the maximum number of events that may be pending at once.
// The hardware never needs more than a handful, so running out of room
// is treated as a programming error.
const Capacity = 32

// Scheduler is a fixed capacity priority queue of events keyed by the
// absolute PPU cycle at which they should be executed.
//
// The queue is an array backed binary heap. Events that are cancelled
// with Deschedule or DescheduleAll are not removed from the heap, instead
// their type is set to None so that they are discarded when they reach
// the top. This keeps cancellation cheap for events that may or may not
// be pending at the time.
type Scheduler struct {
	heap  [Capacity]Event
	count int
	last  uint32 // cycle of the last popped event

	eventHandlers [eventTypes]func()
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// RegisterEvent registers the function to be called when an event of
// the given type is executed by DoEvent. Handlers are registered once so
// that scheduling an event never allocates.
func (s *Scheduler) RegisterEvent(eventType EventType, fn func()) {
	s.eventHandlers[eventType] = fn
}

// Schedule inserts an event to be executed at the given absolute cycle.
func (s *Scheduler) Schedule(cycle uint32, eventType EventType) {
	if s.count == Capacity {
		s.compact()
	}
	if s.count == Capacity {
		panic(fmt.Sprintf("scheduler: queue full scheduling %s at %d: %s", eventType, cycle, s))
	}

	i := s.count
	s.heap[i] = Event{cycle: cycle, eventType: eventType}
	s.count++

	// sift up
	for i > 0 {
		parent := (i - 1) / 2
		if !s.heap[i].before(s.heap[parent]) {
			break
		}
		s.heap[i], s.heap[parent] = s.heap[parent], s.heap[i]
		i = parent
	}
}

// Deschedule cancels the first pending event of the given type, returning
// true if one was found.
func (s *Scheduler) Deschedule(eventType EventType) bool {
	for i := 0; i < s.count; i++ {
		if s.heap[i].eventType == eventType {
			s.heap[i].eventType = None
			return true
		}
	}
	return false
}

// DescheduleAll cancels every pending event of the given type, returning
// true if at least one was found.
func (s *Scheduler) DescheduleAll(eventType EventType) bool {
	found := false
	for i := 0; i < s.count; i++ {
		if s.heap[i].eventType == eventType {
			s.heap[i].eventType = None
			found = true
		}
	}
	return found
}

// IsScheduled reports whether an event of the given type is pending.
func (s *Scheduler) IsScheduled(eventType EventType) bool {
	for i := 0; i < s.count; i++ {
		if s.heap[i].eventType == eventType {
			return true
		}
	}
	return false
}

// NextEventTime returns the cycle of the earliest pending event. The
// emulator always keeps at least one event pending, an empty queue
// reports the maximum distance into the future of the last popped event.
func (s *Scheduler) NextEventTime() uint32 {
	if s.count == 0 {
		return s.last + math.MaxInt32
	}
	return s.heap[0].cycle
}

// Len returns the number of entries in the heap, cancelled entries
// included.
func (s *Scheduler) Len() int {
	return s.count
}

// PopEvent removes the earliest event and returns its type. Cancelled
// events are returned as None.
func (s *Scheduler) PopEvent() EventType {
	if s.count == 0 {
		return None
	}

	top := s.heap[0].eventType
	s.last = s.heap[0].cycle
	s.count--
	s.heap[0] = s.heap[s.count]
	s.down(0)

	return top
}

// compact drops the cancelled entries from the heap.
func (s *Scheduler) compact() {
	n := 0
	for i := 0; i < s.count; i++ {
		if s.heap[i].eventType != None {
			s.heap[n] = s.heap[i]
			n++
		}
	}
	s.count = n
	for i := n/2 - 1; i >= 0; i-- {
		s.down(i)
	}
}

func (s *Scheduler) down(i int) {
	for {
		left := 2*i + 1
		if left >= s.count {
			break
		}
		smallest := left
		if right := left + 1; right < s.count && s.heap[right].before(s.heap[left]) {
			smallest = right
		}
		if !s.heap[smallest].before(s.heap[i]) {
			break
		}
		s.heap[i], s.heap[smallest] = s.heap[smallest], s.heap[i]
		i = smallest
	}
}

// DoEvent pops the earliest event and executes its handler.
func (s *Scheduler) DoEvent() {
	if e := s.PopEvent(); e != None {
		if fn := s.eventHandlers[e]; fn != nil {
			fn()
		}
	}
}

// Reset discards every pending event. Registered handlers are kept.
func (s *Scheduler) Reset() {
	s.count, s.last = 0, 0
}

var _ types.Stater = (*Scheduler)(nil)

// Load restores the pending events from the state.
func (s *Scheduler) Load(st *types.State) {
	s.count = int(st.Read8())
	if s.count > Capacity {
		s.count = Capacity
	}
	for i := 0; i < s.count; i++ {
		s.heap[i].cycle = st.Read32()
		s.heap[i].eventType = EventType(st.Read8())
	}
}

// Save writes the pending events, in heap order, to the state.
func (s *Scheduler) Save(st *types.State) {
	st.Write8(uint8(s.count))
	for i := 0; i < s.count; i++ {
		st.Write32(s.heap[i].cycle)
		st.Write8(uint8(s.heap[i].eventType))
	}
}

func (s *Scheduler) String() string {
	var b strings.Builder
	for i := 0; i < s.count; i++ {
		if i > 0 {
			b.WriteString("->")
		}
		fmt.Fprintf(&b, "%s:%d", s.heap[i].eventType, s.heap[i].cycle)
	}
	return b.String()
}
