package scheduler

import (
	"math"
	"math/rand"
	"testing"

	"github.com/thelolagemann/nescore/internal/types"
)

func drain(s *Scheduler) []Event {
	var events []Event
	for s.Len() > 0 {
		e := Event{cycle: s.NextEventTime()}
		e.eventType = s.PopEvent()
		events = append(events, e)
	}
	return events
}

func TestScheduler_PopOrder(t *testing.T) {
	s := NewScheduler()
	r := rand.New(rand.NewSource(1))

	for i := 0; i < Capacity; i++ {
		s.Schedule(uint32(r.Intn(64)), EventType(1+r.Intn(int(eventTypes)-1)))
	}

	events := drain(s)
	if len(events) != Capacity {
		t.Fatalf("expected %d events, got %d", Capacity, len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].before(events[i-1]) {
			t.Errorf("event %d (%s@%d) popped after %s@%d", i, events[i].eventType, events[i].cycle, events[i-1].eventType, events[i-1].cycle)
		}
	}
}

func TestScheduler_TieBreak(t *testing.T) {
	s := NewScheduler()
	s.Schedule(10, CpuClearIrq)
	s.Schedule(10, PpuScanline)
	s.Schedule(10, CpuNmi)
	s.Schedule(10, ApuFrameCounter)
	s.Schedule(9, CartSetIrq)

	expected := []EventType{CartSetIrq, ApuFrameCounter, PpuScanline, CpuNmi, CpuClearIrq}
	for i, want := range expected {
		if got := s.PopEvent(); got != want {
			t.Errorf("pop %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestScheduler_Wraparound(t *testing.T) {
	s := NewScheduler()
	s.Schedule(0x00000010, PpuScanline)
	s.Schedule(0xfffffff0, CpuNmi)

	if got := s.PopEvent(); got != CpuNmi {
		t.Errorf("expected event before the wrap to pop first, got %s", got)
	}
	if got := s.PopEvent(); got != PpuScanline {
		t.Errorf("expected event after the wrap to pop second, got %s", got)
	}
}

func TestScheduler_EmptyQueue(t *testing.T) {
	s := NewScheduler()
	if d := int32(s.NextEventTime()); d <= 0 {
		t.Errorf("expected an empty queue to report a future time, got %d", d)
	}

	s.Schedule(0xfffffff0, PpuScanline)
	s.PopEvent()
	if d := int32(s.NextEventTime() - 0xfffffff0); d != math.MaxInt32 {
		t.Errorf("expected the furthest time after the last event, got %d", d)
	}
}

func TestScheduler_Deschedule(t *testing.T) {
	s := NewScheduler()
	s.Schedule(5, CartSetIrq)
	s.Schedule(7, CartSetIrq)
	s.Schedule(6, PpuScanline)

	if !s.Deschedule(CartSetIrq) {
		t.Fatal("expected Deschedule to find a pending event")
	}
	if !s.IsScheduled(CartSetIrq) {
		t.Error("expected exactly one CartSetIrq to remain pending")
	}

	var live []EventType
	for s.Len() > 0 {
		if e := s.PopEvent(); e != None {
			live = append(live, e)
		}
	}
	if len(live) != 2 {
		t.Fatalf("expected 2 live events, got %v", live)
	}
}

func TestScheduler_DescheduleAll(t *testing.T) {
	s := NewScheduler()
	s.Schedule(1, PpuSyncA12)
	s.Schedule(2, ApuSample)
	s.Schedule(3, PpuSyncA12)
	s.Schedule(4, PpuSyncA12)
	s.Schedule(5, CpuNmi)

	if !s.DescheduleAll(PpuSyncA12) {
		t.Fatal("expected DescheduleAll to find pending events")
	}
	if s.DescheduleAll(PpuSyncA12) {
		t.Error("expected a second DescheduleAll to find nothing")
	}

	var live []EventType
	for s.Len() > 0 {
		if e := s.PopEvent(); e != None {
			live = append(live, e)
		}
	}
	if len(live) != 2 || live[0] != ApuSample || live[1] != CpuNmi {
		t.Errorf("expected [ApuSample CpuNmi], got %v", live)
	}
}

func TestScheduler_DoEvent(t *testing.T) {
	s := NewScheduler()
	var fired []EventType
	s.RegisterEvent(CpuNmi, func() { fired = append(fired, CpuNmi) })
	s.RegisterEvent(CpuSetIrq, func() { fired = append(fired, CpuSetIrq) })

	s.Schedule(3, CpuSetIrq)
	s.Schedule(3, CpuNmi)
	s.Deschedule(CpuSetIrq)
	s.Schedule(4, CpuSetIrq)

	for s.Len() > 0 {
		s.DoEvent()
	}

	if len(fired) != 2 || fired[0] != CpuNmi || fired[1] != CpuSetIrq {
		t.Errorf("unexpected handler order %v", fired)
	}
}

func TestScheduler_Overflow(t *testing.T) {
	s := NewScheduler()
	for i := 0; i < Capacity; i++ {
		s.Schedule(uint32(i), ApuSample)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected scheduling into a full queue to panic")
		}
	}()
	s.Schedule(0, ApuSample)
}

func TestScheduler_State(t *testing.T) {
	s := NewScheduler()
	s.Schedule(100, PpuScanline)
	s.Schedule(50, ApuFrameCounter)
	s.Schedule(75, CartSetIrq)
	s.Deschedule(CartSetIrq)

	st := types.NewState()
	s.Save(st)

	restored := NewScheduler()
	restored.Load(types.StateFromBytes(st.Bytes()))

	if restored.String() != s.String() {
		t.Errorf("expected %q, got %q", s.String(), restored.String())
	}
}

func TestScheduler_CompactsCancelled(t *testing.T) {
	s := NewScheduler()
	for i := 0; i < Capacity; i++ {
		s.Schedule(uint32(100+i), PpuSyncA12)
		s.DescheduleAll(PpuSyncA12)
	}
	if s.Len() != Capacity {
		t.Fatalf("expected %d entries, got %d", Capacity, s.Len())
	}

	s.Schedule(50, PpuScanline)
	if s.Len() != 1 {
		t.Fatalf("expected cancelled entries to be dropped, got %d entries", s.Len())
	}
	if s.NextEventTime() != 50 || s.PopEvent() != PpuScanline {
		t.Error("unexpected event after compaction")
	}
}
