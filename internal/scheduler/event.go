package scheduler

import "fmt"

// EventType identifies the handler of a scheduled event. The numeric
// order is also the priority of events scheduled for the same cycle:
// lower values are executed first.
type EventType uint8

const (
	None EventType = iota
	ApuFrameCounter
	ApuSample
	ApuSync
	PpuScanline
	PpuStateUpdate
	PpuSyncA12
	PpuSync
	ScanlineCounterScanline
	ScanlineCounterEndFrame
	CpuNmi
	CartCpuIrqCounter
	CartSetIrq
	CpuSetIrq
	CpuClearIrq

	eventTypes
)

var eventNames = [eventTypes]string{
	"None",
	"ApuFrameCounter",
	"ApuSample",
	"ApuSync",
	"PpuScanline",
	"PpuStateUpdate",
	"PpuSyncA12",
	"PpuSync",
	"ScanlineCounterScanline",
	"ScanlineCounterEndFrame",
	"CpuNmi",
	"CartCpuIrqCounter",
	"CartSetIrq",
	"CpuSetIrq",
	"CpuClearIrq",
}

func (e EventType) String() string {
	if e < eventTypes {
		return eventNames[e]
	}
	return fmt.Sprintf("EventType(%d)", uint8(e))
}

// Event is a single entry of the queue.
type Event struct {
	cycle     uint32
	eventType EventType
}

// Cycle returns the absolute PPU cycle the event is due at.
func (e Event) Cycle() uint32 { return e.cycle }

// Type returns the kind of the event.
func (e Event) Type() EventType { return e.eventType }

// before reports whether e should be executed before o. Cycles are
// compared through their signed distance so that the ordering survives
// the wrap of the 32-bit cycle counter.
func (e Event) before(o Event) bool {
	if d := int32(e.cycle - o.cycle); d != 0 {
		return d < 0
	}
	return e.eventType < o.eventType
}
