package apu

import (
	"github.com/thelolagemann/nescore/internal/scheduler"
	"github.com/thelolagemann/nescore/internal/types"
)

// frameStep is the next action of the frame counter.
type frameStep uint8

const (
	// stepQuarter1 - first quarter frame, 7457 cycles into the sequence
	stepQuarter1 frameStep = iota
	// stepHalf1 - second quarter frame and first half frame
	stepHalf1
	// stepQuarter2 - third quarter frame
	stepQuarter2
	// stepIrq1 - 4-step mode, the frame IRQ is asserted for three cycles
	stepIrq1
	// stepHalf2 - 4-step mode, last quarter and half frame
	stepHalf2
	// stepIrq2 - 4-step mode, last cycle of the IRQ, the sequence restarts
	stepIrq2
	// stepHalf5 - 5-step mode, last quarter and half frame
	stepHalf5
	// stepRestart - a $4017 write taking effect
	stepRestart
)

// frameCounter sequences the quarter and half frame clocks of the
// channels. Each step schedules the next through the ApuFrameCounter
// event.
//
//	4-step: 7457 Q, 14913 QH, 22371 Q, 29828 I, 29829 QHI, 29830 I
//	5-step: 7457 Q, 14913 QH, 22371 Q, 37281 QH
type frameCounter struct {
	a *APU

	fiveStep   bool
	irqInhibit bool
	step       frameStep
	irq        bool
}

func (f *frameCounter) reset() {
	*f = frameCounter{a: f.a}
	f.schedule(stepQuarter1, 7457)
}

func (f *frameCounter) schedule(step frameStep, cycles uint32) {
	f.step = step
	f.a.bus.Schedule(cycles, scheduler.ApuFrameCounter)
}

// write handles $4017. The sequence restarts 3 or 4 CPU cycles later,
// depending on the alignment with the APU clock.
func (f *frameCounter) write(value uint8) {
	f.fiveStep = value&0x80 != 0
	f.irqInhibit = value&0x40 != 0
	if f.irqInhibit {
		f.setIrq(false)
	}

	delay := uint32(3)
	if f.a.bus.CpuCycleCount()&1 != 0 {
		delay = 4
	}
	f.a.bus.Deschedule(scheduler.ApuFrameCounter)
	f.schedule(stepRestart, delay)
}

func (f *frameCounter) raiseIrq() {
	if !f.irqInhibit {
		f.setIrq(true)
	}
}

func (f *frameCounter) setIrq(irq bool) {
	if f.irq != irq {
		f.irq = irq
		f.a.updateIrq()
	}
}

// Activate handles the ApuFrameCounter event.
func (f *frameCounter) Activate() {
	a := f.a

	switch f.step {
	case stepQuarter1:
		a.quarterFrame()
		f.schedule(stepHalf1, 7456)
	case stepHalf1:
		a.quarterFrame()
		a.halfFrame()
		f.schedule(stepQuarter2, 7458)
	case stepQuarter2:
		a.quarterFrame()
		if f.fiveStep {
			f.schedule(stepHalf5, 14910)
		} else {
			f.schedule(stepIrq1, 7457)
		}
	case stepIrq1:
		f.raiseIrq()
		f.schedule(stepHalf2, 1)
	case stepHalf2:
		f.raiseIrq()
		a.quarterFrame()
		a.halfFrame()
		f.schedule(stepIrq2, 1)
	case stepIrq2:
		f.raiseIrq()
		f.schedule(stepQuarter1, 7457)
	case stepHalf5:
		a.quarterFrame()
		a.halfFrame()
		f.schedule(stepQuarter1, 7458)
	case stepRestart:
		if f.fiveStep {
			a.quarterFrame()
			a.halfFrame()
		}
		f.schedule(stepQuarter1, 7457)
	}
}

func (f *frameCounter) save(s *types.State) {
	s.WriteBool(f.fiveStep)
	s.WriteBool(f.irqInhibit)
	s.Write8(uint8(f.step))
	s.WriteBool(f.irq)
}

func (f *frameCounter) load(s *types.State) {
	f.fiveStep = s.ReadBool()
	f.irqInhibit = s.ReadBool()
	f.step = frameStep(s.Read8())
	f.irq = s.ReadBool()
}
