package cartridge

import (
	"github.com/thelolagemann/nescore/internal/scheduler"
	"github.com/thelolagemann/nescore/internal/types"
)

// fme7 is the Sunsoft FME-7. Registers are written through a command
// port at 0x8000 and a parameter port at 0xa000. Its IRQ counter
// decrements every CPU cycle and fires when it wraps from 0 to 0xffff.
//
// The 5B expansion audio of the Famicom only variant is not emulated,
// writes to 0xc000-0xffff are ignored.
type fme7 struct {
	c *Cart

	command uint8

	chr [8]uint32
	prg [4]uint32

	ramEnabled  bool
	ramSelected bool

	// counter holds the counter value at syncCycle, the live value is
	// derived from the CPU cycle count while it runs
	counter        uint16
	syncCycle      uint32
	counterEnabled bool
	irqEnabled     bool
}

func newFME7(c *Cart) *fme7 {
	return &fme7{c: c}
}

func (m *fme7) reset() {
	*m = fme7{c: m.c}
	m.updateBanks()
}

func (m *fme7) write(address uint16, value uint8) {
	switch {
	case address < 0xa000:
		m.command = value & 0x0f
	case address < 0xc000:
		m.writeParameter(value)
	}
}

func (m *fme7) writeParameter(value uint8) {
	c := m.c
	v := uint32(value)

	switch cmd := m.command; {
	case cmd < 8:
		c.syncPpu()
		m.chr[cmd] = v << 10
		m.updateChr()
	case cmd == 8:
		m.ramEnabled = value&0x80 != 0
		m.ramSelected = value&0x40 != 0
		m.prg[0] = (v & 0x1f) << 13
		m.updatePrg()
	case cmd < 0xc:
		m.prg[cmd-8] = (v & 0x1f) << 13
		m.updatePrg()
	case cmd == 0xc:
		c.setMirroring(Mirroring((value & 3) ^ 2))
	case cmd == 0xd:
		c.bus.SetCartIrq(false)
		m.catchUp()
		m.counterEnabled = value&0x80 != 0
		m.irqEnabled = value&0x01 != 0
		m.scheduleIrq()
	case cmd == 0xe:
		m.catchUp()
		m.counter = m.counter&0xff00 | uint16(value)
		m.scheduleIrq()
	case cmd == 0xf:
		m.catchUp()
		m.counter = m.counter&0x00ff | uint16(value)<<8
		m.scheduleIrq()
	}
}

// catchUp brings the counter up to the current CPU cycle.
func (m *fme7) catchUp() {
	now := m.c.bus.CpuCycleCount()
	if m.counterEnabled {
		m.counter -= uint16(now - m.syncCycle)
	}
	m.syncCycle = now
}

// scheduleIrq schedules the wrap of the counter, if it can raise an IRQ.
func (m *fme7) scheduleIrq() {
	m.c.bus.Deschedule(scheduler.CartSetIrq)
	if m.counterEnabled && m.irqEnabled {
		m.c.bus.Schedule(uint32(m.counter)+1, scheduler.CartSetIrq)
	}
}

// irqFired re-arms the IRQ for the next wrap of the counter.
func (m *fme7) irqFired() {
	m.catchUp()
	if m.counterEnabled && m.irqEnabled {
		m.c.bus.Schedule(0x10000, scheduler.CartSetIrq)
	}
}

func (m *fme7) updateBanks() {
	m.updatePrg()
	m.updateChr()
}

func (m *fme7) updatePrg() {
	c := m.c
	switch {
	case !m.ramSelected:
		c.mapPrg8k(3, m.prg[0])
	case m.ramEnabled:
		c.mapPrgRam(3, 0, true)
	default:
		c.unmapCpu(3)
	}
	c.mapPrg8k(4, m.prg[1])
	c.mapPrg8k(5, m.prg[2])
	c.mapPrg8k(6, m.prg[3])
	c.mapPrg8k(7, uint32(len(c.prg)-0x2000))
}

func (m *fme7) updateChr() {
	for i, b := range m.chr {
		m.c.mapChr(i, 1, b)
	}
}

func (m *fme7) Load(s *types.State) {
	m.command = s.Read8()
	for i := range m.chr {
		m.chr[i] = s.Read32()
	}
	for i := range m.prg {
		m.prg[i] = s.Read32()
	}
	m.ramEnabled = s.ReadBool()
	m.ramSelected = s.ReadBool()
	m.counter = s.Read16()
	m.syncCycle = s.Read32()
	m.counterEnabled = s.ReadBool()
	m.irqEnabled = s.ReadBool()
}

func (m *fme7) Save(s *types.State) {
	s.Write8(m.command)
	for _, b := range m.chr {
		s.Write32(b)
	}
	for _, b := range m.prg {
		s.Write32(b)
	}
	s.WriteBool(m.ramEnabled)
	s.WriteBool(m.ramSelected)
	s.Write16(m.counter)
	s.Write32(m.syncCycle)
	s.WriteBool(m.counterEnabled)
	s.WriteBool(m.irqEnabled)
}
