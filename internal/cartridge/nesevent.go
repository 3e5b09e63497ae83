package cartridge

import (
	"github.com/thelolagemann/nescore/internal/scheduler"
	"github.com/thelolagemann/nescore/internal/types"
)

// nesEventTimeout is the number of CPU cycles of the competition timer
// with all DIP switches off, a little over 5 minutes.
const nesEventTimeout = 0x2800000

// nesEvent is the Nintendo World Championships 1990 board. An MMC1 sits
// behind a first 128 KiB PRG chip switched in 32 KiB banks, and a timer
// raises an IRQ when the competition time runs out.
type nesEvent struct {
	*mmc1

	// the board starts up with the first 32 KiB locked in, until the IRQ
	// bit of CHR register 0 has been toggled twice
	initState uint8

	prgMode2   uint8
	prgOuter   uint32
	irqEnabled bool
}

func newNesEvent(c *Cart) *nesEvent {
	return &nesEvent{mmc1: newMMC1(c, false)}
}

func (m *nesEvent) reset() {
	m.mmc1.reset()
	m.initState = 2
	m.prgMode2 = 0
	m.prgOuter = 0
	m.irqEnabled = false
	m.updateBanks()
}

func (m *nesEvent) write(address uint16, value uint8) {
	v, ok := m.shiftIn(value)
	if !ok {
		if value&0x80 != 0 {
			m.updatePrg()
		}
		return
	}

	c := m.c
	switch address >> 13 {
	case 4:
		m.prgMode = (v >> 2) & 3
		m.updatePrg()
		c.setMirroring(Mirroring(v & 3))
	case 5:
		irq := v&0x10 == 0
		if irq != m.irqEnabled {
			m.irqEnabled = irq
			if m.initState > 0 {
				m.initState--
			}
			if irq {
				c.bus.Schedule(nesEventTimeout, scheduler.CartSetIrq)
			} else {
				c.bus.Deschedule(scheduler.CartSetIrq)
				c.bus.SetCartIrq(false)
			}
		}
		m.prgMode2 = (v & 0x40) >> 6
		m.prgOuter = uint32(v&0x06) << 14
		m.updatePrg()
	case 7:
		m.ramEnabled = v&0x10 == 0
		m.prgBank = (uint32(v&0x0f) << 14) & 0x1ffff
		m.updatePrg()
	}
}

func (m *nesEvent) updateBanks() {
	m.c.mapChr(0, 8, 0)
	m.updatePrg()
}

func (m *nesEvent) updatePrg() {
	c := m.c
	if m.initState != 0 {
		c.mapPrg32k(0)
		return
	}

	if m.ramEnabled {
		c.mapPrgRam(3, 0, true)
	} else {
		c.unmapCpu(3)
	}

	if m.prgMode2 == 0 {
		c.mapPrg32k(m.prgOuter)
		return
	}
	// the second chip, banked as a regular MMC1
	m.mapPrg(0x20000, m.prgBank, m.prgMode)
}

func (m *nesEvent) Load(s *types.State) {
	m.mmc1.Load(s)
	m.initState = s.Read8()
	m.prgMode2 = s.Read8()
	m.prgOuter = s.Read32()
	m.irqEnabled = s.ReadBool()
}

func (m *nesEvent) Save(s *types.State) {
	m.mmc1.Save(s)
	s.Write8(m.initState)
	s.Write8(m.prgMode2)
	s.Write32(m.prgOuter)
	s.WriteBool(m.irqEnabled)
}
