package cartridge

import "github.com/thelolagemann/nescore/internal/scheduler"

// RAMBO-1 (Tengen 800032) is an MMC3 with two extra CHR registers, a
// third PRG register, and an IRQ counter that can alternatively be
// clocked every 4 CPU cycles.

// writeRambo1 decodes the RAMBO-1 registers.
func (m *mmc3) writeRambo1(address uint16, value uint8) {
	c := m.c
	odd := address&1 != 0

	switch {
	case address < 0xa000:
		if odd {
			m.setBank(value)
			return
		}
		c.syncPpu()
		m.bankSelect = value & 0x0f
		m.prgMode = (value >> 6) & 1
		m.chrMode = (value>>7)&1 | (value&0x20)>>4
		m.updateBanks()
	case address < 0xc000:
		if !odd {
			m.setMirroring(value)
		}
	case address < 0xe000:
		if !odd {
			m.reloadValue = value
			if m.irqMode == 1 {
				// keep the prescaler phase across the reschedule
				since := (c.bus.PpuCycleCount() - m.prescalerReset) % 12
				c.bus.Deschedule(scheduler.CartCpuIrqCounter)
				if m.irqActive() {
					c.bus.SchedulePpu(12-since, scheduler.CartCpuIrqCounter)
				}
			}
			return
		}

		m.irqMode = value & 1
		m.reload = true
		c.bus.Deschedule(scheduler.CartCpuIrqCounter)

		if m.irqMode == 0 {
			// a reload more than 16 CPU cycles after A12 fell only takes
			// effect on the next scanline, which is emulated by reloading
			// now with one extra count
			m.bump = m.reloadValue != 0 && int32(c.bus.PpuCycleCount()-(m.lastA12+48)) >= 0
			return
		}

		m.prescalerReset = c.bus.PpuCycleCount()
		if m.irqActive() {
			c.bus.Schedule(4, scheduler.CartCpuIrqCounter)
		}
	default:
		m.irqEnabled = odd
		c.bus.Deschedule(scheduler.CartSetIrq)
		c.bus.SetCartIrq(false)
	}
}

// clockCpuIrqCounter clocks the counter from the CPU cycle prescaler.
func (m *mmc3) clockCpuIrqCounter() {
	m.clockCounter()
	if m.irqMode == 1 && m.irqActive() {
		m.c.bus.Schedule(4, scheduler.CartCpuIrqCounter)
	}
}
