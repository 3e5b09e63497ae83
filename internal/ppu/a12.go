package ppu

import (
	"github.com/thelolagemann/nescore/internal/cartridge"
	"github.com/thelolagemann/nescore/internal/scheduler"
)

// setA12 drives A12 of the PPU address bus at the given bus PPU cycle,
// reporting the edges the cartridge watches.
func (p *PPU) setA12(high bool, cycle uint32) {
	if high == p.a12 {
		return
	}
	p.a12 = high

	switch p.bus.ChrA12Sensitivity() {
	case cartridge.AllEdges:
		if high {
			p.bus.ChrA12Rising(p.a12LowSince)
		} else {
			p.bus.ChrA12Falling()
		}
	case cartridge.RisingEdgeSmoothed:
		if high && cycle-p.a12LowSince >= a12Filter {
			p.bus.ChrA12Rising(p.a12LowSince)
		}
	case cartridge.FallingEdgeDivided:
		if !high {
			p.bus.ChrA12Falling()
		}
	}

	if !high {
		p.a12LowSince = cycle
	}
}

// a12At returns the level of A12 driven by the fetch starting at dot d
// of the current line. fetch is false when nothing is put on the bus at
// d, known is false when the level depends on a sprite evaluation that
// hasn't happened yet.
func (p *PPU) a12At(d int) (level, fetch, known bool) {
	phase := (d - 1) & 7
	switch {
	case d == 0 || phase&1 != 0:
		return false, false, true
	case d <= 256, d >= 321 && d <= 336:
		return phase >= 4 && p.bgTable != 0, true, true
	case d <= 320:
		if phase < 4 {
			return false, true, true
		}
		switch {
		case !p.largeSprites:
			return p.spriteTable != 0, true, true
		case p.dot > 256:
			return p.spriteAddress((d-257)>>3)&0x1000 != 0, true, true
		case p.allLargeHigh:
			return true, true, true
		}
		return false, true, false
	case d <= 340:
		return false, true, true
	}
	return false, false, true
}

// armA12 schedules PpuSyncA12 on the dot of the next A12 edge of the
// current line the cartridge will act on, so that the PPU is in sync
// when it does.
func (p *PPU) armA12() {
	p.bus.DescheduleAll(scheduler.PpuSyncA12)

	sensitivity := p.bus.ChrA12Sensitivity()
	if sensitivity == cartridge.None || !p.rendering() || !p.renderLine() {
		return
	}

	pulses := p.bus.A12PulsesUntilSync()
	if pulses == 0 {
		pulses = 1
	}
	level, lowSince := p.a12, p.a12LowSince

	for d := p.dot; d < p.lineLength(); d++ {
		l, fetch, known := p.a12At(d)
		if !known {
			p.scheduleAt(d+1, scheduler.PpuSyncA12)
			return
		}
		if !fetch || l == level {
			continue
		}
		level = l
		cycle := p.scanlineStart + uint32(d)

		switch sensitivity {
		case cartridge.AllEdges:
			p.scheduleAt(d+1, scheduler.PpuSyncA12)
			return
		case cartridge.RisingEdgeSmoothed:
			if l && cycle-lowSince >= a12Filter {
				p.scheduleAt(d+1, scheduler.PpuSyncA12)
				return
			}
		case cartridge.FallingEdgeDivided:
			if !l {
				if pulses--; pulses == 0 {
					p.scheduleAt(d+1, scheduler.PpuSyncA12)
					return
				}
			}
		}

		if !l {
			lowSince = cycle
		}
	}
}
