package cartridge

import "github.com/thelolagemann/nescore/internal/types"

// board identifies one of the discrete logic boards, which all consist
// of a latch or two selecting 16/32 KiB PRG and 4/8 KiB CHR banks.
type board uint8

const (
	nrom board = iota
	uxrom
	cnrom
	axrom
	colorDreams
	colorDreamsAGCI
	cprom
	bnrom
	nina001
	caltron
	rumbleStation
	gxrom
	bf9093
	nina03
)

// discrete implements the latch based boards. Bank registers hold byte
// offsets into PRG/CHR memory.
type discrete struct {
	c     *Cart
	board board

	prg, prgOuter uint32
	chr, chrOuter uint32
	chrHigh       uint32 // NINA-001 upper 4 KiB bank, CPROM upper bank
}

func newDiscrete(c *Cart, b board) *discrete {
	if b == cprom && len(c.chrRam) < 0x4000 {
		c.chrRam = make([]byte, 0x4000)
	}
	return &discrete{c: c, board: b}
}

func (d *discrete) reset() {
	d.prg, d.prgOuter, d.chr, d.chrOuter, d.chrHigh = 0, 0, 0, 0, 0
	switch d.board {
	case nina001:
		d.chrHigh = 0x1000
	case axrom:
		d.c.mirroring = SingleScreenLow
	}
	d.updateBanks()
}

func (d *discrete) updateBanks() {
	c := d.c

	switch d.board {
	case uxrom, bf9093:
		c.mapPrg16k(4, d.prg)
		c.mapPrg16k(6, uint32(len(c.prg)-0x4000))
	case nrom, cnrom, cprom:
		c.mapPrg16k(4, 0)
		c.mapPrg16k(6, uint32(len(c.prg)-0x4000))
	default:
		c.mapPrg32k(d.prgOuter | d.prg)
	}

	switch d.board {
	case cprom:
		c.mapChr(0, 4, 0)
		c.mapChr(4, 4, d.chrHigh)
	case nina001:
		c.mapChr(0, 4, d.chr)
		c.mapChr(4, 4, d.chrHigh)
	default:
		c.mapChr(0, 8, d.chrOuter|d.chr)
	}
}

func (d *discrete) write(address uint16, value uint8) {
	c := d.c
	v := uint32(value)

	switch d.board {
	case uxrom:
		d.prg = v << 14
	case bf9093:
		if address < 0xc000 {
			return
		}
		d.prg = v << 14
	case cnrom:
		c.syncPpu()
		d.chr = (v & 0x03) << 13
	case axrom:
		if value&0x10 != 0 {
			c.setMirroring(SingleScreenHigh)
		} else {
			c.setMirroring(SingleScreenLow)
		}
		d.prg = (v & 0x07) << 15
	case colorDreams, colorDreamsAGCI:
		if d.board == colorDreamsAGCI {
			// AGCI boards pull D0 high
			v |= 1
		}
		v &= uint32(c.CpuRead(address))
		c.syncPpu()
		d.prg = (v & 0x03) << 15
		d.chr = (v & 0xf0) << 9
	case cprom:
		c.syncPpu()
		d.chrHigh = (v & 0x03) << 12
	case bnrom:
		d.prg = (v & 0x03) << 15
	case caltron:
		// the inner CHR bank only responds while the outer PRG bank
		// enables it
		if d.prgOuter < 4<<15 {
			return
		}
		c.syncPpu()
		d.chr = (v & 0x03) << 13
	case rumbleStation:
		c.syncPpu()
		d.chr = (v & 0x70) << 9
		d.prg = (v & 0x01) << 15
	case gxrom:
		c.syncPpu()
		d.prg = (v & 0x30) << 11
		d.chr = (v & 0x03) << 13
	default:
		return
	}

	d.updateBanks()
}

func (d *discrete) writeLow(address uint16, value uint8) bool {
	c := d.c
	v := uint32(value)

	switch d.board {
	case nina001:
		switch address {
		case 0x7ffd:
			d.prg = (v & 0x01) << 15
		case 0x7ffe:
			c.syncPpu()
			d.chr = (v & 0x0f) << 12
		case 0x7fff:
			c.syncPpu()
			d.chrHigh = (v & 0x0f) << 12
		default:
			return false
		}
		d.updateBanks()
		// the registers overlay RAM, the write goes through to it
		return false
	case nina03:
		if address&0xe100 != 0x4100 {
			return true
		}
		c.syncPpu()
		d.prg = (v & 0x08) << 12
		d.chr = (v & 0x07) << 13
	case caltron:
		if address&0xf800 != 0x6000 {
			return true
		}
		c.syncPpu()
		if address&0x20 != 0 {
			c.setMirroring(Horizontal)
		} else {
			c.setMirroring(Vertical)
		}
		d.chrOuter = uint32(address&0x18) << 12
		d.prgOuter = uint32(address&0x07) << 15
	case rumbleStation:
		if address < 0x6000 {
			return true
		}
		c.syncPpu()
		d.chrOuter = (v & 0xf0) << 12
		d.prgOuter = (v & 0x0f) << 16
	default:
		return false
	}

	d.updateBanks()
	return true
}

// write2 models the boards whose latch only keeps the last of two
// consecutive writes.
func (d *discrete) write2(address uint16, first, second uint8) {
	switch d.board {
	case uxrom, bnrom:
		d.c.bus.TickCpuWrite()
		d.c.CpuWrite(address, second)
	default:
		d.c.CpuWrite(address, first)
		d.c.bus.TickCpuWrite()
		d.c.CpuWrite(address, second)
	}
}

func (d *discrete) Load(s *types.State) {
	d.prg = s.Read32()
	d.prgOuter = s.Read32()
	d.chr = s.Read32()
	d.chrOuter = s.Read32()
	d.chrHigh = s.Read32()
}

func (d *discrete) Save(s *types.State) {
	s.Write32(d.prg)
	s.Write32(d.prgOuter)
	s.Write32(d.chr)
	s.Write32(d.chrOuter)
	s.Write32(d.chrHigh)
}
