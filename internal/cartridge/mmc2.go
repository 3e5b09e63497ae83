package cartridge

import "github.com/thelolagemann/nescore/internal/types"

// mmc2 (PxROM) switches each 4 KiB pattern table between two banks when
// the PPU fetches tile 0xFD or 0xFE from it.
type mmc2 struct {
	c *Cart

	prg uint32
	// chr[table][latch]
	chr   [2][2]uint32
	latch [2]uint8
}

func newMMC2(c *Cart) *mmc2 {
	return &mmc2{c: c}
}

func (m *mmc2) reset() {
	m.prg = 0
	m.chr = [2][2]uint32{}
	m.latch = [2]uint8{}
	m.updateBanks()
}

func (m *mmc2) write(address uint16, value uint8) {
	c := m.c
	bank := uint32(value&0x1f) << 12

	switch address >> 12 {
	case 0xa:
		m.prg = uint32(value&0x0f) << 13
		m.updatePrg()
		return
	case 0xb:
		c.syncPpu()
		m.chr[0][0] = bank
	case 0xc:
		c.syncPpu()
		m.chr[0][1] = bank
	case 0xd:
		c.syncPpu()
		m.chr[1][0] = bank
	case 0xe:
		c.syncPpu()
		m.chr[1][1] = bank
	case 0xf:
		if value&1 != 0 {
			c.setMirroring(Horizontal)
		} else {
			c.setMirroring(Vertical)
		}
		return
	default:
		return
	}
	m.updateChr()
}

// ppuRead updates the latches after the fetch that triggered them.
func (m *mmc2) ppuRead(address uint16) {
	switch {
	case address == 0x0fd8:
		m.setLatch(0, 0)
	case address == 0x0fe8:
		m.setLatch(0, 1)
	case address&0xfff8 == 0x1fd8:
		m.setLatch(1, 0)
	case address&0xfff8 == 0x1fe8:
		m.setLatch(1, 1)
	}
}

func (m *mmc2) setLatch(table int, v uint8) {
	if m.latch[table] != v {
		m.latch[table] = v
		m.updateChr()
	}
}

func (m *mmc2) updateBanks() {
	m.updatePrg()
	m.updateChr()
}

func (m *mmc2) updatePrg() {
	c := m.c
	size := uint32(len(c.prg))
	c.mapPrg8k(4, m.prg)
	c.mapPrg8k(5, size-0x6000)
	c.mapPrg8k(6, size-0x4000)
	c.mapPrg8k(7, size-0x2000)
}

func (m *mmc2) updateChr() {
	m.c.mapChr(0, 4, m.chr[0][m.latch[0]])
	m.c.mapChr(4, 4, m.chr[1][m.latch[1]])
}

func (m *mmc2) Load(s *types.State) {
	m.prg = s.Read32()
	for i := range m.chr {
		m.chr[i][0] = s.Read32()
		m.chr[i][1] = s.Read32()
	}
	m.latch[0] = s.Read8() & 1
	m.latch[1] = s.Read8() & 1
}

func (m *mmc2) Save(s *types.State) {
	s.Write32(m.prg)
	for i := range m.chr {
		s.Write32(m.chr[i][0])
		s.Write32(m.chr[i][1])
	}
	s.Write8(m.latch[0])
	s.Write8(m.latch[1])
}
