package cartridge

import "github.com/thelolagemann/nescore/internal/types"

// sunsoft4 can map CHR ROM into the nametables, which After Burner uses
// for its background.
type sunsoft4 struct {
	c *Cart

	chr        [4]uint32 // 2 KiB pattern banks
	nt         [2]uint32 // 1 KiB nametable ROM banks
	ntRom      bool
	prg        uint32
	ramEnabled bool
}

func newSunsoft4(c *Cart) *sunsoft4 {
	return &sunsoft4{c: c}
}

func (m *sunsoft4) reset() {
	*m = sunsoft4{c: m.c}
	m.updateBanks()
}

func (m *sunsoft4) write(address uint16, value uint8) {
	c := m.c
	v := uint32(value)

	switch address & 0xf000 {
	case 0x8000, 0x9000, 0xa000, 0xb000:
		c.syncPpu()
		m.chr[(address>>12)&3] = v << 11
		m.updateChr()
	case 0xc000, 0xd000:
		c.syncPpu()
		m.nt[(address>>12)&1] = (v | 0x80) << 10
		m.updateNametables()
	case 0xe000:
		c.syncPpu()
		c.mirroring = Mirroring((value & 3) ^ 2)
		m.ntRom = value&0x10 != 0
		c.updatePpuRamMap()
		m.updateNametables()
	case 0xf000:
		m.ramEnabled = value&0x40 != 0
		m.prg = (v & 0x0f) << 14
		m.updatePrg()
	}
}

func (m *sunsoft4) updateBanks() {
	m.updatePrg()
	m.updateChr()
	m.updateNametables()
}

func (m *sunsoft4) updatePrg() {
	c := m.c
	if m.ramEnabled {
		c.mapPrgRam(3, 0, true)
	} else {
		c.unmapCpu(3)
	}
	c.mapPrg16k(4, m.prg)
	c.mapPrg16k(6, uint32(len(c.prg)-0x4000))
}

func (m *sunsoft4) updateChr() {
	for i, b := range m.chr {
		m.c.mapChr(i*2, 2, b)
	}
}

// updateNametables overlays the CHR ROM nametables on the CIRAM layout
// picked by the mirroring mode.
func (m *sunsoft4) updateNametables() {
	c := m.c
	if !m.ntRom || len(c.chr) == 0 {
		return
	}

	size := uint32(len(c.chr))
	for i, offset := range mirrorOffsets[c.mirroring&3] {
		bank := m.nt[offset>>10]
		c.mapNametable(i, chrRom, (bank%size)&^0x3ff, false)
	}
}

func (m *sunsoft4) Load(s *types.State) {
	for i := range m.chr {
		m.chr[i] = s.Read32()
	}
	m.nt[0] = s.Read32()
	m.nt[1] = s.Read32()
	m.ntRom = s.ReadBool()
	m.prg = s.Read32()
	m.ramEnabled = s.ReadBool()
}

func (m *sunsoft4) Save(s *types.State) {
	for _, b := range m.chr {
		s.Write32(b)
	}
	s.Write32(m.nt[0])
	s.Write32(m.nt[1])
	s.WriteBool(m.ntRom)
	s.Write32(m.prg)
	s.WriteBool(m.ramEnabled)
}
