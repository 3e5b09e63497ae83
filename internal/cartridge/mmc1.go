package cartridge

import "github.com/thelolagemann/nescore/internal/types"

// mmc1 is the Nintendo MMC1 (SxROM). Registers are loaded serially, one
// bit per write, through a 5 bit shift register.
//
// Boards with 512 KiB PRG (SUROM/SXROM) use the high bit of the CHR bank
// registers to select a 256 KiB PRG plane, and boards with several PRG
// RAM banks (SOROM/SXROM) select the RAM bank the same way. As the CHR
// register in use depends on which pattern table the PPU is fetching
// from, switching planes follows PPU A12.
type mmc1 struct {
	c *Cart

	// fixedPrg is set for SEROM style boards that ignore the PRG bank.
	fixedPrg bool

	shift      uint8
	shiftCount uint8

	prgMode uint8
	chrMode uint8

	chrBank0, chrBank1 uint32
	prgBank            uint32
	prgPlane0          uint32
	prgPlane1          uint32
	ramBank0, ramBank1 int
	ramEnabled         bool
}

func newMMC1(c *Cart, fixedPrg bool) *mmc1 {
	return &mmc1{c: c, fixedPrg: fixedPrg}
}

func (m *mmc1) reset() {
	m.shift, m.shiftCount = 0, 0
	m.prgMode = 3
	m.chrMode = 0
	m.chrBank0, m.chrBank1 = 0, 0
	m.prgBank = 0
	m.prgPlane0, m.prgPlane1 = 0, 0
	m.ramBank0, m.ramBank1 = 0, 0
	m.ramEnabled = true
	m.updateBanks()
}

func (m *mmc1) write(address uint16, value uint8) {
	if v, ok := m.shiftIn(value); ok {
		m.writeRegister(address, v)
	} else if value&0x80 != 0 {
		m.updatePrg()
	}
}

// shiftIn feeds a bit into the shift register, returning the register
// value once five bits have been written.
func (m *mmc1) shiftIn(value uint8) (uint8, bool) {
	if value&0x80 != 0 {
		m.shift, m.shiftCount = 0, 0
		// resetting the shift register also ORs the control register
		// with 0x0c
		m.prgMode = 3
		return 0, false
	}

	m.shift |= (value & 1) << m.shiftCount
	m.shiftCount++
	if m.shiftCount < 5 {
		return 0, false
	}

	v := m.shift
	m.shift, m.shiftCount = 0, 0
	return v, true
}

// write2 ignores the second write of a read-modify-write instruction,
// which lands on the cycle after the first.
func (m *mmc1) write2(address uint16, first, _ uint8) {
	m.c.CpuWrite(address, first)
	m.c.bus.TickCpuWrite()
}

func (m *mmc1) writeRegister(address uint16, value uint8) {
	c := m.c

	switch address >> 13 {
	case 4: // control
		c.syncPpu()
		m.chrMode = (value >> 4) & 1
		m.prgMode = (value >> 2) & 3
		m.updateChr()
		m.updatePrg()
		c.setMirroring(Mirroring(value & 3))
	case 5: // CHR bank 0
		c.syncPpu()
		m.chrBank0 = uint32(value) << 12
		m.prgPlane0, m.ramBank0 = m.planeBits(value)
		m.updateSensitivity()
		m.updateChr()
		m.updatePrg()
	case 6: // CHR bank 1
		c.syncPpu()
		m.chrBank1 = uint32(value) << 12
		m.prgPlane1, m.ramBank1 = m.planeBits(value)
		m.updateSensitivity()
		m.updateChr()
		m.updatePrg()
	case 7: // PRG bank
		m.ramEnabled = value&0x10 == 0
		m.prgBank = (uint32(value&0x0f) << 14) & c.prgMask
		m.updatePrg()
	}
}

// planeBits decodes the PRG plane and RAM bank carried by a CHR bank
// register.
func (m *mmc1) planeBits(value uint8) (plane uint32, ramBank int) {
	if len(m.c.prg) == 0x80000 {
		plane = uint32(value&0x10) << 14
	}
	switch {
	case m.c.ramBanks > 2:
		ramBank = int(value>>2) & 3
	case m.c.ramBanks > 1:
		ramBank = int(value>>3) & 1
	}
	return plane, ramBank
}

// updateSensitivity asks for every A12 transition while the two CHR
// registers select different planes or RAM banks.
func (m *mmc1) updateSensitivity() {
	if m.prgPlane0 != m.prgPlane1 || m.ramBank0 != m.ramBank1 {
		m.c.setSensitivity(AllEdges)
	} else {
		m.c.setSensitivity(None)
	}
}

func (m *mmc1) a12Rising(uint32) {
	if m.c.sensitivity == AllEdges {
		m.updatePrg()
	}
}

func (m *mmc1) a12Falling() {
	if m.c.sensitivity == AllEdges {
		m.updatePrg()
	}
}

func (m *mmc1) updateBanks() {
	m.updateChr()
	m.updatePrg()
}

func (m *mmc1) updateChr() {
	c := m.c
	if m.chrMode == 0 {
		c.mapChr(0, 8, m.chrBank0&^0x1fff)
		return
	}
	c.mapChr(0, 4, m.chrBank0)
	c.mapChr(4, 4, m.chrBank1)
}

func (m *mmc1) updatePrg() {
	c := m.c

	plane, ramBank := m.prgPlane0, m.ramBank0
	if c.chrA12 {
		plane, ramBank = m.prgPlane1, m.ramBank1
	}

	if m.ramEnabled {
		c.mapPrgRam(3, ramBank, true)
	} else {
		c.unmapCpu(3)
	}

	m.mapPrg(plane, m.prgBank, m.prgMode)
}

// mapPrg maps the PRG windows for the given plane, bank and mode. The
// last bank of a plane is the last bank of the ROM for boards with less
// than 256 KiB.
func (m *mmc1) mapPrg(plane, bank uint32, mode uint8) {
	c := m.c
	if m.fixedPrg {
		c.mapPrg32k(0)
		return
	}

	planeSize := uint32(len(c.prg))
	if planeSize > 0x40000 {
		planeSize = 0x40000
	}

	switch mode {
	case 0, 1:
		c.mapPrg32k(plane | (bank &^ 0x7fff))
	case 2:
		c.mapPrg16k(4, plane)
		c.mapPrg16k(6, plane|bank)
	case 3:
		c.mapPrg16k(4, plane|bank)
		c.mapPrg16k(6, plane|(planeSize-0x4000))
	}
}

func (m *mmc1) Load(s *types.State) {
	m.shift = s.Read8()
	m.shiftCount = s.Read8()
	m.prgMode = s.Read8()
	m.chrMode = s.Read8()
	m.chrBank0 = s.Read32()
	m.chrBank1 = s.Read32()
	m.prgBank = s.Read32()
	m.prgPlane0 = s.Read32()
	m.prgPlane1 = s.Read32()
	m.ramBank0 = int(s.Read8())
	m.ramBank1 = int(s.Read8())
	m.ramEnabled = s.ReadBool()
}

func (m *mmc1) Save(s *types.State) {
	s.Write8(m.shift)
	s.Write8(m.shiftCount)
	s.Write8(m.prgMode)
	s.Write8(m.chrMode)
	s.Write32(m.chrBank0)
	s.Write32(m.chrBank1)
	s.Write32(m.prgBank)
	s.Write32(m.prgPlane0)
	s.Write32(m.prgPlane1)
	s.Write8(uint8(m.ramBank0))
	s.Write8(uint8(m.ramBank1))
	s.WriteBool(m.ramEnabled)
}
