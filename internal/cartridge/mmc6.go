package cartridge

import "github.com/thelolagemann/nescore/internal/types"

// mmc6 is the MMC3 variant with 1 KiB of internal RAM at 0x7000-0x7fff,
// mirrored every 1 KiB. Each 512 byte half has its own read and write
// enable. CHR banks are recomputed as on the MMC3, an approximation of
// the MMC6.
type mmc6 struct {
	*mmc3

	ramEnable bool
	// per half: bit 1 read enable, bit 0 write enable
	protect [2]uint8
}

func newMMC6(c *Cart) *mmc6 {
	if len(c.prgRam) < 0x400 {
		c.prgRam = make([]byte, 0x400)
		c.ramBanks = 0
	}
	return &mmc6{mmc3: newMMC3(c, mmc6Board)}
}

func (m *mmc6) reset() {
	m.mmc3.reset()
	m.ramEnable = false
	m.protect = [2]uint8{}
}

func (m *mmc6) write(address uint16, value uint8) {
	switch {
	case address < 0xa000 && address&1 == 0:
		m.mmc3.write(address, value)
		m.ramEnable = value&0x20 != 0
		if !m.ramEnable {
			m.protect = [2]uint8{}
		}
	case address >= 0xa000 && address < 0xc000 && address&1 != 0:
		if m.ramEnable {
			m.protect[0] = (value >> 4) & 3
			m.protect[1] = (value >> 6) & 3
		}
	default:
		m.mmc3.write(address, value)
	}
}

func (m *mmc6) half(address uint16) uint8 {
	return m.protect[(address>>9)&1]
}

func (m *mmc6) readLow(address uint16) (uint8, bool) {
	if address < 0x7000 {
		return 0, true
	}
	if !m.ramEnable || m.half(address)&2 == 0 {
		return 0, true
	}
	return m.c.prgRam[address&0x3ff], true
}

// writeLow needs both the read and write enable of the half.
func (m *mmc6) writeLow(address uint16, value uint8) bool {
	if address >= 0x7000 && m.ramEnable && m.half(address) == 3 {
		m.c.prgRam[address&0x3ff] = value
	}
	return true
}

func (m *mmc6) Load(s *types.State) {
	m.mmc3.Load(s)
	m.ramEnable = s.ReadBool()
	m.protect[0] = s.Read8()
	m.protect[1] = s.Read8()
}

func (m *mmc6) Save(s *types.State) {
	m.mmc3.Save(s)
	s.WriteBool(m.ramEnable)
	s.Write8(m.protect[0])
	s.Write8(m.protect[1])
}
