package cartridge

import (
	"github.com/thelolagemann/nescore/internal/scheduler"
	"github.com/thelolagemann/nescore/internal/types"
)

// mmc3Kind selects one of the MMC3 derived boards.
type mmc3Kind uint8

const (
	mmc3Board mmc3Kind = iota
	mcaccBoard
	qjBoard
	txsromBoard
	tqromBoard
	mmc6Board
	rambo1Board
)

// mmc3 implements the Nintendo MMC3 and the boards built around it or a
// clone of it. The scanline counter is clocked by filtered rising edges
// of PPU A12 (falling edges divided by 8 on the MC-ACC).
type mmc3 struct {
	c    *Cart
	kind mmc3Kind

	bankSelect uint8
	prgMode    uint8
	chrMode    uint8 // bit 0 CHR inversion, bit 1 RAMBO-1 full 1 KiB mode

	chr [8]uint32 // R0-R5, RAMBO-1 R8-R9
	prg [3]uint32 // R6, R7, RAMBO-1 R15

	// outer bank bits and the size of the inner block, NES-QJ selects one
	// of two 128 KiB blocks
	prgHigh, chrHigh           uint32
	prgBlockSize, chrBlockSize uint32

	ramEnabled bool
	ramProtect bool

	reloadValue uint8
	counter     int
	reload      bool
	irqEnabled  bool
	bump        bool

	// MC-ACC falling edges until the next counter clock
	pulseCounter uint8

	// RAMBO-1
	irqMode        uint8
	prescalerReset uint32
	lastA12        uint32
}

func newMMC3(c *Cart, kind mmc3Kind) *mmc3 {
	m := &mmc3{c: c, kind: kind}

	if kind == tqromBoard && len(c.chrRam) == 0 {
		c.chrRam = make([]byte, 0x2000)
	}

	m.prgBlockSize = uint32(len(c.prg))
	_, chr := c.chrBuffer()
	m.chrBlockSize = uint32(len(chr))
	if kind == qjBoard {
		m.prgBlockSize = 0x20000
		m.chrBlockSize = 0x20000
	}
	return m
}

func newRambo1(c *Cart) *mmc3 {
	return newMMC3(c, rambo1Board)
}

func (m *mmc3) reset() {
	*m = mmc3{
		c:            m.c,
		kind:         m.kind,
		prgBlockSize: m.prgBlockSize,
		chrBlockSize: m.chrBlockSize,
		ramEnabled:   true,
		pulseCounter: 1,
	}

	if m.kind == rambo1Board {
		// the last A12 fall is needed to decide whether a reload lands on
		// this scanline, so every edge is watched
		m.c.sensitivity = RisingEdgeSmoothed
	} else {
		// a third PRG register only exists on RAMBO-1, the others have
		// the second to last bank there
		m.prg[2] = m.prgBlockSize - 0x4000
		m.c.sensitivity = None
	}
	m.updateBanks()
}

func (m *mmc3) write(address uint16, value uint8) {
	if m.kind == rambo1Board {
		m.writeRambo1(address, value)
		return
	}

	c := m.c
	odd := address&1 != 0

	switch {
	case address < 0xa000:
		if odd {
			m.setBank(value)
			return
		}
		c.syncPpu()
		m.bankSelect = value & 0x07
		m.prgMode = (value >> 6) & 1
		m.chrMode = (value >> 7) & 1
		m.updateBanks()
	case address < 0xc000:
		if !odd {
			// TxSROM routes the nametables through CHR A17
			if m.kind != txsromBoard {
				m.setMirroring(value)
			}
			return
		}
		m.ramEnabled = value&0x80 != 0
		m.ramProtect = value&0x40 != 0
		m.updatePrg()
	case address < 0xe000:
		if odd {
			m.reload = true
			m.pulseCounter = 1
		} else {
			m.reloadValue = value
		}
		m.updateSensitivity()
	default:
		if odd {
			m.irqEnabled = true
		} else {
			m.irqEnabled = false
			c.bus.SetCartIrq(false)
		}
		m.updateSensitivity()
	}
}

func (m *mmc3) setMirroring(value uint8) {
	if value&1 != 0 {
		m.c.setMirroring(Horizontal)
	} else {
		m.c.setMirroring(Vertical)
	}
}

// setBank writes the bank register selected by the last even write to
// 0x8000.
func (m *mmc3) setBank(value uint8) {
	bank := uint32(value)

	switch m.bankSelect {
	case 0, 1, 2, 3, 4, 5:
		m.c.syncPpu()
		m.chr[m.bankSelect] = bank << 10
		m.updateChr()
	case 6, 7:
		m.prg[m.bankSelect-6] = bank << 13
		m.updatePrg()
	case 8, 9:
		m.c.syncPpu()
		m.chr[m.bankSelect-2] = bank << 10
		m.updateChr()
	case 15:
		m.prg[2] = bank << 13
		m.updatePrg()
	}
}

func (m *mmc3) irqActive() bool {
	return m.counter > 0 || m.reloadValue > 0 || m.irqEnabled
}

// updateSensitivity stops the PPU from reporting A12 edges while the
// counter can't produce an IRQ.
func (m *mmc3) updateSensitivity() {
	switch {
	case !m.irqActive():
		m.c.setSensitivity(None)
	case m.kind == mcaccBoard:
		m.c.setSensitivity(FallingEdgeDivided)
	default:
		m.c.setSensitivity(RisingEdgeSmoothed)
	}
}

// clockCounter clocks the scanline counter.
func (m *mmc3) clockCounter() {
	if m.counter == 0 || m.reload {
		m.counter = int(m.reloadValue)
		if m.bump {
			m.counter++
		}
		m.bump = false
		m.reload = false

		if m.kind != rambo1Board && m.counter == 0 && !m.irqEnabled {
			m.c.setSensitivity(None)
		}
	} else {
		m.counter--
	}

	if m.counter == 0 && m.irqEnabled {
		if m.kind == rambo1Board {
			m.c.bus.Schedule(3, scheduler.CartSetIrq)
		} else {
			m.c.bus.SetCartIrq(true)
		}
	}
}

func (m *mmc3) a12Rising(lastFall uint32) {
	if m.c.sensitivity != RisingEdgeSmoothed {
		return
	}
	if m.kind == rambo1Board {
		m.lastA12 = lastFall
		if m.irqMode != 0 {
			return
		}
	}
	m.clockCounter()
}

func (m *mmc3) a12Falling() {
	if m.c.sensitivity != FallingEdgeDivided {
		return
	}
	m.pulseCounter--
	if m.pulseCounter == 0 {
		m.clockCounter()
		m.pulseCounter = 8
	}
}

// a12PulsesUntilClock returns how many falling edges the MC-ACC needs
// before its next counter clock, 0 for the other boards.
func (m *mmc3) a12PulsesUntilClock() uint32 {
	if m.kind != mcaccBoard {
		return 0
	}
	return uint32(m.pulseCounter)
}

func (m *mmc3) writeLow(address uint16, value uint8) bool {
	if m.kind != qjBoard || address < 0x6000 {
		return false
	}
	if !m.ramEnabled || m.ramProtect {
		return true
	}

	m.c.syncPpu()
	m.prgHigh = uint32(value&1) << 17
	m.chrHigh = m.prgHigh
	m.updateBanks()
	return true
}

func (m *mmc3) updateBanks() {
	m.updatePrg()
	m.updateChr()
}

func (m *mmc3) updatePrg() {
	c := m.c

	switch {
	case m.kind == mmc6Board, !m.ramEnabled:
		c.unmapCpu(3)
	default:
		c.mapPrgRam(3, 0, !m.ramProtect)
	}

	mask := m.prgBlockSize - 1
	bank := func(b uint32) uint32 { return m.prgHigh | (b & mask) }

	last := bank(m.prgBlockSize - 0x2000)
	if m.prgMode == 0 {
		c.mapPrg8k(4, bank(m.prg[0]))
		c.mapPrg8k(6, bank(m.prg[2]))
	} else {
		c.mapPrg8k(4, bank(m.prg[2]))
		c.mapPrg8k(6, bank(m.prg[0]))
	}
	c.mapPrg8k(5, bank(m.prg[1]))
	c.mapPrg8k(7, last)
}

func (m *mmc3) updateChr() {
	if m.kind == tqromBoard {
		m.updateChrTQROM()
		return
	}

	c := m.c
	mask := m.chrBlockSize - 1
	if m.chrBlockSize == 0 {
		mask = 0
	}
	bank := func(b uint32) uint32 { return m.chrHigh | (b & mask) }

	// 2 KiB half and 1 KiB half, swapped by CHR inversion
	twoK, oneK := 0, 4
	if m.chrMode&1 != 0 {
		twoK, oneK = 4, 0
	}

	if m.chrMode&2 != 0 {
		c.mapChr(twoK, 1, bank(m.chr[0]))
		c.mapChr(twoK+1, 1, bank(m.chr[6]))
		c.mapChr(twoK+2, 1, bank(m.chr[1]))
		c.mapChr(twoK+3, 1, bank(m.chr[7]))
	} else {
		c.mapChr(twoK, 2, bank(m.chr[0]&^0x7ff))
		c.mapChr(twoK+2, 2, bank(m.chr[1]&^0x7ff))
	}
	for i := 0; i < 4; i++ {
		c.mapChr(oneK+i, 1, bank(m.chr[2+i]))
	}

	if m.kind == txsromBoard {
		var nt [4]uint32
		if m.chrMode&1 == 0 {
			nt = [4]uint32{m.chr[0], m.chr[0], m.chr[1], m.chr[1]}
		} else {
			nt = [4]uint32{m.chr[2], m.chr[3], m.chr[4], m.chr[5]}
		}
		for i, b := range nt {
			c.mapNametable(i, ciRam, (b>>7)&0x400, true)
		}
	}
}

// updateChrTQROM maps CHR for TQROM, where bit 6 of a bank number selects
// the 8 KiB of CHR RAM instead of ROM.
func (m *mmc3) updateChrTQROM() {
	set := func(slot, count int, bank uint32) {
		offset := bank & 0xfc00
		if count == 2 {
			offset &^= 0x7ff
		}
		if bank&0x10000 != 0 {
			m.c.mapChrRam(slot, count, offset)
		} else {
			m.c.mapChr(slot, count, offset)
		}
	}

	twoK, oneK := 0, 4
	if m.chrMode&1 != 0 {
		twoK, oneK = 4, 0
	}
	set(twoK, 2, m.chr[0])
	set(twoK+2, 2, m.chr[1])
	for i := 0; i < 4; i++ {
		set(oneK+i, 1, m.chr[2+i])
	}
}

func (m *mmc3) Load(s *types.State) {
	m.bankSelect = s.Read8()
	m.prgMode = s.Read8()
	m.chrMode = s.Read8()
	for i := range m.chr {
		m.chr[i] = s.Read32()
	}
	for i := range m.prg {
		m.prg[i] = s.Read32()
	}
	m.prgHigh = s.Read32()
	m.chrHigh = s.Read32()
	m.ramEnabled = s.ReadBool()
	m.ramProtect = s.ReadBool()
	m.reloadValue = s.Read8()
	m.counter = int(s.Read16())
	m.reload = s.ReadBool()
	m.irqEnabled = s.ReadBool()
	m.bump = s.ReadBool()
	m.pulseCounter = s.Read8()
	m.irqMode = s.Read8()
	m.prescalerReset = s.Read32()
	m.lastA12 = s.Read32()
}

func (m *mmc3) Save(s *types.State) {
	s.Write8(m.bankSelect)
	s.Write8(m.prgMode)
	s.Write8(m.chrMode)
	for _, b := range m.chr {
		s.Write32(b)
	}
	for _, b := range m.prg {
		s.Write32(b)
	}
	s.Write32(m.prgHigh)
	s.Write32(m.chrHigh)
	s.WriteBool(m.ramEnabled)
	s.WriteBool(m.ramProtect)
	s.Write8(m.reloadValue)
	s.Write16(uint16(m.counter))
	s.WriteBool(m.reload)
	s.WriteBool(m.irqEnabled)
	s.WriteBool(m.bump)
	s.Write8(m.pulseCounter)
	s.Write8(m.irqMode)
	s.Write32(m.prescalerReset)
	s.Write32(m.lastA12)
}
