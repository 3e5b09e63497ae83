package cartridge

import (
	"github.com/thelolagemann/nescore/internal/scheduler"
	"github.com/thelolagemann/nescore/internal/types"
)

// Bus is the part of the console bus the cartridge talks back to.
type Bus interface {
	// CiRam returns the console's 2 KiB nametable RAM.
	CiRam() []byte
	// SyncPpu brings the PPU up to the current cycle, so that a change of
	// CHR banking doesn't affect pixels that were already drawn.
	SyncPpu()
	TickCpuWrite()
	CpuCycleCount() uint32
	PpuCycleCount() uint32
	Schedule(cpuCycles uint32, eventType scheduler.EventType)
	SchedulePpu(ppuCycles uint32, eventType scheduler.EventType)
	Deschedule(eventType scheduler.EventType) bool
	SetCartIrq(irq bool)
	// UpdateA12Sensitivity is called whenever the cartridge changes the
	// A12 transitions it needs to see.
	UpdateA12Sensitivity()
}

// buffer identifies the memory backing a window.
type buffer uint8

const (
	noBuffer buffer = iota
	prgRom
	prgRam
	chrRom
	chrRam
	ciRam
)

// window maps a fixed slice of address space onto an offset of one of
// the cartridge's buffers. CPU windows are 8 KiB and PPU windows 1 KiB.
type window struct {
	buffer   buffer
	offset   uint32
	writable bool
}

// Cart is a cartridge inserted in the console. It owns the ROM and RAM
// of the board and the CPU/PPU bank windows, which the mapper rebuilds
// every time one of its registers changes.
type Cart struct {
	bus Bus

	descriptor Descriptor
	name       string

	prg, chr       []byte
	prgRam, chrRam []byte
	ciRam          []byte

	prgMask  uint32
	ramBanks int // number of 8 KiB PRG RAM banks, battery backed first

	cpu [8]window
	ppu [16]window

	mirroring    Mirroring
	sensitivity  A12Sensitivity
	chrA12       bool
	busConflicts bool

	mapper mapper

	// optional mapper capabilities, resolved once at creation
	lowWriter  lowWriter
	lowReader  lowReader
	dblWriter  doubleWriter
	a12        a12Listener
	a12Div     a12Divider
	ppuLatch   ppuReadListener
	cpuCounter cpuIrqCounter
	irqEvent   irqEventListener
}

// Descriptor returns the board description the cart was created from.
func (c *Cart) Descriptor() Descriptor { return c.descriptor }

// Name returns the board name of the mapper.
func (c *Cart) Name() string { return c.name }

// Mirroring returns the current nametable arrangement.
func (c *Cart) Mirroring() Mirroring { return c.mirroring }

// ChrA12Sensitivity returns the A12 transitions the mapper currently
// needs to see.
func (c *Cart) ChrA12Sensitivity() A12Sensitivity { return c.sensitivity }

// BatteryRam returns the battery backed part of PRG RAM.
func (c *Cart) BatteryRam() []byte {
	return c.prgRam[:c.descriptor.PrgBatteryRamSize]
}

// Attach connects the cartridge to the console bus, and maps the
// nametables onto the console's RAM.
func (c *Cart) Attach(bus Bus) {
	c.bus = bus
	c.ciRam = bus.CiRam()
	c.refresh()
}

// refresh rebuilds every window from the register state.
func (c *Cart) refresh() {
	c.updatePpuRamMap()
	c.mapper.updateBanks()
}

func (c *Cart) bytes(b buffer) []byte {
	switch b {
	case prgRom:
		return c.prg
	case prgRam:
		return c.prgRam
	case chrRom:
		return c.chr
	case chrRam:
		return c.chrRam
	case ciRam:
		return c.ciRam
	}
	return nil
}

// CpuRead reads from the cartridge's CPU address space (0x4020-0xffff).
// Unmapped addresses read as 0.
func (c *Cart) CpuRead(address uint16) uint8 {
	if c.lowReader != nil && address < 0x8000 {
		if v, ok := c.lowReader.readLow(address); ok {
			return v
		}
	}

	w := &c.cpu[address>>13]
	if w.buffer == noBuffer {
		return 0
	}
	return c.bytes(w.buffer)[w.offset+uint32(address&0x1fff)]
}

// CpuWrite writes to the cartridge's CPU address space. Writes below
// 0x8000 go to low registers or PRG RAM, writes above to the mapper.
func (c *Cart) CpuWrite(address uint16, value uint8) {
	if address < 0x8000 {
		if c.lowWriter != nil && c.lowWriter.writeLow(address, value) {
			return
		}

		w := &c.cpu[address>>13]
		if w.writable {
			c.bytes(w.buffer)[w.offset+uint32(address&0x1fff)] = value
		}
		return
	}

	if c.busConflicts {
		value &= c.CpuRead(address)
	}
	c.mapper.write(address, value)
}

// CpuWrite2 performs the double write of a read-modify-write
// instruction: the first value is written, the bus is ticked, and the
// second value is written. The write cycle of the first value has
// already been ticked by the bus. Boards that can't see both writes
// override this.
func (c *Cart) CpuWrite2(address uint16, first, second uint8) {
	if address < 0x8000 {
		c.bus.TickCpuWrite()
		c.CpuWrite(address, second)
		return
	}

	if c.dblWriter != nil {
		c.dblWriter.write2(address, first, second)
		return
	}

	c.CpuWrite(address, first)
	c.bus.TickCpuWrite()
	c.CpuWrite(address, second)
}

// PpuRead reads from the PPU address space (0x0000-0x3eff).
func (c *Cart) PpuRead(address uint16) uint8 {
	w := &c.ppu[(address>>10)&0x0f]
	var v uint8
	if w.buffer != noBuffer {
		v = c.bytes(w.buffer)[w.offset+uint32(address&0x03ff)]
	}
	if c.ppuLatch != nil {
		c.ppuLatch.ppuRead(address)
	}
	return v
}

// PpuWrite writes to the PPU address space, if the window is writable.
func (c *Cart) PpuWrite(address uint16, value uint8) {
	w := &c.ppu[(address>>10)&0x0f]
	if w.writable {
		c.bytes(w.buffer)[w.offset+uint32(address&0x03ff)] = value
	}
}

// ChrA12Rising is called by the PPU on a rising edge of A12, filtered
// according to the current sensitivity. lastFall is the PPU cycle at
// which A12 last went low.
func (c *Cart) ChrA12Rising(lastFall uint32) {
	c.chrA12 = true
	if c.a12 != nil {
		c.a12.a12Rising(lastFall)
	}
}

// ChrA12Falling is called by the PPU on a falling edge of A12.
func (c *Cart) ChrA12Falling() {
	c.chrA12 = false
	if c.a12 != nil {
		c.a12.a12Falling()
	}
}

// A12PulsesUntilSync returns the number of A12 edges of the watched
// kind before the mapper acts on one, or 0 if it acts on every edge.
func (c *Cart) A12PulsesUntilSync() uint32 {
	if c.a12Div == nil {
		return 0
	}
	return c.a12Div.a12PulsesUntilClock()
}

// ClockCpuIrqCounter handles the CartCpuIrqCounter event.
func (c *Cart) ClockCpuIrqCounter() {
	if c.cpuCounter != nil {
		c.cpuCounter.clockCpuIrqCounter()
	}
}

// SetIrqEvent handles the CartSetIrq event, raising the cartridge IRQ
// line.
func (c *Cart) SetIrqEvent() {
	c.bus.SetCartIrq(true)
	if c.irqEvent != nil {
		c.irqEvent.irqFired()
	}
}

func (c *Cart) syncPpu() {
	if c.bus != nil {
		c.bus.SyncPpu()
	}
}

func (c *Cart) setSensitivity(s A12Sensitivity) {
	if s == c.sensitivity {
		return
	}
	c.sensitivity = s
	if c.bus != nil {
		c.bus.UpdateA12Sensitivity()
	}
}

func (c *Cart) setMirroring(m Mirroring) {
	if m == c.mirroring {
		return
	}
	c.syncPpu()
	c.mirroring = m
	c.updatePpuRamMap()
}

var mirrorOffsets = [4][4]uint32{
	SingleScreenLow:  {0, 0, 0, 0},
	SingleScreenHigh: {0x400, 0x400, 0x400, 0x400},
	Vertical:         {0, 0x400, 0, 0x400},
	Horizontal:       {0, 0, 0x400, 0x400},
}

func (c *Cart) updatePpuRamMap() {
	if c.mirroring > Horizontal {
		return
	}
	for i, offset := range mirrorOffsets[c.mirroring] {
		c.mapNametable(i, ciRam, offset, true)
	}
}

// mapNametable maps nametable i (0-3) and its mirror at 0x3000.
func (c *Cart) mapNametable(i int, b buffer, offset uint32, writable bool) {
	w := window{buffer: b, offset: offset, writable: writable}
	c.ppu[8+i] = w
	c.ppu[12+i] = w
}

func (c *Cart) mapPrg8k(slot int, offset uint32) {
	c.cpu[slot] = window{buffer: prgRom, offset: offset & c.prgMask &^ 0x1fff}
}

func (c *Cart) mapPrg16k(slot int, offset uint32) {
	offset &= c.prgMask &^ 0x3fff
	c.mapPrg8k(slot, offset)
	c.mapPrg8k(slot+1, offset+0x2000)
}

func (c *Cart) mapPrg32k(offset uint32) {
	offset &= c.prgMask &^ 0x7fff
	for i := 0; i < 4; i++ {
		c.mapPrg8k(4+i, offset+uint32(i)*0x2000)
	}
}

// mapPrgRam maps 8 KiB PRG RAM bank to the slot, or unmaps the slot if
// the board has no such bank.
func (c *Cart) mapPrgRam(slot, bank int, writable bool) {
	if c.ramBanks == 0 {
		c.cpu[slot] = window{}
		return
	}
	bank %= c.ramBanks
	c.cpu[slot] = window{buffer: prgRam, offset: uint32(bank) * 0x2000, writable: writable}
}

func (c *Cart) unmapCpu(slot int) {
	c.cpu[slot] = window{}
}

// chrBuffer returns the default CHR memory of the board: ROM if present,
// RAM otherwise.
func (c *Cart) chrBuffer() (buffer, []byte) {
	if len(c.chr) > 0 {
		return chrRom, c.chr
	}
	return chrRam, c.chrRam
}

// mapChr maps count 1 KiB windows starting at slot to consecutive
// kilobytes of the default CHR memory at offset.
func (c *Cart) mapChr(slot, count int, offset uint32) {
	b, data := c.chrBuffer()
	c.mapChrBuffer(b, data, slot, count, offset)
}

// mapChrRam maps CHR RAM regardless of whether the board has CHR ROM.
func (c *Cart) mapChrRam(slot, count int, offset uint32) {
	c.mapChrBuffer(chrRam, c.chrRam, slot, count, offset)
}

func (c *Cart) mapChrBuffer(b buffer, data []byte, slot, count int, offset uint32) {
	size := uint32(len(data))
	if size == 0 {
		for i := 0; i < count; i++ {
			c.ppu[slot+i] = window{}
		}
		return
	}
	for i := 0; i < count; i++ {
		o := (offset + uint32(i)*0x400) % size
		c.ppu[slot+i] = window{buffer: b, offset: o &^ 0x3ff, writable: b == chrRam}
	}
}

// Load restores the cartridge state. Windows are rebuilt from the
// restored registers, they are never part of the state.
func (c *Cart) Load(s *types.State) {
	c.mirroring = Mirroring(s.Read8())
	c.sensitivity = A12Sensitivity(s.Read8())
	c.chrA12 = s.ReadBool()
	s.ReadData(c.prgRam)
	s.ReadData(c.chrRam)
	c.mapper.Load(s)

	c.refresh()
}

// Save writes the cartridge state.
func (c *Cart) Save(s *types.State) {
	s.Write8(uint8(c.mirroring))
	s.Write8(uint8(c.sensitivity))
	s.WriteBool(c.chrA12)
	s.WriteData(c.prgRam)
	s.WriteData(c.chrRam)
	c.mapper.Save(s)
}

var _ types.Stater = (*Cart)(nil)
