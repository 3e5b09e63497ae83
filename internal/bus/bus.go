// Package bus connects the components of the console and keeps them in
// time with each other.
//
// Every CPU access goes through the bus, which advances the master clock
// by one CPU cycle (3 PPU cycles) before performing it, and runs any
// event that became due in between. The PPU and APU only catch up when
// they are accessed or when one of their events fires, so the event
// queue is what keeps the console cycle accurate.
package bus

import (
	"github.com/thelolagemann/nescore/internal/apu"
	"github.com/thelolagemann/nescore/internal/cartridge"
	"github.com/thelolagemann/nescore/internal/cheats"
	"github.com/thelolagemann/nescore/internal/controller"
	"github.com/thelolagemann/nescore/internal/cpu"
	"github.com/thelolagemann/nescore/internal/ppu"
	"github.com/thelolagemann/nescore/internal/scheduler"
	"github.com/thelolagemann/nescore/internal/types"
)

const (
	// RamSize is the size of the CPU's internal RAM, mirrored up to 0x2000.
	RamSize = 0x800
	// CiRamSize is the size of the nametable RAM inside the console.
	CiRamSize = 0x800

	// irqDelay is the number of PPU cycles between an IRQ line changing
	// and the CPU seeing it.
	irqDelay = 2
)

// Bus is the system bus of the console. It owns the internal RAM, the
// nametable RAM and the event queue.
type Bus struct {
	ram   [RamSize]uint8
	ciRam [CiRamSize]uint8

	cpuCycles uint32
	ppuCycles uint32

	// DMA requests, serviced before the next CPU read
	dma        bool
	oamDma     bool
	dmcDma     bool
	oamAddress uint16
	dmcAddress uint16

	audioIrq bool
	cartIrq  bool

	s *scheduler.Scheduler

	cpu  *cpu.CPU
	ppu  *ppu.PPU
	apu  *apu.APU
	pads [2]*controller.Controller
	cart *cartridge.Cart

	cheats *cheats.Engine
}

// New returns a bus with its RAM in the power on state. The components
// are connected with Attach.
func New() *Bus {
	b := &Bus{s: scheduler.NewScheduler()}
	b.clearRam()
	return b
}

func (b *Bus) clearRam() {
	for i := range b.ram {
		b.ram[i] = 0xff
	}
	for i := range b.ciRam {
		b.ciRam[i] = 0xff
	}
}

// Attach connects the components to the bus and registers the handlers
// of their events.
func (b *Bus) Attach(c *cpu.CPU, p *ppu.PPU, a *apu.APU, pad1, pad2 *controller.Controller) {
	b.cpu, b.ppu, b.apu = c, p, a
	b.pads = [2]*controller.Controller{pad1, pad2}

	b.s.RegisterEvent(scheduler.ApuFrameCounter, a.ActivateFrameCounter)
	b.s.RegisterEvent(scheduler.ApuSample, a.Sample)
	b.s.RegisterEvent(scheduler.ApuSync, a.SyncDmc)
	b.s.RegisterEvent(scheduler.PpuScanline, p.SyncScanline)
	b.s.RegisterEvent(scheduler.PpuStateUpdate, p.SyncState)
	b.s.RegisterEvent(scheduler.PpuSyncA12, p.SyncA12)
	b.s.RegisterEvent(scheduler.PpuSync, p.SignalVBlank)
	b.s.RegisterEvent(scheduler.CpuNmi, c.Nmi)
	b.s.RegisterEvent(scheduler.CpuSetIrq, func() { c.SetIrq(true) })
	b.s.RegisterEvent(scheduler.CpuClearIrq, func() { c.SetIrq(false) })
	b.s.RegisterEvent(scheduler.CartCpuIrqCounter, func() {
		if b.cart != nil {
			b.cart.ClockCpuIrqCounter()
		}
	})
	b.s.RegisterEvent(scheduler.CartSetIrq, func() {
		if b.cart != nil {
			b.cart.SetIrqEvent()
		}
	})
}

// InsertCart plugs a cartridge into the console. The cartridge maps its
// nametables onto the console's RAM, and the PPU is told which A12
// edges it cares about.
func (b *Bus) InsertCart(c *cartridge.Cart) {
	b.cart = c
	c.Attach(b)
	b.UpdateA12Sensitivity()
}

// SetCheats patches the program data the CPU reads with the enabled
// cheats of e. A nil e removes them.
func (b *Bus) SetCheats(e *cheats.Engine) { b.cheats = e }

// Cart returns the inserted cartridge, or nil.
func (b *Bus) Cart() *cartridge.Cart { return b.cart }

// Scheduler returns the event queue of the bus.
func (b *Bus) Scheduler() *scheduler.Scheduler { return b.s }

// RAM returns the CPU's internal RAM.
func (b *Bus) RAM() []byte { return b.ram[:] }

// CiRam returns the nametable RAM.
func (b *Bus) CiRam() []byte { return b.ciRam[:] }

// CpuCycleCount returns the number of CPU cycles since power on.
func (b *Bus) CpuCycleCount() uint32 { return b.cpuCycles }

// PpuCycleCount returns the absolute PPU cycle, the time base of the
// event queue.
func (b *Bus) PpuCycleCount() uint32 { return b.ppuCycles }

// Tick advances the clock by one CPU cycle, running every event due up
// to and including the last PPU cycle of it.
func (b *Bus) Tick() {
	next := b.ppuCycles + 3
	for b.s.Len() > 0 && int32(b.s.NextEventTime()-next) <= 0 {
		// the cycle count is never moved backwards by an event that was
		// scheduled in the past
		if t := b.s.NextEventTime(); int32(t-b.ppuCycles) > 0 {
			b.ppuCycles = t
		}
		b.s.DoEvent()
	}
	b.ppuCycles = next
	b.cpuCycles++
}

// TickCpuRead ticks a read cycle, on which a pending DMA halts the CPU.
func (b *Bus) TickCpuRead() {
	if b.dma {
		b.runDma()
	}
	b.Tick()
}

// TickCpuWrite ticks a write cycle. The CPU can't be halted on writes.
func (b *Bus) TickCpuWrite() {
	b.Tick()
}

// Schedule schedules an event cpuCycles CPU cycles from now.
func (b *Bus) Schedule(cpuCycles uint32, eventType scheduler.EventType) {
	b.s.Schedule(b.ppuCycles+3*cpuCycles, eventType)
}

// SchedulePpu schedules an event ppuCycles PPU cycles from now.
func (b *Bus) SchedulePpu(ppuCycles uint32, eventType scheduler.EventType) {
	b.s.Schedule(b.ppuCycles+ppuCycles, eventType)
}

func (b *Bus) Deschedule(eventType scheduler.EventType) bool {
	return b.s.Deschedule(eventType)
}

func (b *Bus) DescheduleAll(eventType scheduler.EventType) bool {
	return b.s.DescheduleAll(eventType)
}

// CpuDummyRead performs a read cycle whose value is discarded. Only the
// timing matters, the address isn't decoded.
func (b *Bus) CpuDummyRead(uint16) {
	b.TickCpuRead()
}

// CpuReadData performs a read cycle.
func (b *Bus) CpuReadData(address uint16) uint8 {
	b.TickCpuRead()
	return b.read(address)
}

// CpuReadZeroPage performs a read cycle of internal RAM.
func (b *Bus) CpuReadZeroPage(address uint16) uint8 {
	b.TickCpuRead()
	return b.ram[address&(RamSize-1)]
}

// CpuReadProgramData performs an opcode or operand fetch, which almost
// always comes from the cartridge.
func (b *Bus) CpuReadProgramData(address uint16) uint8 {
	b.TickCpuRead()
	if address >= 0x4020 && b.cart != nil {
		return b.cartRead(address)
	}
	return b.read(address)
}

// cartRead reads the cartridge, through any enabled cheats.
func (b *Bus) cartRead(address uint16) uint8 {
	v := b.cart.CpuRead(address)
	if b.cheats != nil && address >= 0x8000 {
		v = b.cheats.Read(address, v)
	}
	return v
}

func (b *Bus) read(address uint16) uint8 {
	switch {
	case address < 0x2000:
		return b.ram[address&(RamSize-1)]
	case address < 0x4000:
		return b.ppu.Read(address)
	case address == 0x4016:
		return b.pads[0].Read()
	case address == 0x4017:
		return b.pads[1].Read()
	case address < 0x4020:
		return b.apu.Read(address)
	case b.cart != nil:
		return b.cartRead(address)
	}
	return 0
}

// CpuWrite performs a write cycle.
func (b *Bus) CpuWrite(address uint16, value uint8) {
	b.TickCpuWrite()
	b.write(address, value)
}

// CpuWriteZeroPage performs a write cycle to internal RAM.
func (b *Bus) CpuWriteZeroPage(address uint16, value uint8) {
	b.TickCpuWrite()
	b.ram[address&(RamSize-1)] = value
}

func (b *Bus) write(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		b.ram[address&(RamSize-1)] = value
	case address < 0x4000:
		b.ppu.Write(address, value)
	case address == 0x4014:
		b.BeginOamDma(value)
	case address == 0x4016:
		b.pads[0].Write(value)
		b.pads[1].Write(value)
	case address < 0x4020:
		b.apu.Write(address, value)
	case b.cart != nil:
		b.cart.CpuWrite(address, value)
	}
}

// CpuWrite2 performs the two consecutive write cycles of a read-modify-
// write instruction. Registers see both writes, RAM only keeps the
// second one, and the cartridge decides for itself.
func (b *Bus) CpuWrite2(address uint16, first, second uint8) {
	b.TickCpuWrite()
	switch {
	case address < 0x2000:
		b.Tick()
		b.ram[address&(RamSize-1)] = second
	case address == 0x4014:
		b.BeginOamDma(first)
		b.Tick()
	case address < 0x4020:
		b.write(address, first)
		b.Tick()
		b.write(address, second)
	case b.cart != nil:
		b.cart.CpuWrite2(address, first, second)
	default:
		b.Tick()
	}
}

// PpuRead reads the PPU address space, entirely decoded by the cartridge.
func (b *Bus) PpuRead(address uint16) uint8 {
	if b.cart == nil {
		return 0
	}
	return b.cart.PpuRead(address)
}

func (b *Bus) PpuWrite(address uint16, value uint8) {
	if b.cart != nil {
		b.cart.PpuWrite(address, value)
	}
}

// SyncPpu brings the PPU up to the current cycle.
func (b *Bus) SyncPpu() {
	b.ppu.Sync()
}

// UpdateA12Sensitivity tells the PPU that the A12 edges the cartridge
// watches have changed.
func (b *Bus) UpdateA12Sensitivity() {
	b.ppu.UpdateA12Sensitivity()
}

func (b *Bus) ChrA12Sensitivity() cartridge.A12Sensitivity {
	if b.cart == nil {
		return cartridge.None
	}
	return b.cart.ChrA12Sensitivity()
}

func (b *Bus) ChrA12Rising(lastFall uint32) {
	if b.cart != nil {
		b.cart.ChrA12Rising(lastFall)
	}
}

func (b *Bus) ChrA12Falling() {
	if b.cart != nil {
		b.cart.ChrA12Falling()
	}
}

func (b *Bus) A12PulsesUntilSync() uint32 {
	if b.cart == nil {
		return 0
	}
	return b.cart.A12PulsesUntilSync()
}

// SignalNmi asserts /NMI, seen by the CPU 2 PPU cycles later.
func (b *Bus) SignalNmi() {
	b.SchedulePpu(irqDelay, scheduler.CpuNmi)
}

// SetAudioIrq drives the APU's half of the wired-OR IRQ line.
func (b *Bus) SetAudioIrq(irq bool) {
	if b.audioIrq == irq {
		return
	}
	b.audioIrq = irq
	if !b.cartIrq {
		b.scheduleIrq(irq)
	}
}

// SetCartIrq drives the cartridge's half of the wired-OR IRQ line.
func (b *Bus) SetCartIrq(irq bool) {
	if b.cartIrq == irq {
		return
	}
	b.cartIrq = irq
	if !b.audioIrq {
		b.scheduleIrq(irq)
	}
}

func (b *Bus) scheduleIrq(irq bool) {
	if irq {
		b.SchedulePpu(irqDelay, scheduler.CpuSetIrq)
	} else {
		b.SchedulePpu(irqDelay, scheduler.CpuClearIrq)
	}
}

// IrqLine reports the state of the IRQ line, before the CPU's delay.
func (b *Bus) IrqLine() bool {
	return b.audioIrq || b.cartIrq
}

// OnFrame is called by the PPU when a frame is complete.
func (b *Bus) OnFrame() {
	b.apu.SyncFrame()
}

// Reset resets the console as the reset button does. RAM and the
// cartridge are left untouched.
func (b *Bus) Reset() {
	b.dma, b.oamDma, b.dmcDma = false, false, false
	b.DescheduleAll(scheduler.CpuNmi)

	b.ppu.Reset()
	b.apu.Reset()
	b.cpu.Reset()
	b.UpdateA12Sensitivity()
}

// PowerOn puts the whole console in its power on state.
func (b *Bus) PowerOn() {
	b.s.Reset()
	b.cpuCycles, b.ppuCycles = 0, 0
	b.clearRam()
	b.pads[0].Write(0)
	b.pads[1].Write(0)
	if b.cart != nil {
		b.cart.Attach(b)
	}

	b.dma, b.oamDma, b.dmcDma = false, false, false
	b.audioIrq, b.cartIrq = false, false
	b.cpu.SetIrq(false)
	b.ppu.Reset()
	b.apu.Reset()
	b.UpdateA12Sensitivity()
	b.cpu.PowerOn()
}

var _ types.Stater = (*Bus)(nil)

// Load restores the bus and everything attached to it.
func (b *Bus) Load(s *types.State) {
	s.ReadData(b.ram[:])
	s.ReadData(b.ciRam[:])
	b.cpuCycles = s.Read32()
	b.ppuCycles = s.Read32()
	b.dma = s.ReadBool()
	b.oamDma = s.ReadBool()
	b.dmcDma = s.ReadBool()
	b.oamAddress = s.Read16()
	b.dmcAddress = s.Read16()
	b.audioIrq = s.ReadBool()
	b.cartIrq = s.ReadBool()
	b.s.Load(s)

	b.cpu.Load(s)
	b.ppu.Load(s)
	b.apu.Load(s)
	b.pads[0].Load(s)
	b.pads[1].Load(s)
	if b.cart != nil {
		b.cart.Load(s)
		b.UpdateA12Sensitivity()
	}
}

// Save writes the state of the bus and everything attached to it.
func (b *Bus) Save(s *types.State) {
	s.WriteData(b.ram[:])
	s.WriteData(b.ciRam[:])
	s.Write32(b.cpuCycles)
	s.Write32(b.ppuCycles)
	s.WriteBool(b.dma)
	s.WriteBool(b.oamDma)
	s.WriteBool(b.dmcDma)
	s.Write16(b.oamAddress)
	s.Write16(b.dmcAddress)
	s.WriteBool(b.audioIrq)
	s.WriteBool(b.cartIrq)
	b.s.Save(s)

	b.cpu.Save(s)
	b.ppu.Save(s)
	b.apu.Save(s)
	b.pads[0].Save(s)
	b.pads[1].Save(s)
	if b.cart != nil {
		b.cart.Save(s)
	}
}
