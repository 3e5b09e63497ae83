// Package cpu provides an implementation of the 2A03's 6502 core. The
// CPU has no clock of its own: every memory cycle, including the dummy
// reads of the addressing modes and interrupt sequences, is a call to
// the Bus, which advances the rest of the console by one CPU cycle.
package cpu

import (
	"fmt"

	"github.com/thelolagemann/nescore/internal/types"
)

const (
	// NmiVector holds the address of the NMI handler.
	NmiVector uint16 = 0xfffa
	// ResetVector holds the address execution starts from.
	ResetVector uint16 = 0xfffc
	// IrqVector holds the address of the IRQ and BRK handler.
	IrqVector uint16 = 0xfffe
)

// Bus is the console bus as seen by the CPU. Each call is exactly one
// CPU cycle, apart from CpuWrite2 which is two.
type Bus interface {
	CpuReadData(address uint16) uint8
	// CpuReadZeroPage reads internal RAM below 0x200, used for the zero
	// page and the stack.
	CpuReadZeroPage(address uint16) uint8
	// CpuReadProgramData reads an opcode or an operand.
	CpuReadProgramData(address uint16) uint8
	CpuDummyRead(address uint16)
	CpuWrite(address uint16, value uint8)
	CpuWriteZeroPage(address uint16, value uint8)
	// CpuWrite2 performs the two write cycles of a read-modify-write
	// instruction, the unmodified value followed by the result.
	CpuWrite2(address uint16, first, second uint8)
}

// Registers is a snapshot of the CPU registers.
type Registers struct {
	A, X, Y uint8
	S       uint8  // Stack pointer, into page 0x100
	P       uint8  // Status, bit 5 reads as set
	PC      uint16 // Program counter
}

func (r Registers) String() string {
	return fmt.Sprintf("A:%02X X:%02X Y:%02X P:%02X SP:%02X PC:%04X", r.A, r.X, r.Y, r.P, r.S, r.PC)
}

// CPU represents the 6502 core of the 2A03. It is responsible for
// executing instructions and taking interrupts.
type CPU struct {
	A, X, Y uint8
	S       uint8
	P       uint8
	PC      uint16

	bus Bus

	irqLine    bool // IRQ line, already delayed by the bus
	nmiPending bool // NMI edge latched, taken before the next instruction
	pollI      bool // I flag as seen by the interrupt poll
	delayI     bool // set by CLI, SEI and PLP, the poll keeps the old I flag

	jammed bool
}

// New creates a new CPU on the given bus. PowerOn or Reset must be
// called before the first instruction.
func New(b Bus) *CPU {
	return &CPU{bus: b}
}

// PowerOn clears the registers and runs the reset sequence.
func (c *CPU) PowerOn() {
	c.A, c.X, c.Y = 0, 0, 0
	c.S = 0
	c.P = 0
	c.Reset()
}

// Reset runs the 7 cycle reset sequence. It is an interrupt sequence
// whose three stack writes are turned into reads, so the stack pointer
// is decremented by three and memory is left unchanged.
func (c *CPU) Reset() {
	c.jammed = false
	c.nmiPending = false
	c.delayI = false

	c.bus.CpuDummyRead(c.PC)
	c.bus.CpuDummyRead(c.PC)
	for i := 0; i < 3; i++ {
		c.bus.CpuDummyRead(0x100 | uint16(c.S))
		c.S--
	}
	c.setFlag(FlagInterrupt)
	c.pollI = true
	c.PC = c.readVector(ResetVector)
}

// SetIrq sets the level of the IRQ line.
func (c *CPU) SetIrq(irq bool) {
	c.irqLine = irq
}

// Nmi latches an NMI, taken before the next instruction or used to
// hijack an interrupt sequence already in progress.
func (c *CPU) Nmi() {
	c.nmiPending = true
}

// Jammed reports whether the CPU has executed a JAM opcode. A jammed
// CPU only ticks until reset.
func (c *CPU) Jammed() bool {
	return c.jammed
}

// Registers returns the current state of the registers.
func (c *CPU) Registers() Registers {
	return Registers{A: c.A, X: c.X, Y: c.Y, S: c.S, P: c.P | 1<<FlagUnused, PC: c.PC}
}

// SetRegisters overwrites the registers, for instance to start
// execution at a fixed address.
func (c *CPU) SetRegisters(r Registers) {
	c.A, c.X, c.Y, c.S, c.PC = r.A, r.X, r.Y, r.S, r.PC
	c.P = r.P &^ (1<<FlagBreak | 1<<FlagUnused)
	c.pollI = c.isFlagSet(FlagInterrupt)
}

// RunInstruction either takes a pending interrupt or executes the next
// instruction.
func (c *CPU) RunInstruction() {
	if c.jammed {
		c.bus.CpuDummyRead(c.PC)
		return
	}

	if c.nmiPending {
		c.nmiPending = false
		c.bus.CpuDummyRead(c.PC)
		c.bus.CpuDummyRead(c.PC)
		c.interrupt(NmiVector, false)
		return
	}
	if c.irqLine && !c.pollI {
		c.bus.CpuDummyRead(c.PC)
		c.bus.CpuDummyRead(c.PC)
		c.interrupt(IrqVector, false)
		return
	}

	i := c.isFlagSet(FlagInterrupt)
	InstructionSet[c.fetch()].fn(c)
	if c.delayI {
		c.delayI = false
		c.pollI = i
	} else {
		c.pollI = c.isFlagSet(FlagInterrupt)
	}
}

// interrupt pushes the return address and status and jumps through the
// vector. An NMI arriving before the status push completes hijacks an
// IRQ or BRK sequence, which then jumps through the NMI vector.
func (c *CPU) interrupt(vector uint16, brk bool) {
	c.push(uint8(c.PC >> 8))
	c.push(uint8(c.PC))

	p := c.P | 1<<FlagUnused
	if brk {
		p |= 1 << FlagBreak
	}
	c.push(p)

	if vector != NmiVector && c.nmiPending {
		c.nmiPending = false
		vector = NmiVector
	}

	c.setFlag(FlagInterrupt)
	c.pollI = true
	c.PC = c.readVector(vector)
}

func (c *CPU) readVector(vector uint16) uint16 {
	lo := c.bus.CpuReadData(vector)
	hi := c.bus.CpuReadData(vector + 1)
	return uint16(hi)<<8 | uint16(lo)
}

var _ types.Stater = (*CPU)(nil)

func (c *CPU) Load(s *types.State) {
	c.A = s.Read8()
	c.X = s.Read8()
	c.Y = s.Read8()
	c.S = s.Read8()
	c.P = s.Read8()
	c.PC = s.Read16()
	c.irqLine = s.ReadBool()
	c.nmiPending = s.ReadBool()
	c.pollI = s.ReadBool()
	c.jammed = s.ReadBool()
	c.delayI = false
}

func (c *CPU) Save(s *types.State) {
	s.Write8(c.A)
	s.Write8(c.X)
	s.Write8(c.Y)
	s.Write8(c.S)
	s.Write8(c.P)
	s.Write16(c.PC)
	s.WriteBool(c.irqLine)
	s.WriteBool(c.nmiPending)
	s.WriteBool(c.pollI)
	s.WriteBool(c.jammed)
}
