package cpu

// Instruction is an entry of the opcode table. fn runs every cycle of the
// instruction after the opcode fetch.
type Instruction struct {
	name string
	fn   func(*CPU)
}

// Name returns the mnemonic of the instruction.
func (i Instruction) Name() string {
	return i.name
}

// InstructionSet holds all 256 opcodes of the 2A03.
var InstructionSet [256]Instruction

// DefineInstruction defines the instruction in the InstructionSet, with
// the provided opcode.
func DefineInstruction(opcode uint8, name string, fn func(*CPU)) {
	InstructionSet[opcode] = Instruction{
		name: name,
		fn:   fn,
	}
}

func defineRead(opcode uint8, name string, m mode, op func(*CPU, uint8)) {
	DefineInstruction(opcode, name, func(c *CPU) {
		op(c, c.readOperand(m))
	})
}

func defineWrite(opcode uint8, name string, m mode, value func(*CPU) uint8) {
	DefineInstruction(opcode, name, func(c *CPU) {
		address := c.address(m)
		c.write(address, value(c))
	})
}

// defineModify defines a read-modify-write instruction. The unmodified
// value is written back before the result, which matters to registers
// with write side effects.
func defineModify(opcode uint8, name string, m mode, op func(*CPU, uint8) uint8) {
	if m == accumulator {
		DefineInstruction(opcode, name, func(c *CPU) {
			c.dummyRead()
			c.A = op(c, c.A)
		})
		return
	}
	DefineInstruction(opcode, name, func(c *CPU) {
		address := c.address(m)
		value := c.read(address)
		c.bus.CpuWrite2(address, value, op(c, value))
	})
}

func defineImplied(opcode uint8, name string, fn func(*CPU)) {
	DefineInstruction(opcode, name, func(c *CPU) {
		c.dummyRead()
		fn(c)
	})
}

func defineBranch(opcode uint8, name string, flag Flag, set bool) {
	DefineInstruction(opcode, name, func(c *CPU) {
		c.branch(c.isFlagSet(flag) == set)
	})
}

// branch takes one extra cycle when the branch is taken, and another
// when the target is on a different page.
func (c *CPU) branch(taken bool) {
	offset := int8(c.fetch())
	if !taken {
		return
	}
	c.dummyRead()
	target := c.PC + uint16(int16(offset))
	if target&0xff00 != c.PC&0xff00 {
		c.bus.CpuDummyRead(c.PC&0xff00 | target&0x00ff)
	}
	c.PC = target
}

// storeHigh is the unstable store of SHA, SHX, SHY and TAS: the value is
// ANDed with the high byte of the base address plus one and, when a page
// is crossed, also replaces the high byte of the target.
func (c *CPU) storeHigh(base uint16, index, value uint8) {
	address := base + uint16(index)
	c.bus.CpuDummyRead(base&0xff00 | address&0x00ff)
	value &= uint8(base>>8) + 1
	if address&0xff00 != base&0xff00 {
		address = uint16(value)<<8 | address&0x00ff
	}
	c.write(address, value)
}

func jam(c *CPU) {
	c.dummyRead()
	c.jammed = true
}

func init() {
	// column 1: ORA AND EOR ADC STA LDA CMP SBC
	alu := [8]struct {
		name string
		op   func(*CPU, uint8)
	}{
		{"ORA", (*CPU).or},
		{"AND", (*CPU).and},
		{"EOR", (*CPU).xor},
		{"ADC", (*CPU).add},
		{"STA", nil},
		{"LDA", func(c *CPU, v uint8) { c.A = v; c.setZN(v) }},
		{"CMP", func(c *CPU, v uint8) { c.compare(c.A, v) }},
		{"SBC", (*CPU).subtract},
	}
	for row, a := range alu {
		for col, m := range groupModes {
			opcode := uint8(row<<5 | col<<2 | 0x01)
			switch {
			case a.op != nil:
				defineRead(opcode, a.name, m, a.op)
			case m == immediate:
				defineRead(opcode, "NOP", m, func(*CPU, uint8) {})
			default:
				defineWrite(opcode, a.name, m, func(c *CPU) uint8 { return c.A })
			}
		}
	}

	// column 3: undocumented combinations of columns 1 and 2
	rmw := [8]struct {
		name string
		op   func(*CPU, uint8) uint8
	}{
		{"SLO", (*CPU).slo},
		{"RLA", (*CPU).rla},
		{"SRE", (*CPU).sre},
		{"RRA", (*CPU).rra},
		4: {},
		5: {},
		{"DCP", (*CPU).dcp},
		{"ISB", (*CPU).isb},
	}
	for row, r := range rmw {
		if r.op == nil {
			continue
		}
		for col, m := range groupModes {
			if m != immediate {
				defineModify(uint8(row<<5|col<<2|0x03), r.name, m, r.op)
			}
		}
	}
	defineRead(0x0b, "ANC", immediate, (*CPU).anc)
	defineRead(0x2b, "ANC", immediate, (*CPU).anc)
	defineRead(0x4b, "ALR", immediate, (*CPU).alr)
	defineRead(0x6b, "ARR", immediate, (*CPU).arr)
	defineRead(0xcb, "AXS", immediate, (*CPU).axs)
	defineRead(0xeb, "SBC", immediate, (*CPU).subtract)

	sax := func(c *CPU) uint8 { return c.A & c.X }
	defineWrite(0x83, "SAX", indirectX, sax)
	defineWrite(0x87, "SAX", zeroPage, sax)
	defineWrite(0x8f, "SAX", absolute, sax)
	defineWrite(0x97, "SAX", zeroPageY, sax)
	// XAA and LXA depend on analogue effects, the common 0xff magic
	// constant is used
	defineRead(0x8b, "XAA", immediate, func(c *CPU, v uint8) {
		c.A = c.X & v
		c.setZN(c.A)
	})
	DefineInstruction(0x93, "SHA", func(c *CPU) {
		ptr := c.fetch()
		lo := c.bus.CpuReadZeroPage(uint16(ptr))
		hi := c.bus.CpuReadZeroPage(uint16(ptr + 1))
		c.storeHigh(uint16(hi)<<8|uint16(lo), c.Y, c.A&c.X)
	})
	DefineInstruction(0x9b, "TAS", func(c *CPU) {
		base := c.fetch16()
		c.S = c.A & c.X
		c.storeHigh(base, c.Y, c.S)
	})
	DefineInstruction(0x9f, "SHA", func(c *CPU) {
		c.storeHigh(c.fetch16(), c.Y, c.A&c.X)
	})

	lax := func(c *CPU, v uint8) {
		c.A, c.X = v, v
		c.setZN(v)
	}
	defineRead(0xa3, "LAX", indirectX, lax)
	defineRead(0xa7, "LAX", zeroPage, lax)
	defineRead(0xab, "LXA", immediate, lax)
	defineRead(0xaf, "LAX", absolute, lax)
	defineRead(0xb3, "LAX", indirectY, lax)
	defineRead(0xb7, "LAX", zeroPageY, lax)
	defineRead(0xbb, "LAS", absoluteY, func(c *CPU, v uint8) {
		v &= c.S
		c.A, c.X, c.S = v, v, v
		c.setZN(v)
	})
	defineRead(0xbf, "LAX", absoluteY, lax)

	// column 2: shifts, increments and X register transfers
	shifts := [8]struct {
		name string
		op   func(*CPU, uint8) uint8
	}{
		{"ASL", (*CPU).shiftLeft},
		{"ROL", (*CPU).rotateLeft},
		{"LSR", (*CPU).shiftRight},
		{"ROR", (*CPU).rotateRight},
		4: {},
		5: {},
		{"DEC", (*CPU).decrement},
		{"INC", (*CPU).increment},
	}
	for row, s := range shifts {
		base := uint8(row<<5 | 0x02)
		DefineInstruction(base|0x10, "JAM", jam)
		if s.op == nil {
			continue
		}
		defineModify(base|0x04, s.name, zeroPage, s.op)
		defineModify(base|0x0c, s.name, absolute, s.op)
		defineModify(base|0x14, s.name, zeroPageX, s.op)
		defineModify(base|0x1c, s.name, absoluteX, s.op)
		if row < 4 {
			DefineInstruction(base, "JAM", jam)
			defineModify(base|0x08, s.name, accumulator, s.op)
			defineImplied(base|0x18, "NOP", func(*CPU) {})
		} else {
			defineRead(base, "NOP", immediate, func(*CPU, uint8) {})
		}
	}
	defineImplied(0xca, "DEX", func(c *CPU) { c.X = c.decrement(c.X) })
	defineImplied(0xda, "NOP", func(*CPU) {})
	defineImplied(0xea, "NOP", func(*CPU) {})
	defineImplied(0xfa, "NOP", func(*CPU) {})

	stx := func(c *CPU) uint8 { return c.X }
	defineRead(0x82, "NOP", immediate, func(*CPU, uint8) {})
	defineWrite(0x86, "STX", zeroPage, stx)
	defineImplied(0x8a, "TXA", func(c *CPU) { c.A = c.X; c.setZN(c.A) })
	defineWrite(0x8e, "STX", absolute, stx)
	defineWrite(0x96, "STX", zeroPageY, stx)
	defineImplied(0x9a, "TXS", func(c *CPU) { c.S = c.X })
	DefineInstruction(0x9e, "SHX", func(c *CPU) {
		c.storeHigh(c.fetch16(), c.Y, c.X)
	})

	ldx := func(c *CPU, v uint8) { c.X = v; c.setZN(v) }
	defineRead(0xa2, "LDX", immediate, ldx)
	defineRead(0xa6, "LDX", zeroPage, ldx)
	defineImplied(0xaa, "TAX", func(c *CPU) { c.X = c.A; c.setZN(c.X) })
	defineRead(0xae, "LDX", absolute, ldx)
	defineRead(0xb6, "LDX", zeroPageY, ldx)
	defineImplied(0xba, "TSX", func(c *CPU) { c.X = c.S; c.setZN(c.X) })
	defineRead(0xbe, "LDX", absoluteY, ldx)

	// column 0: control flow, stack, flags and the Y register
	DefineInstruction(0x00, "BRK", func(c *CPU) {
		c.fetch()
		c.interrupt(IrqVector, true)
	})
	DefineInstruction(0x20, "JSR", func(c *CPU) {
		lo := c.fetch()
		c.peekStack()
		c.push(uint8(c.PC >> 8))
		c.push(uint8(c.PC))
		hi := c.fetch()
		c.PC = uint16(hi)<<8 | uint16(lo)
	})
	DefineInstruction(0x40, "RTI", func(c *CPU) {
		c.dummyRead()
		c.peekStack()
		c.P = c.pull() &^ (1<<FlagBreak | 1<<FlagUnused)
		lo := c.pull()
		hi := c.pull()
		c.PC = uint16(hi)<<8 | uint16(lo)
	})
	DefineInstruction(0x60, "RTS", func(c *CPU) {
		c.dummyRead()
		c.peekStack()
		lo := c.pull()
		hi := c.pull()
		c.PC = uint16(hi)<<8 | uint16(lo)
		c.fetch()
	})
	DefineInstruction(0x4c, "JMP", func(c *CPU) {
		c.PC = c.fetch16()
	})
	DefineInstruction(0x6c, "JMP", func(c *CPU) {
		ptr := c.fetch16()
		lo := c.bus.CpuReadData(ptr)
		// the pointer's high byte is fetched without carry into the page
		hi := c.bus.CpuReadData(ptr&0xff00 | (ptr+1)&0x00ff)
		c.PC = uint16(hi)<<8 | uint16(lo)
	})

	defineImplied(0x08, "PHP", func(c *CPU) {
		c.push(c.P | 1<<FlagBreak | 1<<FlagUnused)
	})
	defineImplied(0x28, "PLP", func(c *CPU) {
		c.peekStack()
		c.P = c.pull() &^ (1<<FlagBreak | 1<<FlagUnused)
		c.delayI = true
	})
	defineImplied(0x48, "PHA", func(c *CPU) {
		c.push(c.A)
	})
	defineImplied(0x68, "PLA", func(c *CPU) {
		c.peekStack()
		c.A = c.pull()
		c.setZN(c.A)
	})

	defineBranch(0x10, "BPL", FlagNegative, false)
	defineBranch(0x30, "BMI", FlagNegative, true)
	defineBranch(0x50, "BVC", FlagOverflow, false)
	defineBranch(0x70, "BVS", FlagOverflow, true)
	defineBranch(0x90, "BCC", FlagCarry, false)
	defineBranch(0xb0, "BCS", FlagCarry, true)
	defineBranch(0xd0, "BNE", FlagZero, false)
	defineBranch(0xf0, "BEQ", FlagZero, true)

	defineImplied(0x18, "CLC", func(c *CPU) { c.clearFlag(FlagCarry) })
	defineImplied(0x38, "SEC", func(c *CPU) { c.setFlag(FlagCarry) })
	defineImplied(0x58, "CLI", func(c *CPU) {
		c.clearFlag(FlagInterrupt)
		c.delayI = true
	})
	defineImplied(0x78, "SEI", func(c *CPU) {
		c.setFlag(FlagInterrupt)
		c.delayI = true
	})
	defineImplied(0xb8, "CLV", func(c *CPU) { c.clearFlag(FlagOverflow) })
	defineImplied(0xd8, "CLD", func(c *CPU) { c.clearFlag(FlagDecimal) })
	defineImplied(0xf8, "SED", func(c *CPU) { c.setFlag(FlagDecimal) })

	bit := (*CPU).bit
	defineRead(0x24, "BIT", zeroPage, bit)
	defineRead(0x2c, "BIT", absolute, bit)

	sty := func(c *CPU) uint8 { return c.Y }
	defineWrite(0x84, "STY", zeroPage, sty)
	defineWrite(0x8c, "STY", absolute, sty)
	defineWrite(0x94, "STY", zeroPageX, sty)
	defineImplied(0x88, "DEY", func(c *CPU) { c.Y = c.decrement(c.Y) })
	defineImplied(0x98, "TYA", func(c *CPU) { c.A = c.Y; c.setZN(c.A) })
	DefineInstruction(0x9c, "SHY", func(c *CPU) {
		c.storeHigh(c.fetch16(), c.X, c.Y)
	})

	ldy := func(c *CPU, v uint8) { c.Y = v; c.setZN(v) }
	defineRead(0xa0, "LDY", immediate, ldy)
	defineRead(0xa4, "LDY", zeroPage, ldy)
	defineImplied(0xa8, "TAY", func(c *CPU) { c.Y = c.A; c.setZN(c.Y) })
	defineRead(0xac, "LDY", absolute, ldy)
	defineRead(0xb4, "LDY", zeroPageX, ldy)
	defineRead(0xbc, "LDY", absoluteX, ldy)

	cpy := func(c *CPU, v uint8) { c.compare(c.Y, v) }
	defineRead(0xc0, "CPY", immediate, cpy)
	defineRead(0xc4, "CPY", zeroPage, cpy)
	defineImplied(0xc8, "INY", func(c *CPU) { c.Y = c.increment(c.Y) })
	defineRead(0xcc, "CPY", absolute, cpy)

	cpx := func(c *CPU, v uint8) { c.compare(c.X, v) }
	defineRead(0xe0, "CPX", immediate, cpx)
	defineRead(0xe4, "CPX", zeroPage, cpx)
	defineImplied(0xe8, "INX", func(c *CPU) { c.X = c.increment(c.X) })
	defineRead(0xec, "CPX", absolute, cpx)

	nop := func(*CPU, uint8) {}
	defineRead(0x80, "NOP", immediate, nop)
	for _, opcode := range []uint8{0x04, 0x44, 0x64} {
		defineRead(opcode, "NOP", zeroPage, nop)
	}
	defineRead(0x0c, "NOP", absolute, nop)
	for _, opcode := range []uint8{0x14, 0x34, 0x54, 0x74, 0xd4, 0xf4} {
		defineRead(opcode, "NOP", zeroPageX, nop)
		defineRead(opcode|0x08, "NOP", absoluteX, nop)
	}
}
