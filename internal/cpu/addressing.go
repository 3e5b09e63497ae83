package cpu

// mode is an addressing mode.
type mode uint8

const (
	implied mode = iota
	accumulator
	immediate
	zeroPage
	zeroPageX
	zeroPageY
	absolute
	absoluteX
	absoluteY
	indirectX
	indirectY
)

// groupModes is the addressing mode selected by bits 2-4 of the opcodes
// in columns 1 and 3 of the opcode matrix.
var groupModes = [8]mode{indirectX, zeroPage, immediate, absolute, indirectY, zeroPageX, absoluteY, absoluteX}

// fetch reads the byte at PC and increments it.
func (c *CPU) fetch() uint8 {
	v := c.bus.CpuReadProgramData(c.PC)
	c.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := c.fetch()
	hi := c.fetch()
	return uint16(hi)<<8 | uint16(lo)
}

// dummyRead is the second cycle of single byte instructions.
func (c *CPU) dummyRead() {
	c.bus.CpuDummyRead(c.PC)
}

func (c *CPU) read(address uint16) uint8 {
	if address < 0x100 {
		return c.bus.CpuReadZeroPage(address)
	}
	return c.bus.CpuReadData(address)
}

func (c *CPU) write(address uint16, value uint8) {
	if address < 0x100 {
		c.bus.CpuWriteZeroPage(address, value)
		return
	}
	c.bus.CpuWrite(address, value)
}

func (c *CPU) push(value uint8) {
	c.bus.CpuWriteZeroPage(0x100|uint16(c.S), value)
	c.S--
}

func (c *CPU) pull() uint8 {
	c.S++
	return c.bus.CpuReadZeroPage(0x100 | uint16(c.S))
}

// peekStack is the dummy stack read before a pull.
func (c *CPU) peekStack() {
	c.bus.CpuDummyRead(0x100 | uint16(c.S))
}

// zeroPageIndexed reads the operand, then the unindexed address while
// the index is added. The result wraps within the zero page.
func (c *CPU) zeroPageIndexed(index uint8) uint16 {
	base := c.fetch()
	c.bus.CpuDummyRead(uint16(base))
	return uint16(base + index)
}

// absoluteIndexed returns the effective address of an indexed absolute
// operand. The CPU first reads from the address with the uncorrected
// high byte, which is the final address unless a page was crossed. Reads
// skip the extra cycle when no page was crossed, writes always take it.
func (c *CPU) absoluteIndexed(index uint8, write bool) uint16 {
	base := c.fetch16()
	address := base + uint16(index)
	if write || address&0xff00 != base&0xff00 {
		c.bus.CpuDummyRead(base&0xff00 | address&0x00ff)
	}
	return address
}

// indirectX returns the address stored at (operand + X) in the zero page.
func (c *CPU) indirectX() uint16 {
	ptr := c.fetch()
	c.bus.CpuDummyRead(uint16(ptr))
	ptr += c.X
	lo := c.bus.CpuReadZeroPage(uint16(ptr))
	hi := c.bus.CpuReadZeroPage(uint16(ptr + 1))
	return uint16(hi)<<8 | uint16(lo)
}

// indirectY returns the address stored at operand in the zero page plus
// Y, with the same page crossing behaviour as absoluteIndexed.
func (c *CPU) indirectY(write bool) uint16 {
	ptr := c.fetch()
	lo := c.bus.CpuReadZeroPage(uint16(ptr))
	hi := c.bus.CpuReadZeroPage(uint16(ptr + 1))
	base := uint16(hi)<<8 | uint16(lo)
	address := base + uint16(c.Y)
	if write || address&0xff00 != base&0xff00 {
		c.bus.CpuDummyRead(base&0xff00 | address&0x00ff)
	}
	return address
}

// readOperand performs the addressing cycles of a read instruction and
// returns its operand.
func (c *CPU) readOperand(m mode) uint8 {
	switch m {
	case immediate:
		return c.fetch()
	case zeroPage:
		return c.bus.CpuReadZeroPage(uint16(c.fetch()))
	case zeroPageX:
		return c.bus.CpuReadZeroPage(c.zeroPageIndexed(c.X))
	case zeroPageY:
		return c.bus.CpuReadZeroPage(c.zeroPageIndexed(c.Y))
	case absolute:
		return c.read(c.fetch16())
	case absoluteX:
		return c.read(c.absoluteIndexed(c.X, false))
	case absoluteY:
		return c.read(c.absoluteIndexed(c.Y, false))
	case indirectX:
		return c.read(c.indirectX())
	case indirectY:
		return c.read(c.indirectY(false))
	}
	panic("cpu: no operand for addressing mode")
}

// address performs the addressing cycles of a write or read-modify-write
// instruction and returns the effective address.
func (c *CPU) address(m mode) uint16 {
	switch m {
	case zeroPage:
		return uint16(c.fetch())
	case zeroPageX:
		return c.zeroPageIndexed(c.X)
	case zeroPageY:
		return c.zeroPageIndexed(c.Y)
	case absolute:
		return c.fetch16()
	case absoluteX:
		return c.absoluteIndexed(c.X, true)
	case absoluteY:
		return c.absoluteIndexed(c.Y, true)
	case indirectX:
		return c.indirectX()
	case indirectY:
		return c.indirectY(true)
	}
	panic("cpu: no address for addressing mode")
}
