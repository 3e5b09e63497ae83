package cpu

// add adds value and the carry to A.
//
//	Flags affected:
//	N Z - Set from the result.
//	C   - Set on unsigned overflow.
//	V   - Set on signed overflow.
func (c *CPU) add(value uint8) {
	sum := uint16(c.A) + uint16(value) + uint16(c.carry())
	result := uint8(sum)
	c.setFlagTo(FlagCarry, sum > 0xff)
	c.setFlagTo(FlagOverflow, (c.A^result)&(value^result)&0x80 != 0)
	c.A = result
	c.setZN(result)
}

// subtract subtracts value and the inverted carry from A. Without the
// decimal mode, this is an addition of the complement.
func (c *CPU) subtract(value uint8) {
	c.add(^value)
}

// compare sets the flags from register - value.
//
//	Flags affected:
//	N Z - Set from the difference.
//	C   - Set if register >= value.
func (c *CPU) compare(register, value uint8) {
	c.setFlagTo(FlagCarry, register >= value)
	c.setZN(register - value)
}

func (c *CPU) and(value uint8) {
	c.A &= value
	c.setZN(c.A)
}

func (c *CPU) or(value uint8) {
	c.A |= value
	c.setZN(c.A)
}

func (c *CPU) xor(value uint8) {
	c.A ^= value
	c.setZN(c.A)
}

// bit tests A against value.
//
//	Flags affected:
//	Z - Set if A & value is zero.
//	V - Bit 6 of value.
//	N - Bit 7 of value.
func (c *CPU) bit(value uint8) {
	c.setFlagTo(FlagZero, c.A&value == 0)
	c.setFlagTo(FlagOverflow, value&0x40 != 0)
	c.setFlagTo(FlagNegative, value&0x80 != 0)
}

func (c *CPU) shiftLeft(value uint8) uint8 {
	c.setFlagTo(FlagCarry, value&0x80 != 0)
	value <<= 1
	c.setZN(value)
	return value
}

func (c *CPU) shiftRight(value uint8) uint8 {
	c.setFlagTo(FlagCarry, value&0x01 != 0)
	value >>= 1
	c.setZN(value)
	return value
}

func (c *CPU) rotateLeft(value uint8) uint8 {
	carry := c.carry()
	c.setFlagTo(FlagCarry, value&0x80 != 0)
	value = value<<1 | carry
	c.setZN(value)
	return value
}

func (c *CPU) rotateRight(value uint8) uint8 {
	carry := c.carry()
	c.setFlagTo(FlagCarry, value&0x01 != 0)
	value = value>>1 | carry<<7
	c.setZN(value)
	return value
}

func (c *CPU) increment(value uint8) uint8 {
	value++
	c.setZN(value)
	return value
}

func (c *CPU) decrement(value uint8) uint8 {
	value--
	c.setZN(value)
	return value
}

// The undocumented read-modify-write instructions combine a shift or an
// increment with an ALU operation on the result.

func (c *CPU) slo(value uint8) uint8 {
	value = c.shiftLeft(value)
	c.or(value)
	return value
}

func (c *CPU) rla(value uint8) uint8 {
	value = c.rotateLeft(value)
	c.and(value)
	return value
}

func (c *CPU) sre(value uint8) uint8 {
	value = c.shiftRight(value)
	c.xor(value)
	return value
}

func (c *CPU) rra(value uint8) uint8 {
	value = c.rotateRight(value)
	c.add(value)
	return value
}

func (c *CPU) dcp(value uint8) uint8 {
	value--
	c.compare(c.A, value)
	return value
}

func (c *CPU) isb(value uint8) uint8 {
	value++
	c.subtract(value)
	return value
}

// anc is AND with the carry copied from bit 7 of the result.
func (c *CPU) anc(value uint8) {
	c.and(value)
	c.setFlagTo(FlagCarry, c.A&0x80 != 0)
}

// alr is AND followed by LSR A.
func (c *CPU) alr(value uint8) {
	c.A = c.shiftRight(c.A & value)
}

// arr is AND followed by ROR A, with C and V taken from bits 6 and 5 of
// the result.
func (c *CPU) arr(value uint8) {
	c.A = (c.A&value)>>1 | c.carry()<<7
	c.setZN(c.A)
	c.setFlagTo(FlagCarry, c.A&0x40 != 0)
	c.setFlagTo(FlagOverflow, (c.A>>6^c.A>>5)&1 != 0)
}

// axs sets X to (A & X) - value, with the flags of a compare.
func (c *CPU) axs(value uint8) {
	ax := c.A & c.X
	c.setFlagTo(FlagCarry, ax >= value)
	c.X = ax - value
	c.setZN(c.X)
}
