package cpu

// Flag is the bit position of a flag in the P register.
type Flag = uint8

const (
	FlagCarry     Flag = 0
	FlagZero      Flag = 1
	FlagInterrupt Flag = 2
	// FlagDecimal is stored but ignored, the 2A03 has no decimal mode.
	FlagDecimal Flag = 3
	// FlagBreak and FlagUnused only exist in copies of P pushed to the
	// stack.
	FlagBreak    Flag = 4
	FlagUnused   Flag = 5
	FlagOverflow Flag = 6
	FlagNegative Flag = 7
)

// clearFlag clears a flag from the P register.
func (c *CPU) clearFlag(flag Flag) {
	c.P &^= 1 << flag
}

// setFlag sets a flag in the P register.
func (c *CPU) setFlag(flag Flag) {
	c.P |= 1 << flag
}

// setFlagTo sets or clears a flag depending on cond.
func (c *CPU) setFlagTo(flag Flag, cond bool) {
	if cond {
		c.setFlag(flag)
	} else {
		c.clearFlag(flag)
	}
}

// isFlagSet returns true if the given flag is set.
func (c *CPU) isFlagSet(flag Flag) bool {
	return c.P&(1<<flag) != 0
}

// carry returns the carry flag as 0 or 1.
func (c *CPU) carry() uint8 {
	return c.P & 1
}

// setZN sets the zero and negative flags from value.
func (c *CPU) setZN(value uint8) {
	c.setFlagTo(FlagZero, value == 0)
	c.setFlagTo(FlagNegative, value&0x80 != 0)
}
