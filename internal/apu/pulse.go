package apu

import "github.com/thelolagemann/nescore/internal/types"

var dutyTable = [4][8]uint8{
	{0, 1, 0, 0, 0, 0, 0, 0},
	{0, 1, 1, 0, 0, 0, 0, 0},
	{0, 1, 1, 1, 1, 0, 0, 0},
	{1, 0, 0, 1, 1, 1, 1, 1},
}

// pulse is one of the two square wave channels.
type pulse struct {
	volumeChannel

	// onesComplement is set for pulse 1, whose sweep subtracts one more
	// when negating.
	onesComplement bool

	duty     uint8
	sequence uint8
	period   uint16 // 11 bit timer period
	timer    uint32 // CPU cycles until the next sequencer step

	sweepEnabled bool
	sweepPeriod  uint8
	sweepNegate  bool
	sweepShift   uint8
	sweepReload  bool
	sweepDivider uint8
}

func (p *pulse) write(register uint16, value uint8) {
	switch register & 3 {
	case 0:
		p.duty = value >> 6
		p.setControl(value)
	case 1:
		p.sweepEnabled = value&0x80 != 0
		p.sweepPeriod = (value >> 4) & 7
		p.sweepNegate = value&0x08 != 0
		p.sweepShift = value & 7
		p.sweepReload = true
	case 2:
		p.period = p.period&0x0700 | uint16(value)
	case 3:
		p.period = p.period&0x00ff | uint16(value&7)<<8
		p.loadLength(value >> 3)
		p.sequence = 0
		p.start = true
	}
}

// Run advances the timer by cycles CPU cycles. The timer is clocked
// every other CPU cycle.
func (p *pulse) Run(cycles uint32) {
	period := (uint32(p.period) + 1) * 2
	for cycles > 0 {
		if cycles < p.timer {
			p.timer -= cycles
			return
		}
		cycles -= p.timer
		p.timer = period
		p.sequence = (p.sequence + 1) & 7
	}
}

// targetPeriod is the period the sweep unit would set.
func (p *pulse) targetPeriod() uint16 {
	delta := p.period >> p.sweepShift
	if !p.sweepNegate {
		return p.period + delta
	}
	if p.onesComplement {
		delta++
	}
	if delta > p.period {
		return 0
	}
	return p.period - delta
}

// muted reports whether the sweep unit silences the channel, which it
// does even when the sweep is disabled.
func (p *pulse) muted() bool {
	return p.period < 8 || p.targetPeriod() > 0x7ff
}

func (p *pulse) QuarterFrame() {
	p.volumeStep()
}

func (p *pulse) HalfFrame() {
	p.lengthStep()

	if p.sweepDivider == 0 && p.sweepEnabled && p.sweepShift > 0 && !p.muted() {
		p.period = p.targetPeriod()
	}
	if p.sweepDivider == 0 || p.sweepReload {
		p.sweepDivider = p.sweepPeriod
		p.sweepReload = false
	} else {
		p.sweepDivider--
	}
}

// Sample returns the output of the channel, 0-15.
func (p *pulse) Sample() uint8 {
	if !p.active() || p.muted() || dutyTable[p.duty][p.sequence] == 0 {
		return 0
	}
	return p.output()
}

func (p *pulse) save(s *types.State) {
	p.volumeChannel.save(s)
	s.Write8(p.duty)
	s.Write8(p.sequence)
	s.Write16(p.period)
	s.Write32(p.timer)
	s.WriteBool(p.sweepEnabled)
	s.Write8(p.sweepPeriod)
	s.WriteBool(p.sweepNegate)
	s.Write8(p.sweepShift)
	s.WriteBool(p.sweepReload)
	s.Write8(p.sweepDivider)
}

func (p *pulse) load(s *types.State) {
	p.volumeChannel.load(s)
	p.duty = s.Read8()
	p.sequence = s.Read8()
	p.period = s.Read16()
	p.timer = s.Read32()
	p.sweepEnabled = s.ReadBool()
	p.sweepPeriod = s.Read8()
	p.sweepNegate = s.ReadBool()
	p.sweepShift = s.Read8()
	p.sweepReload = s.ReadBool()
	p.sweepDivider = s.Read8()
}
