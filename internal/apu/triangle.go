package apu

import "github.com/thelolagemann/nescore/internal/types"

var triangleTable = [32]uint8{
	15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0,
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

// triangle is the triangle wave channel. Its timer runs at the CPU rate
// and the sequencer only advances while both the length counter and the
// linear counter are non-zero.
type triangle struct {
	channel

	sequence uint8
	period   uint16
	timer    uint32

	linearReloadValue uint8
	linearCounter     uint8
	linearReload      bool
}

func (t *triangle) write(register uint16, value uint8) {
	switch register & 3 {
	case 0:
		t.halt = value&0x80 != 0
		t.linearReloadValue = value & 0x7f
	case 2:
		t.period = t.period&0x0700 | uint16(value)
	case 3:
		t.period = t.period&0x00ff | uint16(value&7)<<8
		t.loadLength(value >> 3)
		t.linearReload = true
	}
}

func (t *triangle) Run(cycles uint32) {
	if !t.active() || t.linearCounter == 0 {
		return
	}
	period := uint32(t.period) + 1
	for cycles > 0 {
		if cycles < t.timer {
			t.timer -= cycles
			return
		}
		cycles -= t.timer
		t.timer = period
		t.sequence = (t.sequence + 1) & 31
	}
}

func (t *triangle) QuarterFrame() {
	if t.linearReload {
		t.linearCounter = t.linearReloadValue
	} else if t.linearCounter > 0 {
		t.linearCounter--
	}
	// the control flag doubles as the length counter halt
	if !t.halt {
		t.linearReload = false
	}
}

func (t *triangle) HalfFrame() {
	t.lengthStep()
}

// Sample returns the output of the channel, 0-15. The sequencer holds
// its position when silenced, so the output doesn't pop.
func (t *triangle) Sample() uint8 {
	return triangleTable[t.sequence]
}

func (t *triangle) save(s *types.State) {
	t.channel.save(s)
	s.Write8(t.sequence)
	s.Write16(t.period)
	s.Write32(t.timer)
	s.Write8(t.linearReloadValue)
	s.Write8(t.linearCounter)
	s.WriteBool(t.linearReload)
}

func (t *triangle) load(s *types.State) {
	t.channel.load(s)
	t.sequence = s.Read8()
	t.period = s.Read16()
	t.timer = s.Read32()
	t.linearReloadValue = s.Read8()
	t.linearCounter = s.Read8()
	t.linearReload = s.ReadBool()
}
