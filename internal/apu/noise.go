package apu

import "github.com/thelolagemann/nescore/internal/types"

// noisePeriods are the NTSC timer periods, in CPU cycles.
var noisePeriods = [16]uint32{
	4, 8, 16, 32, 64, 96, 128, 160, 202, 254, 380, 508, 762, 1016, 2034, 4068,
}

// noise is the pseudo-random noise channel, a 15 bit LFSR clocked by its
// timer.
type noise struct {
	volumeChannel

	mode   bool // Short mode, feedback from bit 6 instead of bit 1
	period uint32
	timer  uint32
	shift  uint16
}

func (n *noise) write(register uint16, value uint8) {
	switch register & 3 {
	case 0:
		n.setControl(value)
	case 2:
		n.mode = value&0x80 != 0
		n.period = noisePeriods[value&0x0f]
	case 3:
		n.loadLength(value >> 3)
		n.start = true
	}
}

func (n *noise) Run(cycles uint32) {
	if n.period == 0 {
		n.period = noisePeriods[0]
	}
	for cycles > 0 {
		if cycles < n.timer {
			n.timer -= cycles
			return
		}
		cycles -= n.timer
		n.timer = n.period

		tap := uint16(1)
		if n.mode {
			tap = 6
		}
		feedback := (n.shift ^ n.shift>>tap) & 1
		n.shift = n.shift>>1 | feedback<<14
	}
}

func (n *noise) QuarterFrame() {
	n.volumeStep()
}

func (n *noise) HalfFrame() {
	n.lengthStep()
}

// Sample returns the output of the channel, 0-15.
func (n *noise) Sample() uint8 {
	if !n.active() || n.shift&1 != 0 {
		return 0
	}
	return n.output()
}

func (n *noise) save(s *types.State) {
	n.volumeChannel.save(s)
	s.WriteBool(n.mode)
	s.Write32(n.period)
	s.Write32(n.timer)
	s.Write16(n.shift)
}

func (n *noise) load(s *types.State) {
	n.volumeChannel.load(s)
	n.mode = s.ReadBool()
	n.period = s.Read32()
	n.timer = s.Read32()
	n.shift = s.Read16()
}
