package apu

import "github.com/thelolagemann/nescore/internal/types"

// lengthTable maps the 5 bit length index written to $4003/$4007/$400B/$400F
// to a length in half frames.
var lengthTable = [32]uint8{
	10, 254, 20, 2, 40, 4, 80, 6, 160, 8, 60, 10, 14, 12, 26, 14,
	12, 16, 24, 18, 48, 20, 96, 22, 192, 24, 72, 26, 16, 28, 32, 30,
}

// channel is the part shared by the pulse, triangle and noise channels:
// the enable bit of $4015 and the length counter, clocked by half frames.
type channel struct {
	enabled bool  // $4015 - Length loads are ignored while disabled
	halt    bool  // Length counter halt (also the envelope loop flag)
	length  uint8 // Length counter, the channel is silenced at 0
}

func (c *channel) setEnabled(enabled bool) {
	c.enabled = enabled
	if !enabled {
		c.length = 0
	}
}

func (c *channel) loadLength(index uint8) {
	if c.enabled {
		c.length = lengthTable[index&0x1f]
	}
}

func (c *channel) lengthStep() {
	if c.length > 0 && !c.halt {
		c.length--
	}
}

func (c *channel) active() bool {
	return c.length > 0
}

func (c *channel) save(s *types.State) {
	s.WriteBool(c.enabled)
	s.WriteBool(c.halt)
	s.Write8(c.length)
}

func (c *channel) load(s *types.State) {
	c.enabled = s.ReadBool()
	c.halt = s.ReadBool()
	c.length = s.Read8()
}

// volumeChannel adds the envelope generator of the pulse and noise
// channels, clocked by quarter frames.
type volumeChannel struct {
	channel

	constant bool  // Constant volume, the envelope only decays otherwise
	volume   uint8 // Constant volume, or the envelope divider period

	start   bool  // Restart the envelope on the next quarter frame
	divider uint8 // Envelope divider
	decay   uint8 // Envelope decay level
}

// setControl handles the shared layout of $4000/$4004/$400C.
func (v *volumeChannel) setControl(value uint8) {
	v.halt = value&0x20 != 0
	v.constant = value&0x10 != 0
	v.volume = value & 0x0f
}

func (v *volumeChannel) volumeStep() {
	if v.start {
		v.start = false
		v.decay = 15
		v.divider = v.volume
		return
	}

	if v.divider > 0 {
		v.divider--
		return
	}
	v.divider = v.volume
	if v.decay > 0 {
		v.decay--
	} else if v.halt {
		v.decay = 15
	}
}

func (v *volumeChannel) output() uint8 {
	if v.constant {
		return v.volume
	}
	return v.decay
}

func (v *volumeChannel) save(s *types.State) {
	v.channel.save(s)
	s.WriteBool(v.constant)
	s.Write8(v.volume)
	s.WriteBool(v.start)
	s.Write8(v.divider)
	s.Write8(v.decay)
}

func (v *volumeChannel) load(s *types.State) {
	v.channel.load(s)
	v.constant = s.ReadBool()
	v.volume = s.Read8()
	v.start = s.ReadBool()
	v.divider = s.Read8()
	v.decay = s.Read8()
}
