package apu

import "github.com/thelolagemann/nescore/internal/types"

// dmcRates are the NTSC output rates, in CPU cycles per bit.
var dmcRates = [16]uint32{
	428, 380, 340, 320, 286, 254, 226, 214, 190, 160, 142, 128, 106, 84, 72, 54,
}

// dmc is the delta modulation channel. The memory reader asks the bus
// for a DMA when its sample buffer is empty, the bus hands the byte back
// through SetBuffer once the CPU has been stalled.
type dmc struct {
	a *APU

	irqEnabled bool
	loop       bool
	rate       uint32
	level      uint8

	sampleAddress uint16
	sampleLength  uint16

	// Memory reader
	address        uint16
	bytesRemaining uint16
	buffer         uint8
	bufferFull     bool
	requested      bool // A DMA is pending on the bus

	// Output unit
	timer         uint32
	shift         uint8
	bitsRemaining uint8
	silence       bool

	irq bool
}

func (d *dmc) reset() {
	*d = dmc{a: d.a}
	d.rate = dmcRates[0]
	d.timer = d.rate
	d.bitsRemaining = 8
	d.silence = true
	d.sampleAddress = 0xc000
	d.sampleLength = 1
}

func (d *dmc) write(register uint16, value uint8) {
	switch register & 3 {
	case 0:
		d.irqEnabled = value&0x80 != 0
		d.loop = value&0x40 != 0
		d.rate = dmcRates[value&0x0f]
		if !d.irqEnabled {
			d.setIrq(false)
		}
	case 1:
		d.level = value & 0x7f
	case 2:
		d.sampleAddress = 0xc000 | uint16(value)<<6
	case 3:
		d.sampleLength = uint16(value)<<4 | 1
	}
}

// setEnabled handles bit 4 of $4015.
func (d *dmc) setEnabled(enabled bool) {
	d.setIrq(false)
	if !enabled {
		d.bytesRemaining = 0
		if d.requested {
			d.requested = false
			d.a.bus.CancelDmcDma()
		}
		return
	}
	if d.bytesRemaining == 0 {
		d.restart()
		d.request()
	}
}

func (d *dmc) restart() {
	d.address = d.sampleAddress
	d.bytesRemaining = d.sampleLength
}

// request starts a DMA if the sample buffer is empty and there are
// bytes left to read.
func (d *dmc) request() {
	if d.bufferFull || d.bytesRemaining == 0 || d.requested {
		return
	}
	d.requested = true
	d.a.bus.BeginDmcDma(d.address)
}

// SetBuffer fills the sample buffer with the byte read by the DMA.
func (d *dmc) SetBuffer(value uint8) {
	d.requested = false
	if d.bytesRemaining == 0 {
		return
	}

	d.buffer = value
	d.bufferFull = true
	d.address++
	if d.address == 0 {
		d.address = 0x8000
	}

	d.bytesRemaining--
	if d.bytesRemaining == 0 {
		if d.loop {
			d.restart()
		} else if d.irqEnabled {
			d.setIrq(true)
		}
	}
}

func (d *dmc) setIrq(irq bool) {
	if d.irq != irq {
		d.irq = irq
		d.a.updateIrq()
	}
}

func (d *dmc) Run(cycles uint32) {
	for cycles > 0 {
		if cycles < d.timer {
			d.timer -= cycles
			return
		}
		cycles -= d.timer
		d.timer = d.rate
		d.clock()
	}
}

func (d *dmc) clock() {
	if !d.silence {
		if d.shift&1 != 0 {
			if d.level <= 125 {
				d.level += 2
			}
		} else if d.level >= 2 {
			d.level -= 2
		}
	}
	d.shift >>= 1

	if d.bitsRemaining--; d.bitsRemaining > 0 {
		return
	}

	// new output cycle
	d.bitsRemaining = 8
	if !d.bufferFull {
		d.silence = true
		return
	}
	d.silence = false
	d.shift = d.buffer
	d.bufferFull = false
	d.request()
}

// nextRequest returns the number of CPU cycles until the output unit
// empties the sample buffer, or 0 if that won't start a DMA.
func (d *dmc) nextRequest() uint32 {
	if !d.bufferFull || d.bytesRemaining == 0 {
		return 0
	}
	return d.timer + uint32(d.bitsRemaining-1)*d.rate
}

func (d *dmc) Sample() uint8 {
	return d.level
}

func (d *dmc) save(s *types.State) {
	s.WriteBool(d.irqEnabled)
	s.WriteBool(d.loop)
	s.Write32(d.rate)
	s.Write8(d.level)
	s.Write16(d.sampleAddress)
	s.Write16(d.sampleLength)
	s.Write16(d.address)
	s.Write16(d.bytesRemaining)
	s.Write8(d.buffer)
	s.WriteBool(d.bufferFull)
	s.WriteBool(d.requested)
	s.Write32(d.timer)
	s.Write8(d.shift)
	s.Write8(d.bitsRemaining)
	s.WriteBool(d.silence)
	s.WriteBool(d.irq)
}

func (d *dmc) load(s *types.State) {
	d.irqEnabled = s.ReadBool()
	d.loop = s.ReadBool()
	d.rate = s.Read32()
	d.level = s.Read8()
	d.sampleAddress = s.Read16()
	d.sampleLength = s.Read16()
	d.address = s.Read16()
	d.bytesRemaining = s.Read16()
	d.buffer = s.Read8()
	d.bufferFull = s.ReadBool()
	d.requested = s.ReadBool()
	d.timer = s.Read32()
	d.shift = s.Read8()
	d.bitsRemaining = s.Read8()
	d.silence = s.ReadBool()
	d.irq = s.ReadBool()
}
