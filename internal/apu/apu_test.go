package apu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thelolagemann/nescore/internal/scheduler"
	"github.com/thelolagemann/nescore/internal/types"
)

// testBus counts CPU cycles and executes the APU's events as they fall due.
type testBus struct {
	a *APU
	s *scheduler.Scheduler

	cycle uint32
	irq   bool

	dmaRequests []uint16
	dmaCancels  int
}

func newTestAPU() (*APU, *testBus) {
	b := &testBus{s: scheduler.NewScheduler()}
	b.a = New(b, DefaultSampleRate)
	b.s.RegisterEvent(scheduler.ApuFrameCounter, b.a.ActivateFrameCounter)
	b.s.RegisterEvent(scheduler.ApuSync, b.a.SyncDmc)
	b.s.RegisterEvent(scheduler.ApuSample, b.a.Sample)
	b.a.Reset()
	return b.a, b
}

func (b *testBus) CpuCycleCount() uint32                    { return b.cycle }
func (b *testBus) Schedule(c uint32, e scheduler.EventType) { b.s.Schedule(b.cycle+c, e) }
func (b *testBus) Deschedule(e scheduler.EventType) bool    { return b.s.Deschedule(e) }
func (b *testBus) SetAudioIrq(irq bool)                     { b.irq = irq }
func (b *testBus) BeginDmcDma(address uint16) {
	b.dmaRequests = append(b.dmaRequests, address)
}
func (b *testBus) CancelDmcDma() { b.dmaCancels++ }

func (b *testBus) run(cycles uint32) {
	end := b.cycle + cycles
	for b.s.Len() > 0 && int32(b.s.NextEventTime()-end) <= 0 {
		if t := b.s.NextEventTime(); int32(t-b.cycle) > 0 {
			b.cycle = t
		}
		b.s.DoEvent()
	}
	b.cycle = end
}

func TestAPU_FrameIrq(t *testing.T) {
	a, b := newTestAPU()

	b.run(29827)
	assert.False(t, b.irq)
	b.run(1)
	assert.True(t, b.irq)

	// the flag is asserted again on the next two cycles
	assert.Equal(t, uint8(0x40), a.Read(0x4015))
	assert.False(t, b.irq)
	b.run(2)
	assert.True(t, b.irq)
	assert.Equal(t, uint8(0x40), a.Read(0x4015))
	b.run(1)
	assert.Equal(t, uint8(0), a.Read(0x4015))
	assert.False(t, b.irq)
}

func TestAPU_FrameIrqInhibit(t *testing.T) {
	a, b := newTestAPU()
	a.Write(0x4017, 0x40)

	b.run(4 * 29830)
	assert.False(t, b.irq)
	assert.Equal(t, uint8(0), a.Read(0x4015))
}

func TestAPU_FiveStep(t *testing.T) {
	a, b := newTestAPU()
	a.Write(0x4015, 0x01)
	a.Write(0x4003, 0x00) // length index 0, 10 half frames
	require.Equal(t, uint8(10), a.pulse1.length)

	// the restart clocks a half frame immediately in 5-step mode
	a.Write(0x4017, 0x80)
	b.run(2)
	assert.Equal(t, uint8(10), a.pulse1.length)
	b.run(1)
	assert.Equal(t, uint8(9), a.pulse1.length)

	// two half frames per sequence, no interrupt
	b.run(37282)
	assert.Equal(t, uint8(7), a.pulse1.length)
	assert.False(t, b.irq)
}

func TestAPU_RestartDelay(t *testing.T) {
	for _, tt := range []struct {
		name  string
		cycle uint32
		delay uint32
	}{
		{"even", 0, 3},
		{"odd", 1, 4},
	} {
		t.Run(tt.name, func(t *testing.T) {
			a, b := newTestAPU()
			a.Write(0x4015, 0x01)
			a.Write(0x4003, 0x00)
			b.run(tt.cycle)

			a.Write(0x4017, 0x80)
			b.run(tt.delay - 1)
			assert.Equal(t, uint8(10), a.pulse1.length)
			b.run(1)
			assert.Equal(t, uint8(9), a.pulse1.length)
		})
	}
}

func TestAPU_LengthCounter(t *testing.T) {
	a, b := newTestAPU()

	// lengths are ignored while the channel is disabled
	a.Write(0x4003, 0x08)
	assert.Equal(t, uint8(0), a.Read(0x4015))

	a.Write(0x4015, 0x0f)
	a.Write(0x4003, 0x00)
	a.Write(0x4007, 0x00)
	a.Write(0x400b, 0x00)
	a.Write(0x400f, 0x00)
	assert.Equal(t, uint8(0x0f), a.Read(0x4015))

	// half frames at 14913 and 29829
	b.run(29829)
	assert.Equal(t, uint8(8), a.pulse1.length)
	assert.Equal(t, uint8(8), a.noise.length)

	// halted channels hold their length
	a.Write(0x4000, 0x20)
	b.run(29830)
	assert.Equal(t, uint8(8), a.pulse1.length)
	assert.Equal(t, uint8(6), a.pulse2.length)

	a.Write(0x4015, 0x00)
	assert.Equal(t, uint8(0), a.Read(0x4015)&0x0f)
}

func TestAPU_Sweep(t *testing.T) {
	var p pulse
	p.period = 0x100
	p.sweepShift = 1
	assert.Equal(t, uint16(0x180), p.targetPeriod())

	p.sweepNegate = true
	assert.Equal(t, uint16(0x80), p.targetPeriod())
	p.onesComplement = true
	assert.Equal(t, uint16(0x7f), p.targetPeriod())

	p.period = 7
	assert.True(t, p.muted())
	p.period = 0x600
	p.sweepNegate = false
	assert.True(t, p.muted(), "target period overflows")
}

func TestAPU_Dmc(t *testing.T) {
	a, b := newTestAPU()
	a.Write(0x4010, 0x8f)
	a.Write(0x4012, 0x01)
	a.Write(0x4013, 0x00)

	a.Write(0x4015, 0x10)
	require.Equal(t, []uint16{0xc040}, b.dmaRequests)
	assert.Equal(t, uint8(0x10), a.Read(0x4015))

	// the last byte of the sample raises the interrupt
	a.SetDmcBuffer(0xaa)
	assert.True(t, b.irq)
	assert.Equal(t, uint8(0x80), a.Read(0x4015))

	// writing $4015 acknowledges it
	a.Write(0x4015, 0x00)
	assert.False(t, b.irq)
}

func TestAPU_DmcLoop(t *testing.T) {
	a, b := newTestAPU()
	a.Write(0x4010, 0x4f)
	a.Write(0x4015, 0x10)
	require.Len(t, b.dmaRequests, 1)

	a.SetDmcBuffer(0x55)
	assert.Equal(t, uint8(0x10), a.Read(0x4015), "looping samples restart")

	// the buffer empties once the first output cycle ends, 428 cycles
	// for the bit loaded at reset then 7 more at the new rate
	b.run(428 + 7*54 - 1)
	assert.Len(t, b.dmaRequests, 1)
	b.run(1)
	assert.Len(t, b.dmaRequests, 2)
	assert.Equal(t, uint16(0xc000), b.dmaRequests[1])
}

func TestAPU_DmcCancel(t *testing.T) {
	a, b := newTestAPU()
	a.Write(0x4015, 0x10)
	require.Len(t, b.dmaRequests, 1)

	a.Write(0x4015, 0x00)
	assert.Equal(t, 1, b.dmaCancels)
}

func TestAPU_Samples(t *testing.T) {
	a, b := newTestAPU()
	a.Write(0x4015, 0x01)
	a.Write(0x4000, 0xbf) // duty 2, constant volume 15
	a.Write(0x4002, 0xfd)
	a.Write(0x4003, 0x00)

	b.run(29781)
	a.SyncFrame()

	samples := a.Samples()
	assert.InDelta(t, 734, len(samples), 1)

	lo, hi := samples[0], samples[0]
	for _, s := range samples {
		lo, hi = min(lo, s), max(hi, s)
	}
	assert.Less(t, lo, hi)
	assert.Greater(t, lo, int16(0), "the triangle rests at 15")
}

func TestAPU_State(t *testing.T) {
	a, b := newTestAPU()
	a.Write(0x4015, 0x0f)
	a.Write(0x4000, 0x0f)
	a.Write(0x4003, 0x10)
	a.Write(0x400c, 0x04)
	a.Write(0x400e, 0x03)
	a.Write(0x400f, 0x10)
	b.run(10000)

	s := types.NewState()
	a.Save(s)
	s.ResetPosition()

	want := a.mix()
	a.Write(0x4015, 0x00)
	a.Load(s)
	require.NoError(t, s.Err())
	assert.Equal(t, want, a.mix())
	assert.Equal(t, uint8(0x09), a.Read(0x4015))
}
