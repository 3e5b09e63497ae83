package apu

import (
	"github.com/thelolagemann/nescore/internal/scheduler"
	"github.com/thelolagemann/nescore/internal/types"
)

const (
	// CpuFrequency is the NTSC CPU clock, in Hz.
	CpuFrequency = 1789773
	// DefaultSampleRate is the sample rate used when none is configured.
	DefaultSampleRate = 44100
)

var (
	pulseTable [31]float32
	tndTable   [203]float32
)

func init() {
	for i := 1; i < len(pulseTable); i++ {
		pulseTable[i] = 95.52 / (8128/float32(i) + 100)
	}
	for i := 1; i < len(tndTable); i++ {
		tndTable[i] = 163.67 / (24329/float32(i) + 100)
	}
}

// Bus is the part of the console bus used by the APU.
type Bus interface {
	CpuCycleCount() uint32
	Schedule(cpuCycles uint32, eventType scheduler.EventType)
	Deschedule(eventType scheduler.EventType) bool
	// SetAudioIrq drives the APU's IRQ line, the frame counter and DMC
	// interrupts combined.
	SetAudioIrq(irq bool)
	// BeginDmcDma asks the bus to read address for the DMC, stalling the
	// CPU. The byte is delivered with SetDmcBuffer.
	BeginDmcDma(address uint16)
	CancelDmcDma()
}

// APU is the audio processing unit of the 2A03.
//
// Like the PPU, the APU runs lazily: the channels are only brought up to
// the bus's CPU cycle when a register is accessed or one of its events
// is due. Three events drive it: ApuFrameCounter for the frame sequencer,
// ApuSync for the DMC memory reader and ApuSample for the output.
//
// References:
//   - [NESdev APU](https://www.nesdev.org/wiki/APU)
//   - [NESdev APU Frame Counter](https://www.nesdev.org/wiki/APU_Frame_Counter)
//   - [NESdev APU Mixer](https://www.nesdev.org/wiki/APU_Mixer)
type APU struct {
	bus Bus

	pulse1       pulse
	pulse2       pulse
	triangle     triangle
	noise        noise
	dmc          dmc
	frameCounter frameCounter

	lastSync uint32 // CPU cycle the channels have run to

	sampleRate int
	sampleStep uint64 // CPU cycles per sample, 16.16 fixed point
	sampleFrac uint64
	buffer     []int16 // Samples of the frame in progress
	samples    []int16 // Samples of the last completed frame
}

// New creates an APU attached to b, producing sampleRate samples per
// second. Reset must be called before the APU runs.
func New(b Bus, sampleRate int) *APU {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	a := &APU{
		bus:        b,
		sampleRate: sampleRate,
		sampleStep: (CpuFrequency << 16) / uint64(sampleRate),
	}
	a.dmc.a = a
	a.frameCounter.a = a

	perFrame := sampleRate/60 + 1
	a.buffer = make([]int16, 0, perFrame)
	a.samples = make([]int16, 0, perFrame)
	return a
}

// SampleRate returns the number of samples produced per second.
func (a *APU) SampleRate() int { return a.sampleRate }

// Reset silences every channel and restarts the frame sequencer.
func (a *APU) Reset() {
	a.bus.Deschedule(scheduler.ApuFrameCounter)
	a.bus.Deschedule(scheduler.ApuSync)
	a.bus.Deschedule(scheduler.ApuSample)

	a.pulse1 = pulse{onesComplement: true}
	a.pulse2 = pulse{}
	a.triangle = triangle{}
	a.noise = noise{shift: 1, period: noisePeriods[0]}
	a.dmc.reset()
	a.frameCounter.reset()
	a.bus.SetAudioIrq(false)

	a.lastSync = a.bus.CpuCycleCount()
	a.sampleFrac = 0
	a.buffer = a.buffer[:0]
	a.samples = a.samples[:0]
	a.scheduleSample()
}

// Sync runs the channels up to the bus's current CPU cycle.
func (a *APU) Sync() {
	now := a.bus.CpuCycleCount()
	cycles := now - a.lastSync
	if int32(cycles) <= 0 {
		return
	}
	a.lastSync = now

	a.pulse1.Run(cycles)
	a.pulse2.Run(cycles)
	a.triangle.Run(cycles)
	a.noise.Run(cycles)
	a.dmc.Run(cycles)
}

func (a *APU) quarterFrame() {
	a.Sync()
	a.pulse1.QuarterFrame()
	a.pulse2.QuarterFrame()
	a.triangle.QuarterFrame()
	a.noise.QuarterFrame()
}

func (a *APU) halfFrame() {
	a.Sync()
	a.pulse1.HalfFrame()
	a.pulse2.HalfFrame()
	a.triangle.HalfFrame()
	a.noise.HalfFrame()
}

func (a *APU) updateIrq() {
	a.bus.SetAudioIrq(a.frameCounter.irq || a.dmc.irq)
}

// ActivateFrameCounter handles the ApuFrameCounter event.
func (a *APU) ActivateFrameCounter() {
	a.frameCounter.Activate()
}

// SyncDmc handles the ApuSync event, scheduled on the cycle the DMC
// empties its sample buffer and requests the next byte.
func (a *APU) SyncDmc() {
	a.Sync()
	a.scheduleDmc()
}

func (a *APU) scheduleDmc() {
	a.bus.Deschedule(scheduler.ApuSync)
	if cycles := a.dmc.nextRequest(); cycles > 0 {
		a.bus.Schedule(cycles, scheduler.ApuSync)
	}
}

// SetDmcBuffer delivers the byte read by a DMC DMA.
func (a *APU) SetDmcBuffer(value uint8) {
	a.Sync()
	a.dmc.SetBuffer(value)
	a.scheduleDmc()
}

// Sample handles the ApuSample event.
func (a *APU) Sample() {
	a.Sync()
	a.buffer = append(a.buffer, a.mix())
	a.scheduleSample()
}

func (a *APU) scheduleSample() {
	a.sampleFrac += a.sampleStep
	cycles := a.sampleFrac >> 16
	a.sampleFrac &= 0xffff
	a.bus.Schedule(uint32(cycles), scheduler.ApuSample)
}

// mix combines the channels through the non-linear mixer of the 2A03.
func (a *APU) mix() int16 {
	p := pulseTable[a.pulse1.Sample()+a.pulse2.Sample()]
	tnd := tndTable[3*int(a.triangle.Sample())+2*int(a.noise.Sample())+int(a.dmc.Sample())]
	return int16((p + tnd) * 32767)
}

// SyncFrame is called by the bus at the end of every frame. The samples
// of the frame become available through Samples.
func (a *APU) SyncFrame() {
	a.Sync()
	a.samples, a.buffer = a.buffer, a.samples[:0]
}

// Samples returns the samples of the last completed frame. The slice is
// reused after the next frame.
func (a *APU) Samples() []int16 {
	return a.samples
}

// Write writes the register at address (0x4000-0x4017).
func (a *APU) Write(address uint16, value uint8) {
	a.Sync()

	switch {
	case address < 0x4004:
		a.pulse1.write(address, value)
	case address < 0x4008:
		a.pulse2.write(address, value)
	case address < 0x400c:
		a.triangle.write(address, value)
	case address < 0x4010:
		a.noise.write(address, value)
	case address < 0x4014:
		a.dmc.write(address, value)
		if address == 0x4010 {
			a.scheduleDmc()
		}
	case address == 0x4015:
		a.pulse1.setEnabled(value&0x01 != 0)
		a.pulse2.setEnabled(value&0x02 != 0)
		a.triangle.setEnabled(value&0x04 != 0)
		a.noise.setEnabled(value&0x08 != 0)
		a.dmc.setEnabled(value&0x10 != 0)
		a.scheduleDmc()
	case address == 0x4017:
		a.frameCounter.write(value)
	}
}

// Read reads $4015, the only readable register. Reading clears the
// frame interrupt.
func (a *APU) Read(address uint16) uint8 {
	if address != 0x4015 {
		return 0
	}
	a.Sync()

	var status uint8
	if a.pulse1.active() {
		status |= 0x01
	}
	if a.pulse2.active() {
		status |= 0x02
	}
	if a.triangle.active() {
		status |= 0x04
	}
	if a.noise.active() {
		status |= 0x08
	}
	if a.dmc.bytesRemaining > 0 {
		status |= 0x10
	}
	if a.frameCounter.irq {
		status |= 0x40
	}
	if a.dmc.irq {
		status |= 0x80
	}

	a.frameCounter.setIrq(false)
	return status
}

var _ types.Stater = (*APU)(nil)

// Save writes the state of the APU. Samples of the frame in progress
// aren't saved.
func (a *APU) Save(s *types.State) {
	a.pulse1.save(s)
	a.pulse2.save(s)
	a.triangle.save(s)
	a.noise.save(s)
	a.dmc.save(s)
	a.frameCounter.save(s)
	s.Write32(a.lastSync)
	s.Write64(a.sampleFrac)
}

// Load restores a state written by Save.
func (a *APU) Load(s *types.State) {
	a.pulse1.load(s)
	a.pulse2.load(s)
	a.triangle.load(s)
	a.noise.load(s)
	a.dmc.load(s)
	a.frameCounter.load(s)
	a.lastSync = s.Read32()
	a.sampleFrac = s.Read64()
	a.buffer = a.buffer[:0]
}
