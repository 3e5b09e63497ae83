package ppu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thelolagemann/nescore/internal/cartridge"
	"github.com/thelolagemann/nescore/internal/scheduler"
	"github.com/thelolagemann/nescore/internal/types"
)

const frameDots = DotsPerLine * LinesPerFrame

// testBus runs the PPU against a scheduler and 16 KiB of flat memory.
type testBus struct {
	p *PPU
	s *scheduler.Scheduler

	cycle uint32
	vram  [0x4000]uint8

	sensitivity cartridge.A12Sensitivity
	rises       []int // line offset of the bus when each rising edge was reported
	falls       int

	nmis        int
	frameCycles []uint32
}

func newTestPPU() (*PPU, *testBus) {
	b := &testBus{s: scheduler.NewScheduler()}
	b.p = New(b)
	b.s.RegisterEvent(scheduler.PpuScanline, b.p.SyncScanline)
	b.s.RegisterEvent(scheduler.PpuSync, b.p.SignalVBlank)
	b.s.RegisterEvent(scheduler.PpuStateUpdate, b.p.SyncState)
	b.s.RegisterEvent(scheduler.PpuSyncA12, b.p.SyncA12)
	b.p.Reset()
	return b.p, b
}

func (b *testBus) PpuCycleCount() uint32                { return b.cycle }
func (b *testBus) PpuRead(address uint16) uint8         { return b.vram[address&0x3fff] }
func (b *testBus) PpuWrite(address uint16, value uint8) { b.vram[address&0x3fff] = value }
func (b *testBus) Schedule(c uint32, e scheduler.EventType) {
	b.s.Schedule(b.cycle+3*c, e)
}
func (b *testBus) SchedulePpu(c uint32, e scheduler.EventType) { b.s.Schedule(b.cycle+c, e) }
func (b *testBus) DescheduleAll(e scheduler.EventType) bool    { return b.s.DescheduleAll(e) }
func (b *testBus) SignalNmi()                                  { b.nmis++ }
func (b *testBus) OnFrame()                                    { b.frameCycles = append(b.frameCycles, b.cycle) }
func (b *testBus) ChrA12Sensitivity() cartridge.A12Sensitivity {
	return b.sensitivity
}
func (b *testBus) ChrA12Rising(uint32) {
	b.rises = append(b.rises, int(b.cycle-b.p.scanlineStart))
}
func (b *testBus) ChrA12Falling()             { b.falls++ }
func (b *testBus) A12PulsesUntilSync() uint32 { return 0 }

// run advances the bus by dots, executing the events that fall due.
func (b *testBus) run(dots uint32) {
	end := b.cycle + dots
	for b.s.Len() > 0 && int32(b.s.NextEventTime()-end) <= 0 {
		if t := b.s.NextEventTime(); int32(t-b.cycle) > 0 {
			b.cycle = t
		}
		b.s.DoEvent()
	}
	b.cycle = end
}

func (b *testBus) runToLine(line int) {
	for i := 0; i < 2*frameDots; i++ {
		b.run(1)
		if b.p.scanline == line && b.p.dot == 0 {
			return
		}
	}
	panic("line never reached")
}

func (b *testBus) runToFrame(n int) {
	for len(b.frameCycles) < n {
		b.run(1)
	}
}

// setAddress loads v through PPUADDR, and waits for the copy to land.
func setAddress(p *PPU, b *testBus, address uint16) {
	p.Write(0x2006, uint8(address>>8))
	p.Write(0x2006, uint8(address))
	b.run(3)
}

func TestPPU_FrameTiming(t *testing.T) {
	p, b := newTestPPU()

	// the pre-render line and 240 visible lines, before the first VBlank
	b.run(242*DotsPerLine - 1)
	require.Empty(t, b.frameCycles)

	b.run(1)
	require.Len(t, b.frameCycles, 1)
	assert.False(t, p.vblank, "VBlank is set on the second dot of the line")

	b.run(1)
	assert.True(t, p.vblank)
	assert.Equal(t, VBlankLine, p.scanline)

	// rendering is disabled, every frame has the same length
	b.runToFrame(3)
	assert.Equal(t, uint32(frameDots), b.frameCycles[1]-b.frameCycles[0])
	assert.Equal(t, uint32(frameDots), b.frameCycles[2]-b.frameCycles[1])
	assert.Equal(t, uint32(3), p.FrameCount())
}

func TestPPU_OddFrameSkip(t *testing.T) {
	p, b := newTestPPU()
	p.Write(0x2001, 0x08)

	b.runToFrame(5)
	for i := 1; i < 4; i++ {
		a, c := b.frameCycles[i]-b.frameCycles[i-1], b.frameCycles[i+1]-b.frameCycles[i]
		assert.Equal(t, uint32(2*frameDots-1), a+c, "frames %d and %d", i, i+1)
		assert.NotEqual(t, a, c)
	}
}

func TestPPU_Status(t *testing.T) {
	p, b := newTestPPU()
	b.runToFrame(1)
	b.run(3)

	p.Write(0x2005, 0x10)
	assert.True(t, p.w)

	status := p.Read(0x2002)
	assert.Equal(t, uint8(0x80), status&0xe0)
	assert.False(t, p.w, "reading the status resets the write toggle")
	assert.Equal(t, uint8(0x10), status&0x1f, "open bus bits")

	assert.Zero(t, p.Read(0x2002)&0x80, "the VBlank flag is cleared by a read")
	assert.Zero(t, p.Read(0x200a)&0x80, "registers are mirrored")
}

func TestPPU_VBlankSuppression(t *testing.T) {
	t.Run("read before the flag", func(t *testing.T) {
		p, b := newTestPPU()
		p.Write(0x2000, 0x80)
		b.runToFrame(1)

		assert.Zero(t, p.Read(0x2002)&0x80)
		b.run(DotsPerLine)
		assert.False(t, p.vblank)
		assert.Zero(t, b.nmis)
	})

	t.Run("no read", func(t *testing.T) {
		p, b := newTestPPU()
		p.Write(0x2000, 0x80)
		b.runToFrame(1)

		b.run(DotsPerLine)
		assert.True(t, p.vblank)
		assert.Equal(t, 1, b.nmis)
	})
}

func TestPPU_NmiEnabledDuringVBlank(t *testing.T) {
	p, b := newTestPPU()
	b.runToFrame(1)
	b.run(10)
	require.Zero(t, b.nmis)

	p.Write(0x2000, 0x80)
	assert.Zero(t, b.nmis, "the NMI follows a CPU cycle later")
	b.run(3)
	assert.Equal(t, 1, b.nmis)

	// writing with NMI already enabled doesn't raise another
	p.Write(0x2000, 0x80)
	b.run(3)
	assert.Equal(t, 1, b.nmis)

	p.Write(0x2000, 0x00)
	p.Write(0x2000, 0x80)
	b.run(3)
	assert.Equal(t, 2, b.nmis)

	// not in VBlank any more
	p.Read(0x2002)
	p.Write(0x2000, 0x00)
	p.Write(0x2000, 0x80)
	b.run(3)
	assert.Equal(t, 2, b.nmis)
}

func TestPPU_Data(t *testing.T) {
	p, b := newTestPPU()

	p.Write(0x2006, 0x21)
	p.Write(0x2006, 0x08)
	assert.Zero(t, p.v, "v is loaded a CPU cycle after the second write")
	b.run(3)
	assert.Equal(t, uint16(0x2108), p.v)

	p.Write(0x2007, 0xab)
	p.Write(0x2007, 0xcd)
	assert.Equal(t, uint8(0xab), b.vram[0x2108])
	assert.Equal(t, uint8(0xcd), b.vram[0x2109])

	setAddress(p, b, 0x2108)
	p.Read(0x2007)
	assert.Equal(t, uint8(0xab), p.Read(0x2007), "reads are buffered")
	assert.Equal(t, uint8(0xcd), p.Read(0x2007))

	p.Write(0x2000, 0x04)
	setAddress(p, b, 0x2000)
	p.Write(0x2007, 1)
	p.Write(0x2007, 2)
	assert.Equal(t, uint8(1), b.vram[0x2000])
	assert.Equal(t, uint8(2), b.vram[0x2020])
	assert.Equal(t, uint16(0x2040), p.v)
}

func TestPPU_Palette(t *testing.T) {
	p, b := newTestPPU()

	setAddress(p, b, 0x3f10)
	p.Write(0x2007, 0x2c)
	p.Write(0x2007, 0xff)

	setAddress(p, b, 0x3f00)
	assert.Equal(t, uint8(0x2c), p.Read(0x2007), "palette reads aren't buffered")
	assert.Equal(t, uint8(0x3f), p.palette[0x11])

	p.Write(0x2001, 0x01)
	b.run(3)
	setAddress(p, b, 0x3f00)
	assert.Equal(t, uint8(0x20), p.Read(0x2007), "grayscale")
}

func TestPPU_Backdrop(t *testing.T) {
	p, b := newTestPPU()

	setAddress(p, b, 0x3f00)
	p.Write(0x2007, 0x21)
	setAddress(p, b, 0x0000)

	b.runToFrame(2)
	want := p.colors.Color(0, 0x21)
	assert.Equal(t, want, p.Frame().RGBAAt(10, 10))
	assert.Equal(t, want, p.Frame().RGBAAt(255, 239))
}

// solidTiles fills tile 0 of the first pattern table with colour 3.
func solidTiles(b *testBus) {
	for i := 0; i < 16; i++ {
		b.vram[i] = 0xff
	}
}

// writeOam writes sprites from OAM address 0, and moves the remaining
// entries below the screen.
func writeOam(p *PPU, sprites ...[4]uint8) {
	p.Write(0x2003, 0)
	for _, s := range sprites {
		for _, v := range s {
			p.Write(0x2004, v)
		}
	}
	for i := len(sprites) * 4; i < 256; i++ {
		p.Write(0x2004, 0xff)
	}
}

func TestPPU_Sprite0Hit(t *testing.T) {
	p, b := newTestPPU()
	solidTiles(b)
	writeOam(p, [4]uint8{10, 0, 0, 20})
	p.Write(0x2001, 0x1e)

	b.runToLine(11)
	assert.Zero(t, p.Read(0x2002)&0x40, "the sprite starts on line 11")

	b.runToLine(12)
	assert.Equal(t, uint8(0x40), p.Read(0x2002)&0x40)
	assert.Equal(t, uint8(0x40), p.Read(0x2002)&0x40, "the flag isn't cleared by reads")

	b.runToFrame(1)
	b.runToLine(5)
	assert.Zero(t, p.Read(0x2002)&0x40, "cleared on the pre-render line")
}

func TestPPU_SpriteOverflow(t *testing.T) {
	p, b := newTestPPU()
	sprites := make([][4]uint8, 9)
	for i := range sprites {
		sprites[i] = [4]uint8{20, 0, 0, uint8(i * 8)}
	}
	writeOam(p, sprites...)
	p.Write(0x2001, 0x18)

	b.runToLine(20)
	assert.Zero(t, p.Read(0x2002)&0x20, "only the hidden sprites are on the lines above")
	b.runToLine(22)
	assert.Equal(t, uint8(0x20), p.Read(0x2002)&0x20)

	b.runToFrame(1)
	b.runToLine(5)
	assert.Zero(t, p.Read(0x2002)&0x20, "cleared on the pre-render line")
}

func TestPPU_SpriteRendering(t *testing.T) {
	p, b := newTestPPU()
	solidTiles(b)
	// sprite palette 1, colour 3
	setAddress(p, b, 0x3f17)
	p.Write(0x2007, 0x16)
	setAddress(p, b, 0x0000)

	writeOam(p, [4]uint8{40, 0, 0x01, 100})
	p.Write(0x2001, 0x14)

	b.runToFrame(2)
	want := p.colors.Color(0, 0x16)
	assert.Equal(t, want, p.Frame().RGBAAt(100, 41))
	assert.Equal(t, want, p.Frame().RGBAAt(107, 48))
	assert.NotEqual(t, want, p.Frame().RGBAAt(108, 41))
	assert.NotEqual(t, want, p.Frame().RGBAAt(100, 40))
}

func TestPPU_A12Smoothed(t *testing.T) {
	p, b := newTestPPU()
	b.sensitivity = cartridge.RisingEdgeSmoothed
	p.Write(0x2000, 0x08)
	p.Write(0x2001, 0x18)

	b.runToFrame(1)
	b.rises = nil
	b.runToFrame(2)

	// one edge per render line, on the first sprite pattern fetch
	require.Len(t, b.rises, 241)
	for _, offset := range b.rises {
		assert.Equal(t, 262, offset)
	}
}

func TestPPU_A12AllEdges(t *testing.T) {
	p, b := newTestPPU()
	b.sensitivity = cartridge.AllEdges
	p.Write(0x2000, 0x10)
	p.Write(0x2001, 0x18)

	b.runToFrame(1)
	b.rises, b.falls = nil, 0
	b.runToFrame(2)

	// 32 visible tiles and 2 prefetched ones per render line
	require.Len(t, b.rises, 241*34)
	assert.Equal(t, 241*34, b.falls)
	for _, offset := range b.rises {
		if offset&7 != 6 {
			t.Fatalf("rising edge reported at dot %d", offset)
		}
	}
}

func TestPPU_A12None(t *testing.T) {
	p, b := newTestPPU()
	p.Write(0x2000, 0x08)
	p.Write(0x2001, 0x18)

	b.runToFrame(2)
	assert.False(t, b.s.IsScheduled(scheduler.PpuSyncA12))
	assert.Empty(t, b.rises)
}

func TestPPU_State(t *testing.T) {
	p, b := newTestPPU()
	solidTiles(b)
	writeOam(p, [4]uint8{10, 0, 0, 20})
	p.Write(0x2000, 0x88)
	p.Write(0x2001, 0x1e)
	b.runToLine(100)
	b.run(123)

	s := types.NewState()
	p.Save(s)
	saved := append([]byte(nil), s.Bytes()...)

	b.run(5000)
	p.Write(0x2001, 0)

	p.Load(types.StateFromBytes(saved))
	again := types.NewState()
	p.Save(again)
	assert.Equal(t, saved, again.Bytes())
}
