package ppu

import (
	"image"

	"github.com/thelolagemann/nescore/internal/cartridge"
	"github.com/thelolagemann/nescore/internal/ppu/palette"
	"github.com/thelolagemann/nescore/internal/scheduler"
)

const (
	// ScreenWidth is the width of the screen in pixels.
	ScreenWidth = 256
	// ScreenHeight is the height of the screen in pixels.
	ScreenHeight = 240

	// DotsPerLine is the length of a scanline in PPU cycles.
	DotsPerLine = 341
	// LinesPerFrame is the number of scanlines in a frame, including
	// the pre-render line.
	LinesPerFrame = 262
)

const (
	// PostRenderLine is idle, the PPU doesn't access memory and the
	// VBlank flag isn't set yet.
	PostRenderLine = 240

	// VBlankLine is the first line of vertical blanking. The frame is
	// complete, the VBlank flag and NMI follow on its second dot.
	//
	//	Lines 241-260
	//	- No memory accesses by the PPU
	//	- The CPU has free access to VRAM through PPUADDR/PPUDATA
	VBlankLine = 241

	// PreRenderLine fills the pipelines with the first two tiles of
	// line 0 and reloads the vertical scroll from t.
	//
	//	Duration 340 or 341 dots
	//	- VBlank, sprite 0 hit and sprite overflow are cleared on dot 1
	//	- v is copied from t on dots 280-304 when rendering
	//	- The last dot is skipped on odd frames when rendering
	PreRenderLine = 261
)

// a12Filter is how long A12 has to stay low, in dots, before a rising
// edge gets through the low-pass filter of boards like the MMC3.
const a12Filter = 10

// Bus is the part of the console bus used by the PPU.
type Bus interface {
	// PpuCycleCount returns the absolute PPU cycle of the console.
	PpuCycleCount() uint32
	PpuRead(address uint16) uint8
	PpuWrite(address uint16, value uint8)

	Schedule(cpuCycles uint32, eventType scheduler.EventType)
	SchedulePpu(ppuCycles uint32, eventType scheduler.EventType)
	DescheduleAll(eventType scheduler.EventType) bool

	// SignalNmi is called when the PPU asserts /NMI.
	SignalNmi()
	// OnFrame is called when the frame is complete, at the start of
	// VBlank.
	OnFrame()

	ChrA12Sensitivity() cartridge.A12Sensitivity
	ChrA12Rising(lastFall uint32)
	ChrA12Falling()
	// A12PulsesUntilSync returns how many falling edges the cartridge
	// needs to see before it acts on one, 0 if it acts on all of them.
	A12PulsesUntilSync() uint32
}

// PPU is the 2C02 picture processing unit.
//
// The PPU is lazy, it only renders when something needs to observe it:
// a register access, a cartridge banking change, or one of its own
// events (end of scanline, VBlank, a predicted A12 edge). When it does,
// it catches up dot by dot from the start of the current scanline to
// the bus's PPU cycle.
//
// References:
//   - [NESdev PPU rendering](https://www.nesdev.org/wiki/PPU_rendering)
//   - [NESdev PPU scrolling](https://www.nesdev.org/wiki/PPU_scrolling)
//   - [NESdev MMC3 IRQ](https://www.nesdev.org/wiki/MMC3#IRQ_Specifics)
type PPU struct {
	bus Bus

	// Timing
	scanline      int    // Current line (0-261)
	dot           int    // Next dot of the line to render (0-340)
	scanlineStart uint32 // Bus PPU cycle of dot 0 of the line
	frameCount    uint32 // Completed frames
	oddFrame      bool   // Odd frames skip the last dot of the pre-render line
	syncing       bool   // Set while catching up, guards against re-entry from the cartridge

	// PPUCTRL
	nmiEnabled   bool   // PPUCTRL.7 - NMI at the start of VBlank
	largeSprites bool   // PPUCTRL.5 - 8x16 sprites
	bgTable      uint16 // PPUCTRL.4 - Background pattern table
	spriteTable  uint16 // PPUCTRL.3 - 8x8 sprite pattern table
	increment    uint16 // PPUCTRL.2 - VRAM address increment (1 or 32)

	// PPUMASK, written to mask and applied a CPU cycle later
	mask        uint8
	bgLeft      bool  // PPUMASK.1 - Show background in the leftmost 8 pixels
	spritesLeft bool  // PPUMASK.2 - Show sprites in the leftmost 8 pixels
	showBg      bool  // PPUMASK.3 - Show background
	showSprites bool  // PPUMASK.4 - Show sprites
	grayscale   uint8 // PPUMASK.0 - 0x30 to drop the hue, 0x3f otherwise
	emphasis    uint8 // PPUMASK.5-7 - Colour emphasis

	// PPUSTATUS
	vblank     bool
	sprite0Hit bool
	overflow   bool

	// Deferred register effects, see SyncState
	vblankPending  bool // The VBlank flag is set by the PpuSync event
	nmiPending     bool // NMI enabled during VBlank
	maskPending    bool // PPUMASK written
	addressPending bool // Second PPUADDR write, v is loaded from t

	// Internal registers
	v, t       uint16 // Current and temporary VRAM address
	x          uint8  // Fine X scroll
	w          bool   // First or second write toggle
	latch      uint8  // Last value written to a register, read back as open bus
	readBuffer uint8  // PPUDATA read buffer

	// Background pipeline
	ntByte   uint8
	atByte   uint8
	loByte   uint8
	hiByte   uint8
	tileData uint64 // Two tiles of 4 bit pixels (attribute and colour)

	// Sprites
	oamAddr      uint8
	oam          [256]uint8
	sprites      [8]sprite // Sprites of the next line after evaluation, of the current line while rendering
	spriteCount  int
	allLargeHigh bool // All OAM tiles are odd, 8x16 sprites all come from 0x1000

	palette [32]uint8

	// A12 of the PPU address bus
	a12         bool
	a12LowSince uint32 // Bus PPU cycle of the last falling edge

	colors *palette.Table
	frame  *image.RGBA
}

// sprite is an entry of secondary OAM and its fetched pattern.
type sprite struct {
	y, tile, attr, x uint8
	index            uint8  // OAM index
	pattern          uint32 // 8 pixels of 4 bits, leftmost in the high nibble
}

// New creates a PPU attached to b. Reset must be called before the PPU
// runs, so that its scanline event is scheduled.
func New(b Bus) *PPU {
	return &PPU{
		bus:    b,
		colors: palette.NewTable(palette.Default),
		frame:  image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight)),
	}
}

// Reset puts the PPU at the start of the pre-render line with all
// registers cleared.
func (p *PPU) Reset() {
	p.bus.DescheduleAll(scheduler.PpuScanline)
	p.bus.DescheduleAll(scheduler.PpuSync)
	p.bus.DescheduleAll(scheduler.PpuSyncA12)
	p.bus.DescheduleAll(scheduler.PpuStateUpdate)

	colors, frame := p.colors, p.frame
	*p = PPU{bus: p.bus, colors: colors, frame: frame}
	p.increment = 1
	p.grayscale = 0x3f

	p.scanline = PreRenderLine
	p.scanlineStart = p.bus.PpuCycleCount()
	p.scheduleLineEnd()
}

// Frame returns the frame buffer. It is complete when the bus is told
// of the frame through OnFrame.
func (p *PPU) Frame() *image.RGBA { return p.frame }

// FrameCount returns the number of completed frames.
func (p *PPU) FrameCount() uint32 { return p.frameCount }

// Scanline returns the current scanline and the next dot to be rendered.
func (p *PPU) Scanline() (int, int) { return p.scanline, p.dot }

func (p *PPU) rendering() bool { return p.showBg || p.showSprites }

func (p *PPU) renderLine() bool { return p.scanline < PostRenderLine || p.scanline == PreRenderLine }

// lineLength returns the length of the current line in dots.
func (p *PPU) lineLength() int {
	if p.scanline == PreRenderLine && p.oddFrame && p.rendering() {
		return DotsPerLine - 1
	}
	return DotsPerLine
}

// elapsed returns the number of dots of the current line the bus has
// run.
func (p *PPU) elapsed() int {
	e := int32(p.bus.PpuCycleCount() - p.scanlineStart)
	switch {
	case e < 0:
		return 0
	case e > DotsPerLine:
		return DotsPerLine
	}
	return int(e)
}

// scheduleAt schedules eventType at the given dot of the current line.
func (p *PPU) scheduleAt(dot int, eventType scheduler.EventType) {
	d := int32(p.scanlineStart + uint32(dot) - p.bus.PpuCycleCount())
	if d < 0 {
		d = 0
	}
	p.bus.SchedulePpu(uint32(d), eventType)
}

// scheduleLineEnd arms the PpuScanline event. The pre-render line is
// armed one dot early, the skip of its last dot is decided then.
func (p *PPU) scheduleLineEnd() {
	if p.scanline == PreRenderLine {
		p.scheduleAt(DotsPerLine-1, scheduler.PpuScanline)
		return
	}
	p.scheduleAt(DotsPerLine, scheduler.PpuScanline)
}

// Sync renders up to the bus's current cycle.
func (p *PPU) Sync() {
	p.syncTo(p.elapsed())
}

// syncTo renders the dots of the current line before target.
func (p *PPU) syncTo(target int) {
	if l := p.lineLength(); target > l {
		target = l
	}
	if p.syncing || target <= p.dot {
		return
	}
	p.syncing = true
	defer func() { p.syncing = false }()

	switch {
	case !p.renderLine():
		p.dot = target
	case !p.rendering():
		p.skipDisabled(target)
	default:
		for p.dot < target {
			p.step()
		}
	}
}

// skipDisabled runs dots with rendering disabled: the backdrop is drawn
// and the pipelines are idle.
func (p *PPU) skipDisabled(target int) {
	if p.scanline == PreRenderLine {
		if p.dot <= 1 && target > 1 {
			p.clearFlags()
		}
		p.dot = target
		return
	}

	from, to := max(p.dot, 1), min(target, ScreenWidth+1)
	if from < to {
		c := p.colors.Color(p.emphasis, p.backdrop())
		for x := from - 1; x < to-1; x++ {
			p.setPixel(x, c.R, c.G, c.B)
		}
	}
	p.dot = target
}

// backdrop returns the colour shown when rendering is disabled. It is
// palette entry 0, unless v points into the palette.
func (p *PPU) backdrop() uint8 {
	if p.v&0x3f00 == 0x3f00 {
		return p.palette[paletteIndex(p.v)] & p.grayscale
	}
	return p.palette[0] & p.grayscale
}

func (p *PPU) clearFlags() {
	p.vblank = false
	p.sprite0Hit = false
	p.overflow = false
}

// SyncScanline handles the PpuScanline event: it finishes the current
// line and moves to the next one.
func (p *PPU) SyncScanline() {
	length := p.lineLength()
	if e := p.elapsed(); e < length {
		p.scheduleAt(length, scheduler.PpuScanline)
		return
	}
	p.syncTo(length)

	p.scanlineStart += uint32(length)
	p.dot = 0
	p.scanline++

	switch p.scanline {
	case VBlankLine:
		p.frameCount++
		p.vblankPending = true
		p.bus.OnFrame()
		p.scheduleAt(1, scheduler.PpuSync)
	case LinesPerFrame:
		p.scanline = 0
		p.oddFrame = !p.oddFrame
	}

	p.scheduleLineEnd()
	p.armA12()
}

// SignalVBlank handles the PpuSync event, one dot into the VBlank line.
func (p *PPU) SignalVBlank() {
	if !p.vblankPending {
		return
	}
	p.vblankPending = false
	p.vblank = true
	if p.nmiEnabled {
		p.bus.SignalNmi()
	}
}

// SyncState handles the PpuStateUpdate event, applying the register
// writes that take effect a CPU cycle after they happen.
func (p *PPU) SyncState() {
	if p.nmiPending {
		p.nmiPending = false
		if p.vblank && p.nmiEnabled {
			p.bus.SignalNmi()
		}
	}

	if p.addressPending {
		p.addressPending = false
		p.Sync()
		p.v = p.t
		p.setA12(p.v&0x1000 != 0, p.bus.PpuCycleCount())
	}

	if p.maskPending {
		p.maskPending = false
		p.syncTo(p.elapsed() - 1)
		p.applyMask()
		p.armA12()
	}
}

// SyncA12 handles the PpuSyncA12 event, scheduled on the dot of the next
// A12 edge the cartridge is interested in.
func (p *PPU) SyncA12() {
	p.Sync()
	p.armA12()
}

// UpdateA12Sensitivity is called when the cartridge changes the A12
// edges it watches.
func (p *PPU) UpdateA12Sensitivity() {
	p.armA12()
}

func (p *PPU) applyMask() {
	p.grayscale = 0x3f
	if p.mask&0x01 != 0 {
		p.grayscale = 0x30
	}
	p.bgLeft = p.mask&0x02 != 0
	p.spritesLeft = p.mask&0x04 != 0
	p.showBg = p.mask&0x08 != 0
	p.showSprites = p.mask&0x10 != 0
	p.emphasis = p.mask >> 5
}

// Read reads the register at address (mirrored every 8 bytes).
func (p *PPU) Read(address uint16) uint8 {
	switch address & 7 {
	case 2:
		p.Sync()
		status := p.latch & 0x1f
		if p.vblank {
			status |= 0x80
		}
		if p.sprite0Hit {
			status |= 0x40
		}
		if p.overflow {
			status |= 0x20
		}
		p.vblank = false
		p.w = false
		// reading on the dot before VBlank starts suppresses the flag
		p.vblankPending = false
		p.latch = status
		return status
	case 4:
		p.Sync()
		value := p.oam[p.oamAddr]
		if p.oamAddr&3 == 2 {
			value &= 0xe3
		}
		p.latch = value
		return value
	case 7:
		p.Sync()
		addr := p.v & 0x3fff
		value := p.readBuffer
		p.readBuffer = p.bus.PpuRead(addr)
		if addr >= 0x3f00 {
			value = p.palette[paletteIndex(addr)]&p.grayscale | p.latch&0xc0
		}
		p.incrementAddress()
		p.latch = value
		return value
	}
	return p.latch
}

// Write writes the register at address (mirrored every 8 bytes).
func (p *PPU) Write(address uint16, value uint8) {
	p.Sync()
	p.latch = value

	switch address & 7 {
	case 0:
		wasEnabled := p.nmiEnabled
		p.nmiEnabled = value&0x80 != 0
		p.largeSprites = value&0x20 != 0
		p.bgTable = uint16(value&0x10) << 8
		p.spriteTable = uint16(value&0x08) << 9
		p.increment = 1
		if value&0x04 != 0 {
			p.increment = 32
		}
		p.t = p.t&0xf3ff | uint16(value&3)<<10

		if p.nmiEnabled && !wasEnabled && p.vblank {
			p.nmiPending = true
			p.bus.Schedule(1, scheduler.PpuStateUpdate)
		}
		p.armA12()
	case 1:
		p.mask = value
		p.maskPending = true
		p.bus.Schedule(1, scheduler.PpuStateUpdate)
	case 3:
		p.oamAddr = value
	case 4:
		p.oam[p.oamAddr] = value
		p.oamAddr++
		p.allLargeHigh = false
	case 5:
		if !p.w {
			p.t = p.t&0xffe0 | uint16(value>>3)
			p.x = value & 7
		} else {
			p.t = p.t&0x8c1f | uint16(value&0xf8)<<2 | uint16(value&7)<<12
		}
		p.w = !p.w
	case 6:
		if !p.w {
			p.t = p.t&0x00ff | uint16(value&0x3f)<<8
		} else {
			p.t = p.t&0xff00 | uint16(value)
			p.addressPending = true
			p.bus.Schedule(1, scheduler.PpuStateUpdate)
		}
		p.w = !p.w
	case 7:
		addr := p.v & 0x3fff
		if addr >= 0x3f00 {
			p.palette[paletteIndex(addr)] = value & 0x3f
		} else {
			p.bus.PpuWrite(addr, value)
		}
		p.incrementAddress()
	}
}

func (p *PPU) incrementAddress() {
	p.v = (p.v + p.increment) & 0x7fff
	p.setA12(p.v&0x1000 != 0, p.bus.PpuCycleCount())
}

// paletteIndex maps a palette address to its entry. The backdrop entries
// of the sprite palettes mirror those of the background palettes.
func paletteIndex(address uint16) uint16 {
	i := address & 0x1f
	if i >= 0x10 && i&3 == 0 {
		i -= 0x10
	}
	return i
}

// DmaWrite writes a byte of an OAM DMA transfer.
func (p *PPU) DmaWrite(value uint8) {
	p.Sync()
	p.oam[p.oamAddr] = value
	p.oamAddr++
}

// DmaCompleted is called at the end of an OAM DMA transfer.
func (p *PPU) DmaCompleted() {
	p.allLargeHigh = true
	for i := 1; i < len(p.oam); i += 4 {
		if p.oam[i]&1 == 0 {
			p.allLargeHigh = false
			break
		}
	}
	p.armA12()
}

func (p *PPU) setPixel(x int, r, g, b uint8) {
	i := p.frame.PixOffset(x, p.scanline)
	p.frame.Pix[i] = r
	p.frame.Pix[i+1] = g
	p.frame.Pix[i+2] = b
	p.frame.Pix[i+3] = 0xff
}
