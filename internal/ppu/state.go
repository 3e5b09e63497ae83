package ppu

import "github.com/thelolagemann/nescore/internal/types"

var _ types.Stater = (*PPU)(nil)

// Save writes the state of the PPU. The frame buffer isn't saved, it is
// redrawn by the next frame.
func (p *PPU) Save(s *types.State) {
	s.Write16(uint16(p.scanline))
	s.Write16(uint16(p.dot))
	s.Write32(p.scanlineStart)
	s.Write32(p.frameCount)
	s.WriteBool(p.oddFrame)

	s.WriteBool(p.nmiEnabled)
	s.WriteBool(p.largeSprites)
	s.Write16(p.bgTable)
	s.Write16(p.spriteTable)
	s.Write16(p.increment)

	s.Write8(p.mask)
	s.WriteBool(p.bgLeft)
	s.WriteBool(p.spritesLeft)
	s.WriteBool(p.showBg)
	s.WriteBool(p.showSprites)
	s.Write8(p.grayscale)
	s.Write8(p.emphasis)

	s.WriteBool(p.vblank)
	s.WriteBool(p.sprite0Hit)
	s.WriteBool(p.overflow)
	s.WriteBool(p.vblankPending)
	s.WriteBool(p.nmiPending)
	s.WriteBool(p.maskPending)
	s.WriteBool(p.addressPending)

	s.Write16(p.v)
	s.Write16(p.t)
	s.Write8(p.x)
	s.WriteBool(p.w)
	s.Write8(p.latch)
	s.Write8(p.readBuffer)

	s.Write8(p.ntByte)
	s.Write8(p.atByte)
	s.Write8(p.loByte)
	s.Write8(p.hiByte)
	s.Write64(p.tileData)

	s.Write8(p.oamAddr)
	s.WriteData(p.oam[:])
	for _, sp := range p.sprites {
		s.Write8(sp.y)
		s.Write8(sp.tile)
		s.Write8(sp.attr)
		s.Write8(sp.x)
		s.Write8(sp.index)
		s.Write32(sp.pattern)
	}
	s.Write8(uint8(p.spriteCount))
	s.WriteBool(p.allLargeHigh)

	s.WriteData(p.palette[:])

	s.WriteBool(p.a12)
	s.Write32(p.a12LowSince)
}

// Load restores a state written by Save. Scheduled events are restored
// with the scheduler.
func (p *PPU) Load(s *types.State) {
	p.scanline = int(s.Read16())
	p.dot = int(s.Read16())
	p.scanlineStart = s.Read32()
	p.frameCount = s.Read32()
	p.oddFrame = s.ReadBool()

	p.nmiEnabled = s.ReadBool()
	p.largeSprites = s.ReadBool()
	p.bgTable = s.Read16()
	p.spriteTable = s.Read16()
	p.increment = s.Read16()

	p.mask = s.Read8()
	p.bgLeft = s.ReadBool()
	p.spritesLeft = s.ReadBool()
	p.showBg = s.ReadBool()
	p.showSprites = s.ReadBool()
	p.grayscale = s.Read8()
	p.emphasis = s.Read8()

	p.vblank = s.ReadBool()
	p.sprite0Hit = s.ReadBool()
	p.overflow = s.ReadBool()
	p.vblankPending = s.ReadBool()
	p.nmiPending = s.ReadBool()
	p.maskPending = s.ReadBool()
	p.addressPending = s.ReadBool()

	p.v = s.Read16()
	p.t = s.Read16()
	p.x = s.Read8()
	p.w = s.ReadBool()
	p.latch = s.Read8()
	p.readBuffer = s.Read8()

	p.ntByte = s.Read8()
	p.atByte = s.Read8()
	p.loByte = s.Read8()
	p.hiByte = s.Read8()
	p.tileData = s.Read64()

	p.oamAddr = s.Read8()
	s.ReadData(p.oam[:])
	for i := range p.sprites {
		sp := &p.sprites[i]
		sp.y = s.Read8()
		sp.tile = s.Read8()
		sp.attr = s.Read8()
		sp.x = s.Read8()
		sp.index = s.Read8()
		sp.pattern = s.Read32()
	}
	p.spriteCount = int(s.Read8())
	p.allLargeHigh = s.ReadBool()

	s.ReadData(p.palette[:])

	p.a12 = s.ReadBool()
	p.a12LowSince = s.Read32()
	p.syncing = false
}
