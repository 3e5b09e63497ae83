package ppu

// step runs a single dot of a render line with rendering enabled.
func (p *PPU) step() {
	d := p.dot
	visible := p.scanline < PostRenderLine

	if visible && d >= 1 && d <= ScreenWidth {
		p.renderPixel()
	}
	if p.scanline == PreRenderLine && d == 1 {
		p.clearFlags()
	}

	switch {
	case d >= 1 && d <= 256, d >= 321 && d <= 336:
		p.fetchBackground(d)
		if d == 256 {
			p.incrementY()
			p.evaluateSprites()
		}
	case d <= 320 && d >= 257:
		if d == 257 {
			p.copyX()
		}
		if p.scanline == PreRenderLine && d >= 280 && d <= 304 {
			p.copyY()
		}
		p.fetchSprite(d)
	case d == 337, d == 339:
		// unused nametable fetches
		p.setA12(false, p.scanlineStart+uint32(d))
		p.bus.PpuRead(0x2000 | p.v&0x0fff)
	}

	p.dot++
}

// fetchBackground runs the background fetches, two dots per memory
// access: nametable, attribute, low and high pattern bytes.
func (p *PPU) fetchBackground(d int) {
	p.tileData <<= 4
	cycle := p.scanlineStart + uint32(d)

	switch d & 7 {
	case 1:
		p.setA12(false, cycle)
		p.ntByte = p.bus.PpuRead(0x2000 | p.v&0x0fff)
	case 3:
		p.setA12(false, cycle)
		v := p.v
		at := p.bus.PpuRead(0x23c0 | v&0x0c00 | (v>>4)&0x38 | (v>>2)&0x07)
		shift := (v>>4)&4 | v&2
		p.atByte = (at >> shift) & 3
	case 5:
		addr := p.bgPatternAddress()
		p.setA12(addr&0x1000 != 0, cycle)
		p.loByte = p.bus.PpuRead(addr)
	case 7:
		addr := p.bgPatternAddress()
		p.setA12(addr&0x1000 != 0, cycle)
		p.hiByte = p.bus.PpuRead(addr + 8)
	case 0:
		p.storeTile()
		p.incrementX()
	}
}

func (p *PPU) bgPatternAddress() uint16 {
	return p.bgTable | uint16(p.ntByte)<<4 | (p.v>>12)&7
}

// storeTile appends the fetched tile to the low half of tileData.
func (p *PPU) storeTile() {
	var data uint32
	lo, hi, a := p.loByte, p.hiByte, p.atByte<<2
	for i := 0; i < 8; i++ {
		c := (lo>>7)&1 | (hi>>6)&2
		lo <<= 1
		hi <<= 1
		data = data<<4 | uint32(a|c)
	}
	p.tileData |= uint64(data)
}

// backgroundPixel returns the palette index of the background at the
// current dot, fine X selecting the pixel in the upper tile.
func (p *PPU) backgroundPixel() uint8 {
	if !p.showBg {
		return 0
	}
	return uint8(uint32(p.tileData>>32)>>((7-p.x)*4)) & 0x0f
}

func (p *PPU) incrementX() {
	if p.v&0x001f == 31 {
		p.v &^= 0x001f
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

func (p *PPU) incrementY() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
		return
	}
	p.v &^= 0x7000
	y := (p.v & 0x03e0) >> 5
	switch y {
	case 29:
		y = 0
		p.v ^= 0x0800
	case 31:
		y = 0
	default:
		y++
	}
	p.v = p.v&^0x03e0 | y<<5
}

func (p *PPU) copyX() { p.v = p.v&0xfbe0 | p.t&0x041f }

func (p *PPU) copyY() { p.v = p.v&0x841f | p.t&0x7be0 }

func (p *PPU) spriteHeight() int {
	if p.largeSprites {
		return 16
	}
	return 8
}

// evaluateSprites fills the sprite slots with the first 8 sprites of
// OAM in range of the next line, setting the overflow flag on a ninth.
func (p *PPU) evaluateSprites() {
	p.spriteCount = 0
	if p.scanline == PreRenderLine {
		return
	}

	h := p.spriteHeight()
	for i := 0; i < 64; i++ {
		y := p.oam[i*4]
		row := p.scanline - int(y)
		if row < 0 || row >= h {
			continue
		}
		if p.spriteCount == len(p.sprites) {
			p.overflow = true
			break
		}
		p.sprites[p.spriteCount] = sprite{
			y:     y,
			tile:  p.oam[i*4+1],
			attr:  p.oam[i*4+2],
			x:     p.oam[i*4+3],
			index: uint8(i),
		}
		p.spriteCount++
	}
}

// spriteAddress returns the pattern address of the low plane of slot i,
// for the line following the current one. Empty slots fetch tile 0xff.
func (p *PPU) spriteAddress(i int) uint16 {
	if i >= p.spriteCount {
		if p.largeSprites {
			return 0x1000 | 0xfe<<4
		}
		return p.spriteTable | 0xff<<4
	}

	s := &p.sprites[i]
	row := uint16(p.scanline - int(s.y))
	if s.attr&0x80 != 0 {
		row = uint16(p.spriteHeight()-1) - row
	}
	if !p.largeSprites {
		return p.spriteTable | uint16(s.tile)<<4 | row
	}

	table := uint16(s.tile&1) << 12
	tile := uint16(s.tile &^ 1)
	if row >= 8 {
		tile++
		row -= 8
	}
	return table | tile<<4 | row
}

// fetchSprite runs the sprite fetches of dots 257-320: two garbage
// nametable reads and the two pattern planes of each slot.
func (p *PPU) fetchSprite(d int) {
	i := (d - 257) >> 3
	cycle := p.scanlineStart + uint32(d)

	switch (d - 1) & 7 {
	case 0, 2:
		p.setA12(false, cycle)
	case 4:
		addr := p.spriteAddress(i)
		p.setA12(addr&0x1000 != 0, cycle)
		p.loByte = p.bus.PpuRead(addr)
	case 6:
		addr := p.spriteAddress(i)
		p.setA12(addr&0x1000 != 0, cycle)
		p.hiByte = p.bus.PpuRead(addr + 8)
		if i < p.spriteCount {
			p.sprites[i].pattern = spritePattern(p.loByte, p.hiByte, p.sprites[i].attr)
		}
	}
}

func spritePattern(lo, hi, attr uint8) uint32 {
	a := (attr & 3) << 2
	var data uint32
	for i := 0; i < 8; i++ {
		var c uint8
		if attr&0x40 != 0 {
			c = lo&1 | (hi&1)<<1
			lo >>= 1
			hi >>= 1
		} else {
			c = (lo>>7)&1 | (hi>>6)&2
			lo <<= 1
			hi <<= 1
		}
		data = data<<4 | uint32(a|c)
	}
	return data
}

// spritePixel returns the slot and palette index of the first opaque
// sprite pixel at x, or a zero index.
func (p *PPU) spritePixel(x int) (int, uint8) {
	if !p.showSprites {
		return 0, 0
	}
	for i := 0; i < p.spriteCount; i++ {
		offset := x - int(p.sprites[i].x)
		if offset < 0 || offset > 7 {
			continue
		}
		c := uint8(p.sprites[i].pattern>>((7-offset)*4)) & 0x0f
		if c&3 == 0 {
			continue
		}
		return i, c
	}
	return 0, 0
}

func (p *PPU) renderPixel() {
	x := p.dot - 1
	bg := p.backgroundPixel()
	i, sp := p.spritePixel(x)
	if x < 8 {
		if !p.bgLeft {
			bg = 0
		}
		if !p.spritesLeft {
			sp = 0
		}
	}

	var index uint8
	switch bgOpaque, spOpaque := bg&3 != 0, sp&3 != 0; {
	case !bgOpaque && !spOpaque:
	case !bgOpaque:
		index = 0x10 | sp
	case !spOpaque:
		index = bg
	default:
		if p.sprites[i].index == 0 && x < 255 {
			p.sprite0Hit = true
		}
		if p.sprites[i].attr&0x20 == 0 {
			index = 0x10 | sp
		} else {
			index = bg
		}
	}

	c := p.colors.Color(p.emphasis, p.palette[paletteIndex(uint16(index))]&p.grayscale)
	p.setPixel(x, c.R, c.G, c.B)
}
