package bus

// BeginOamDma starts a copy of the 256 bytes of page to OAM, which halts
// the CPU on its next read cycle.
func (b *Bus) BeginOamDma(page uint8) {
	b.oamAddress = uint16(page) << 8
	b.oamDma = true
	b.dma = true
}

// BeginDmcDma requests a read of address for the DMC sample buffer.
func (b *Bus) BeginDmcDma(address uint16) {
	b.dmcAddress = address
	b.dmcDma = true
	b.dma = true
}

// CancelDmcDma drops a DMC request that hasn't been serviced yet.
func (b *Bus) CancelDmcDma() {
	b.dmcDma = false
	b.dma = b.oamDma
}

func (b *Bus) runDma() {
	if b.oamDma {
		b.runOamDma()
	} else if b.dmcDma {
		b.runDmcDma()
	}
}

// runOamDma copies a page to OAM, alternating read and write cycles. The
// transfer starts with a halt cycle, plus an alignment cycle when it
// starts on an odd cycle, for 513 or 514 cycles in total. A DMC fetch
// requested meanwhile steals a read cycle and adds an alignment cycle.
func (b *Bus) runOamDma() {
	b.oamDma = false
	b.dma = false
	dmcStarted := b.dmcDma

	b.Tick()
	if b.cpuCycles&1 == 1 {
		b.Tick()
	}

	for i := 0; i < 256; i++ {
		if dmcStarted {
			b.apu.SetDmcBuffer(b.dmcDmaRead())
			b.Tick()
			b.dmcDma = false
			b.dma = b.oamDma
		}
		dmcStarted = b.dmcDma

		value := b.oamDmaRead(b.oamAddress + uint16(i))
		b.oamDmaWrite(value)
	}
	b.ppu.DmaCompleted()

	if dmcStarted {
		b.apu.SetDmcBuffer(b.dmcDmaRead())
		b.dmcDma = false
		b.dma = b.oamDma
	}
}

// runDmcDma services a DMC request with a halt cycle, a dummy cycle and
// the read itself.
func (b *Bus) runDmcDma() {
	b.dmcDma = false
	b.dma = false

	b.Tick()
	b.Tick()
	b.apu.SetDmcBuffer(b.dmcDmaRead())
}

func (b *Bus) oamDmaRead(address uint16) uint8 {
	b.Tick()
	return b.read(address)
}

func (b *Bus) oamDmaWrite(value uint8) {
	b.Tick()
	b.ppu.DmaWrite(value)
}

func (b *Bus) dmcDmaRead() uint8 {
	b.Tick()
	if b.cart == nil {
		return 0
	}
	return b.cart.CpuRead(b.dmcAddress)
}
