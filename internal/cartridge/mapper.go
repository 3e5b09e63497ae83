package cartridge

import (
	"errors"
	"fmt"

	"github.com/thelolagemann/nescore/internal/types"
)

var (
	ErrUnsupportedMapper = errors.New("cartridge: unsupported mapper")
	ErrFourScreen        = errors.New("cartridge: four screen mirroring is not supported")
	ErrPrgSize           = errors.New("cartridge: PRG ROM size is not a power of two")
	ErrRamSize           = errors.New("cartridge: inconsistent PRG RAM sizes")
)

// mapper is the register logic of a board. Implementations own their
// register state and rebuild the cart's windows from it.
type mapper interface {
	types.Stater

	// reset puts the registers in their power on state and maps the
	// initial banks.
	reset()
	// write handles a CPU write to 0x8000-0xffff.
	write(address uint16, value uint8)
	// updateBanks rebuilds every window the mapper controls from its
	// registers. It must not touch the bus.
	updateBanks()
}

// lowWriter is implemented by boards with registers below 0x8000. It
// reports whether the write was consumed, otherwise it goes on to PRG
// RAM.
type lowWriter interface {
	writeLow(address uint16, value uint8) bool
}

// lowReader is implemented by boards that decode reads below 0x8000
// themselves.
type lowReader interface {
	readLow(address uint16) (uint8, bool)
}

// doubleWriter is implemented by boards that don't latch both writes of
// a read-modify-write instruction. It must tick the bus once.
type doubleWriter interface {
	write2(address uint16, first, second uint8)
}

// a12Listener is implemented by boards that watch PPU A12.
type a12Listener interface {
	a12Rising(lastFall uint32)
	a12Falling()
}

// a12Divider is implemented by boards that only act on every nth A12
// edge, so the PPU can predict when the next one matters.
type a12Divider interface {
	a12PulsesUntilClock() uint32
}

// ppuReadListener is implemented by boards that latch on PPU fetches.
type ppuReadListener interface {
	ppuRead(address uint16)
}

// cpuIrqCounter is implemented by boards with a CPU cycle prescaled IRQ
// counter, clocked through the CartCpuIrqCounter event.
type cpuIrqCounter interface {
	clockCpuIrqCounter()
}

// irqEventListener is notified when a CartSetIrq event raised the IRQ.
type irqEventListener interface {
	irqFired()
}

// New creates the cartridge for a loaded image, using the image's
// descriptor (as possibly overridden by the game database).
func New(img *Image) (*Cart, error) {
	d := img.Descriptor

	if d.Mirroring == FourScreen {
		return nil, ErrFourScreen
	}
	if n := len(img.Prg); n == 0 || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrPrgSize, n)
	}
	if d.PrgRamSize != 0 && d.PrgBatteryRamSize != 0 && d.PrgRamSize != d.PrgBatteryRamSize {
		return nil, fmt.Errorf("%w: %d and %d battery backed", ErrRamSize, d.PrgRamSize, d.PrgBatteryRamSize)
	}

	c := &Cart{
		descriptor: d,
		prg:        img.Prg,
		chr:        img.Chr,
		prgMask:    uint32(len(img.Prg) - 1),
		mirroring:  d.Mirroring,
	}

	// battery backed RAM comes first, so it can be saved as one block
	ramSize := roundBank(d.PrgBatteryRamSize) + roundBank(d.PrgRamSize)
	c.prgRam = make([]byte, ramSize)
	c.ramBanks = ramSize / 0x2000
	c.chrRam = make([]byte, d.ChrRamSize)
	if len(c.chr) == 0 && len(c.chrRam) == 0 {
		c.chrRam = make([]byte, 0x2000)
	}

	m, name, err := newMapper(c, d)
	if err != nil {
		return nil, err
	}
	c.mapper = m
	c.name = name

	c.lowWriter, _ = m.(lowWriter)
	c.lowReader, _ = m.(lowReader)
	c.dblWriter, _ = m.(doubleWriter)
	c.a12, _ = m.(a12Listener)
	c.a12Div, _ = m.(a12Divider)
	c.ppuLatch, _ = m.(ppuReadListener)
	c.cpuCounter, _ = m.(cpuIrqCounter)
	c.irqEvent, _ = m.(irqEventListener)

	// default layout: first and last 16 KiB, 8 KiB CHR, RAM at 0x6000
	c.mapPrg16k(4, 0)
	c.mapPrg16k(6, uint32(len(c.prg)-0x4000))
	c.mapChr(0, 8, 0)
	c.mapPrgRam(3, 0, true)

	m.reset()
	return c, nil
}

// roundBank rounds a RAM size up to whole 8 KiB banks.
func roundBank(size int) int {
	return (size + 0x1fff) &^ 0x1fff
}

func newMapper(c *Cart, d Descriptor) (mapper, string, error) {
	unsupported := func() (mapper, string, error) {
		return nil, "", fmt.Errorf("%w: %d.%d", ErrUnsupportedMapper, d.Mapper, d.SubMapper)
	}

	switch d.Mapper {
	case 0:
		return newDiscrete(c, nrom), "NROM", nil
	case 1:
		switch d.SubMapper {
		case 0, 1, 2, 4:
			return newMMC1(c, false), "MMC1", nil
		case 5:
			return newMMC1(c, true), "MMC1 (SEROM)", nil
		}
	case 2:
		switch d.SubMapper {
		case 0, 2:
			c.busConflicts = true
			return newDiscrete(c, uxrom), "UxROM", nil
		case 1:
			return newDiscrete(c, uxrom), "UxROM", nil
		}
	case 3:
		switch d.SubMapper {
		case 0, 2:
			c.busConflicts = true
			return newDiscrete(c, cnrom), "CNROM", nil
		case 1:
			return newDiscrete(c, cnrom), "CNROM", nil
		}
	case 4:
		switch d.SubMapper {
		case 0:
			return newMMC3(c, mmc3Board), "MMC3", nil
		case 1:
			return newMMC6(c), "MMC6", nil
		case 3:
			return newMMC3(c, mcaccBoard), "MC-ACC", nil
		}
	case 7:
		switch d.SubMapper {
		case 0, 1:
			return newDiscrete(c, axrom), "AxROM", nil
		case 2:
			c.busConflicts = true
			return newDiscrete(c, axrom), "AxROM", nil
		}
	case 9:
		return newMMC2(c), "MMC2", nil
	case 11:
		return newDiscrete(c, colorDreams), "Color Dreams", nil
	case 13:
		c.busConflicts = true
		return newDiscrete(c, cprom), "CPROM", nil
	case 34:
		switch {
		case d.SubMapper == 1, d.SubMapper == 0 && len(c.chr) > 0x2000:
			return newDiscrete(c, nina001), "NINA-001", nil
		case d.SubMapper == 0, d.SubMapper == 2:
			return newDiscrete(c, bnrom), "BNROM", nil
		}
	case 41:
		c.busConflicts = true
		return newDiscrete(c, caltron), "Caltron 6-in-1", nil
	case 46:
		return newDiscrete(c, rumbleStation), "Rumble Station", nil
	case 47:
		return newMMC3(c, qjBoard), "NES-QJ", nil
	case 64:
		return newRambo1(c), "RAMBO-1", nil
	case 66:
		c.busConflicts = true
		return newDiscrete(c, gxrom), "GxROM", nil
	case 68:
		return newSunsoft4(c), "Sunsoft-4", nil
	case 69:
		return newFME7(c), "Sunsoft FME-7", nil
	case 71:
		return newDiscrete(c, bf9093), "BF9093", nil
	case 79, 146:
		return newDiscrete(c, nina03), "NINA-03/06", nil
	case 105:
		return newNesEvent(c), "NES-EVENT", nil
	case 118:
		return newMMC3(c, txsromBoard), "TxSROM", nil
	case 119:
		return newMMC3(c, tqromBoard), "TQROM", nil
	case 144:
		return newDiscrete(c, colorDreamsAGCI), "Color Dreams (AGCI)", nil
	}

	return unsupported()
}
