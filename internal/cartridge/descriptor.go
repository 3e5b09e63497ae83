// Package cartridge provides the NES cartridge: iNES image loading, the
// CRC32 game database, and the mapper family that banks PRG/CHR memory
// and raises scanline interrupts from the PPU's A12 address line.
package cartridge

import "fmt"

// Mirroring describes how the four logical nametables map onto the two
// physical 1 KiB pages of PPU RAM. The numeric values match the MMC1
// control register encoding.
type Mirroring uint8

const (
	SingleScreenLow Mirroring = iota
	SingleScreenHigh
	Vertical
	Horizontal
	FourScreen
)

func (m Mirroring) String() string {
	switch m {
	case SingleScreenLow:
		return "single screen (low)"
	case SingleScreenHigh:
		return "single screen (high)"
	case Vertical:
		return "vertical"
	case Horizontal:
		return "horizontal"
	case FourScreen:
		return "four screen"
	}
	return fmt.Sprintf("Mirroring(%d)", uint8(m))
}

// A12Sensitivity describes which transitions of the PPU address line A12
// the mapper currently needs to see. It changes at runtime: a scanline
// counter with nothing to count reports None so that the PPU doesn't
// have to track the line at all.
type A12Sensitivity uint8

const (
	// None - no transitions are of interest.
	None A12Sensitivity = iota
	// AllEdges - both edges, used by MMC1 boards that switch PRG
	// planes or RAM banks with the CHR bank registers.
	AllEdges
	// RisingEdgeSmoothed - rising edges after A12 has been low for a
	// few CPU cycles, as filtered by the MMC3 family.
	RisingEdgeSmoothed
	// FallingEdgeDivided - every 8th falling edge, as counted by MC-ACC.
	FallingEdgeDivided
)

func (s A12Sensitivity) String() string {
	switch s {
	case None:
		return "none"
	case AllEdges:
		return "all edges"
	case RisingEdgeSmoothed:
		return "rising edge (smoothed)"
	case FallingEdgeDivided:
		return "falling edge (divided)"
	}
	return fmt.Sprintf("A12Sensitivity(%d)", uint8(s))
}

// Descriptor describes the hardware on a cartridge board, as derived
// from the iNES header or overridden by the game database.
type Descriptor struct {
	Mapper    int
	SubMapper int
	Mirroring Mirroring

	// PrgRamSize is the size of volatile PRG RAM, in bytes.
	PrgRamSize int
	// PrgBatteryRamSize is the size of battery backed PRG RAM, in bytes.
	PrgBatteryRamSize int
	// ChrRamSize is the size of CHR RAM, in bytes.
	ChrRamSize int
}

func (d Descriptor) String() string {
	return fmt.Sprintf("mapper %d.%d | mirroring: %s | PRG RAM: %dkB (battery %dkB) | CHR RAM: %dkB",
		d.Mapper, d.SubMapper, d.Mirroring, d.PrgRamSize/1024, d.PrgBatteryRamSize/1024, d.ChrRamSize/1024)
}
