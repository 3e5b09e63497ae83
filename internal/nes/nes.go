// Package nes provides an emulation of the NTSC Nintendo Entertainment
// System, assembled from the components of the internal packages.
package nes

import (
	"fmt"
	"image"

	"github.com/thelolagemann/nescore/internal/apu"
	"github.com/thelolagemann/nescore/internal/bus"
	"github.com/thelolagemann/nescore/internal/cartridge"
	"github.com/thelolagemann/nescore/internal/cheats"
	"github.com/thelolagemann/nescore/internal/controller"
	"github.com/thelolagemann/nescore/internal/cpu"
	"github.com/thelolagemann/nescore/internal/ppu"
	"github.com/thelolagemann/nescore/pkg/log"
)

const (
	// ClockSpeed is the clock speed of the CPU.
	ClockSpeed = apu.CpuFrequency // 1.789773 MHz
	// CyclesPerFrame is the number of CPU cycles per frame, rounded down
	// from 341 * 262 / 3.
	CyclesPerFrame = ppu.DotsPerLine * ppu.LinesPerFrame / 3
)

// NES represents a console with a cartridge inserted. It is the main
// entry point of the emulator.
type NES struct {
	CPU  *cpu.CPU
	PPU  *ppu.PPU
	APU  *apu.APU
	Pads [2]*controller.Controller

	b     *bus.Bus
	cart  *cartridge.Cart
	image *cartridge.Image

	log.Logger

	db           *cartridge.Database
	sampleRate   int
	initialState []byte
	rewindDepth  int
	rewind       *Rewinder
	cheatList    []cheats.Cheat
	cheats       *cheats.Engine
}

// New creates a console for the iNES image rom and powers it on.
func New(rom []byte, opts ...Opt) (*NES, error) {
	n := &NES{
		Logger:     log.NewNullLogger(),
		sampleRate: apu.DefaultSampleRate,
	}
	for _, opt := range opts {
		opt(n)
	}

	img, err := cartridge.LoadImage(rom)
	if err != nil {
		return nil, fmt.Errorf("nes: loading cartridge: %w", err)
	}
	if n.db.Apply(img) {
		n.Debugf("cartridge %08x found in database", img.Crc)
	}
	cart, err := cartridge.New(img)
	if err != nil {
		return nil, fmt.Errorf("nes: creating cartridge: %w", err)
	}
	n.image, n.cart = img, cart

	d := img.Descriptor
	n.Infof("cartridge %08x: %s, mapper %d.%d, PRG %d KiB, CHR %d KiB, %s mirroring",
		img.Crc, cart.Name(), d.Mapper, d.SubMapper, len(img.Prg)/1024, len(img.Chr)/1024, d.Mirroring)
	if d.PrgBatteryRamSize > 0 {
		n.Infof("cartridge has %d KiB of battery backed RAM", d.PrgBatteryRamSize/1024)
	}

	n.b = bus.New()
	n.CPU = cpu.New(n.b)
	n.PPU = ppu.New(n.b)
	n.APU = apu.New(n.b, n.sampleRate)
	n.Pads = [2]*controller.Controller{controller.New(), controller.New()}
	n.b.Attach(n.CPU, n.PPU, n.APU, n.Pads[0], n.Pads[1])
	n.b.InsertCart(cart)

	n.cheats = cheats.New(n.Logger)
	if err := n.cheats.Add(n.cheatList...); err != nil {
		return nil, fmt.Errorf("nes: %w", err)
	}
	n.b.SetCheats(n.cheats)

	n.b.PowerOn()

	if n.initialState != nil {
		if err := n.LoadState(n.initialState); err != nil {
			return nil, err
		}
	}
	if n.rewindDepth > 0 {
		n.rewind = NewRewinder(n.rewindDepth)
	}

	return n, nil
}

// Frame steps the emulation until the PPU has finished rendering the
// current frame, and returns it.
func (n *NES) Frame() *image.RGBA {
	if n.rewind != nil {
		if _, err := n.rewind.Push(n.snapshot()); err != nil {
			n.Errorf("rewind: %v", err)
		}
	}

	frame := n.PPU.FrameCount()
	for n.PPU.FrameCount() == frame {
		n.CPU.RunInstruction()
	}
	n.cheats.Apply(n.b.RAM())
	return n.PPU.Frame()
}

// RunCycles runs whole instructions until at least cycles CPU cycles
// have elapsed, returning the number that did.
func (n *NES) RunCycles(cycles uint32) uint32 {
	start := n.b.CpuCycleCount()
	for n.b.CpuCycleCount()-start < cycles {
		n.CPU.RunInstruction()
	}
	return n.b.CpuCycleCount() - start
}

// SetButtons sets the buttons held on the controller plugged into port
// 0 or 1.
func (n *NES) SetButtons(port int, buttons controller.Button) {
	n.Pads[port&1].Set(buttons)
}

// Reset presses the reset button.
func (n *NES) Reset() {
	n.Infof("reset")
	n.b.Reset()
}

// FrameBuffer returns the last rendered frame.
func (n *NES) FrameBuffer() *image.RGBA { return n.PPU.Frame() }

// FrameCount returns the number of frames rendered since power on.
func (n *NES) FrameCount() uint32 { return n.PPU.FrameCount() }

// Samples returns the audio of the last complete frame, as signed 16 bit
// mono samples at the configured rate.
func (n *NES) Samples() []int16 { return n.APU.Samples() }

// Cart returns the inserted cartridge.
func (n *NES) Cart() *cartridge.Cart { return n.cart }

// Image returns the parsed cartridge image.
func (n *NES) Image() *cartridge.Image { return n.image }

// Cheats returns the cheat engine, used to load and toggle cheats.
func (n *NES) Cheats() *cheats.Engine { return n.cheats }

// Bus returns the system bus.
func (n *NES) Bus() *bus.Bus { return n.b }
