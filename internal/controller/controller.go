// Package controller provides an implementation of the standard NES
// controller. The controller is a shift register loaded with the state
// of the buttons while the strobe is high, and read one bit at a time
// through $4016 or $4017.
package controller

import (
	"github.com/thelolagemann/nescore/internal/types"
)

// Button represents a physical button on the controller, as a bit mask.
type Button = uint8

const (
	// ButtonA is the A button.
	ButtonA Button = 1 << iota
	// ButtonB is the B button.
	ButtonB
	// ButtonSelect is the Select button.
	ButtonSelect
	// ButtonStart is the Start button.
	ButtonStart
	// ButtonUp is the up direction of the D-pad.
	ButtonUp
	// ButtonDown is the down direction of the D-pad.
	ButtonDown
	// ButtonLeft is the left direction of the D-pad.
	ButtonLeft
	// ButtonRight is the right direction of the D-pad.
	ButtonRight
)

// openBus are the bits of $4016/$4017 that aren't driven by the
// controller, and read back as the high byte of the address.
const openBus = 0x40

// Controller represents the state of a standard controller.
//
//	Bit 7 - Right
//	Bit 6 - Left
//	Bit 5 - Down
//	Bit 4 - Up
//	Bit 3 - Start
//	Bit 2 - Select
//	Bit 1 - B
//	Bit 0 - A
type Controller struct {
	// Buttons is the state of the buttons, a 1 indicates that the
	// button is pressed.
	Buttons Button

	strobe bool
	shift  uint8 // Serial output, shifted right on each read
	count  uint8 // Bits read since the last strobe
}

// New returns a new controller with no buttons pressed.
func New() *Controller {
	return &Controller{}
}

// Set replaces the state of every button. Opposite directions pressed
// together can't happen on a real D-pad and confuse some games, so
// both are released.
func (c *Controller) Set(buttons Button) {
	if buttons&(ButtonUp|ButtonDown) == ButtonUp|ButtonDown {
		buttons &^= ButtonUp | ButtonDown
	}
	if buttons&(ButtonLeft|ButtonRight) == ButtonLeft|ButtonRight {
		buttons &^= ButtonLeft | ButtonRight
	}
	c.Buttons = buttons
	if c.strobe {
		c.reload()
	}
}

// Press presses a button.
func (c *Controller) Press(button Button) {
	c.Set(c.Buttons | button)
}

// Release releases a button.
func (c *Controller) Release(button Button) {
	c.Set(c.Buttons &^ button)
}

func (c *Controller) reload() {
	c.shift = c.Buttons
	c.count = 0
}

// Write handles a write to $4016. Bit 0 is the strobe, the shift
// register is reloaded continuously while it is high.
func (c *Controller) Write(value uint8) {
	c.strobe = value&1 != 0
	if c.strobe {
		c.reload()
	}
}

// Read returns the next bit of the shift register in bit 0. Once all 8
// buttons have been read, an official controller returns 1.
func (c *Controller) Read() uint8 {
	if c.strobe {
		return openBus | c.Buttons&ButtonA
	}
	if c.count >= 8 {
		return openBus | 1
	}
	bit := c.shift & 1
	c.shift >>= 1
	c.count++
	return openBus | bit
}

var _ types.Stater = (*Controller)(nil)

func (c *Controller) Load(st *types.State) {
	c.Buttons = st.Read8()
	c.strobe = st.ReadBool()
	c.shift = st.Read8()
	c.count = st.Read8()
}

func (c *Controller) Save(st *types.State) {
	st.Write8(c.Buttons)
	st.WriteBool(c.strobe)
	st.Write8(c.shift)
	st.Write8(c.count)
}
