package controller

import (
	"testing"

	"github.com/thelolagemann/nescore/internal/types"
)

func readAll(c *Controller, n int) []uint8 {
	bits := make([]uint8, n)
	for i := range bits {
		bits[i] = c.Read() & 1
	}
	return bits
}

func TestController_Read(t *testing.T) {
	c := New()
	c.Set(ButtonA | ButtonStart | ButtonRight)

	c.Write(1)
	c.Write(0)

	want := []uint8{1, 0, 0, 1, 0, 0, 0, 1, 1, 1}
	for i, got := range readAll(c, len(want)) {
		if got != want[i] {
			t.Errorf("read %d: expected %d, got %d", i, want[i], got)
		}
	}
}

func TestController_Strobe(t *testing.T) {
	c := New()
	c.Press(ButtonA)
	c.Write(1)

	for i := 0; i < 3; i++ {
		if v := c.Read(); v != openBus|1 {
			t.Errorf("expected A to be read continuously while strobing, got %02x", v)
		}
	}

	// changes made while strobing are seen by the first read
	c.Release(ButtonA)
	c.Press(ButtonB)
	c.Write(0)
	if got := readAll(c, 2); got[0] != 0 || got[1] != 1 {
		t.Errorf("expected B after strobe, got %v", got)
	}
}

func TestController_OppositeDirections(t *testing.T) {
	for _, tt := range []struct {
		name    string
		buttons Button
		want    Button
	}{
		{"up and down", ButtonUp | ButtonDown | ButtonA, ButtonA},
		{"left and right", ButtonLeft | ButtonRight | ButtonUp, ButtonUp},
		{"diagonal", ButtonLeft | ButtonUp, ButtonLeft | ButtonUp},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			c.Set(tt.buttons)
			if c.Buttons != tt.want {
				t.Errorf("expected %08b, got %08b", tt.want, c.Buttons)
			}
		})
	}
}

func TestController_State(t *testing.T) {
	c := New()
	c.Set(ButtonSelect | ButtonDown)
	c.Write(1)
	c.Write(0)
	c.Read()

	s := types.NewState()
	c.Save(s)
	c2 := New()
	s.ResetPosition()
	c2.Load(s)

	if *c2 != *c {
		t.Errorf("expected %+v, got %+v", *c, *c2)
	}
	if got, want := readAll(c2, 7), readAll(c, 7); string(got) != string(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
