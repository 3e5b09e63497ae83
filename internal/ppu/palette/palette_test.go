package palette

import "testing"

func TestNewTable(t *testing.T) {
	table := NewTable(Default)

	white := table.Color(0, 0x20)
	if white.R != 0xff || white.G != 0xfe || white.B != 0xff || white.A != 0xff {
		t.Errorf("unexpected colour %v", white)
	}

	tests := []struct {
		name     string
		emphasis uint8
		index    uint8
		r, g, b  uint8
	}{
		{"red", 1, 0x20, 0xff, 0xcf, 0xd0},
		{"green", 2, 0x20, 0xd0, 0xfe, 0xd0},
		{"blue", 4, 0x20, 0xd0, 0xcf, 0xff},
		{"black column", 7, 0x0f, 0, 0, 0},
		{"grey column", 1, 0x2d, 0x4f, 0x40, 0x40},
		{"index wraps", 0, 0x60, 0xff, 0xfe, 0xff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := table.Color(tt.emphasis, tt.index)
			if c.R != tt.r || c.G != tt.g || c.B != tt.b {
				t.Errorf("expected %02x%02x%02x, got %02x%02x%02x", tt.r, tt.g, tt.b, c.R, c.G, c.B)
			}
		})
	}
}
