package cheats

import (
	"fmt"
	"strings"
)

// genieLetters maps the letters of a Game Genie code to their 4 bit
// values, in order.
const genieLetters = "APZLGITYEOXUKSVN"

// A Code patches a single address. Codes at or above 0x8000 replace the
// value the CPU reads from the cartridge, optionally only when the
// cartridge returns Compare. Codes below 0x2000 are written to internal
// RAM once per frame.
type Code struct {
	Address    uint16
	Value      uint8
	Compare    uint8
	HasCompare bool

	raw string
}

func (c Code) String() string { return c.raw }

// ParseGameGenie decodes a 6 or 8 letter Game Genie code. The letters
// shuffle the bits of a 15 bit ROM address, the new value and, for 8
// letter codes, the value to compare against.
func ParseGameGenie(code string) (Code, error) {
	s := strings.ToUpper(strings.ReplaceAll(code, "-", ""))
	if len(s) != 6 && len(s) != 8 {
		return Code{}, fmt.Errorf("invalid game genie code length: %v", len(s))
	}

	var n [8]uint16
	for i := 0; i < len(s); i++ {
		v := strings.IndexByte(genieLetters, s[i])
		if v < 0 {
			return Code{}, fmt.Errorf("invalid game genie letter: %q", s[i])
		}
		n[i] = uint16(v)
	}

	c := Code{raw: s}
	c.Address = 0x8000 | (n[3]&7)<<12 | (n[5]&7)<<8 | (n[4]&8)<<8 |
		(n[2]&7)<<4 | (n[1]&8)<<4 | n[4]&7 | n[3]&8

	value := (n[1]&7)<<4 | (n[0]&8)<<4 | n[0]&7
	if len(s) == 6 {
		c.Value = uint8(value | n[5]&8)
		return c, nil
	}

	c.Value = uint8(value | n[7]&8)
	c.Compare = uint8((n[7]&7)<<4 | (n[6]&8)<<4 | n[6]&7 | n[5]&8)
	c.HasCompare = true
	return c, nil
}
