package cheats

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRaw decodes a code written as AAAA:VV or AAAA?CC:VV in hex, where
// AAAA is the address, VV the new value and CC the value to compare
// against.
func ParseRaw(code string) (Code, error) {
	s := strings.ToUpper(strings.TrimSpace(code))
	addr, value, ok := strings.Cut(s, ":")
	if !ok {
		return Code{}, fmt.Errorf("invalid raw code: %s", code)
	}

	c := Code{raw: s}
	if a, cmp, ok := strings.Cut(addr, "?"); ok {
		v, err := strconv.ParseUint(cmp, 16, 8)
		if err != nil {
			return Code{}, fmt.Errorf("invalid raw code compare: %w", err)
		}
		c.Compare, c.HasCompare = uint8(v), true
		addr = a
	}

	a, err := strconv.ParseUint(addr, 16, 16)
	if err != nil {
		return Code{}, fmt.Errorf("invalid raw code address: %w", err)
	}
	v, err := strconv.ParseUint(value, 16, 8)
	if err != nil {
		return Code{}, fmt.Errorf("invalid raw code value: %w", err)
	}
	c.Address, c.Value = uint16(a), uint8(v)

	if c.Address >= 0x2000 && c.Address < 0x8000 {
		return Code{}, fmt.Errorf("unsupported raw code address: %04X", c.Address)
	}
	return c, nil
}

// Parse decodes either kind of code.
func Parse(code string) (Code, error) {
	if strings.Contains(code, ":") {
		return ParseRaw(code)
	}
	return ParseGameGenie(code)
}
