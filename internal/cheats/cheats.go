// Package cheats implements Game Genie style patches of the cartridge's
// program data, and RAM codes that hold a value in internal RAM.
package cheats

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/thelolagemann/nescore/pkg/log"
)

// A Cheat is a named group of codes, enabled and disabled together.
type Cheat struct {
	Name    string
	Enabled bool
	Codes   []Code
}

// Engine holds the loaded cheats. Cheats are disabled when loaded.
type Engine struct {
	cheats []Cheat

	// enabled codes, by kind
	rom map[uint16][]Code
	ram []Code

	log log.Logger
}

// New returns an empty Engine.
func New(l log.Logger) *Engine {
	return &Engine{log: log.WithComponent(l, "cheats")}
}

// Load parses codes and adds them as a cheat called name.
func (e *Engine) Load(name string, codes ...string) error {
	for i := range e.cheats {
		if e.cheats[i].Name == name {
			return fmt.Errorf("cheat already loaded: %s", name)
		}
	}
	if len(codes) == 0 {
		return fmt.Errorf("cheat %s has no codes", name)
	}

	c := Cheat{Name: name}
	for _, raw := range codes {
		code, err := Parse(raw)
		if err != nil {
			return fmt.Errorf("cheat %s: %w", name, err)
		}
		e.log.Debugf("parsed %s -> address %04X, value %02X", code, code.Address, code.Value)
		c.Codes = append(c.Codes, code)
	}
	e.cheats = append(e.cheats, c)
	return nil
}

// Add adds already parsed cheats, keeping their enabled state.
func (e *Engine) Add(cheats ...Cheat) error {
	for _, c := range cheats {
		for i := range e.cheats {
			if e.cheats[i].Name == c.Name {
				return fmt.Errorf("cheat already loaded: %s", c.Name)
			}
		}
		e.cheats = append(e.cheats, c)
	}
	e.rebuild()
	return nil
}

// Enable enables the cheat called name.
func (e *Engine) Enable(name string) error { return e.set(name, true) }

// Disable disables the cheat called name.
func (e *Engine) Disable(name string) error { return e.set(name, false) }

func (e *Engine) set(name string, enabled bool) error {
	for i := range e.cheats {
		if e.cheats[i].Name == name {
			e.cheats[i].Enabled = enabled
			e.rebuild()
			return nil
		}
	}
	return fmt.Errorf("cheat not found: %s", name)
}

func (e *Engine) rebuild() {
	e.rom, e.ram = nil, nil
	for _, c := range e.cheats {
		if !c.Enabled {
			continue
		}
		for _, code := range c.Codes {
			if code.Address < 0x8000 {
				e.ram = append(e.ram, code)
				continue
			}
			if e.rom == nil {
				e.rom = make(map[uint16][]Code)
			}
			e.rom[code.Address] = append(e.rom[code.Address], code)
		}
	}
}

// Cheats returns the loaded cheats.
func (e *Engine) Cheats() []Cheat { return e.cheats }

// Read returns the value the CPU sees when the cartridge returns value
// at address.
func (e *Engine) Read(address uint16, value uint8) uint8 {
	if e.rom == nil {
		return value
	}
	for _, c := range e.rom[address] {
		if !c.HasCompare || c.Compare == value {
			return c.Value
		}
	}
	return value
}

// Apply writes the enabled RAM codes to ram, which is mirrored across
// the first 0x2000 addresses.
func (e *Engine) Apply(ram []byte) {
	for _, c := range e.ram {
		i := int(c.Address) % len(ram)
		if c.HasCompare && ram[i] != c.Compare {
			continue
		}
		ram[i] = c.Value
	}
}

// ParseCheatFile reads cheats in the following format, where every
// cheat is a name followed by its codes, one per line. A name starting
// with + is enabled.
//
//	# +Infinite lives
//	SXIOPO
//	# Start on world 8
//	0075:07
func ParseCheatFile(r io.Reader) ([]Cheat, error) {
	var cheats []Cheat
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		switch {
		case text == "":
			continue
		case text[0] == '#':
			name := strings.TrimSpace(text[1:])
			c := Cheat{Name: strings.TrimPrefix(name, "+"), Enabled: strings.HasPrefix(name, "+")}
			cheats = append(cheats, c)
		case len(cheats) == 0:
			return nil, fmt.Errorf("line %d: code without a name", line)
		default:
			code, err := Parse(text)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			c := &cheats[len(cheats)-1]
			c.Codes = append(c.Codes, code)
		}
	}
	return cheats, scanner.Err()
}

// WriteCheatFile writes cheats in the format read by ParseCheatFile.
func WriteCheatFile(w io.Writer, cheats []Cheat) error {
	bw := bufio.NewWriter(w)
	for _, c := range cheats {
		name := c.Name
		if c.Enabled {
			name = "+" + name
		}
		fmt.Fprintf(bw, "# %s\n", name)
		for _, code := range c.Codes {
			fmt.Fprintf(bw, "%s\n", code)
		}
	}
	return bw.Flush()
}
