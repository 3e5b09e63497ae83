package nes

import (
	"github.com/thelolagemann/nescore/internal/cartridge"
	"github.com/thelolagemann/nescore/internal/cheats"
	"github.com/thelolagemann/nescore/pkg/log"
)

// Opt is a function that modifies a NES instance before its components
// are created.
type Opt func(n *NES)

// WithLogger sets the logger used for cartridge and state messages.
func WithLogger(l log.Logger) Opt {
	return func(n *NES) {
		n.Logger = l
	}
}

// WithDatabase sets the game database consulted for the cartridge's
// board description, overriding the iNES header on a match.
func WithDatabase(db *cartridge.Database) Opt {
	return func(n *NES) {
		n.db = db
	}
}

// WithSampleRate sets the audio output rate.
func WithSampleRate(rate int) Opt {
	return func(n *NES) {
		n.sampleRate = rate
	}
}

// WithState restores a state produced by SaveState once the console is
// powered on.
func WithState(b []byte) Opt {
	return func(n *NES) {
		n.initialState = b
	}
}

// WithRewind keeps a snapshot of the last depth frames, see Rewind.
func WithRewind(depth int) Opt {
	return func(n *NES) {
		n.rewindDepth = depth
	}
}

// WithCheats loads cheats, keeping their enabled state.
func WithCheats(c ...cheats.Cheat) Opt {
	return func(n *NES) {
		n.cheatList = append(n.cheatList, c...)
	}
}
