package nes

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/brotli/go/cbrotli"
	"github.com/thelolagemann/nescore/internal/types"
)

const (
	stateMagic   = "NESS"
	stateVersion = 1
)

var (
	// ErrCorruptState is returned when a state can't be decoded.
	ErrCorruptState = errors.New("nes: corrupt state")
	// ErrStateMismatch is returned when a state was saved with another
	// cartridge or by an incompatible version.
	ErrStateMismatch = errors.New("nes: state does not match the console")
)

// snapshot returns the uncompressed state of the console.
//
//	0x00 - "NESS"
//	0x04 - version
//	0x05 - cartridge CRC32
//	0x09 - bus, CPU, PPU, APU, controllers, cartridge
func (n *NES) snapshot() []byte {
	s := types.NewState()
	s.WriteData([]byte(stateMagic))
	s.Write8(stateVersion)
	s.Write32(n.image.Crc)
	n.b.Save(s)
	return s.Bytes()
}

// restore loads an uncompressed state. The console is left unchanged
// when the state is rejected.
func (n *NES) restore(raw []byte) error {
	s := types.StateFromBytes(raw)
	var magic [len(stateMagic)]byte
	s.ReadData(magic[:])
	version := s.Read8()
	crc := s.Read32()
	if err := s.Err(); err != nil || !bytes.Equal(magic[:], []byte(stateMagic)) {
		return ErrCorruptState
	}
	if version != stateVersion {
		return fmt.Errorf("%w: version %d", ErrStateMismatch, version)
	}
	if crc != n.image.Crc {
		return fmt.Errorf("%w: saved with cartridge %08x", ErrStateMismatch, crc)
	}

	backup := n.snapshot()
	n.b.Load(s)
	err := s.Err()
	if err == nil && s.Remaining() != 0 {
		err = fmt.Errorf("%d bytes left over", s.Remaining())
	}
	if err != nil {
		n.b.Load(types.StateFromBytes(backup[len(stateMagic)+5:]))
		return fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return nil
}

// SaveState returns the brotli compressed state of the console.
func (n *NES) SaveState() ([]byte, error) {
	raw := n.snapshot()
	data, err := cbrotli.Encode(raw, cbrotli.WriterOptions{
		Quality: 9,
	})
	if err != nil {
		return nil, fmt.Errorf("nes: compressing state: %w", err)
	}
	n.Debugf("saved state: %d bytes, %d compressed", len(raw), len(data))
	return data, nil
}

// LoadState restores a state returned by SaveState.
func (n *NES) LoadState(data []byte) error {
	raw, err := cbrotli.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if err := n.restore(raw); err != nil {
		return err
	}
	n.Infof("loaded state at frame %d", n.PPU.FrameCount())
	return nil
}
