package nes

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNoBattery is returned when saving the battery RAM of a cartridge
// that has none.
var ErrNoBattery = errors.New("nes: cartridge has no battery backed RAM")

// HasBattery reports whether the cartridge keeps RAM across power cycles.
func (n *NES) HasBattery() bool {
	return len(n.cart.BatteryRam()) > 0
}

// SaveBattery writes the battery backed RAM to w.
func (n *NES) SaveBattery(w io.Writer) error {
	if !n.HasBattery() {
		return ErrNoBattery
	}
	_, err := w.Write(n.cart.BatteryRam())
	return err
}

// LoadBattery fills the battery backed RAM from r. A save of a different
// size is rejected.
func (n *NES) LoadBattery(r io.Reader) error {
	ram := n.cart.BatteryRam()
	if len(ram) == 0 {
		return ErrNoBattery
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(data) != len(ram) {
		return fmt.Errorf("nes: battery save is %d bytes, expected %d", len(data), len(ram))
	}
	copy(ram, data)
	return nil
}

// SaveBatteryFile writes the battery backed RAM to path. It writes a
// temporary file first, so that an interrupted save doesn't corrupt the
// previous one.
func (n *NES) SaveBatteryFile(path string) error {
	f, err := os.Create(path + ".tmp")
	if err != nil {
		return err
	}
	if err := n.SaveBattery(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	n.Infof("saved battery RAM to %s", path)
	return os.Rename(path+".tmp", path)
}

// LoadBatteryFile loads the battery backed RAM from path. A missing file
// isn't an error, the game simply starts without a save.
func (n *NES) LoadBatteryFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return err
	}
	defer f.Close()

	if err := n.LoadBattery(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	n.Infof("loaded battery RAM from %s", path)
	return nil
}
