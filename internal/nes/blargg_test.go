package nes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thelolagemann/nescore/pkg/utils"
)

// blarggROMPath holds test roms that report through PRG RAM: 0x6000 is
// the status, 0x6001-0x6003 the signature and 0x6004 a NUL terminated
// message. The roms aren't distributed, the test is skipped without them.
const blarggROMPath = "testdata/roms"

const (
	blarggRunning    = 0x80
	blarggNeedsReset = 0x81

	// frames to wait for a result, about 60 emulated seconds
	blarggTimeout = 3600
)

var blarggSignature = []byte{0xde, 0xb0, 0x61}

func Test_Blargg(t *testing.T) {
	var roms []string
	err := filepath.WalkDir(blarggROMPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), utils.RomExtension) {
			roms = append(roms, path)
		}
		return nil
	})
	if os.IsNotExist(err) || len(roms) == 0 {
		t.Skipf("no test roms in %s", blarggROMPath)
	}
	require.NoError(t, err)

	for _, rom := range roms {
		rom := rom
		t.Run(strings.TrimPrefix(rom, blarggROMPath+"/"), func(t *testing.T) {
			t.Parallel()
			runBlargg(t, rom)
		})
	}
}

func runBlargg(t *testing.T, path string) {
	data, err := utils.LoadFile(path)
	require.NoError(t, err)
	n, err := New(data)
	require.NoError(t, err)

	read := func(address uint16) uint8 { return n.Cart().CpuRead(address) }
	started := func() bool {
		for i, b := range blarggSignature {
			if read(0x6001+uint16(i)) != b {
				return false
			}
		}
		return true
	}

	resetAt := -1
	for frame := 0; frame < blarggTimeout; frame++ {
		n.Frame()
		if !started() {
			continue
		}

		switch status := read(0x6000); status {
		case blarggRunning:
		case blarggNeedsReset:
			// the rom expects the reset button to be held for a moment
			if resetAt < 0 {
				resetAt = frame + 6
			} else if frame == resetAt {
				n.Reset()
				resetAt = -1
			}
		default:
			if status != 0 {
				t.Errorf("result %d: %s", status, blarggMessage(read))
			}
			return
		}
	}
	t.Errorf("timed out: %s", blarggMessage(read))
}

func blarggMessage(read func(uint16) uint8) string {
	var sb strings.Builder
	for a := uint16(0x6004); a < 0x7000; a++ {
		c := read(a)
		if c == 0 {
			break
		}
		sb.WriteByte(c)
	}
	return strings.TrimSpace(sb.String())
}
