package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thelolagemann/nescore/internal/cartridge"
)

const source = `# name, prg, chr, misc, mapper, mirroring, ppu, prgram, prgramB, chrram, chrramB, console, controller, crc
Battery Game, 256, 128, 0, 4.0, HB, RP2C02, 0, 8K, 0, 0, NES, Standard, 1A2B3C4D
Low Cart, 32, 8, 0, 0.0, V, RP2C02, 0, 0, 0, 0, NES, Standard, DEADBEEF
`

func TestCompile(t *testing.T) {
	dir := t.TempDir()
	in, out := filepath.Join(dir, "db.csv"), filepath.Join(dir, "cart.bin")
	require.NoError(t, os.WriteFile(in, []byte(source), 0644))

	n, err := compile(in, out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	db, err := cartridge.LoadDatabase(out)
	require.NoError(t, err)
	e, ok := db.Lookup(0x1a2b3c4d)
	require.True(t, ok)
	assert.Equal(t, uint8(4), e.Mapper)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, int64(2*cartridge.EntrySize), info.Size())
}

func TestCompile_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := compile(filepath.Join(dir, "missing.csv"), filepath.Join(dir, "cart.bin"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("only, three, columns\n"), 0644))
	_, err = compile(bad, filepath.Join(dir, "cart.bin"))
	assert.Error(t, err)
}
