package utils

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rom = []byte("NES\x1a rom contents")

func writeZip(t *testing.T, path string, files map[string][]byte, order ...string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	raw := filepath.Join(dir, "game.nes")
	require.NoError(t, os.WriteFile(raw, rom, 0644))

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write(rom)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	gzPath := filepath.Join(dir, "game.nes.gz")
	require.NoError(t, os.WriteFile(gzPath, gz.Bytes(), 0644))

	zipPath := filepath.Join(dir, "game.zip")
	writeZip(t, zipPath, map[string][]byte{
		"readme.txt": []byte("not a rom"),
		"game.NES":   rom,
	}, "readme.txt", "game.NES")

	otherPath := filepath.Join(dir, "other.zip")
	writeZip(t, otherPath, map[string][]byte{"game.bin": rom}, "game.bin")

	for _, path := range []string{raw, gzPath, zipPath, otherPath} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			data, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, rom, data)
		})
	}

	t.Run("empty archive", func(t *testing.T) {
		path := filepath.Join(dir, "empty.zip")
		writeZip(t, path, nil)
		_, err := LoadFile(path)
		assert.ErrorIs(t, err, ErrEmptyArchive)
	})
	t.Run("missing", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "missing.nes"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestSaveBMP(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(1, 1, color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xff})

	path := filepath.Join(t.TempDir(), "frame.bmp")
	require.NoError(t, SaveBMP(path, img))

	got, err := LoadBMP(path)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), got.Bounds())
	r, g, b, _ := got.At(1, 1).RGBA()
	assert.Equal(t, []uint32{0x1212, 0x3434, 0x5656}, []uint32{r, g, b})
}

func TestWAVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := NewWAVWriter(f, 44100)
	require.NoError(t, w.Write([]int16{0, 1000, -1000}))
	require.NoError(t, w.Write([]int16{32767, -32768}))
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	d := wav.NewDecoder(f)
	require.True(t, d.IsValidFile())
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, uint32(44100), d.SampleRate)
	assert.Equal(t, []int{0, 1000, -1000, 32767, -32768}, buf.Data)
}

func TestPlotSamples(t *testing.T) {
	samples := make([]int16, 735)
	for i := range samples {
		if i/50%2 == 0 {
			samples[i] = 8000
		}
	}

	var buf bytes.Buffer
	require.NoError(t, PlotSamples(&buf, samples, 44100))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 960, 320), img.Bounds())
}
