package cartridge

import (
	"errors"
	"testing"
)

func TestLoadImage(t *testing.T) {
	valid := buildRom(1, 0, 2, 1, 0x03)

	withTrainer := buildRom(0, 0, 1, 1, 0x04)
	trainer := make([]byte, trainerSize)
	withTrainer = append(withTrainer[:headerSize], append(trainer, withTrainer[headerSize:]...)...)

	badMagic := append([]byte(nil), valid...)
	badMagic[3] = 0

	noPrg := buildRom(0, 0, 0, 1, 0)

	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"valid", valid, nil},
		{"trainer", withTrainer, nil},
		{"too short", valid[:10], ErrTooShort},
		{"bad magic", badMagic, ErrBadMagic},
		{"no PRG", noPrg, ErrNoPrg},
		{"truncated PRG", valid[:headerSize+0x1000], ErrTruncated},
		{"truncated CHR", valid[:len(valid)-1], ErrTruncated},
		{"trailing data", append(append([]byte(nil), valid...), 0), ErrSizeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := LoadImage(tt.data)
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected error %v, got %v", tt.err, err)
			}
			if err == nil && img == nil {
				t.Fatal("expected an image")
			}
		})
	}
}

func TestImageDescriptor(t *testing.T) {
	img, err := LoadImage(buildRom(1, 0, 2, 0, 0x03))
	if err != nil {
		t.Fatal(err)
	}

	d := img.Descriptor
	if d.Mapper != 1 {
		t.Errorf("expected mapper 1, got %d", d.Mapper)
	}
	if d.Mirroring != Vertical {
		t.Errorf("expected vertical mirroring, got %s", d.Mirroring)
	}
	if d.PrgBatteryRamSize != 0x2000 {
		t.Errorf("expected 8K battery RAM, got %d", d.PrgBatteryRamSize)
	}
	if d.ChrRamSize != 0x2000 {
		t.Errorf("expected 8K CHR RAM, got %d", d.ChrRamSize)
	}
	if len(img.Prg) != 0x8000 || len(img.Chr) != 0 {
		t.Errorf("unexpected sizes %d/%d", len(img.Prg), len(img.Chr))
	}
	if img.Crc != Checksum(img.Prg, img.Chr) {
		t.Errorf("CRC mismatch")
	}
}

func TestHeaderMapperNumber(t *testing.T) {
	tests := []struct {
		name      string
		header    []byte
		mapper    int
		subMapper int
	}{
		{"iNES", []byte{'N', 'E', 'S', 0x1a, 1, 0, 0x40, 0x40, 0, 0, 0, 0, 0, 0, 0, 0}, 0x44, 0},
		{"dirty header", []byte{'N', 'E', 'S', 0x1a, 1, 0, 0x40, 0x40, 0, 0, 0, 0, 'D', 'i', 's', 'k'}, 4, 0},
		{"NES 2.0", []byte{'N', 'E', 'S', 0x1a, 1, 0, 0x40, 0x08, 0x31, 0, 0, 0, 0, 0, 0, 0}, 0x104, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := parseHeader(tt.header)
			if err != nil {
				t.Fatal(err)
			}
			if h.Mapper != tt.mapper || h.SubMapper != tt.subMapper {
				t.Errorf("expected %d.%d, got %d.%d", tt.mapper, tt.subMapper, h.Mapper, h.SubMapper)
			}
		})
	}
}

func TestChecksum(t *testing.T) {
	// CRC32 of "123456789"
	if crc := Checksum([]byte("12345"), []byte("6789")); crc != 0xcbf43926 {
		t.Errorf("expected 0xcbf43926, got %#08x", crc)
	}
}
