package cartridge

import (
	"errors"
	"fmt"
	"hash/crc32"
)

const (
	headerSize  = 16
	trainerSize = 512

	prgUnit = 0x4000
	chrUnit = 0x2000
)

var (
	ErrTooShort     = errors.New("ines: image shorter than header")
	ErrBadMagic     = errors.New("ines: bad magic")
	ErrNoPrg        = errors.New("ines: no PRG ROM")
	ErrTruncated    = errors.New("ines: image truncated")
	ErrSizeMismatch = errors.New("ines: trailing data after CHR ROM")
)

// Header is the decoded 16 byte iNES header.
type Header struct {
	PrgBanks uint8 // number of 16 KiB PRG ROM banks
	ChrBanks uint8 // number of 8 KiB CHR ROM banks

	Mapper    int
	SubMapper int

	VerticalMirroring bool
	Battery           bool
	Trainer           bool
	FourScreen        bool

	// NES2 is set when the header uses the NES 2.0 extension, which
	// carries a submapper number.
	NES2 bool
}

// Image is a parsed cartridge image.
type Image struct {
	Header     Header
	Descriptor Descriptor

	Trainer []byte
	Prg     []byte
	Chr     []byte

	// Crc is the CRC32 of the PRG data followed by the CHR data, the key
	// of the game database.
	Crc uint32
}

func parseHeader(h []byte) (Header, error) {
	if len(h) < headerSize {
		return Header{}, ErrTooShort
	}
	if h[0] != 'N' || h[1] != 'E' || h[2] != 'S' || h[3] != 0x1a {
		return Header{}, ErrBadMagic
	}

	header := Header{
		PrgBanks:          h[4],
		ChrBanks:          h[5],
		Mapper:            int(h[6] >> 4),
		VerticalMirroring: h[6]&0x01 != 0,
		Battery:           h[6]&0x02 != 0,
		Trainer:           h[6]&0x04 != 0,
		FourScreen:        h[6]&0x08 != 0,
		NES2:              h[7]&0x0c == 0x08,
	}

	switch {
	case header.NES2:
		header.Mapper |= int(h[7]&0xf0) | int(h[8]&0x0f)<<8
		header.SubMapper = int(h[8] >> 4)
	case h[12] == 0 && h[13] == 0 && h[14] == 0 && h[15] == 0:
		header.Mapper |= int(h[7] & 0xf0)
	default:
		// bytes 7-15 hold garbage (usually a ripper's signature), trust
		// only the low nibble
	}

	return header, nil
}

// LoadImage parses an iNES image. The image must be exactly as large as
// the header declares, anything else is rejected so that a damaged file
// never produces a half loaded cartridge.
func LoadImage(data []byte) (*Image, error) {
	header, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	prgSize := int(header.PrgBanks) * prgUnit
	chrSize := int(header.ChrBanks) * chrUnit
	if prgSize == 0 {
		return nil, ErrNoPrg
	}

	img := &Image{Header: header}
	offset := headerSize

	if header.Trainer {
		if offset+trainerSize > len(data) {
			return nil, fmt.Errorf("%w: trainer", ErrTruncated)
		}
		img.Trainer = data[offset : offset+trainerSize]
		offset += trainerSize
	}

	if offset+prgSize > len(data) {
		return nil, fmt.Errorf("%w: PRG ROM needs %d bytes, %d available", ErrTruncated, prgSize, len(data)-offset)
	}
	img.Prg = append([]byte(nil), data[offset:offset+prgSize]...)
	offset += prgSize

	if offset+chrSize > len(data) {
		return nil, fmt.Errorf("%w: CHR ROM needs %d bytes, %d available", ErrTruncated, chrSize, len(data)-offset)
	}
	if chrSize > 0 {
		img.Chr = append([]byte(nil), data[offset:offset+chrSize]...)
	}
	offset += chrSize

	if offset != len(data) {
		return nil, fmt.Errorf("%w: %d extra bytes", ErrSizeMismatch, len(data)-offset)
	}

	img.Crc = Checksum(img.Prg, img.Chr)
	img.Descriptor = header.descriptor()

	return img, nil
}

// descriptor derives the board description from the header alone.
func (h Header) descriptor() Descriptor {
	d := Descriptor{
		Mapper:    h.Mapper,
		SubMapper: h.SubMapper,
	}

	switch {
	case h.FourScreen:
		d.Mirroring = FourScreen
	case h.VerticalMirroring:
		d.Mirroring = Vertical
	default:
		d.Mirroring = Horizontal
	}

	switch {
	case h.Battery:
		d.PrgBatteryRamSize = 0x2000
	case h.Mapper == 1:
		d.PrgRamSize = 0x2000
	}

	if h.ChrBanks == 0 {
		d.ChrRamSize = 0x2000
	}

	return d
}

// Checksum returns the database key for the given ROM data.
func Checksum(prg, chr []byte) uint32 {
	crc := crc32.ChecksumIEEE(prg)
	return crc32.Update(crc, crc32.IEEETable, chr)
}
