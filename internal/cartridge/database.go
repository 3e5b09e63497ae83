package cartridge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// EntrySize is the size of a single record of the binary game database.
const EntrySize = 6

var ErrBadDatabase = errors.New("cartdb: database size is not a multiple of 6")

// Entry is a single game database record.
//
//	bytes 0-3  CRC32 of PRG ROM followed by CHR ROM, little endian
//	byte  4    mapper number
//	byte  5    config: sssm mcbr
//	           |||| |||+ 8K PRG RAM
//	           |||| ||+- 8K battery backed PRG RAM
//	           |||| |+-- 8K CHR RAM
//	           |||+-+--- mirroring: 0 horizontal, 1 vertical, 2 four screen, 3 mapper controlled
//	           +++------ submapper (MMC5: PRG RAM size override)
type Entry struct {
	Crc    uint32
	Mapper uint8
	Config uint8
}

const (
	configPrgRam     = 0x01
	configBatteryRam = 0x02
	configChrRam     = 0x04

	mirrorHorizontal = 0
	mirrorVertical   = 1
	mirrorFourScreen = 2
	mirrorMapper     = 3
)

// Descriptor decodes the entry. Mapper controlled mirroring falls back
// to the given header mirroring.
func (e Entry) Descriptor(headerMirroring Mirroring) Descriptor {
	d := Descriptor{Mapper: int(e.Mapper)}

	if e.Config&configPrgRam != 0 {
		d.PrgRamSize = 0x2000
	}
	if e.Config&configBatteryRam != 0 {
		d.PrgBatteryRamSize = 0x2000
	}
	if e.Config&configChrRam != 0 {
		d.ChrRamSize = 0x2000
	}

	switch (e.Config >> 3) & 3 {
	case mirrorHorizontal:
		d.Mirroring = Horizontal
	case mirrorVertical:
		d.Mirroring = Vertical
	case mirrorFourScreen:
		d.Mirroring = FourScreen
	default:
		d.Mirroring = headerMirroring
	}

	sub := int(e.Config >> 5)
	if e.Mapper == 5 {
		switch sub {
		case 1:
			d.PrgBatteryRamSize = 1024
		case 2:
			d.PrgBatteryRamSize = 32 * 1024
		}
		sub = 0
	}
	d.SubMapper = sub

	if e.Mapper == 13 {
		d.ChrRamSize = 16 * 1024
	}

	return d
}

// Database is a CRC32 keyed set of board descriptions for games whose
// iNES header is known to be wrong or incomplete.
type Database struct {
	entries map[uint32]Entry
}

// NewDatabase returns a database holding the given entries. Later
// entries replace earlier ones with the same CRC.
func NewDatabase(entries ...Entry) *Database {
	db := &Database{entries: make(map[uint32]Entry, len(entries))}
	for _, e := range entries {
		db.entries[e.Crc] = e
	}
	return db
}

// ParseDatabase decodes the binary database format.
func ParseDatabase(data []byte) (*Database, error) {
	if len(data)%EntrySize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadDatabase, len(data))
	}

	entries := make([]Entry, 0, len(data)/EntrySize)
	for i := 0; i < len(data); i += EntrySize {
		entries = append(entries, Entry{
			Crc:    binary.LittleEndian.Uint32(data[i:]),
			Mapper: data[i+4],
			Config: data[i+5],
		})
	}
	return NewDatabase(entries...), nil
}

// LoadDatabase reads a binary database from disk.
func LoadDatabase(filename string) (*Database, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseDatabase(b)
}

// Len returns the number of entries in the database.
func (db *Database) Len() int {
	if db == nil {
		return 0
	}
	return len(db.entries)
}

// Lookup returns the entry for the given CRC32.
func (db *Database) Lookup(crc uint32) (Entry, bool) {
	if db == nil {
		return Entry{}, false
	}
	e, ok := db.entries[crc]
	return e, ok
}

// Apply overrides the image's descriptor with the database entry for its
// CRC, reporting whether one was found.
func (db *Database) Apply(img *Image) bool {
	e, ok := db.Lookup(img.Crc)
	if !ok {
		return false
	}
	headerMirroring := img.Descriptor.Mirroring
	img.Descriptor = e.Descriptor(headerMirroring)
	return true
}

// WriteTo writes the database in its binary form, ordered by CRC so that
// the output is reproducible.
func (db *Database) WriteTo(w io.Writer) (int64, error) {
	crcs := make([]uint32, 0, len(db.entries))
	for crc := range db.entries {
		crcs = append(crcs, crc)
	}
	sort.Slice(crcs, func(i, j int) bool { return crcs[i] < crcs[j] })

	buf := make([]byte, 0, len(crcs)*EntrySize)
	for _, crc := range crcs {
		e := db.entries[crc]
		buf = binary.LittleEndian.AppendUint32(buf, e.Crc)
		buf = append(buf, e.Mapper, e.Config)
	}

	n, err := w.Write(buf)
	return int64(n), err
}
