package cartridge

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Record is a row of the game database source CSV.
type Record struct {
	Name       string
	PrgRom     int
	ChrRom     int
	MiscRom    int
	Mapper     int
	SubMapper  int
	Mirroring  string // any of H, V, 4 followed by an optional B for battery
	Ppu        string
	PrgRam     int
	PrgRamB    int
	ChrRam     int
	ChrRamB    int
	Console    string
	Controller string
	Crc        uint32
}

var ErrBadRecord = errors.New("cartdb: invalid record")

const csvColumns = 14

// ReadRecords parses the database source CSV. Lines starting with # are
// comments.
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = csvColumns

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}

		line, _ := cr.FieldPos(0)
		rec, err := parseRecord(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
}

func parseRecord(row []string) (Record, error) {
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}

	var (
		rec = Record{
			Name:       row[0],
			Mirroring:  row[5],
			Ppu:        row[6],
			Console:    row[11],
			Controller: row[12],
		}
		err error
	)

	ints := []struct {
		dst   *int
		field string
		kb    bool
	}{
		{&rec.PrgRom, row[1], true},
		{&rec.ChrRom, row[2], true},
		{&rec.MiscRom, row[3], false},
	}
	for _, f := range ints {
		if *f.dst, err = strconv.Atoi(f.field); err != nil {
			return rec, fmt.Errorf("%w: %q: %v", ErrBadRecord, f.field, err)
		}
		if f.kb {
			*f.dst *= 1024
		}
	}

	mapper, sub, ok := strings.Cut(row[4], ".")
	if !ok {
		return rec, fmt.Errorf("%w: mapper %q is not of the form mapper.sub", ErrBadRecord, row[4])
	}
	if rec.Mapper, err = strconv.Atoi(mapper); err != nil {
		return rec, fmt.Errorf("%w: mapper %q", ErrBadRecord, row[4])
	}
	if rec.SubMapper, err = strconv.Atoi(sub); err != nil {
		return rec, fmt.Errorf("%w: submapper %q", ErrBadRecord, row[4])
	}

	sizes := []struct {
		dst   *int
		field string
	}{
		{&rec.PrgRam, row[7]},
		{&rec.PrgRamB, row[8]},
		{&rec.ChrRam, row[9]},
		{&rec.ChrRamB, row[10]},
	}
	for _, f := range sizes {
		if *f.dst, err = parseSize(f.field); err != nil {
			return rec, err
		}
	}

	crc, err := strconv.ParseUint(row[13], 16, 32)
	if err != nil {
		return rec, fmt.Errorf("%w: crc %q", ErrBadRecord, row[13])
	}
	rec.Crc = uint32(crc)

	return rec, nil
}

// parseSize parses sizes such as "8K" or "0".
func parseSize(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	mul := 1
	if strings.HasSuffix(s, "K") {
		mul = 1024
		s = strings.TrimSuffix(s, "K")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: size %q", ErrBadRecord, s)
	}
	return n * mul, nil
}

// parseMirroring decodes the mirroring/battery flag column.
func parseMirroring(flag string) (mode uint8, battery bool, err error) {
	mode = mirrorMapper
	seenMode := false
	for _, c := range flag {
		switch {
		case c == 'H' && !seenMode:
			mode, seenMode = mirrorHorizontal, true
		case c == 'V' && !seenMode:
			mode, seenMode = mirrorVertical, true
		case c == '4':
			mode, seenMode = mirrorFourScreen, true
		case c == 'B' && !battery:
			battery = true
		default:
			return 0, false, fmt.Errorf("%w: mirroring %q", ErrBadRecord, flag)
		}
	}
	return mode, battery, nil
}

// Entry encodes the record, rejecting boards whose memory sizes can't be
// expressed by the binary format.
func (r Record) Entry() (Entry, error) {
	if r.Mapper > 0xff {
		return Entry{}, fmt.Errorf("%w: %s: mapper %d out of range", ErrBadRecord, r.Name, r.Mapper)
	}
	if r.SubMapper > 7 {
		return Entry{}, fmt.Errorf("%w: %s: submapper %d out of range", ErrBadRecord, r.Name, r.SubMapper)
	}
	if r.PrgRam != 0 && r.PrgRam != 0x2000 {
		return Entry{}, fmt.Errorf("%w: %s: PRG RAM %d", ErrBadRecord, r.Name, r.PrgRam)
	}

	sub := uint8(r.SubMapper)
	switch {
	case r.Mapper == 4 && r.SubMapper == 1:
		// MMC6 carries 1K of internal RAM
		if r.PrgRamB != 0 && r.PrgRamB != 1024 {
			return Entry{}, fmt.Errorf("%w: %s: MMC6 battery RAM %d", ErrBadRecord, r.Name, r.PrgRamB)
		}
	case r.Mapper == 5:
		switch r.PrgRamB {
		case 0, 0x2000:
			sub = 0
		case 1024:
			sub = 1
		case 32 * 1024:
			sub = 2
		default:
			return Entry{}, fmt.Errorf("%w: %s: MMC5 battery RAM %d", ErrBadRecord, r.Name, r.PrgRamB)
		}
	case r.PrgRamB != 0 && r.PrgRamB != 0x2000:
		return Entry{}, fmt.Errorf("%w: %s: battery RAM %d", ErrBadRecord, r.Name, r.PrgRamB)
	}

	if r.Mapper == 13 {
		if r.ChrRam != 16*1024 {
			return Entry{}, fmt.Errorf("%w: %s: CPROM CHR RAM %d", ErrBadRecord, r.Name, r.ChrRam)
		}
	} else if r.ChrRam != 0 && r.ChrRam != 0x2000 {
		return Entry{}, fmt.Errorf("%w: %s: CHR RAM %d", ErrBadRecord, r.Name, r.ChrRam)
	}
	if r.ChrRamB != 0 {
		return Entry{}, fmt.Errorf("%w: %s: battery CHR RAM", ErrBadRecord, r.Name)
	}

	mode, battery, err := parseMirroring(r.Mirroring)
	if err != nil {
		return Entry{}, err
	}

	var config uint8
	if r.PrgRam != 0 {
		config |= configPrgRam
	}
	if r.PrgRamB != 0 || battery {
		config |= configBatteryRam
	}
	if r.ChrRam != 0 {
		config |= configChrRam
	}
	config |= mode << 3
	config |= sub << 5

	return Entry{Crc: r.Crc, Mapper: uint8(r.Mapper), Config: config}, nil
}

// Compile reads the database source CSV and builds a database from it.
func Compile(r io.Reader) (*Database, error) {
	records, err := ReadRecords(r)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		e, err := rec.Entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return NewDatabase(entries...), nil
}
