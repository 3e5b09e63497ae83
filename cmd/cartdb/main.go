// Command cartdb compiles the game database from its CSV source into the
// binary form loaded by the emulator.
//
// The source has 14 columns: name, PRG ROM, CHR ROM, misc ROM,
// mapper[.submapper], mirroring (H, V or 4, then B when battery backed),
// PPU, PRG RAM, battery PRG RAM, CHR RAM, battery CHR RAM, console,
// controller and the CRC32 of the PRG and CHR data.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/thelolagemann/nescore/internal/cartridge"
	"github.com/thelolagemann/nescore/pkg/log"
)

func main() {
	in := flag.String("in", "", "The CSV source, - for stdin")
	out := flag.String("out", "cart.bin", "The binary database to write, - for stdout")
	flag.Parse()

	logger := log.New()
	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	n, err := compile(*in, *out)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	logger.Infof("wrote %d entries to %s", n, *out)
}

func compile(in, out string) (int, error) {
	var r io.Reader = os.Stdin
	if in != "-" {
		f, err := os.Open(in)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		r = f
	}

	db, err := cartridge.Compile(bufio.NewReader(r))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", in, err)
	}

	if out == "-" {
		_, err = db.WriteTo(os.Stdout)
		return db.Len(), err
	}

	f, err := os.Create(out)
	if err != nil {
		return 0, err
	}
	if _, err := db.WriteTo(f); err != nil {
		f.Close()
		return 0, err
	}
	return db.Len(), f.Close()
}
