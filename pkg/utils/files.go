// Package utils provides the file helpers used by the command line
// tools: loading (possibly compressed) ROMs, and dumping frames and
// audio.
package utils

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

// ErrEmptyArchive is returned when an archive holds no file.
var ErrEmptyArchive = errors.New("archive is empty")

// RomExtension is the extension preferred when picking a file out of an
// archive.
const RomExtension = ".nes"

// LoadFile loads the given file and performs decompression if necessary.
// Archives (.zip and .7z) yield their first .nes file, or their first
// file if none has that extension.
func LoadFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var decoder io.ReadCloser
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".gz":
		decoder, err = gzip.NewReader(bytes.NewReader(data))
	case ".zip":
		var r *zip.Reader
		if r, err = zip.NewReader(bytes.NewReader(data), int64(len(data))); err != nil {
			break
		}
		files := make([]archiveFile, 0, len(r.File))
		for _, f := range r.File {
			files = append(files, f)
		}
		decoder, err = openRom(files)
	case ".7z":
		var r *sevenzip.Reader
		if r, err = sevenzip.NewReader(bytes.NewReader(data), int64(len(data))); err != nil {
			break
		}
		files := make([]archiveFile, 0, len(r.File))
		for _, f := range r.File {
			files = append(files, f)
		}
		decoder, err = openRom(files)
	default:
		// return the data as is
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	defer decoder.Close()

	// read the decompressed data into a byte slice
	return io.ReadAll(decoder)
}

// archiveFile is a file of a zip or 7z archive.
type archiveFile interface {
	FileInfo() os.FileInfo
	Open() (io.ReadCloser, error)
}

func openRom(files []archiveFile) (io.ReadCloser, error) {
	var first archiveFile
	for _, f := range files {
		info := f.FileInfo()
		if info.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(info.Name()), RomExtension) {
			return f.Open()
		}
		if first == nil {
			first = f
		}
	}
	if first == nil {
		return nil, ErrEmptyArchive
	}
	return first.Open()
}
