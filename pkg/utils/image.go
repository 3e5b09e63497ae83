package utils

import (
	"image"
	"os"

	"golang.org/x/image/bmp"
)

// SaveBMP writes img to filename as an uncompressed bitmap.
func SaveBMP(filename string, img image.Image) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := bmp.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadBMP reads a bitmap written by SaveBMP.
func LoadBMP(filename string) (image.Image, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return bmp.Decode(f)
}
