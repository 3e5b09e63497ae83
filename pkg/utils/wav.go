package utils

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVWriter writes mono 16 bit audio to a WAV file. The header is only
// complete once Close has been called.
type WAVWriter struct {
	enc *wav.Encoder
	buf *audio.IntBuffer
}

// NewWAVWriter returns a WAVWriter writing to w at sampleRate.
func NewWAVWriter(w io.WriteSeeker, sampleRate int) *WAVWriter {
	return &WAVWriter{
		enc: wav.NewEncoder(w, sampleRate, 16, 1, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}
}

// Write appends samples to the file.
func (w *WAVWriter) Write(samples []int16) error {
	w.buf.Data = w.buf.Data[:0]
	for _, s := range samples {
		w.buf.Data = append(w.buf.Data, int(s))
	}
	return w.enc.Write(w.buf)
}

// Close completes the header. It doesn't close the underlying writer.
func (w *WAVWriter) Close() error {
	return w.enc.Close()
}
