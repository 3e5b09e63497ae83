package utils

import (
	"image"
	"image/png"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// PlotSamples draws the waveform of samples, played at sampleRate, and
// writes it to w as a 960x320 PNG.
func PlotSamples(w io.Writer, samples []int16, sampleRate int) error {
	p := plot.New()
	p.Title.Text = "Audio"
	p.X.Label.Text = "Time (ms)"
	p.Y.Label.Text = "Amplitude"
	p.Y.Min, p.Y.Max = -32768, 32767

	xys := make(plotter.XYs, len(samples))
	for i, s := range samples {
		xys[i].X = float64(i) * 1000 / float64(sampleRate)
		xys[i].Y = float64(s)
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	p.Add(line)

	img := image.NewRGBA(image.Rect(0, 0, 960, 320))
	c := vgimg.NewWith(vgimg.UseImage(img))
	p.Draw(draw.New(c))

	return png.Encode(w, c.Image())
}
