// Package chart renders overlays of stored trajectories for one label: the
// best-so-far energy of every run as a solid line and its accepted energy as
// a dotted line in the same colour.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/bhtraj/internal/trajectory"
)

// ErrNoRecords is returned when there is nothing to draw.
var ErrNoRecords = errors.New("no trajectories to plot")

// Palette cycles per run.
var Palette = []color.Color{
	color.RGBA{A: 255},                 // black
	color.RGBA{R: 255, A: 255},         // red
	color.RGBA{B: 255, A: 255},         // blue
	color.RGBA{G: 128, A: 255},         // green
	color.RGBA{R: 255, A: 255},         // red
	color.RGBA{G: 255, B: 255, A: 255}, // cyan
	color.RGBA{R: 255, B: 255, A: 255}, // magenta
}

// PaletteHex is Palette as CSS colours for the HTML chart.
var PaletteHex = []string{"#000000", "#ff0000", "#0000ff", "#008000", "#ff0000", "#00ffff", "#ff00ff"}

// Plot size for image output.
const (
	Width  = 10 * vg.Inch
	Height = 6 * vg.Inch
)

// Overlay builds the gonum plot of records. When accepted is false only the
// best-so-far lines are drawn.
func Overlay(label string, records []*trajectory.Record, accepted bool) (*plot.Plot, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Basin hopping: %s (%d runs)", label, len(records))
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Energy"

	for i, r := range records {
		c := Palette[i%len(Palette)]

		bestLine, err := plotter.NewLine(steps(r.BestEnergies))
		if err != nil {
			return nil, err
		}
		bestLine.Color = c
		bestLine.Width = vg.Points(1.5)
		p.Add(bestLine)
		p.Legend.Add(runName(i, r), bestLine)

		if !accepted {
			continue
		}
		acceptedLine, err := plotter.NewLine(steps(r.AcceptedEnergies))
		if err != nil {
			return nil, err
		}
		acceptedLine.Color = c
		acceptedLine.Width = vg.Points(0.75)
		acceptedLine.Dashes = []vg.Length{vg.Points(1), vg.Points(2)}
		p.Add(acceptedLine)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WriteOverlayPNG writes the overlay for records as a PNG image.
func WriteOverlayPNG(w io.Writer, label string, records []*trajectory.Record) error {
	p, err := Overlay(label, records, true)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return fmt.Errorf("create png writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// Save writes the overlay to path. The format follows the extension: .html
// gets the interactive page, anything else is passed to gonum/plot (.png,
// .svg, .pdf, ...).
func Save(path, label string, records []*trajectory.Record) error {
	if strings.EqualFold(filepath.Ext(path), ".html") {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := WriteOverlayHTML(f, label, records, HTMLOptions{}); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	p, err := Overlay(label, records, true)
	if err != nil {
		return err
	}
	return p.Save(Width, Height, path)
}

// FileName derives a safe file name for label's chart with extension ext.
func FileName(label, ext string) string {
	var b strings.Builder
	const maxLen = 128
	lastUnderscore := false
	for _, r := range label {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "._")
	if name == "" {
		name = "trajectories"
	}
	return name + "_trajectories." + strings.TrimPrefix(ext, ".")
}

func steps(ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(ys))
	for i, y := range ys {
		pts[i] = plotter.XY{X: float64(i), Y: y}
	}
	return pts
}

func runName(i int, r *trajectory.Record) string {
	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		return fmt.Sprintf("run %d", i)
	}
	return fmt.Sprintf("run %d (%s)", i, id)
}
