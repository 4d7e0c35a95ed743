// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package metricsplot

import (
	"image/color"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	// TrainColor is the color of the training loss line: "#1f77b4".
	TrainColor = color.NRGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}

	// ValidColor is the color of the validation loss and of all other metrics: "#ff7f0e".
	ValidColor = color.NRGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}

	// LineWidth of the metric lines.
	LineWidth = vg.Points(1.5)
)

const (
	// LossesTitle is the title of the first subplot, holding both training and validation losses.
	LossesTitle = "losses"

	trainLabel = "train"
	validLabel = "valid"
)

// FigSize is the size of a figure.
type FigSize struct {
	Width, Height vg.Length
}

// Inches returns a FigSize from width and height given in inches.
func Inches(width, height float64) FigSize {
	return FigSize{Width: vg.Length(width) * vg.Inch, Height: vg.Length(height) * vg.Inch}
}

// Series is one line drawn in a subplot.
type Series struct {
	// Axis is the index of the subplot (row-major) where the series is drawn.
	Axis int

	// Label in the legend, Title of the subplot.
	Label, Title string

	Color  color.Color
	Xs, Ys []float64
}

// Figure is a grid of subplots (axes) with metric lines.
type Figure struct {
	Rows, Cols int
	Size       FigSize

	// DPI used when rendering to raster images.
	DPI int

	// Axes has Rows*Cols entries in row-major order. Axes not used are nil: they are turned off and not drawn.
	Axes []*plot.Plot

	// Series drawn, in the order they were added.
	Series []Series
}

// CreateSubplots creates a figure with a grid of nrows x ncols subplots, and plots the metrics on them.
//
// The metrics are given one row per step, and column i holds the values of names[i]. If steps is nil,
// the x-axis is the row index.
//
// Only the first len(names)-1 axes are used: metrics 0 (training loss) and 1 (validation loss) share the
// first subplot, titled LossesTitle, and metric i > 1 goes to subplot i-1, titled names[i].
// Remaining axes are turned off. Non-finite values are skipped.
func CreateSubplots(nrows, ncols int, figSize FigSize, metrics [][]float64, steps []float64, names []string) (*Figure, error) {
	if len(names) < 2 {
		return nil, errors.Errorf("CreateSubplots requires at least 2 metric names (train and valid losses), got %q", names)
	}
	numUsed := len(names) - 1
	if nrows <= 0 || ncols <= 0 {
		return nil, errors.Errorf("invalid subplots grid %dx%d", nrows, ncols)
	}
	if nrows*ncols < numUsed {
		return nil, errors.Errorf("subplots grid %dx%d has only %d axes, but %d are needed for metrics %q",
			nrows, ncols, nrows*ncols, numUsed, names)
	}
	if steps != nil && len(steps) != len(metrics) {
		return nil, errors.Errorf("CreateSubplots given %d steps for %d rows of metrics", len(steps), len(metrics))
	}
	fig := &Figure{
		Rows: nrows,
		Cols: ncols,
		Size: figSize,
		DPI:  DefaultDPI,
		Axes: make([]*plot.Plot, nrows*ncols),
	}
	for axIdx := range numUsed {
		p := plot.New()
		p.Legend.Top = true
		p.Add(plotter.NewGrid())
		fig.Axes[axIdx] = p
	}

	for i, name := range names {
		axIdx := max(i-1, 0)
		series := Series{Axis: axIdx, Label: validLabel, Title: name, Color: ValidColor}
		if i == 0 {
			series.Label = trainLabel
			series.Color = TrainColor
		}
		if i <= 1 {
			series.Title = LossesTitle
		}
		for row, values := range metrics {
			if i >= len(values) {
				continue
			}
			v := values[i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			x := float64(row)
			if steps != nil {
				x = steps[row]
			}
			series.Xs = append(series.Xs, x)
			series.Ys = append(series.Ys, v)
		}
		fig.Series = append(fig.Series, series)

		p := fig.Axes[axIdx]
		p.Title.Text = series.Title
		if len(series.Xs) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(series.Xs))
		for ii := range series.Xs {
			xys[ii].X = series.Xs[ii]
			xys[ii].Y = series.Ys[ii]
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create line for metric %q", name)
		}
		line.Color = series.Color
		line.Width = LineWidth
		p.Add(line)
		p.Legend.Add(series.Label, line)
	}
	return fig, nil
}

// NumUsedAxes returns the number of axes that are drawn.
func (f *Figure) NumUsedAxes() int {
	var count int
	for _, p := range f.Axes {
		if p != nil {
			count++
		}
	}
	return count
}

// Draw the figure on the given canvas, each subplot in its tile.
func (f *Figure) Draw(c draw.Canvas) {
	pad := f.Size.Height / vg.Length(40*f.Rows)
	tiles := draw.Tiles{
		Rows:      f.Rows,
		Cols:      f.Cols,
		PadX:      pad,
		PadY:      pad,
		PadTop:    pad,
		PadBottom: pad,
		PadLeft:   pad,
		PadRight:  pad,
	}
	for row := range f.Rows {
		for col := range f.Cols {
			p := f.Axes[row*f.Cols+col]
			if p == nil {
				continue
			}
			p.Draw(tiles.At(c, col, row))
		}
	}
}
