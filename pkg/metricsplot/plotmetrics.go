// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package metricsplot plots the metrics recorded during training: training and validation losses share
// the first subplot, and each other metric gets its own subplot, arranged in a grid.
//
// Example:
//
//	rec := must.M1(history.LoadFromCheckpoint(checkpointDir))
//	fig := must.M1(metricsplot.PlotMetrics(rec).Cols(2).Done())
//	must.M(fig.Save("metrics.png"))
package metricsplot

import (
	"github.com/gomlx/interpret/pkg/history"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Config for PlotMetrics. Create it with PlotMetrics, set the options and call Done.
type Config struct {
	rec      *history.Recorder
	nrows    int
	ncols    int
	figSize  *FigSize
	endNames int
	dpi      int
}

// PlotMetrics plots the metrics of the recorder. It returns a configuration that can be further set up.
// Call Done to create the Figure.
func PlotMetrics(rec *history.Recorder) *Config {
	return &Config{
		rec:      rec,
		endNames: -1,
		dpi:      DefaultDPI,
	}
}

// Rows sets the number of rows of subplots. 0 (default) means it is calculated from the number of metrics.
func (c *Config) Rows(n int) *Config {
	c.nrows = n
	return c
}

// Cols sets the number of columns of subplots. 0 (default) means it is calculated from the number of metrics.
func (c *Config) Cols(n int) *Config {
	c.ncols = n
	return c
}

// FigSize sets the size of the whole figure, in inches. Default is 6x4 inches per subplot.
func (c *Config) FigSize(width, height float64) *Config {
	size := Inches(width, height)
	c.figSize = &size
	return c
}

// EndNames sets the end (exclusive) of the recorder's metric names plotted:
// negative values count from the end. Default is -1, which leaves out the last "time" column.
func (c *Config) EndNames(end int) *Config {
	c.endNames = end
	return c
}

// DPI used when rendering the figure to raster images. Default is DefaultDPI.
func (c *Config) DPI(dpi int) *Config {
	c.dpi = dpi
	return c
}

// Done creates the Figure with the metrics.
func (c *Config) Done() (*Figure, error) {
	rec := c.rec
	if rec == nil {
		return nil, errors.New("PlotMetrics given a nil recorder")
	}
	if err := rec.Validate(); err != nil {
		return nil, errors.WithMessage(err, "PlotMetrics")
	}
	numNames := len(rec.MetricNames)
	end := c.endNames
	if end < 0 {
		end += numNames
	}
	end = min(max(end, 0), numNames)
	if end <= 1 {
		return nil, errors.Errorf("PlotMetrics: EndNames(%d) selects no metrics from %q", c.endNames, rec.MetricNames)
	}
	names := rec.MetricNames[1:end]
	if len(names) < 2 {
		return nil, errors.Errorf("PlotMetrics requires at least the train and valid losses, got metrics %q", names)
	}
	n := len(names) - 1
	nrows, ncols, err := CalculateSubplotDimensions(n, c.nrows, c.ncols)
	if err != nil {
		return nil, errors.WithMessage(err, "PlotMetrics")
	}
	figSize := Inches(float64(ncols)*6, float64(nrows)*4)
	if c.figSize != nil {
		figSize = *c.figSize
	}
	klog.V(1).Infof("PlotMetrics: plotting %d metrics in a %dx%d grid", len(names), nrows, ncols)
	fig, err := CreateSubplots(nrows, ncols, figSize, rec.Values, rec.Steps, names)
	if err != nil {
		return nil, err
	}
	fig.DPI = c.dpi
	return fig, nil
}
