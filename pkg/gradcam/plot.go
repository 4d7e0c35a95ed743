// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gradcam

import (
	"bytes"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/interpret/pkg/colormaps"
	"github.com/gomlx/interpret/pkg/learner"
	"github.com/pkg/errors"
	"gonum.org/v1/plot/palette"
)

// Interpolation used to resize the Grad-CAM map to the size of the image.
type Interpolation string

const (
	Bilinear Interpolation = "bilinear"
	Nearest  Interpolation = "nearest"
	Bicubic  Interpolation = "bicubic"
	Lanczos  Interpolation = "lanczos"
)

func (i Interpolation) filter() (imaging.ResampleFilter, error) {
	switch i {
	case Bilinear, "":
		return imaging.Linear, nil
	case Nearest:
		return imaging.NearestNeighbor, nil
	case Bicubic:
		return imaging.CatmullRom, nil
	case Lanczos:
		return imaging.Lanczos, nil
	}
	return imaging.ResampleFilter{}, errors.Errorf("unknown interpolation %q, valid values are %q, %q, %q and %q",
		string(i), Bilinear, Nearest, Bicubic, Lanczos)
}

const (
	// DefaultPlotAlpha is the opacity of the Grad-CAM map overlaid by PlotGCAM.
	DefaultPlotAlpha = 0.6
)

// PlotOptions configures PlotGCAM.
type PlotOptions struct {
	// FullSize overlays the map on the original image. Otherwise, it's overlaid on the decoded model input.
	FullSize bool

	// Alpha is the opacity of the map, in [0, 1]: 0 leaves the image unchanged. If nil, DefaultPlotAlpha is used.
	Alpha *float64

	// Interpolation used to resize the map to the image. Default is Bilinear.
	Interpolation Interpolation

	// ImageColorMap, if not nil, is applied to grayscale images. Color images are not changed.
	ImageColorMap palette.ColorMap

	// GCAMColorMap renders the map. If nil, colormaps.Magma is used.
	GCAMColorMap palette.ColorMap
}

// PlotGCAM overlays the Grad-CAM map on the image.
//
// If opts.FullSize the map is overlaid on img, otherwise on the decoded input x of the model (see learner.Learner.Decode).
// The map is normalized to [0, 1] with its minimum and maximum, resized to the size of the image and
// rendered with opts.GCAMColorMap.
func PlotGCAM(l *learner.Learner, img image.Image, x *tensors.Tensor, gcamMap [][]float64, opts PlotOptions) (*image.NRGBA, error) {
	var base image.Image
	if opts.FullSize {
		if img == nil {
			return nil, errors.New("PlotGCAM with FullSize requires the original image")
		}
		base = img
	} else {
		var err error
		base, err = l.Decode(x)
		if err != nil {
			return nil, errors.WithMessage(err, "PlotGCAM failed to decode the model input")
		}
	}
	if len(gcamMap) == 0 || len(gcamMap[0]) == 0 {
		return nil, errors.New("PlotGCAM given an empty Grad-CAM map")
	}
	filter, err := opts.Interpolation.filter()
	if err != nil {
		return nil, err
	}
	alpha := DefaultPlotAlpha
	if opts.Alpha != nil {
		alpha = *opts.Alpha
	}
	if alpha < 0 || alpha > 1 {
		return nil, errors.Errorf("invalid alpha %g for PlotGCAM, it must be in [0, 1]", alpha)
	}
	gcamCMap := opts.GCAMColorMap
	if gcamCMap == nil {
		gcamCMap, err = colormaps.ByName(colormaps.Magma)
		if err != nil {
			return nil, err
		}
	}

	out := imaging.Clone(base)
	if opts.ImageColorMap != nil {
		if gray := imaging.Grayscale(out); bytes.Equal(gray.Pix, out.Pix) {
			out = colormaps.Apply(grayValues(gray), withRange(opts.ImageColorMap, 0, 1))
		}
	}
	bounds := out.Bounds()
	values := resizeMap(normalizeMap(gcamMap), bounds.Dx(), bounds.Dy(), filter)
	overlay := colormaps.Apply(values, withRange(gcamCMap, 0, 1))
	return imaging.Overlay(out, overlay, image.Pt(0, 0), alpha), nil
}

// normalizeMap scales the values to [0, 1]. A constant map becomes all zeros.
func normalizeMap(gcamMap [][]float64) [][]float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range gcamMap {
		for _, v := range row {
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	normalized := make([][]float64, len(gcamMap))
	for y, row := range gcamMap {
		normalized[y] = make([]float64, len(row))
		if hi <= lo {
			continue
		}
		for x, v := range row {
			normalized[y][x] = (v - lo) / (hi - lo)
		}
	}
	return normalized
}

// resizeMap resizes the values in [0, 1] to width x height, by way of an 8 bits grayscale image: the resized
// values are multiples of 1/255.
func resizeMap(values [][]float64, width, height int, filter imaging.ResampleFilter) [][]float64 {
	mapImg := image.NewGray(image.Rect(0, 0, len(values[0]), len(values)))
	for y, row := range values {
		for x, v := range row {
			mapImg.SetGray(x, y, color.Gray{Y: uint8(math.Round(v * math.MaxUint8))})
		}
	}
	return grayValues(imaging.Resize(mapImg, width, height, filter))
}

// grayValues returns the red channel of the image, scaled to [0, 1].
func grayValues(img *image.NRGBA) [][]float64 {
	bounds := img.Bounds()
	values := make([][]float64, bounds.Dy())
	for y := range values {
		values[y] = make([]float64, bounds.Dx())
		for x := range values[y] {
			values[y][x] = float64(img.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y).R) / math.MaxUint8
		}
	}
	return values
}

// rangedColorMap renders the range [min, max] with the colors of the wrapped colormap, leaving its range unchanged.
type rangedColorMap struct {
	palette.ColorMap
	min, max float64
}

func withRange(cm palette.ColorMap, lo, hi float64) palette.ColorMap {
	return &rangedColorMap{ColorMap: cm, min: lo, max: hi}
}

func (cm *rangedColorMap) Min() float64     { return cm.min }
func (cm *rangedColorMap) Max() float64     { return cm.max }
func (cm *rangedColorMap) SetMin(v float64) { cm.min = v }
func (cm *rangedColorMap) SetMax(v float64) { cm.max = v }

// At maps v from [min, max] to the range of the wrapped colormap.
func (cm *rangedColorMap) At(v float64) (color.Color, error) {
	if cm.max <= cm.min {
		return cm.ColorMap.At(cm.ColorMap.Min())
	}
	lo, hi := cm.ColorMap.Min(), cm.ColorMap.Max()
	frac := (v - cm.min) / (cm.max - cm.min)
	return cm.ColorMap.At(min(max(lo+frac*(hi-lo), lo), hi))
}
