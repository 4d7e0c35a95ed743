// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package colormaps provides the named colormaps used to render heatmaps (Grad-CAM maps) and
// grayscale images.
//
// All colormaps implement gonum's [palette.ColorMap], so they can also be used with
// gonum.org/v1/plot heatmaps. Colormaps returned by [ByName] are configured with the range [0, 1].
//
// Example:
//
//	cm := must.M1(colormaps.ByName("magma"))
//	img := colormaps.Apply(normalizedMap, cm)
package colormaps

import (
	"image"
	"image/color"
	"math"
	"slices"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

const (
	// Magma is the perceptually uniform black-purple-yellow colormap. Default for Grad-CAM overlays.
	Magma = "magma"

	// RdYlBu10R is the reversed 10-class ColorBrewer diverging Red-Yellow-Blue colormap:
	// blue for low values and red for high values.
	RdYlBu10R = "RdYlBu_10_r"

	// Viridis is the perceptually uniform purple-green-yellow colormap.
	Viridis = "viridis"

	// Gray maps 0 to black and 1 to white.
	Gray = "gray"

	// BlackBody is gonum's moreland black-body radiation colormap.
	BlackBody = "blackbody"

	// Kindlmann is gonum's moreland Kindlmann colormap.
	Kindlmann = "kindlmann"

	// SmoothBlueRed is gonum's moreland smooth diverging blue-to-red colormap.
	SmoothBlueRed = "smoothbluered"
)

var (
	magmaStops = []string{
		"#000004", "#180f3d", "#440f76", "#721f81", "#9e2f7f",
		"#cd4071", "#f1605d", "#fd9668", "#feca8d", "#fcfdbf",
	}

	// rdYlBu10Stops is the ColorBrewer RdYlBu 10-class palette, already reversed.
	rdYlBu10Stops = []string{
		"#313695", "#4575b4", "#74add1", "#abd9e9", "#e0f3f8",
		"#fee090", "#fdae61", "#f46d43", "#d73027", "#a50026",
	}

	viridisStops = []string{
		"#440154", "#482878", "#3e4989", "#31688e", "#26828e",
		"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
	}

	grayStops = []string{"#000000", "#ffffff"}

	// builders of the named colormaps.
	builders = map[string]func() palette.ColorMap{
		Magma:         func() palette.ColorMap { return MustFromHex(Magma, magmaStops...) },
		RdYlBu10R:     func() palette.ColorMap { return MustFromHex(RdYlBu10R, rdYlBu10Stops...) },
		Viridis:       func() palette.ColorMap { return MustFromHex(Viridis, viridisStops...) },
		Gray:          func() palette.ColorMap { return MustFromHex(Gray, grayStops...) },
		BlackBody:     moreland.BlackBody,
		Kindlmann:     moreland.Kindlmann,
		SmoothBlueRed: func() palette.ColorMap { return moreland.SmoothBlueRed() },
	}
)

// Names returns the sorted list of available colormap names.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName returns a new instance of the named colormap, with range [0, 1] and alpha 1.
func ByName(name string) (palette.ColorMap, error) {
	build, found := builders[name]
	if !found {
		return nil, errors.Errorf("unknown colormap %q, valid values are %v", name, Names())
	}
	cm := build()
	cm.SetMin(0)
	cm.SetMax(1)
	cm.SetAlpha(1)
	return cm, nil
}

// StopsColorMap is a colormap linearly interpolated (in RGB space) between evenly spaced color stops.
// It implements [palette.ColorMap].
type StopsColorMap struct {
	name     string
	stops    []colorful.Color
	min, max float64
	alpha    float64
}

var _ palette.ColorMap = (*StopsColorMap)(nil)

// FromHex creates a StopsColorMap from hex color codes ("#rrggbb"). At least 2 stops are required.
func FromHex(name string, hexStops ...string) (*StopsColorMap, error) {
	if len(hexStops) < 2 {
		return nil, errors.Errorf("colormap %q requires at least 2 color stops, got %d", name, len(hexStops))
	}
	cm := &StopsColorMap{name: name, max: 1, alpha: 1}
	for _, hex := range hexStops {
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, errors.Wrapf(err, "colormap %q has invalid color stop %q", name, hex)
		}
		cm.stops = append(cm.stops, c)
	}
	return cm, nil
}

// MustFromHex is like FromHex, but panics on error.
func MustFromHex(name string, hexStops ...string) *StopsColorMap {
	cm, err := FromHex(name, hexStops...)
	if err != nil {
		panic(err)
	}
	return cm
}

// Name of the colormap.
func (cm *StopsColorMap) Name() string { return cm.name }

// Reversed returns a copy of the colormap with the stops in reverse order, named with a "_r" suffix.
func (cm *StopsColorMap) Reversed() *StopsColorMap {
	rev := *cm
	rev.name = cm.name + "_r"
	rev.stops = slices.Clone(cm.stops)
	slices.Reverse(rev.stops)
	return &rev
}

// At implements palette.ColorMap.
func (cm *StopsColorMap) At(v float64) (color.Color, error) {
	switch {
	case math.IsNaN(v):
		return nil, palette.ErrNaN
	case v < cm.min:
		return nil, palette.ErrUnderflow
	case v > cm.max:
		return nil, palette.ErrOverflow
	}
	var t float64
	if cm.max > cm.min {
		t = (v - cm.min) / (cm.max - cm.min)
	}
	pos := t * float64(len(cm.stops)-1)
	idx := int(pos)
	var c colorful.Color
	if idx >= len(cm.stops)-1 {
		c = cm.stops[len(cm.stops)-1]
	} else {
		c = cm.stops[idx].BlendRgb(cm.stops[idx+1], pos-float64(idx)).Clamped()
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(cm.alpha * 255))}, nil
}

// Max implements palette.ColorMap.
func (cm *StopsColorMap) Max() float64 { return cm.max }

// Min implements palette.ColorMap.
func (cm *StopsColorMap) Min() float64 { return cm.min }

// SetMax implements palette.ColorMap.
func (cm *StopsColorMap) SetMax(v float64) { cm.max = v }

// SetMin implements palette.ColorMap.
func (cm *StopsColorMap) SetMin(v float64) { cm.min = v }

// Alpha implements palette.ColorMap.
func (cm *StopsColorMap) Alpha() float64 { return cm.alpha }

// SetAlpha implements palette.ColorMap.
func (cm *StopsColorMap) SetAlpha(alpha float64) { cm.alpha = alpha }

// Palette implements palette.ColorMap: it returns n colors evenly sampled from the colormap.
func (cm *StopsColorMap) Palette(n int) palette.Palette {
	colors := make(colorList, 0, n)
	for ii := range n {
		var v float64
		if n > 1 {
			v = cm.min + (cm.max-cm.min)*float64(ii)/float64(n-1)
		} else {
			v = cm.min
		}
		c, _ := cm.At(v)
		colors = append(colors, c)
	}
	return colors
}

type colorList []color.Color

func (c colorList) Colors() []color.Color { return c }

// Apply renders the values (indexed as `values[y][x]`) with the colormap into a new image.
// Values outside the colormap range are clamped, NaNs are rendered transparent.
func Apply(values [][]float64, cm palette.ColorMap) *image.NRGBA {
	height := len(values)
	var width int
	if height > 0 {
		width = len(values[0])
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y, row := range values {
		for x, v := range row {
			if math.IsNaN(v) {
				continue
			}
			v = max(cm.Min(), min(cm.Max(), v))
			c, err := cm.At(v)
			if err != nil {
				continue
			}
			img.Set(x, y, c)
		}
	}
	return img
}
