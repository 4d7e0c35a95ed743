// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package imagegrid

import (
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Location of a caption band in an image.
type Location string

const (
	Top    Location = "top"
	Bottom Location = "bottom"
)

// DefaultFontSize of captions, in points (at 72 DPI, so also in pixels).
const DefaultFontSize = 16

var (
	// BandColor is the background of the caption band.
	BandColor = color.NRGBA{A: 0xc0}

	// TextColor of the captions.
	TextColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// LabelOptions configures DrawLabels. The zero value uses the Go Regular font, DefaultFontSize and Top.
type LabelOptions struct {
	// FontPath to a TrueType/OpenType font file. If empty, Go Regular is used.
	FontPath string

	// FontSize in points. If <= 0, DefaultFontSize is used.
	FontSize float64

	// Location of the caption band: Top (default) or Bottom.
	Location Location
}

// LoadFont returns the font face for the given options.
func LoadFont(opts LabelOptions) (font.Face, error) {
	fontData := goregular.TTF
	if opts.FontPath != "" {
		var err error
		fontData, err = os.ReadFile(opts.FontPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read font file %q", opts.FontPath)
		}
	}
	parsed, err := opentype.Parse(fontData)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse font %q", opts.FontPath)
	}
	size := opts.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create font face of size %g", size)
	}
	return face, nil
}

// DrawLabels returns a copy of img with the text drawn, centered, over a caption band at the top or
// bottom of the image. The image size is preserved, so captioned images can still be composed in a grid.
func DrawLabels(img image.Image, text string, opts LabelOptions) (*image.NRGBA, error) {
	location := opts.Location
	if location == "" {
		location = Top
	}
	if location != Top && location != Bottom {
		return nil, errors.Errorf("invalid caption location %q, valid values are %q and %q", location, Top, Bottom)
	}
	face, err := LoadFont(opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = face.Close() }()

	out := imaging.Clone(img)
	bounds := out.Bounds()
	metrics := face.Metrics()
	margin := max(metrics.Height.Ceil()/4, 1)
	bandHeight := min(metrics.Height.Ceil()+2*margin, bounds.Dy())
	band := image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Min.Y+bandHeight)
	if location == Bottom {
		band = image.Rect(bounds.Min.X, bounds.Max.Y-bandHeight, bounds.Max.X, bounds.Max.Y)
	}
	draw.Draw(out, band, image.NewUniform(BandColor), image.Point{}, draw.Over)

	drawer := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(TextColor),
		Face: face,
	}
	textWidth := drawer.MeasureString(text).Ceil()
	x := band.Min.X + max((band.Dx()-textWidth)/2, 0)
	baseline := band.Min.Y + margin + metrics.Ascent.Ceil()
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
	return out, nil
}
