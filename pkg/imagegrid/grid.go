// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package imagegrid

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	// DefaultSize images are resized to when composing grids from the command line.
	DefaultSize = Size{Width: 480, Height: 270}

	// PadColor fills the padding between the images of a grid.
	PadColor = color.NRGBA{A: 0xff}
)

const (
	// DefaultColumns is the default number of images per row of a grid.
	DefaultColumns = 8

	// Padding in pixels around each image of a grid.
	Padding = 2
)

// CreateImageGrid composes the images in a grid with ncol images per row, filled row-major.
//
// If size is not nil, images are resized to it first (see PrepareImageList), otherwise
// all images must have the same size.
//
// Every image is surrounded by Padding pixels of PadColor: with n images of size WxH, the grid has
// xmaps=min(ncol, n) columns and ymaps=ceil(n/xmaps) rows, and its size is
// (xmaps*(W+Padding)+Padding) x (ymaps*(H+Padding)+Padding).
// A single image is returned as is, without padding.
func CreateImageGrid(items []Item, size *Size, ncol int) (*image.NRGBA, error) {
	if ncol <= 0 {
		return nil, errors.Errorf("invalid number of columns %d for image grid, it must be > 0", ncol)
	}
	images, err := PrepareImageList(items, size)
	if err != nil {
		return nil, errors.WithMessage(err, "CreateImageGrid")
	}
	return Compose(images, ncol)
}

// Compose the images in a grid, see CreateImageGrid.
func Compose(images []image.Image, ncol int) (*image.NRGBA, error) {
	if len(images) == 0 {
		return nil, errors.New("no images to compose in a grid")
	}
	if ncol <= 0 {
		return nil, errors.Errorf("invalid number of columns %d for image grid, it must be > 0", ncol)
	}
	imgSize := images[0].Bounds().Size()
	for ii, img := range images {
		if img.Bounds().Size() != imgSize {
			return nil, errors.Errorf("all images of a grid must have the same size: image #0 is %s, image #%d is %s",
				Size{imgSize.X, imgSize.Y}, ii, Size{img.Bounds().Dx(), img.Bounds().Dy()})
		}
	}
	if len(images) == 1 {
		return imaging.Clone(images[0]), nil
	}

	n := len(images)
	xmaps := min(ncol, n)
	ymaps := (n + xmaps - 1) / xmaps
	cellWidth, cellHeight := imgSize.X+Padding, imgSize.Y+Padding
	grid := image.NewNRGBA(image.Rect(0, 0, xmaps*cellWidth+Padding, ymaps*cellHeight+Padding))
	draw.Draw(grid, grid.Bounds(), image.NewUniform(PadColor), image.Point{}, draw.Src)
	for k, img := range images {
		x, y := k%xmaps, k/xmaps
		pos := image.Pt(x*cellWidth+Padding, y*cellHeight+Padding)
		grid = imaging.Paste(grid, flatten(img), pos)
	}
	klog.V(2).Infof("image grid of %dx%d images of %s: %s", ymaps, xmaps, Size{imgSize.X, imgSize.Y},
		Size{grid.Bounds().Dx(), grid.Bounds().Dy()})
	return grid, nil
}

// flatten drops the alpha channel of img, like the conversion to a 3-channels array does.
func flatten(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	for ii := 3; ii < len(out.Pix); ii += 4 {
		if out.Pix[ii] != 0xff {
			out.Pix[ii] = 0xff
		}
	}
	return out
}
