// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package imagegrid

import (
	"image"
	"image/color"
	"os"
	"path"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/simplego"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(width, height int, c color.NRGBA) *image.NRGBA {
	return imaging.New(width, height, c)
}

var (
	red   = color.NRGBA{R: 0xff, A: 0xff}
	green = color.NRGBA{G: 0xff, A: 0xff}
	blue  = color.NRGBA{B: 0xff, A: 0xff}
	white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

func TestConvertImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 0xff})
	img.SetNRGBA(1, 0, color.NRGBA{R: 4, G: 5, B: 6, A: 0xff})

	array := ConvertImageToArray(img)
	assert.Equal(t, [][][]uint8{{{1, 4}}, {{2, 5}}, {{3, 6}}}, array)

	backend, err := backends.NewWithConfig("go")
	require.NoError(t, err)
	tensor, err := ConvertImageToTensor(backend, img)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, tensor.Shape().Dimensions)
	assert.Equal(t, []uint8{1, 4, 2, 5, 3, 6}, tensors.MustCopyFlatData[uint8](tensor))

	// Bounds not starting at the origin.
	sub := img.SubImage(image.Rect(1, 0, 2, 1))
	assert.Equal(t, [][][]uint8{{{4}}, {{5}}, {{6}}}, ConvertImageToArray(sub))
	tensor, err = ConvertImageToTensor(backend, sub)
	require.NoError(t, err)
	assert.Equal(t, []uint8{4, 5, 6}, tensors.MustCopyFlatData[uint8](tensor))

	_, err = ConvertImageToTensor(backend, nil)
	require.Error(t, err)
}

func TestCreateImageGrid(t *testing.T) {
	items := Images(solidImage(4, 3, red), solidImage(4, 3, green), solidImage(4, 3, blue))
	grid, err := CreateImageGrid(items, nil, 2)
	require.NoError(t, err)
	// 2 columns and 2 rows of (4+2)x(3+2) cells, plus the padding.
	assert.Equal(t, 14, grid.Bounds().Dx())
	assert.Equal(t, 12, grid.Bounds().Dy())
	black := color.NRGBA{A: 0xff}
	assert.Equal(t, black, grid.NRGBAAt(0, 0))
	assert.Equal(t, red, grid.NRGBAAt(2, 2))
	assert.Equal(t, red, grid.NRGBAAt(5, 4))
	assert.Equal(t, black, grid.NRGBAAt(6, 2))
	assert.Equal(t, green, grid.NRGBAAt(8, 2))
	assert.Equal(t, blue, grid.NRGBAAt(2, 7))
	assert.Equal(t, black, grid.NRGBAAt(8, 7), "cell without image")

	// More columns than images: a single row.
	grid, err = CreateImageGrid(items, nil, 8)
	require.NoError(t, err)
	assert.Equal(t, 3*6+2, grid.Bounds().Dx())
	assert.Equal(t, 5+2, grid.Bounds().Dy())

	// Resized.
	grid, err = CreateImageGrid(items, &Size{Width: 8, Height: 8}, 3)
	require.NoError(t, err)
	assert.Equal(t, 3*10+2, grid.Bounds().Dx())
	assert.Equal(t, 10+2, grid.Bounds().Dy())

	// Single image is returned without padding.
	grid, err = CreateImageGrid(items[:1], nil, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, grid.Bounds().Dx())
	assert.Equal(t, 3, grid.Bounds().Dy())
}

func TestCreateImageGridFromPaths(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for ii, c := range []color.NRGBA{red, green} {
		p := path.Join(dir, []string{"a.png", "b.png"}[ii])
		require.NoError(t, imaging.Save(solidImage(10, 6+ii, c), p))
		paths = append(paths, p)
	}

	// Different sizes, not resized.
	_, err := CreateImageGrid(Paths(paths...), nil, 2)
	require.Error(t, err)

	grid, err := CreateImageGrid(Paths(paths...), &Size{Width: 5, Height: 5}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2*7+2, grid.Bounds().Dx())
	assert.Equal(t, 7+2, grid.Bounds().Dy())
	assert.Equal(t, green, grid.NRGBAAt(2+7+2, 4))

	_, err = OpenImage(path.Join(dir, "missing.png"), nil)
	require.Error(t, err)
}

func TestCreateImageGridErrors(t *testing.T) {
	img := solidImage(2, 2, red)
	_, err := CreateImageGrid(nil, nil, 2)
	require.Error(t, err)
	_, err = CreateImageGrid(Images(img), nil, 0)
	require.Error(t, err)
	_, err = CreateImageGrid([]Item{FromImage(img), FromPath("x.png")}, nil, 2)
	require.ErrorContains(t, err, "all paths or all images")
	_, err = CreateImageGrid(Images(img), &Size{Width: 0, Height: 2}, 2)
	require.Error(t, err)
}

func TestDrawLabels(t *testing.T) {
	img := solidImage(120, 60, white)
	captioned, err := DrawLabels(img, "cat: 99.00%", LabelOptions{})
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), captioned.Bounds())
	assert.Equal(t, white, img.NRGBAAt(0, 0), "original image is not changed")
	assert.NotEqual(t, white, captioned.NRGBAAt(0, 0), "band at the top")
	assert.Equal(t, white, captioned.NRGBAAt(0, 59))

	// Text is drawn in the middle of the band.
	var numTextPixels int
	for x := 0; x < 120; x++ {
		for y := 0; y < 20; y++ {
			if c := captioned.NRGBAAt(x, y); c.R > 0xe0 && c.G > 0xe0 {
				numTextPixels++
			}
		}
	}
	assert.Greater(t, numTextPixels, 0)

	captioned, err = DrawLabels(img, "Original", LabelOptions{Location: Bottom, FontSize: 10})
	require.NoError(t, err)
	assert.Equal(t, white, captioned.NRGBAAt(0, 0))
	assert.NotEqual(t, white, captioned.NRGBAAt(0, 59))

	_, err = DrawLabels(img, "x", LabelOptions{Location: "left"})
	require.Error(t, err)
	_, err = DrawLabels(img, "x", LabelOptions{FontPath: path.Join(t.TempDir(), "missing.ttf")})
	require.Error(t, err)
}

func TestShow(t *testing.T) {
	filePath, err := Show(solidImage(5, 3, green))
	require.NoError(t, err)
	defer func() { _ = os.Remove(filePath) }()
	img, err := imaging.Open(filePath)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 5, 3), img.Bounds())
	assert.Equal(t, green, color.NRGBAModel.Convert(img.At(2, 1)))

	_, err = Show(nil)
	require.Error(t, err)
}
