// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package colormaps

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/palette"
)

func TestByName(t *testing.T) {
	for _, name := range Names() {
		cm, err := ByName(name)
		require.NoError(t, err, "colormap %q", name)
		assert.Equal(t, 0.0, cm.Min())
		assert.Equal(t, 1.0, cm.Max())
		for _, v := range []float64{0, 0.25, 0.5, 1} {
			_, err = cm.At(v)
			require.NoError(t, err, "colormap %q at %g", name, v)
		}
	}
	_, err := ByName("jet")
	require.Error(t, err)
}

func TestStopsColorMap(t *testing.T) {
	cm := MustFromHex("bw", "#000000", "#ffffff")
	c, err := cm.At(0)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, c)
	c, err = cm.At(1)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, c)
	c, err = cm.At(0.5)
	require.NoError(t, err)
	gray := c.(color.NRGBA)
	assert.InDelta(t, 128, int(gray.R), 1)

	_, err = cm.At(-0.1)
	assert.ErrorIs(t, err, palette.ErrUnderflow)
	_, err = cm.At(1.1)
	assert.ErrorIs(t, err, palette.ErrOverflow)
	_, err = cm.At(math.NaN())
	assert.ErrorIs(t, err, palette.ErrNaN)

	rev := cm.Reversed()
	assert.Equal(t, "bw_r", rev.Name())
	c, err = rev.At(0)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, c)

	colors := cm.Palette(3).Colors()
	require.Len(t, colors, 3)
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, colors[0])

	_, err = FromHex("single", "#000000")
	require.Error(t, err)
	_, err = FromHex("invalid", "#000000", "not-a-color")
	require.Error(t, err)
}

func TestRdYlBuReversed(t *testing.T) {
	cm, err := ByName(RdYlBu10R)
	require.NoError(t, err)
	low, _ := cm.At(0)
	high, _ := cm.At(1)
	// Low values are blue, high values are red.
	lowC, highC := low.(color.NRGBA), high.(color.NRGBA)
	assert.Greater(t, lowC.B, lowC.R)
	assert.Greater(t, highC.R, highC.B)
}

func TestApply(t *testing.T) {
	cm, err := ByName(Gray)
	require.NoError(t, err)
	img := Apply([][]float64{{0, 1, 2}, {-1, math.NaN(), 0.5}}, cm)
	require.Equal(t, 3, img.Bounds().Dx())
	require.Equal(t, 2, img.Bounds().Dy())
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(2, 0)) // Clamped.
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(0, 1))       // Clamped.
	assert.Equal(t, uint8(0), img.NRGBAAt(1, 1).A)                      // NaN is transparent.
}
