// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package imagegrid opens and converts images, draws caption bands on them, and composes them into
// a padded grid.
package imagegrid

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/gomlx/compute/dtypes"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/pkg/errors"
)

// NumChannels of the converted images: alpha is dropped.
const NumChannels = 3

// toChannelsLast converts the image to a uint8 tensor shaped `[height, width, channels]`.
// The image is cloned first, so its bounds start at (0, 0).
func toChannelsLast(img image.Image) *tensors.Tensor {
	return images.ToTensor(dtypes.Uint8).Single(imaging.Clone(img))
}

// ConvertImageToArray converts the image to an array shaped `[channels, height, width]`, channels first.
func ConvertImageToArray(img image.Image) [][][]uint8 {
	t := toChannelsLast(img)
	height, width := t.Shape().Dimensions[0], t.Shape().Dimensions[1]
	flat := tensors.MustCopyFlatData[uint8](t)
	array := make([][][]uint8, NumChannels)
	for ch := range array {
		array[ch] = make([][]uint8, height)
		for y := range height {
			array[ch][y] = make([]uint8, width)
			for x := range width {
				array[ch][y][x] = flat[(y*width+x)*NumChannels+ch]
			}
		}
	}
	return array
}

// ConvertImageToTensor converts the image to a uint8 tensor shaped `[channels, height, width]`, channels first.
// The axes are transposed by a graph executed on backend.
func ConvertImageToTensor(backend backends.Backend, img image.Image) (*tensors.Tensor, error) {
	if img == nil {
		return nil, errors.New("ConvertImageToTensor given a nil image")
	}
	exec, err := graph.NewExec(backend, func(x *graph.Node) *graph.Node {
		return graph.TransposeAllDims(x, 2, 0, 1)
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create image transpose graph")
	}
	defer exec.Finalize()
	t, err := exec.Exec1(toChannelsLast(img))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to convert image to channels-first tensor")
	}
	return t, nil
}
