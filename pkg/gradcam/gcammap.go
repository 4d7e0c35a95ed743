// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gradcam

import (
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/interpret/pkg/learner"
	"github.com/pkg/errors"
)

// MapGraph builds the Grad-CAM map from the gradients and activations of the target stage, both shaped
// `[1, height, width, channels]`. It returns the map shaped `[height, width]`.
//
// Each channel c is weighted by the spatial mean of its gradients, w_c, and the map is ReLU(Σ_c w_c·A_c).
func MapGraph(grads, acts *graph.Node) *graph.Node {
	weights := graph.ReduceAndKeep(grads, graph.ReduceMean, 1, 2)
	gcamMap := graph.ReduceSum(graph.Mul(weights, acts), -1)
	gcamMap = activations.Relu(gcamMap)
	return graph.Reshape(gcamMap, acts.Shape().Dimensions[1], acts.Shape().Dimensions[2])
}

// ComputeMap computes the Grad-CAM map, indexed `[y][x]`, from the gradients and activations of the target stage.
// See MapGraph.
//
// Gradients and activations must have the same shape, `[1, height, width, channels]` or `[height, width, channels]`.
func ComputeMap(backend backends.Backend, grads, acts *tensors.Tensor) ([][]float64, error) {
	if !grads.Shape().Equal(acts.Shape()) {
		return nil, errors.Errorf("gradients shape %s differs from activations shape %s", grads.Shape(), acts.Shape())
	}
	dims := acts.Shape().Dimensions
	if len(dims) == 3 {
		dims = append([]int{1}, dims...)
	}
	if len(dims) != 4 || dims[0] != 1 {
		return nil, errors.Errorf("Grad-CAM map requires activations shaped [1, height, width, channels], got %s",
			acts.Shape())
	}
	exec, err := graph.NewExec(backend, func(grads, acts *graph.Node) *graph.Node {
		if acts.Rank() == 3 {
			grads, acts = graph.ExpandAxes(grads, 0), graph.ExpandAxes(acts, 0)
		}
		return MapGraph(grads, acts)
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create Grad-CAM map graph")
	}
	defer exec.Finalize()
	gcamMap, err := exec.Exec1(grads, acts)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to compute Grad-CAM map")
	}
	return mapRows(gcamMap)
}

// mapRows converts a map tensor shaped `[height, width]` to rows indexed `[y][x]`.
func mapRows(gcamMap *tensors.Tensor) ([][]float64, error) {
	values, err := learner.Float64Values(gcamMap)
	if err != nil {
		return nil, errors.WithMessage(err, "Grad-CAM map")
	}
	height, width := gcamMap.Shape().Dimensions[0], gcamMap.Shape().Dimensions[1]
	rows := make([][]float64, height)
	for y := range rows {
		rows[y] = values[y*width : (y+1)*width]
	}
	return rows, nil
}
