// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gradcam

import (
	"github.com/gomlx/interpret/pkg/learner"
	"github.com/pkg/errors"
)

// TargetLayer selects the stage of the learner's model whose activations are used for Grad-CAM.
// The zero value selects the first stage, usually the convolutional body of the model.
type TargetLayer struct {
	name  string
	index int
	fn    func(model *learner.Sequential) int
}

// DefaultTarget is the first stage of the model.
var DefaultTarget = TargetLayer{}

// TargetName selects the stage by name.
func TargetName(name string) TargetLayer { return TargetLayer{name: name} }

// TargetIndex selects the stage by its index.
func TargetIndex(index int) TargetLayer { return TargetLayer{index: index} }

// TargetFn selects the stage returned by fn.
func TargetFn(fn func(model *learner.Sequential) int) TargetLayer { return TargetLayer{fn: fn} }

// Resolve returns the index of the target stage in the model.
func (t TargetLayer) Resolve(model *learner.Sequential) (int, error) {
	if model == nil || model.NumStages() == 0 {
		return -1, errors.New("model has no stages")
	}
	idx := t.index
	switch {
	case t.name != "":
		var err error
		idx, err = model.StageIndex(t.name)
		if err != nil {
			return -1, err
		}
	case t.fn != nil:
		idx = t.fn(model)
	}
	if idx < 0 || idx >= model.NumStages() {
		return -1, errors.Errorf("target stage index %d out of range, model has %d stages %q",
			idx, model.NumStages(), model.StageNames())
	}
	return idx, nil
}
