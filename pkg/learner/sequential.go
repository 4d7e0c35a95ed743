// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package learner

import (
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
)

// StageFn builds one stage of a model.
type StageFn func(ctx *context.Context, x *graph.Node) *graph.Node

// Stage of a Sequential model. Its variables are created under the scope Name.
type Stage struct {
	Name string
	Fn   StageFn
}

// Sequential is a model built as a sequence of stages, each one feeding the next.
// The output of the last stage are the logits.
//
// Splitting a model in stages exposes the intermediary activations: e.g. a convolutional
// body followed by a classification head, where the output of the body is the target of Grad-CAM.
type Sequential struct {
	Stages []Stage
}

// NewSequential creates a Sequential model with the given stages.
func NewSequential(stages ...Stage) *Sequential {
	return &Sequential{Stages: stages}
}

// NumStages in the model.
func (s *Sequential) NumStages() int { return len(s.Stages) }

// StageIndex returns the index of the stage with the given name.
func (s *Sequential) StageIndex(name string) (int, error) {
	for ii, stage := range s.Stages {
		if stage.Name == name {
			return ii, nil
		}
	}
	return -1, errors.Errorf("model has no stage named %q, stages are %q", name, s.StageNames())
}

// StageNames returns the names of the stages, in order.
func (s *Sequential) StageNames() []string {
	names := make([]string, len(s.Stages))
	for ii, stage := range s.Stages {
		names[ii] = stage.Name
	}
	return names
}

// Forward builds the model graph for x, returning the logits and the output of the stage captureIdx.
// If captureIdx is negative, captured is nil.
func (s *Sequential) Forward(ctx *context.Context, x *graph.Node, captureIdx int) (logits, captured *graph.Node) {
	logits = x
	for ii, stage := range s.Stages {
		logits = stage.Fn(ctx.In(stage.Name), logits)
		if ii == captureIdx {
			captured = logits
		}
	}
	return
}

// ModelFn adapts the model to be trained with train.Trainer: it takes the first input and
// returns the logits.
func (s *Sequential) ModelFn() train.ModelFn {
	return func(ctx *context.Context, _ any, inputs []*graph.Node) []*graph.Node {
		logits, _ := s.Forward(ctx, inputs[0], -1)
		return []*graph.Node{logits}
	}
}
