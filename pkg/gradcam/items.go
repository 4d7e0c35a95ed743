// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gradcam

import (
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/support/exceptions"
	"github.com/gomlx/interpret/pkg/learner"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Items are the values needed to compute a Grad-CAM map.
type Items struct {
	// Acts are the activations of the target stage, and Grads the gradient of the class score w.r.t. them.
	// Both are shaped like the output of the target stage, usually `[1, height, width, channels]`.
	Acts, Grads *tensors.Tensor

	// Map is the Grad-CAM map of the label, indexed `[y][x]`. See MapGraph.
	Map [][]float64

	// Preds are the predictions of the model for each class of the vocabulary.
	Preds []float64

	// Label is the name of the class, and Index its index in the vocabulary.
	Label string
	Index int
}

// itemsComputer holds the compiled graph for a learner and target stage. The label index is an input
// of the graph, so the graph is shared by all labels.
type itemsComputer struct {
	learner   *learner.Learner
	targetIdx int
	exec      *context.Exec
}

func newItemsComputer(l *learner.Learner, target TargetLayer) (*itemsComputer, error) {
	if l == nil || l.Model == nil {
		return nil, errors.New("Grad-CAM requires a learner with a model")
	}
	targetIdx, err := target.Resolve(l.Model)
	if err != nil {
		return nil, errors.WithMessage(err, "invalid Grad-CAM target")
	}
	ic := &itemsComputer{learner: l, targetIdx: targetIdx}
	ic.exec, err = context.NewExec(l.Backend, l.ExecContext(), ic.graphFn)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create Grad-CAM graph")
	}
	return ic, nil
}

// graphFn returns the activations of the target stage, the gradient of the logit of class labelIdx
// w.r.t. the activations, the predictions and the Grad-CAM map.
func (ic *itemsComputer) graphFn(ctx *context.Context, x, labelIdx *graph.Node) []*graph.Node {
	logits, acts := ic.learner.Model.Forward(ctx, x, ic.targetIdx)
	numClasses := logits.Shape().Dimensions[logits.Rank()-1]
	logits = graph.Reshape(logits, numClasses)
	score := graph.ReduceAllSum(graph.Mul(logits, graph.OneHot(labelIdx, numClasses, logits.DType())))
	if acts.Rank() != 4 {
		exceptions.Panicf("Grad-CAM target stage must output activations shaped [1, height, width, channels], got %s",
			acts.Shape())
	}
	grads := graph.Gradient(score, acts)[0]
	preds := ic.learner.Activation.Apply(logits)
	return []*graph.Node{acts, grads, preds, MapGraph(grads, acts)}
}

func (ic *itemsComputer) compute(x *tensors.Tensor, label Label) (*Items, error) {
	l := ic.learner
	if dims := x.Shape().Dimensions; len(dims) != 4 || dims[0] != 1 {
		return nil, errors.Errorf("Grad-CAM requires a batch with a single image, got input shaped %s", x.Shape())
	}
	labelIdx, err := label.resolve(l, func() ([]float64, error) { return l.PredictTensor(x) })
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to resolve label %s", label)
	}
	acts, grads, preds, gcamMap, err := ic.exec.Exec4(x, int32(labelIdx))
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to compute Grad-CAM items for label %s", label)
	}
	items := &Items{
		Acts:  acts,
		Grads: grads,
		Label: l.Vocab[labelIdx],
		Index: labelIdx,
	}
	items.Preds, err = learner.Float64Values(preds)
	if err != nil {
		return nil, errors.WithMessage(err, "Grad-CAM predictions")
	}
	items.Map, err = mapRows(gcamMap)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("Grad-CAM items for %q (#%d): activations %s, prediction %.4f",
		items.Label, labelIdx, acts.Shape(), items.Preds[labelIdx])
	return items, nil
}

// ComputeItems computes the activations of the target stage of the learner's model for the preprocessed
// input x (see learner.Learner.TestInput), the gradients of the score of the class label w.r.t. them,
// the Grad-CAM map and the predictions of the model.
func ComputeItems(l *learner.Learner, x *tensors.Tensor, label Label, target TargetLayer) (*Items, error) {
	ic, err := newItemsComputer(l, target)
	if err != nil {
		return nil, err
	}
	return ic.compute(x, label)
}
