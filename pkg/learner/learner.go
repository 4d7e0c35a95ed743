// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package learner bundles what is needed to interpret a trained image classifier: the backend,
// the context with the model variables, the model itself, the vocabulary of labels and the
// preprocessing of the images.
package learner

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gomlx/compute/dtypes"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/interpret/pkg/imagegrid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Activation applied to the logits to get the predictions.
type Activation int

const (
	// Softmax over the classes: predictions are probabilities that sum to 1.
	Softmax Activation = iota

	// Sigmoid on each class independently, for multi-label models.
	Sigmoid

	// NoActivation returns the logits as predictions.
	NoActivation
)

// String implements fmt.Stringer.
func (a Activation) String() string {
	switch a {
	case Softmax:
		return "Softmax"
	case Sigmoid:
		return "Sigmoid"
	case NoActivation:
		return "None"
	default:
		return fmt.Sprintf("Activation(%d)", int(a))
	}
}

// Apply the activation to the logits, whose last axis is the classes.
func (a Activation) Apply(logits *graph.Node) *graph.Node {
	switch a {
	case Softmax:
		return graph.Softmax(logits, -1)
	case Sigmoid:
		return graph.Sigmoid(logits)
	default:
		return logits
	}
}

// DefaultInputSize of the images fed to the model.
var DefaultInputSize = imagegrid.Size{Width: 224, Height: 224}

// Learner holds a trained image classifier. Create it with New.
type Learner struct {
	Backend backends.Backend
	Context *context.Context
	Model   *Sequential

	// Vocab holds the name of each class, in the order of the logits.
	Vocab []string

	// InputSize images are resized to.
	InputSize imagegrid.Size

	// Mean and Std per channel (RGB) used to normalize the images, after they are scaled to [0, 1].
	Mean, Std [3]float32

	// Activation applied to the logits to get the predictions.
	Activation Activation

	predictExec               *context.Exec
	normalizeExec, decodeExec *graph.Exec
}

// New creates a Learner. Use the With* methods to configure preprocessing and activation.
func New(backend backends.Backend, ctx *context.Context, model *Sequential, vocab []string) *Learner {
	return &Learner{
		Backend:    backend,
		Context:    ctx,
		Model:      model,
		Vocab:      vocab,
		InputSize:  DefaultInputSize,
		Mean:       [3]float32{0, 0, 0},
		Std:        [3]float32{1, 1, 1},
		Activation: Softmax,
	}
}

// WithInputSize sets the size images are resized to before being fed to the model.
func (l *Learner) WithInputSize(width, height int) *Learner {
	l.InputSize = imagegrid.Size{Width: width, Height: height}
	l.predictExec = nil
	return l
}

// WithNormalization sets the per-channel normalization of the images.
func (l *Learner) WithNormalization(mean, std [3]float32) *Learner {
	l.Mean, l.Std = mean, std
	return l
}

// WithActivation sets the activation applied to the logits.
func (l *Learner) WithActivation(activation Activation) *Learner {
	l.Activation = activation
	l.predictExec = nil
	return l
}

// NumClasses is the size of the vocabulary.
func (l *Learner) NumClasses() int { return len(l.Vocab) }

// LabelIndex returns the index of the label in the vocabulary.
func (l *Learner) LabelIndex(label string) (int, error) {
	for ii, v := range l.Vocab {
		if v == label {
			return ii, nil
		}
	}
	return -1, errors.Errorf("label %q not in the vocabulary %q", label, l.Vocab)
}

// TestInput preprocesses one image the same way images are preprocessed for evaluation: it is resized to
// InputSize, scaled to [0, 1] and normalized with Mean and Std.
//
// It returns a float32 tensor shaped `[1, height, width, 3]`.
func (l *Learner) TestInput(img image.Image) (*tensors.Tensor, error) {
	if img == nil {
		return nil, errors.New("TestInput given a nil image")
	}
	for ch, std := range l.Std {
		if std == 0 {
			return nil, errors.Errorf("invalid normalization: std of channel %d is 0", ch)
		}
	}
	resized, err := imagegrid.Resize(img, l.InputSize)
	if err != nil {
		return nil, errors.WithMessage(err, "TestInput")
	}
	x := images.ToTensor(dtypes.Float32).MaxValue(1).Batch([]image.Image{imaging.Clone(resized)})
	if l.normalizeExec == nil {
		l.normalizeExec, err = graph.NewExec(l.Backend, func(x, mean, std *graph.Node) *graph.Node {
			return graph.Div(graph.Sub(x, mean), std)
		})
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create normalization graph")
		}
	}
	x, err = l.normalizeExec.Exec1(x, channelsTensor(l.Mean), channelsTensor(l.Std))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to normalize image")
	}
	return x, nil
}

// Decode reverts TestInput: it takes a tensor shaped `[1, height, width, 3]` or `[height, width, 3]` and
// returns the image.
func (l *Learner) Decode(x *tensors.Tensor) (image.Image, error) {
	dims := x.Shape().Dimensions
	if len(dims) == 4 {
		if dims[0] != 1 {
			return nil, errors.Errorf("Decode takes one image, got batch of shape %s", x.Shape())
		}
		dims = dims[1:]
	}
	if len(dims) != 3 || dims[2] != 3 {
		return nil, errors.Errorf("Decode requires an image tensor shaped [1, height, width, 3], got %s", x.Shape())
	}
	if l.decodeExec == nil {
		var err error
		l.decodeExec, err = graph.NewExec(l.Backend, func(x, mean, std *graph.Node) *graph.Node {
			if x.Rank() == 3 {
				x = graph.ExpandAxes(x, 0)
			}
			x = graph.Add(graph.Mul(graph.ConvertDType(x, dtypes.Float32), std), mean)
			return graph.ClipScalar(x, 0, 1)
		})
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create decoding graph")
		}
	}
	decoded, err := l.decodeExec.Exec1(x, channelsTensor(l.Mean), channelsTensor(l.Std))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to decode image")
	}
	return images.ToImage().MaxValue(1).Batch(decoded)[0], nil
}

// channelsTensor returns the per-channel values shaped `[1, 1, 1, 3]`, to broadcast over a batch of images.
func channelsTensor(values [3]float32) *tensors.Tensor {
	return tensors.FromFlatDataAndDimensions([]float32{values[0], values[1], values[2]}, 1, 1, 1, 3)
}

// Predict returns the predictions (after Activation) for each class of the vocabulary.
func (l *Learner) Predict(img image.Image) ([]float64, error) {
	x, err := l.TestInput(img)
	if err != nil {
		return nil, err
	}
	return l.PredictTensor(x)
}

// PredictTensor returns the predictions for an input already preprocessed with TestInput.
func (l *Learner) PredictTensor(x *tensors.Tensor) ([]float64, error) {
	if l.predictExec == nil {
		var err error
		l.predictExec, err = context.NewExec(l.Backend, l.ExecContext(),
			func(ctx *context.Context, x *graph.Node) *graph.Node {
				logits, _ := l.Model.Forward(ctx, x, -1)
				return l.Activation.Apply(logits)
			})
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create prediction graph")
		}
	}
	preds, err := l.predictExec.Exec1(x)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to predict")
	}
	values, err := Float64Values(preds)
	if err != nil {
		return nil, err
	}
	if len(values) != l.NumClasses() {
		return nil, errors.Errorf("model returned %d predictions, but the vocabulary has %d classes",
			len(values), l.NumClasses())
	}
	return values, nil
}

// ExecContext returns the context the model graphs are built with. Once the context holds variables (loaded
// from a checkpoint, created by a previous graph or by training) they are reused, otherwise they are created
// on first use.
func (l *Learner) ExecContext() *context.Context {
	if l.Context.NumVariables() > 0 {
		return l.Context.Reuse()
	}
	return l.Context.Checked(false)
}

// LoadCheckpoint loads the model variables from the checkpoint in dir. It fails if there is no checkpoint there.
func (l *Learner) LoadCheckpoint(dir string) error {
	handler, err := checkpoints.Load(l.Context).Dir(dir).Immediate().Done()
	if err != nil {
		return errors.WithMessagef(err, "failed to load checkpoint from %q", dir)
	}
	klog.V(1).Infof("Loaded checkpoint %s", handler)
	l.predictExec = nil
	return nil
}

// Float64Values returns the flat values of a float tensor as float64.
func Float64Values(t *tensors.Tensor) ([]float64, error) {
	values, err := float32Values(t)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for ii, v := range values {
		out[ii] = float64(v)
	}
	return out, nil
}

func float32Values(t *tensors.Tensor) (values []float32, err error) {
	err = t.ConstFlatData(func(flat any) {
		switch flat := flat.(type) {
		case []float32:
			values = make([]float32, len(flat))
			copy(values, flat)
		case []float64:
			values = make([]float32, len(flat))
			for ii, v := range flat {
				values[ii] = float32(v)
			}
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read tensor")
	}
	if values == nil {
		return nil, errors.Errorf("expected a float tensor, got %s", t.Shape())
	}
	return values, nil
}
