// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package gradcam

import (
	"fmt"
	"slices"

	"github.com/gomlx/interpret/pkg/learner"
	"github.com/pkg/errors"
)

type labelKind int

const (
	topPrediction labelKind = iota
	byName
	byIndex
)

// Label selects the class w.r.t. which a Grad-CAM map is computed.
// Create it with ByName or ByIndex, or use TopPrediction.
type Label struct {
	kind  labelKind
	name  string
	index int
}

// TopPrediction selects the class with the highest prediction. It requires the learner to use the Softmax activation.
var TopPrediction = Label{kind: topPrediction}

// ByName selects the class by its name in the learner's vocabulary.
func ByName(name string) Label { return Label{kind: byName, name: name} }

// ByIndex selects the class by its index in the learner's vocabulary.
func ByIndex(index int) Label { return Label{kind: byIndex, index: index} }

// Names converts a list of class names to Labels.
func Names(names ...string) []Label {
	labels := make([]Label, len(names))
	for ii, name := range names {
		labels[ii] = ByName(name)
	}
	return labels
}

// String implements fmt.Stringer.
func (lbl Label) String() string {
	switch lbl.kind {
	case byName:
		return lbl.name
	case byIndex:
		return fmt.Sprintf("#%d", lbl.index)
	default:
		return "<top prediction>"
	}
}

// resolve returns the index of the label in the vocabulary of l.
// preds is only called for TopPrediction.
func (lbl Label) resolve(l *learner.Learner, preds func() ([]float64, error)) (int, error) {
	switch lbl.kind {
	case byName:
		return l.LabelIndex(lbl.name)
	case byIndex:
		if lbl.index < 0 || lbl.index >= l.NumClasses() {
			return -1, errors.Errorf("label index %d out of range for vocabulary of %d classes", lbl.index, l.NumClasses())
		}
		return lbl.index, nil
	}
	if l.Activation != learner.Softmax {
		return -1, errors.Errorf("the top prediction can only be used as label if the learner uses the Softmax "+
			"activation (it uses %s): please give the labels explicitly", l.Activation)
	}
	values, err := preds()
	if err != nil {
		return -1, err
	}
	if len(values) == 0 {
		return -1, errors.New("no predictions to select the top prediction from")
	}
	return slices.Index(values, slices.Max(values)), nil
}
