// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package history

import (
	"math"
	"time"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/ui/plots"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Collector records metrics during training, to later build a Recorder.
//
// It implements plots.Plotter, so it can be fed by plots.AddTrainAndEvalMetrics, and it can be attached
// to a train.Loop with Attach.
//
// Example:
//
//	collector := history.NewCollector(validationEvalDS).Attach(loop, stepsPerEpoch)
//	_, err := loop.RunSteps(trainDS, numSteps)
//	...
//	recorder, err := collector.Recorder()
type Collector struct {
	// EvalDatasets are evaluated at every collection, and their metrics recorded.
	EvalDatasets []train.Dataset

	points      []plots.Point
	start       time.Time
	stepTimes   map[float64]float64
	currentStep float64

	// lastStepCollected avoids double collection of the same step (e.g.: at the end of the loop).
	lastStepCollected int
	numSamples        int
	numIncomplete     int
}

var _ plots.Plotter = (*Collector)(nil)

// NewCollector creates a Collector that evaluates the given datasets at each collection step.
func NewCollector(evalDatasets ...train.Dataset) *Collector {
	return &Collector{
		EvalDatasets:      evalDatasets,
		stepTimes:         make(map[float64]float64),
		lastStepCollected: -1,
	}
}

// Attach the collector to the loop: it collects train and eval metrics every `everyNSteps` steps and at
// the end of the loop.
//
// It returns itself to allow cascading calls.
func (c *Collector) Attach(loop *train.Loop, everyNSteps int) *Collector {
	loop.OnStart("history.Collector", 0, func(_ *train.Loop, _ train.Dataset) error {
		if c.start.IsZero() {
			c.start = time.Now()
		}
		return nil
	})
	if everyNSteps > 0 {
		train.EveryNSteps(loop, everyNSteps, "history.Collector", 0, c.collect)
	}
	loop.OnEnd("history.Collector", 0, c.collect)
	return c
}

func (c *Collector) collect(loop *train.Loop, metrics []*tensors.Tensor) error {
	if loop.LoopStep <= c.lastStepCollected {
		return nil
	}
	c.lastStepCollected = loop.LoopStep
	err := plots.AddTrainAndEvalMetrics(c, loop, metrics, c.EvalDatasets, nil)
	if err != nil {
		return errors.WithMessagef(err, "history.Collector failed to collect metrics at step %d", loop.LoopStep)
	}
	return nil
}

// AddPoint implements plots.Plotter. Invalid (NaN or infinite) points are dropped.
func (c *Collector) AddPoint(pt plots.Point) {
	if math.IsNaN(pt.Value) || math.IsInf(pt.Value, 0) || math.IsNaN(pt.Step) || math.IsInf(pt.Step, 0) {
		return
	}
	if c.start.IsZero() {
		c.start = time.Now()
	}
	c.points = append(c.points, pt)
	c.currentStep = pt.Step
}

// DynamicSampleDone implements plots.Plotter: it marks the time of the current sample.
func (c *Collector) DynamicSampleDone(incomplete bool) {
	c.numSamples++
	if incomplete {
		c.numIncomplete++
		klog.V(1).Infof("history.Collector: sample at step %g is incomplete (NaN or infinite metrics dropped)",
			c.currentStep)
	}
	if c.start.IsZero() {
		return
	}
	c.stepTimes[c.currentStep] = time.Since(c.start).Seconds()
}

// Points returns all points collected so far.
func (c *Collector) Points() []plots.Point {
	return c.points
}

// NumSamples returns the number of samples (collection steps) done so far, and how many of them were incomplete.
func (c *Collector) NumSamples() (total, incomplete int) {
	return c.numSamples, c.numIncomplete
}

// Recorder builds a Recorder from the collected points, including the elapsed times of each step.
// See FromPoints for the meaning of columns.
func (c *Collector) Recorder(columns ...Column) (*Recorder, error) {
	r, err := FromPoints(c.points, columns...)
	if err != nil {
		return nil, err
	}
	for row, step := range r.Steps {
		if t, found := c.stepTimes[step]; found {
			r.Times[row] = t
		}
	}
	return r, nil
}
