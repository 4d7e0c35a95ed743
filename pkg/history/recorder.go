// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package history holds the Recorder: the per-step record of the metrics of a training session,
// organized as a table (one row per evaluation step, one column per metric).
//
// A Recorder can be built from the plot points GoMLX saves during training (see [LoadFromCheckpoint]
// and [FromPoints]), or collected live from a [train.Loop] with a [Collector].
//
// The column layout follows the usual recorder convention: MetricNames[0] is the row index ("step"),
// the last one is "time", and in between come "train_loss", "valid_loss" and then the other metrics.
// Each row of Values holds the metrics in MetricNames[1:len(MetricNames)-1].
package history

import (
	"encoding/json"
	"math"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/gomlx/gomlx/ui/plots"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// StepName is the name of the first column, the row index.
	StepName = "step"

	// TimeName is the name of the last column, the wall time elapsed since the start of training.
	TimeName = "time"

	// TrainLossName is the name of the training loss column. It's always the first metric.
	TrainLossName = "train_loss"

	// ValidLossName is the name of the validation loss column. It's always the second metric.
	ValidLossName = "valid_loss"

	// TrainPrefix is the prefix GoMLX adds to the names of metrics measured during training.
	TrainPrefix = "Train: "

	// LossMetricType is the metric type of loss metrics.
	LossMetricType = "loss"
)

// Recorder holds the recorded metric values of a training session.
type Recorder struct {
	// MetricNames: StepName, followed by the metrics names, followed by TimeName.
	MetricNames []string `json:"metric_names"`

	// Values has one row per recorded step, each with one value per metric (len(MetricNames)-2).
	// Missing values are NaN.
	Values [][]float64 `json:"values"`

	// Steps holds the global step of each row.
	Steps []float64 `json:"steps"`

	// Times holds the elapsed time, in seconds, of each row. NaN (or empty) if not known.
	Times []float64 `json:"times,omitempty"`
}

// Column selects which GoMLX metric populates a Recorder column.
type Column struct {
	// Name of the column in the Recorder.
	Name string

	// MetricName is matched against both plots.Point.MetricName and plots.Point.Short.
	MetricName string
}

func (c Column) matches(pt *plots.Point) bool {
	return pt.MetricName == c.MetricName || (pt.Short != "" && pt.Short == c.MetricName)
}

// NumMetrics returns the number of metrics (columns of Values).
func (r *Recorder) NumMetrics() int {
	return max(len(r.MetricNames)-2, 0)
}

// NumRows returns the number of recorded steps.
func (r *Recorder) NumRows() int { return len(r.Values) }

// Metrics returns the names of the metrics, that is, MetricNames without the first (step) and last (time) entries.
func (r *Recorder) Metrics() []string {
	if len(r.MetricNames) < 2 {
		return nil
	}
	return r.MetricNames[1 : len(r.MetricNames)-1]
}

// Column returns all values of metric i, one per row. Equivalent to `values[:, i]`.
func (r *Recorder) Column(i int) []float64 {
	col := make([]float64, len(r.Values))
	for row, values := range r.Values {
		if i < len(values) {
			col[row] = values[i]
		} else {
			col[row] = math.NaN()
		}
	}
	return col
}

// Validate checks that the Recorder is consistent.
func (r *Recorder) Validate() error {
	if len(r.MetricNames) < 2 || r.MetricNames[0] != StepName || r.MetricNames[len(r.MetricNames)-1] != TimeName {
		return errors.Errorf("recorder metric names must start with %q and end with %q, got %q",
			StepName, TimeName, r.MetricNames)
	}
	numMetrics := r.NumMetrics()
	for row, values := range r.Values {
		if len(values) != numMetrics {
			return errors.Errorf("recorder row %d has %d values, but there are %d metrics (%q)",
				row, len(values), numMetrics, r.Metrics())
		}
	}
	if len(r.Steps) != len(r.Values) {
		return errors.Errorf("recorder has %d steps for %d rows of values", len(r.Steps), len(r.Values))
	}
	if len(r.Times) != 0 && len(r.Times) != len(r.Values) {
		return errors.Errorf("recorder has %d times for %d rows of values", len(r.Times), len(r.Values))
	}
	return nil
}

// LoadFromCheckpoint builds a Recorder from the plot points saved (in the file plots.TrainingPlotFileName)
// in a checkpoint directory during training.
//
// See FromPoints for the meaning of columns.
func LoadFromCheckpoint(checkpointDir string, columns ...Column) (*Recorder, error) {
	points, err := plots.LoadPointsFromCheckpoint(checkpointDir)
	if err != nil {
		return nil, errors.WithMessagef(err, "history.LoadFromCheckpoint(%q)", checkpointDir)
	}
	return FromPoints(points, columns...)
}

// FromPoints builds a Recorder from plot points, with one row per distinct step (sorted).
//
// If columns is empty, they are inferred: the training loss (moving average preferred) becomes
// TrainLossName, the evaluation loss on a dataset named like "validation" (or else the first one by name)
// becomes ValidLossName, and the remaining metrics follow, evaluation metrics first, each group sorted by name.
func FromPoints(points []plots.Point, columns ...Column) (*Recorder, error) {
	if len(points) == 0 {
		return nil, errors.New("history.FromPoints: no points given")
	}
	if len(columns) == 0 {
		var err error
		columns, err = InferColumns(points)
		if err != nil {
			return nil, err
		}
	}
	r := &Recorder{MetricNames: make([]string, 0, len(columns)+2)}
	r.MetricNames = append(r.MetricNames, StepName)
	for _, col := range columns {
		r.MetricNames = append(r.MetricNames, col.Name)
	}
	r.MetricNames = append(r.MetricNames, TimeName)

	stepToRow := make(map[float64]int)
	for _, pt := range points {
		if slices.IndexFunc(columns, func(c Column) bool { return c.matches(&pt) }) == -1 {
			continue
		}
		stepToRow[pt.Step] = 0
	}
	if len(stepToRow) == 0 {
		return nil, errors.Errorf("history.FromPoints: none of the %d points match the columns %v", len(points), columns)
	}
	r.Steps = make([]float64, 0, len(stepToRow))
	for step := range stepToRow {
		r.Steps = append(r.Steps, step)
	}
	slices.Sort(r.Steps)
	r.Values = make([][]float64, len(r.Steps))
	r.Times = make([]float64, len(r.Steps))
	for row, step := range r.Steps {
		stepToRow[step] = row
		values := make([]float64, len(columns))
		for ii := range values {
			values[ii] = math.NaN()
		}
		r.Values[row] = values
		r.Times[row] = math.NaN()
	}
	for _, pt := range points {
		for colIdx, col := range columns {
			if col.matches(&pt) {
				r.Values[stepToRow[pt.Step]][colIdx] = pt.Value
			}
		}
	}
	return r, nil
}

// InferColumns from the plot points: see FromPoints.
func InferColumns(points []plots.Point) ([]Column, error) {
	nameToType := make(map[string]string)
	for _, pt := range points {
		nameToType[pt.MetricName] = pt.MetricType
	}
	names := make([]string, 0, len(nameToType))
	for name := range nameToType {
		names = append(names, name)
	}
	sort.Strings(names)

	var trainLoss, validLoss string
	for _, name := range names {
		if nameToType[name] != LossMetricType {
			continue
		}
		if strings.HasPrefix(name, TrainPrefix) {
			if trainLoss == "" || strings.Contains(name, "Moving Average") {
				trainLoss = name
			}
		} else if validLoss == "" || (!isValidationName(validLoss) && isValidationName(name)) {
			validLoss = name
		}
	}
	if trainLoss == "" && validLoss == "" {
		return nil, errors.Errorf("history: no loss metrics (metric type %q) found in points metrics %q",
			LossMetricType, names)
	}
	if trainLoss == "" {
		klog.Warningf("history: no training loss found in %q, column %q will be empty", names, TrainLossName)
	}
	if validLoss == "" {
		klog.Warningf("history: no evaluation loss found in %q, column %q will be empty", names, ValidLossName)
	}
	columns := []Column{{Name: TrainLossName, MetricName: trainLoss}, {Name: ValidLossName, MetricName: validLoss}}
	var trainMetrics []Column
	for _, name := range names {
		if name == trainLoss || name == validLoss || nameToType[name] == LossMetricType {
			continue
		}
		if strings.HasPrefix(name, TrainPrefix) {
			trainMetrics = append(trainMetrics, Column{Name: name, MetricName: name})
			continue
		}
		columns = append(columns, Column{Name: name, MetricName: name})
	}
	return append(columns, trainMetrics...), nil
}

func isValidationName(name string) bool {
	return strings.Contains(strings.ToLower(name), "valid")
}

// Save the Recorder to a JSON file.
func (r *Recorder) Save(filePath string) error {
	if err := r.Validate(); err != nil {
		return err
	}
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create recorder file %q", filePath)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err = enc.Encode(r.toJSON()); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to encode recorder to %q", filePath)
	}
	return errors.Wrapf(f.Close(), "failed to close recorder file %q", filePath)
}

// Load a Recorder saved with Recorder.Save.
func Load(filePath string) (*Recorder, error) {
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read recorder file %q", filePath)
	}
	var jr jsonRecorder
	if err = json.Unmarshal(contents, &jr); err != nil {
		return nil, errors.Wrapf(err, "failed to decode recorder file %q", filePath)
	}
	r := jr.fromJSON()
	if err = r.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "invalid recorder in %q", filePath)
	}
	return r, nil
}

// jsonRecorder is the serialized form: JSON has no NaN, so missing values are encoded as null.
type jsonRecorder struct {
	MetricNames []string     `json:"metric_names"`
	Values      [][]*float64 `json:"values"`
	Steps       []float64    `json:"steps"`
	Times       []*float64   `json:"times,omitempty"`
}

func toNullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for ii, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[ii] = &values[ii]
		}
	}
	return out
}

func fromNullable(values []*float64) []float64 {
	out := make([]float64, len(values))
	for ii, v := range values {
		if v == nil {
			out[ii] = math.NaN()
		} else {
			out[ii] = *v
		}
	}
	return out
}

func (r *Recorder) toJSON() *jsonRecorder {
	jr := &jsonRecorder{
		MetricNames: r.MetricNames,
		Values:      make([][]*float64, len(r.Values)),
		Steps:       r.Steps,
	}
	for ii, row := range r.Values {
		jr.Values[ii] = toNullable(row)
	}
	if len(r.Times) > 0 {
		jr.Times = toNullable(r.Times)
	}
	return jr
}

func (jr *jsonRecorder) fromJSON() *Recorder {
	r := &Recorder{
		MetricNames: jr.MetricNames,
		Values:      make([][]float64, len(jr.Values)),
		Steps:       jr.Steps,
	}
	for ii, row := range jr.Values {
		r.Values[ii] = fromNullable(row)
	}
	if len(jr.Times) > 0 {
		r.Times = fromNullable(jr.Times)
	}
	return r
}
