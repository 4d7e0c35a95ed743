// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package history

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/gomlx/gomlx/ui/plots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trainingPoints mimics the points GoMLX saves during training of a classifier.
func trainingPoints() []plots.Point {
	var points []plots.Point
	for ii, step := range []float64{100, 200, 300} {
		points = append(points,
			plots.Point{MetricName: "Train: Batch Loss", Short: "T/batch", MetricType: "loss", Step: step, Value: 1.5 - 0.3*float64(ii)},
			plots.Point{MetricName: "Train: Moving Average Loss", Short: "T/~loss", MetricType: "loss", Step: step, Value: 1.0 - 0.2*float64(ii)},
			plots.Point{MetricName: "Train: Moving Average Accuracy", Short: "T/~acc", MetricType: "accuracy", Step: step, Value: 0.5 + 0.1*float64(ii)},
			plots.Point{MetricName: "Mean Loss on Validation", Short: "loss(Val)", MetricType: "loss", Step: step, Value: 1.1 - 0.2*float64(ii)},
			plots.Point{MetricName: "Mean Accuracy on Validation", Short: "#acc(Val)", MetricType: "accuracy", Step: step, Value: 0.4 + 0.1*float64(ii)},
		)
	}
	return points
}

func TestInferColumns(t *testing.T) {
	columns, err := InferColumns(trainingPoints())
	require.NoError(t, err)
	require.Equal(t, []Column{
		{Name: TrainLossName, MetricName: "Train: Moving Average Loss"},
		{Name: ValidLossName, MetricName: "Mean Loss on Validation"},
		{Name: "Mean Accuracy on Validation", MetricName: "Mean Accuracy on Validation"},
		{Name: "Train: Moving Average Accuracy", MetricName: "Train: Moving Average Accuracy"},
	}, columns)

	// Several evaluation datasets: the validation loss is preferred, even if it sorts last.
	points := append(trainingPoints(),
		plots.Point{MetricName: "Mean Loss on Test", Short: "loss(Test)", MetricType: "loss", Step: 100, Value: 2},
		plots.Point{MetricName: "Mean Loss on Training", Short: "loss(Train)", MetricType: "loss", Step: 100, Value: 3})
	columns, err = InferColumns(points)
	require.NoError(t, err)
	assert.Equal(t, Column{Name: ValidLossName, MetricName: "Mean Loss on Validation"}, columns[1])

	// Without a validation dataset, the first evaluation loss by name.
	columns, err = InferColumns([]plots.Point{
		{MetricName: "Mean Loss on Training", MetricType: "loss", Step: 1, Value: 3},
		{MetricName: "Mean Loss on Test", MetricType: "loss", Step: 1, Value: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, Column{Name: ValidLossName, MetricName: "Mean Loss on Test"}, columns[1])

	_, err = InferColumns([]plots.Point{{MetricName: "acc", MetricType: "accuracy", Step: 1, Value: 1}})
	require.Error(t, err)
}

func TestFromPoints(t *testing.T) {
	r, err := FromPoints(trainingPoints())
	require.NoError(t, err)
	require.NoError(t, r.Validate())
	assert.Equal(t, []string{StepName, TrainLossName, ValidLossName,
		"Mean Accuracy on Validation", "Train: Moving Average Accuracy", TimeName}, r.MetricNames)
	assert.Equal(t, []float64{100, 200, 300}, r.Steps)
	assert.Equal(t, 3, r.NumRows())
	assert.Equal(t, 4, r.NumMetrics())
	assert.InDeltaSlice(t, []float64{1.0, 0.8, 0.6}, r.Column(0), 1e-9)
	assert.InDeltaSlice(t, []float64{1.1, 0.9, 0.7}, r.Column(1), 1e-9)
	assert.InDeltaSlice(t, []float64{0.4, 0.5, 0.6}, r.Column(2), 1e-9)
	for _, v := range r.Times {
		assert.True(t, math.IsNaN(v))
	}

	// Explicit columns, matched by short name, with a missing value.
	points := trainingPoints()
	points = append(points, plots.Point{MetricName: "Extra", Short: "x", MetricType: "loss", Step: 400, Value: 7})
	r, err = FromPoints(points,
		Column{Name: TrainLossName, MetricName: "T/~loss"},
		Column{Name: ValidLossName, MetricName: "loss(Val)"},
		Column{Name: "x", MetricName: "x"})
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 200, 300, 400}, r.Steps)
	assert.True(t, math.IsNaN(r.Values[3][0]))
	assert.Equal(t, 7.0, r.Values[3][2])
	assert.True(t, math.IsNaN(r.Values[0][2]))

	_, err = FromPoints(nil)
	require.Error(t, err)
	_, err = FromPoints(points, Column{Name: "y", MetricName: "does not exist"})
	require.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	r, err := FromPoints(trainingPoints())
	require.NoError(t, err)
	r.Times[1] = 65
	filePath := path.Join(t.TempDir(), "recorder.json")
	require.NoError(t, r.Save(filePath))

	// NaNs are saved as null.
	contents, err := os.ReadFile(filePath)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(contents, &raw))
	assert.Nil(t, raw["times"].([]any)[0])

	loaded, err := Load(filePath)
	require.NoError(t, err)
	assert.Equal(t, r.MetricNames, loaded.MetricNames)
	assert.Equal(t, r.Steps, loaded.Steps)
	assert.InDeltaSlice(t, r.Column(0), loaded.Column(0), 1e-9)
	assert.True(t, math.IsNaN(loaded.Times[0]))
	assert.Equal(t, 65.0, loaded.Times[1])

	// Invalid recorders are not saved.
	bad := &Recorder{MetricNames: []string{"a", "b"}}
	require.Error(t, bad.Save(path.Join(t.TempDir(), "bad.json")))
	_, err = Load(path.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestCSV(t *testing.T) {
	r, err := FromPoints(trainingPoints())
	require.NoError(t, err)
	r.Times[1] = 65
	r.Values[2][3] = math.NaN()

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(r.MetricNames, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "100"))
	assert.True(t, strings.HasSuffix(lines[1], "NaN"))

	filePath := path.Join(t.TempDir(), "recorder.csv")
	require.NoError(t, r.SaveCSV(filePath))
	loaded, err := LoadCSV(filePath)
	require.NoError(t, err)
	assert.Equal(t, r.MetricNames, loaded.MetricNames)
	assert.Equal(t, r.Steps, loaded.Steps)
	assert.InDeltaSlice(t, r.Column(1), loaded.Column(1), 1e-9)
	assert.True(t, math.IsNaN(loaded.Values[2][3]))
	assert.True(t, math.IsNaN(loaded.Times[0]))
	assert.Equal(t, 65.0, loaded.Times[1])

	_, err = ReadCSV(strings.NewReader("a\n1\n"))
	require.Error(t, err)
	bad := &Recorder{MetricNames: []string{"a", "b"}}
	require.Error(t, bad.WriteCSV(&buf))
}

func TestLoadFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	writer, errReport := plots.CreatePointsWriter(path.Join(dir, plots.TrainingPlotFileName))
	for _, pt := range trainingPoints() {
		writer <- pt
	}
	close(writer)
	require.NoError(t, <-errReport)

	r, err := LoadFromCheckpoint(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, r.NumRows())
	assert.Equal(t, TrainLossName, r.Metrics()[0])

	_, err = LoadFromCheckpoint(path.Join(dir, "does_not_exist"))
	require.Error(t, err)
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	for _, pt := range trainingPoints() {
		c.AddPoint(pt)
		if pt.MetricName == "Mean Accuracy on Validation" {
			c.DynamicSampleDone(false)
		}
	}
	c.AddPoint(plots.Point{MetricName: "Mean Loss on Validation", MetricType: "loss", Step: 400, Value: math.NaN()})
	c.DynamicSampleDone(true)
	total, incomplete := c.NumSamples()
	assert.Equal(t, 4, total)
	assert.Equal(t, 1, incomplete)
	assert.Len(t, c.Points(), 15)

	r, err := c.Recorder()
	require.NoError(t, err)
	require.Equal(t, 3, r.NumRows())
	for _, elapsed := range r.Times {
		assert.False(t, math.IsNaN(elapsed))
		assert.GreaterOrEqual(t, elapsed, 0.0)
	}
}

func TestTable(t *testing.T) {
	r, err := FromPoints(trainingPoints())
	require.NoError(t, err)
	r.Times[2] = 65
	table := r.Table()
	assert.Contains(t, table, TrainLossName)
	assert.Contains(t, table, "0.800000")
	assert.Contains(t, table, "01:05")
	assert.Equal(t, "", FormatValue(math.NaN()))
	assert.Equal(t, "", FormatElapsed(math.NaN()))
	assert.Equal(t, "00:00", FormatElapsed(0.2))
}
