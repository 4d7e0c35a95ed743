// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package metricsplot

import (
	"bytes"
	"image/png"
	"math"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/gomlx/interpret/pkg/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSubplotDimensions(t *testing.T) {
	for _, tc := range []struct {
		n, nrows, ncols int
		rows, cols      int
	}{
		{1, 0, 0, 1, 1},
		{2, 0, 0, 1, 2},
		{5, 0, 0, 2, 3},
		{9, 0, 0, 3, 3},
		{5, 0, 2, 3, 2},
		{5, 2, 0, 2, 3},
		{5, 1, 1, 1, 1},
	} {
		rows, cols, err := CalculateSubplotDimensions(tc.n, tc.nrows, tc.ncols)
		require.NoError(t, err)
		assert.Equalf(t, []int{tc.rows, tc.cols}, []int{rows, cols}, "n=%d, nrows=%d, ncols=%d", tc.n, tc.nrows, tc.ncols)
	}
	_, _, err := CalculateSubplotDimensions(0, 0, 0)
	require.Error(t, err)
	_, _, err = CalculateSubplotDimensions(3, -1, 0)
	require.Error(t, err)
}

func TestCreateSubplots(t *testing.T) {
	metrics := [][]float64{
		{1.0, 1.2, 0.5, 0.1},
		{0.8, math.NaN(), 0.6, 0.2},
		{0.6, 0.9, 0.7, 0.3},
	}
	names := []string{"train_loss", "valid_loss", "accuracy", "f1"}
	fig, err := CreateSubplots(2, 2, Inches(8, 6), metrics, []float64{10, 20, 30}, names)
	require.NoError(t, err)
	assert.Equal(t, 3, fig.NumUsedAxes())
	assert.Nil(t, fig.Axes[3])
	require.Len(t, fig.Series, 4)

	train, valid, acc := fig.Series[0], fig.Series[1], fig.Series[2]
	assert.Equal(t, 0, train.Axis)
	assert.Equal(t, "train", train.Label)
	assert.Equal(t, TrainColor, train.Color)
	assert.Equal(t, LossesTitle, train.Title)
	assert.Equal(t, []float64{10, 20, 30}, train.Xs)

	assert.Equal(t, 0, valid.Axis)
	assert.Equal(t, "valid", valid.Label)
	assert.Equal(t, ValidColor, valid.Color)
	assert.Equal(t, []float64{10, 30}, valid.Xs, "NaN values should be skipped")

	assert.Equal(t, 1, acc.Axis)
	assert.Equal(t, "accuracy", acc.Title)
	assert.Equal(t, "valid", acc.Label)
	assert.Equal(t, 2, fig.Series[3].Axis)
	assert.Equal(t, "f1", fig.Axes[2].Title.Text)

	// Without steps the row index is used.
	fig, err = CreateSubplots(1, 3, Inches(8, 6), metrics, nil, names)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, fig.Series[0].Xs)

	_, err = CreateSubplots(1, 2, Inches(8, 6), metrics, nil, names)
	require.Error(t, err, "grid too small")
	_, err = CreateSubplots(1, 1, Inches(8, 6), metrics, nil, names[:1])
	require.Error(t, err, "not enough names")
	_, err = CreateSubplots(2, 2, Inches(8, 6), metrics, []float64{1}, names)
	require.Error(t, err, "steps and metrics mismatch")
}

func testRecorder() *history.Recorder {
	return &history.Recorder{
		MetricNames: []string{history.StepName, history.TrainLossName, history.ValidLossName, "accuracy", history.TimeName},
		Values: [][]float64{
			{1.0, 1.1, 0.5},
			{0.7, 0.9, 0.6},
			{0.5, 0.8, 0.7},
		},
		Steps: []float64{100, 200, 300},
		Times: []float64{1, 2, 3},
	}
}

func TestPlotMetrics(t *testing.T) {
	rec := testRecorder()
	fig, err := PlotMetrics(rec).Done()
	require.NoError(t, err)
	assert.Equal(t, 1, fig.Rows)
	assert.Equal(t, 2, fig.Cols)
	assert.Equal(t, Inches(12, 4), fig.Size)
	assert.Equal(t, 2, fig.NumUsedAxes())
	assert.Len(t, fig.Series, 3)

	fig, err = PlotMetrics(rec).Rows(2).EndNames(-2).Done()
	require.NoError(t, err)
	assert.Equal(t, 2, fig.Rows)
	assert.Equal(t, 1, fig.Cols)
	assert.Equal(t, 1, fig.NumUsedAxes())
	assert.Len(t, fig.Series, 2)

	// Only the train loss selected.
	_, err = PlotMetrics(rec).EndNames(2).Done()
	require.Error(t, err)

	_, err = PlotMetrics(&history.Recorder{MetricNames: []string{"a"}}).Done()
	require.Error(t, err)
}

func TestRender(t *testing.T) {
	fig, err := PlotMetrics(testRecorder()).FigSize(4, 2).DPI(50).Done()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, fig.WritePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	buf.Reset()
	require.NoError(t, fig.WriteSVG(&buf))
	assert.Contains(t, buf.String(), "<svg")

	figs := fig.Plotly()
	require.Len(t, figs, 2)
	assert.Len(t, figs[0].Data, 2)
	assert.Len(t, figs[1].Data, 1)

	buf.Reset()
	require.NoError(t, fig.WriteHTML(&buf))
	html := buf.String()
	assert.Contains(t, html, "plot0")
	assert.Contains(t, html, "plot1")
	assert.NotContains(t, html, "plot2")

	dir := t.TempDir()
	for _, name := range []string{"metrics.png", "metrics.svg", "metrics.pdf", "metrics.html"} {
		filePath := path.Join(dir, name)
		require.NoError(t, fig.Save(filePath))
		info, err := os.Stat(filePath)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
	err = fig.Save(path.Join(dir, "metrics.txt"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported"))

	filePath, err := fig.Show()
	require.NoError(t, err)
	require.NotEmpty(t, filePath)
	_ = os.Remove(filePath)
}
