// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package history

import (
	"io"
	"math"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
)

// DataFrame returns the Recorder as a dataframe with one column per entry of MetricNames:
// the step, the metrics and the elapsed time.
func (r *Recorder) DataFrame() (dataframe.DataFrame, error) {
	if err := r.Validate(); err != nil {
		return dataframe.DataFrame{}, err
	}
	numRows := r.NumRows()
	cols := make([]series.Series, 0, len(r.MetricNames))
	cols = append(cols, series.New(r.Steps, series.Float, r.MetricNames[0]))
	for i, name := range r.Metrics() {
		cols = append(cols, series.New(r.Column(i), series.Float, name))
	}
	times := make([]float64, numRows)
	for row := range times {
		times[row] = math.NaN()
		if row < len(r.Times) {
			times[row] = r.Times[row]
		}
	}
	cols = append(cols, series.New(times, series.Float, r.MetricNames[len(r.MetricNames)-1]))
	df := dataframe.New(cols...)
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(df.Err, "failed to create recorder dataframe")
	}
	return df, nil
}

// FromDataFrame builds a Recorder from a dataframe with the layout of Recorder.DataFrame.
func FromDataFrame(df dataframe.DataFrame) (*Recorder, error) {
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "invalid recorder dataframe")
	}
	names := df.Names()
	if len(names) < 2 {
		return nil, errors.Errorf("recorder dataframe needs at least the step and time columns, got %q", names)
	}
	r := &Recorder{
		MetricNames: names,
		Steps:       df.Col(names[0]).Float(),
		Times:       df.Col(names[len(names)-1]).Float(),
		Values:      make([][]float64, df.Nrow()),
	}
	metricCols := make([][]float64, len(names)-2)
	for i, name := range names[1 : len(names)-1] {
		metricCols[i] = df.Col(name).Float()
	}
	for row := range r.Values {
		r.Values[row] = make([]float64, len(metricCols))
		for i, col := range metricCols {
			r.Values[row][i] = col[row]
		}
	}
	if err := r.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid recorder dataframe")
	}
	return r, nil
}

// WriteCSV writes the Recorder as CSV, with a header row. Missing values are written as "NaN".
func (r *Recorder) WriteCSV(w io.Writer) error {
	df, err := r.DataFrame()
	if err != nil {
		return err
	}
	return errors.Wrap(df.WriteCSV(w), "failed to write recorder as CSV")
}

// ReadCSV reads a Recorder written with WriteCSV.
func ReadCSV(reader io.Reader) (*Recorder, error) {
	df := dataframe.ReadCSV(reader, dataframe.DefaultType(series.Float), dataframe.DetectTypes(false))
	return FromDataFrame(df)
}

// SaveCSV saves the Recorder to a CSV file, see WriteCSV.
func (r *Recorder) SaveCSV(filePath string) error {
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create recorder file %q", filePath)
	}
	if err = r.WriteCSV(f); err != nil {
		_ = f.Close()
		return errors.WithMessagef(err, "saving %q", filePath)
	}
	return errors.Wrapf(f.Close(), "failed to close recorder file %q", filePath)
}

// LoadCSV loads a Recorder saved with SaveCSV.
func LoadCSV(filePath string) (*Recorder, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open recorder file %q", filePath)
	}
	defer func() { _ = f.Close() }()
	r, err := ReadCSV(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "loading %q", filePath)
	}
	return r, nil
}
