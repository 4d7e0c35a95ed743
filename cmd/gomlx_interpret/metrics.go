// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/interpret/examples/cnn"
	"github.com/gomlx/interpret/pkg/history"
	"github.com/gomlx/interpret/pkg/metricsplot"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

const (
	keyMetricsRows     = "metrics.rows"
	keyMetricsCols     = "metrics.cols"
	keyMetricsEndNames = "metrics.endnames"
	keyMetricsDPI      = "metrics.dpi"
	keyMetricsWidth    = "metrics.width"
	keyMetricsHeight   = "metrics.height"
)

func newMetricsCmd(a *app) *cobra.Command {
	var showTable bool
	var outPath, csvPath string
	cmd := &cobra.Command{
		Use:   "metrics <checkpoint_dir|history.json|history.csv>",
		Short: "Plot the metrics of a training session",
		Long: "Plot the metrics of a training session: training and validation losses share the first subplot, " +
			"and each other metric gets its own subplot.\n\n" +
			"The metrics are read from the history file (" + cnn.HistoryFileName + ") if present, " +
			"otherwise they are built from the plot points saved in the checkpoint directory. " +
			"Without --out the figure is displayed in a notebook, or saved to a temporary PNG file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := loadRecorder(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if showTable {
				_, _ = fmt.Fprintln(out, rec.Table())
			}
			if csvPath != "" {
				if err = rec.SaveCSV(csvPath); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "Metrics saved to %s\n", csvPath)
			}
			cfg := metricsplot.PlotMetrics(rec).
				Rows(a.config.GetInt(keyMetricsRows)).
				Cols(a.config.GetInt(keyMetricsCols)).
				EndNames(a.config.GetInt(keyMetricsEndNames)).
				DPI(a.config.GetInt(keyMetricsDPI))
			width, height := a.config.GetFloat64(keyMetricsWidth), a.config.GetFloat64(keyMetricsHeight)
			if width > 0 && height > 0 {
				cfg = cfg.FigSize(width, height)
			} else if width > 0 || height > 0 {
				return errors.Errorf("both --width and --height must be set, got %gx%g", width, height)
			}
			fig, err := cfg.Done()
			if err != nil {
				return err
			}
			if outPath != "" {
				if err = fig.Save(outPath); err != nil {
					return err
				}
				klog.V(1).Infof("Metrics figure saved to %q", outPath)
				return nil
			}
			if showTable || csvPath != "" {
				return nil
			}
			tmpPath, err := fig.Show()
			if err != nil {
				return err
			}
			if tmpPath != "" {
				_, _ = fmt.Fprintf(out, "Metrics figure saved to %s\n", tmpPath)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&showTable, "table", false, "Print the metrics as a table. If --out is not given, no figure is created.")
	flags.StringVar(&csvPath, "csv", "", "Save the metrics to a CSV file. If --out is not given, no figure is created.")
	flags.StringVarP(&outPath, "out", "o", "", "Output file for the figure: the format is given by the extension, "+
		"one of .png, .svg, .pdf or .html (interactive).")
	flags.Int("rows", 0, "Number of rows of subplots, 0 to calculate it from the number of metrics.")
	flags.Int("cols", 0, "Number of columns of subplots, 0 to calculate it from the number of metrics.")
	flags.Int("endnames", -1, "End (exclusive, negative counts from the end) of the metric names plotted. "+
		"The default leaves out the elapsed time.")
	flags.Int("dpi", metricsplot.DefaultDPI, "Resolution of PNG figures.")
	flags.Float64("width", 0, "Width of the figure in inches, default is 6 inches per column of subplots.")
	flags.Float64("height", 0, "Height of the figure in inches, default is 4 inches per row of subplots.")
	a.bind(flags, keyMetricsRows, "rows")
	a.bind(flags, keyMetricsCols, "cols")
	a.bind(flags, keyMetricsEndNames, "endnames")
	a.bind(flags, keyMetricsDPI, "dpi")
	a.bind(flags, keyMetricsWidth, "width")
	a.bind(flags, keyMetricsHeight, "height")
	return cmd
}

// loadRecorder from a history file, or from a checkpoint directory.
func loadRecorder(source string) (*history.Recorder, error) {
	switch strings.ToLower(filepath.Ext(source)) {
	case ".json":
		return history.Load(source)
	case ".csv":
		return history.LoadCSV(source)
	}
	historyPath := filepath.Join(source, cnn.HistoryFileName)
	if _, err := os.Stat(historyPath); err == nil {
		klog.V(1).Infof("Reading metrics from %q", historyPath)
		return history.Load(historyPath)
	}
	return history.LoadFromCheckpoint(source)
}
