// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/interpret/examples/cnn"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	keyTrainSteps     = "train.steps"
	keyTrainBatchSize = "train.batch"
	keyTrainExamples  = "train.examples"
	keyTrainEvalEvery = "train.eval_every"
	keyTrainChannels  = "train.channels"
	keyTrainSeed      = "train.seed"
)

func newTrainCmd(a *app) *cobra.Command {
	var checkpointDir string
	var progressBar bool
	defaults := cnn.DefaultTrainConfig()
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the demo CNN on synthetic images",
		Long: "Train the demo convolutional classifier, which predicts the quadrant of a bright square drawn on " +
			"a noisy image. The checkpoint can then be used with the metrics, info and gradcam subcommands.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if checkpointDir == "" {
				return errors.New("--checkpoint directory is required")
			}
			backend, err := a.Backend()
			if err != nil {
				return err
			}
			ctx := context.New()
			ctx.SetParam(cnn.ParamChannels, a.config.GetInt(keyTrainChannels))
			config := cnn.TrainConfig{
				CheckpointDir: checkpointDir,
				NumSteps:      a.config.GetInt(keyTrainSteps),
				BatchSize:     a.config.GetInt(keyTrainBatchSize),
				NumExamples:   a.config.GetInt(keyTrainExamples),
				EvalEvery:     a.config.GetInt(keyTrainEvalEvery),
				Seed:          a.config.GetUint64(keyTrainSeed),
				ProgressBar:   progressBar,
			}
			rec, err := cnn.Train(backend, ctx, config)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rec.Table())
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&checkpointDir, "checkpoint", "", "Directory where to save the model and its training metrics.")
	flags.BoolVar(&progressBar, "progress", false, "Display a progress bar while training.")
	flags.Int("steps", defaults.NumSteps, "Number of training steps.")
	flags.Int("batch", defaults.BatchSize, "Batch size.")
	flags.Int("examples", defaults.NumExamples, "Number of synthetic examples in the training and validation datasets.")
	flags.Int("eval_every", defaults.EvalEvery, "How often, in steps, the metrics are collected.")
	flags.Int("channels", cnn.DefaultChannels, "Number of channels of the convolutions.")
	flags.Uint64("seed", defaults.Seed, "Seed used to generate the synthetic images.")
	a.bind(flags, keyTrainSteps, "steps")
	a.bind(flags, keyTrainBatchSize, "batch")
	a.bind(flags, keyTrainExamples, "examples")
	a.bind(flags, keyTrainEvalEvery, "eval_every")
	a.bind(flags, keyTrainChannels, "channels")
	a.bind(flags, keyTrainSeed, "seed")
	return cmd
}
