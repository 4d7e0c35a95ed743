// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/interpret/examples/cnn"
	"github.com/gomlx/interpret/pkg/colormaps"
	"github.com/gomlx/interpret/pkg/gradcam"
	"github.com/gomlx/interpret/pkg/imagegrid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	keyGradCAMAlpha         = "gradcam.alpha"
	keyGradCAMColorMap      = "gradcam.colormap"
	keyGradCAMImageColorMap = "gradcam.image_colormap"
	keyGradCAMInterpolation = "gradcam.interpolation"
	keyGradCAMColumns       = "gradcam.ncol"
	keyGradCAMFont          = "gradcam.font"
	keyGradCAMFontSize      = "gradcam.font_size"

	// topLabel selects the top prediction in --label.
	topLabel = "top"
)

func newGradCAMCmd(a *app) *cobra.Command {
	var checkpointDir, imagePath, outPath, target, imageSize string
	var labels []string
	var fullSize, showOriginal bool
	cmd := &cobra.Command{
		Use:   "gradcam",
		Short: "Render the Grad-CAM heatmaps of an image for the demo CNN",
		Long: "Render the Grad-CAM heatmaps of an image, one per --label, for the demo CNN trained with the train " +
			"subcommand. The heatmaps are captioned with the label and its predicted probability and arranged in a grid.\n\n" +
			"Labels are given by name, by index prefixed with \"#\" (e.g. \"#2\") or \"" + topLabel +
			"\" for the top prediction. Valid names: " + strings.Join(cnn.Vocab, ", ") + ".",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if checkpointDir == "" || imagePath == "" || outPath == "" {
				return errors.New("--checkpoint, --image and --out are required")
			}
			backend, err := a.Backend()
			if err != nil {
				return err
			}
			l := cnn.NewLearner(backend, context.New())
			if err = l.LoadCheckpoint(checkpointDir); err != nil {
				return err
			}
			gcamLabels, err := parseLabels(labels)
			if err != nil {
				return err
			}
			gcamColorMap, err := colormaps.ByName(a.config.GetString(keyGradCAMColorMap))
			if err != nil {
				return err
			}
			cfg := gradcam.GradCAM(l, imagegrid.FromPath(imagePath)).
				Labels(gcamLabels...).
				FullSize(fullSize).
				ShowOriginal(showOriginal).
				Alpha(a.config.GetFloat64(keyGradCAMAlpha)).
				Interpolation(gradcam.Interpolation(a.config.GetString(keyGradCAMInterpolation))).
				GCAMColorMap(gcamColorMap).
				GridColumns(a.config.GetInt(keyGradCAMColumns)).
				Font(a.config.GetString(keyGradCAMFont), a.config.GetFloat64(keyGradCAMFontSize))
			if target != "" {
				cfg = cfg.Target(gradcam.TargetName(target))
			}
			if name := a.config.GetString(keyGradCAMImageColorMap); name != "" {
				imageColorMap, err := colormaps.ByName(name)
				if err != nil {
					return err
				}
				cfg = cfg.ImageColorMap(imageColorMap)
			}
			if imageSize != "" {
				size, err := parseSize(imageSize)
				if err != nil {
					return err
				}
				cfg = cfg.ImageSize(size.Width, size.Height)
			}
			grid, err := cfg.Done()
			if err != nil {
				return err
			}
			if err = imaging.Save(grid, outPath); err != nil {
				return errors.Wrapf(err, "failed to save Grad-CAM grid to %q", outPath)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Grad-CAM grid (%dx%d) saved to %s\n",
				grid.Bounds().Dx(), grid.Bounds().Dy(), outPath)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&checkpointDir, "checkpoint", "", "Checkpoint directory of the demo CNN.")
	flags.StringVar(&imagePath, "image", "", "Image file to interpret.")
	flags.StringVarP(&outPath, "out", "o", "", "Output image file, the format is given by the extension (.png, .jpg, ...).")
	flags.StringSliceVar(&labels, "label", nil, "Labels for which to render the heatmaps. Default is the top prediction.")
	flags.StringVar(&target, "target", "", "Name of the model stage w.r.t. which the heatmaps are computed. "+
		"Default is the first stage, \""+cnn.BodyStage+"\".")
	flags.StringVar(&imageSize, "size", "", "Resize the original image to WIDTHxHEIGHT before anything else.")
	flags.BoolVar(&fullSize, "fullsize", false, "Overlay the heatmaps on the original image instead of the model input.")
	flags.BoolVar(&showOriginal, "original", false, "Prepend the original image to the grid.")
	flags.Float64("alpha", gradcam.DefaultAlpha, "Opacity of the heatmaps.")
	flags.String("colormap", colormaps.RdYlBu10R, "Colormap of the heatmaps, one of "+strings.Join(colormaps.Names(), ", ")+".")
	flags.String("image_colormap", "", "Colormap applied to grayscale images. Default is none.")
	flags.String("interpolation", string(gradcam.Bilinear), fmt.Sprintf("Interpolation used to resize the heatmaps: %s, %s, %s or %s.",
		gradcam.Bilinear, gradcam.Nearest, gradcam.Bicubic, gradcam.Lanczos))
	flags.Int("ncol", gradcam.DefaultGridColumns, "Number of images per row of the grid, 0 for a single row.")
	flags.String("font", "", "TrueType font file of the captions. Default is Go Regular.")
	flags.Float64("font_size", imagegrid.DefaultFontSize, "Font size of the captions.")
	a.bind(flags, keyGradCAMAlpha, "alpha")
	a.bind(flags, keyGradCAMColorMap, "colormap")
	a.bind(flags, keyGradCAMImageColorMap, "image_colormap")
	a.bind(flags, keyGradCAMInterpolation, "interpolation")
	a.bind(flags, keyGradCAMColumns, "ncol")
	a.bind(flags, keyGradCAMFont, "font")
	a.bind(flags, keyGradCAMFontSize, "font_size")
	return cmd
}

// parseLabels converts the --label values to Grad-CAM labels.
func parseLabels(values []string) ([]gradcam.Label, error) {
	labels := make([]gradcam.Label, 0, len(values))
	for _, value := range values {
		switch {
		case value == topLabel:
			labels = append(labels, gradcam.TopPrediction)
		case strings.HasPrefix(value, "#"):
			idx, err := strconv.Atoi(value[1:])
			if err != nil {
				return nil, errors.Wrapf(err, "invalid label index %q", value)
			}
			labels = append(labels, gradcam.ByIndex(idx))
		default:
			labels = append(labels, gradcam.ByName(value))
		}
	}
	return labels, nil
}
