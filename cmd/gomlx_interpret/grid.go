// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gomlx/interpret/pkg/imagegrid"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

const (
	keyGridColumns = "grid.ncol"
	keyGridSize    = "grid.size"
	keyGridLabels  = "grid.labels"
)

func newGridCmd(a *app) *cobra.Command {
	var outPath string
	var noResize, progress bool
	cmd := &cobra.Command{
		Use:   "grid <image files...>",
		Short: "Compose images into a grid",
		Long: "Compose the images into a grid, with a 2 pixels black padding around each of them. " +
			"Images are resized to --size, unless --noresize is given, in which case they must all have the same size.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return errors.New("--out is required")
			}
			var size *imagegrid.Size
			if !noResize {
				parsed, err := parseSize(a.config.GetString(keyGridSize))
				if err != nil {
					return err
				}
				size = &parsed
			}
			var bar *progressbar.ProgressBar
			if progress {
				bar = progressbar.NewOptions(len(args),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("Opening images"),
					progressbar.OptionClearOnFinish())
			}
			withLabels := a.config.GetBool(keyGridLabels)
			images := make([]image.Image, 0, len(args))
			for _, imgPath := range args {
				img, err := imagegrid.OpenImage(imgPath, size)
				if err != nil {
					return err
				}
				if withLabels {
					img, err = imagegrid.DrawLabels(img, baseName(imgPath), imagegrid.LabelOptions{Location: imagegrid.Bottom})
					if err != nil {
						return err
					}
				}
				images = append(images, img)
				if bar != nil {
					_ = bar.Add(1)
				}
			}
			if bar != nil {
				_ = bar.Finish()
			}
			grid, err := imagegrid.CreateImageGrid(imagegrid.Images(images...), nil, a.config.GetInt(keyGridColumns))
			if err != nil {
				return err
			}
			if err = imaging.Save(grid, outPath); err != nil {
				return errors.Wrapf(err, "failed to save grid to %q", outPath)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Grid of %d images (%dx%d) saved to %s\n",
				len(images), grid.Bounds().Dx(), grid.Bounds().Dy(), outPath)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&outPath, "out", "o", "", "Output image file, the format is given by the extension (.png, .jpg, ...).")
	flags.BoolVar(&noResize, "noresize", false, "Keep the images in their original size.")
	flags.BoolVar(&progress, "progress", false, "Display a progress bar while opening the images.")
	flags.Int("ncol", imagegrid.DefaultColumns, "Maximum number of images per row.")
	flags.String("size", imagegrid.DefaultSize.String(), "Size, as WIDTHxHEIGHT, to which images are resized.")
	flags.Bool("labels", false, "Caption each image with its file name.")
	a.bind(flags, keyGridColumns, "ncol")
	a.bind(flags, keyGridSize, "size")
	a.bind(flags, keyGridLabels, "labels")
	return cmd
}

// parseSize parses "WIDTHxHEIGHT".
func parseSize(value string) (imagegrid.Size, error) {
	widthStr, heightStr, found := strings.Cut(strings.ToLower(value), "x")
	if !found {
		return imagegrid.Size{}, errors.Errorf("invalid size %q, it must be formatted as WIDTHxHEIGHT", value)
	}
	width, errW := strconv.Atoi(strings.TrimSpace(widthStr))
	height, errH := strconv.Atoi(strings.TrimSpace(heightStr))
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return imagegrid.Size{}, errors.Errorf("invalid size %q, it must be formatted as WIDTHxHEIGHT with positive values", value)
	}
	return imagegrid.Size{Width: width, Height: height}, nil
}

func baseName(filePath string) string {
	return strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
}
