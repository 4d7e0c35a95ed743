// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package imagegrid

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/janpfeifer/gonb/gonbui"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Show displays the image: inline if running in a GoNB notebook, otherwise it is saved to a temporary PNG file,
// whose path is logged and returned.
func Show(img image.Image) (filePath string, err error) {
	if img == nil {
		return "", errors.New("imagegrid.Show given a nil image")
	}
	if gonbui.IsNotebook {
		src, err := gonbui.EmbedImageAsPNGSrc(img)
		if err != nil {
			return "", errors.WithMessage(err, "failed to embed image in notebook")
		}
		gonbui.DisplayHTML(fmt.Sprintf("<img src=%q/>", src))
		return "", nil
	}
	tmpFile, err := os.CreateTemp("", "gomlx-image-*.png")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temporary file for image")
	}
	filePath = tmpFile.Name()
	err = imaging.Encode(tmpFile, img, imaging.PNG)
	closeErr := tmpFile.Close()
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode image to %q", filePath)
	}
	if closeErr != nil {
		return "", errors.Wrapf(closeErr, "failed to close %q", filePath)
	}
	klog.Infof("Image written to %s", filePath)
	return filePath, nil
}
