// Package convert re-encodes imported raster images into the workspace's
// target format (JPEG). Failures are never fatal to the import: callers
// fall back to passing the original bytes through unchanged.
package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"strings"

	// Register decoders for the formats the import boundary accepts.
	_ "image/gif"
	_ "image/png"

	"github.com/halvorsen/skald/internal/models"
)

// TargetExt is the extension of the conversion output format.
const TargetExt = ".jpg"

// Quality steps chosen by the original payload size: large inputs take a
// harder quality cut since they gain the most from re-encoding.
const (
	qualitySmall  = 90
	qualityMedium = 80
	qualityLarge  = 65

	mediumThreshold = 512 << 10 // 512 KiB
	largeThreshold  = 4 << 20   // 4 MiB
)

// IsTargetFormat reports whether the file is already in the target format.
func IsTargetFormat(name string) bool {
	ext := strings.ToLower(models.Ext(name))
	return ext == ".jpg" || ext == ".jpeg"
}

// TargetName rewrites a file name's extension to the target format.
func TargetName(name string) string {
	return models.Stem(name) + TargetExt
}

// QualityFor picks the encode quality from the original size hint.
func QualityFor(sizeHint int) int {
	switch {
	case sizeHint >= largeThreshold:
		return qualityLarge
	case sizeHint >= mediumThreshold:
		return qualityMedium
	default:
		return qualitySmall
	}
}

// Convert decodes data and re-encodes it as JPEG with a quality derived
// from sizeHint. Returns the converted bytes and the quality used. Any
// decode or encode failure is returned as an error; the caller keeps the
// original bytes in that case.
func Convert(data []byte, sizeHint int) ([]byte, int, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("convert: decode: %w", err)
	}

	// JPEG has no alpha channel; flatten onto white.
	bounds := src.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(flat, bounds, src, bounds.Min, draw.Over)

	quality := QualityFor(sizeHint)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: quality}); err != nil {
		return nil, 0, fmt.Errorf("convert: encode: %w", err)
	}
	return buf.Bytes(), quality, nil
}
