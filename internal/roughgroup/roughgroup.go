// Package roughgroup derives cheap visual bucket keys used to partition
// images before pairwise comparison.
//
// A key has the form "<aspect>_<brightness>_<color>": one of five aspect
// ratio buckets, one of eight average brightness buckets over a 16x16
// grayscale thumbnail, and one of four dominant color classes over a 16x16
// color thumbnail. Resized or lightly recompressed copies land in the same
// bucket; clearly different photos usually do not.
package roughgroup

import (
	"errors"
	"fmt"
	"image"
	"strconv"

	"github.com/disintegration/imaging"

	"imgdupes/internal/imagefile"
)

const (
	thumbSize         = 16
	brightnessBuckets = 8
	saturationFloor   = 30
	channelMargin     = 20
)

// Color classes.
const (
	ColorGray = iota
	ColorRed
	ColorGreen
	ColorBlueOrMixed
	colorClasses
)

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// Key returns the bucket key of img.
func Key(img image.Image) (string, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return "", ErrEmptyImage
	}
	thumb := imaging.Resize(img, thumbSize, thumbSize, imaging.CatmullRom)
	return compose(AspectBucket(b.Dx(), b.Dy()), brightnessBucket(thumb), dominantColor(thumb)), nil
}

// KeyFile decodes the image at path and returns its bucket key.
func KeyFile(path string) (string, error) {
	img, err := imagefile.Decode(path)
	if err != nil {
		return "", err
	}
	key, err := Key(img)
	if err != nil {
		return "", fmt.Errorf("group key %s: %w", path, err)
	}
	return key, nil
}

// AspectBucket maps width/height to one of five buckets: tall portrait,
// near-square portrait, square, near-square landscape, wide landscape.
func AspectBucket(width, height int) int {
	ratio := float64(width) / float64(height)
	switch {
	case ratio < 0.7:
		return 0
	case ratio < 0.9:
		return 1
	case ratio < 1.1:
		return 2
	case ratio < 1.5:
		return 3
	default:
		return 4
	}
}

// BrightnessBucket maps an average 8-bit gray level to one of eight buckets.
func BrightnessBucket(average int) int {
	return min(average/(256/brightnessBuckets), brightnessBuckets-1)
}

// ColorClass classifies one pixel.
func ColorClass(r, g, b uint8) int {
	hi := max(r, g, b)
	lo := min(r, g, b)
	ri, gi, bi := int(r), int(g), int(b)
	switch {
	case int(hi)-int(lo) < saturationFloor:
		return ColorGray
	case ri > gi+channelMargin && ri > bi+channelMargin:
		return ColorRed
	case gi > ri+channelMargin && gi > bi+channelMargin:
		return ColorGreen
	default:
		return ColorBlueOrMixed
	}
}

// brightnessBucket averages the grayscale thumbnail with integer division.
func brightnessBucket(thumb *image.NRGBA) int {
	gray := imaging.Grayscale(thumb)
	var total int
	for y := range thumbSize {
		row := gray.Pix[y*gray.Stride:]
		for x := range thumbSize {
			total += int(row[x*4])
		}
	}
	return BrightnessBucket(total / (thumbSize * thumbSize))
}

// dominantColor returns the most frequent color class; ties go to the lower
// class.
func dominantColor(thumb *image.NRGBA) int {
	var counts [colorClasses]int
	for y := range thumbSize {
		row := thumb.Pix[y*thumb.Stride:]
		for x := range thumbSize {
			p := row[x*4 : x*4+3]
			counts[ColorClass(p[0], p[1], p[2])]++
		}
	}
	dominant := 0
	for class := 1; class < colorClasses; class++ {
		if counts[class] > counts[dominant] {
			dominant = class
		}
	}
	return dominant
}

func compose(aspect, brightness, color int) string {
	return strconv.Itoa(aspect) + "_" + strconv.Itoa(brightness) + "_" + strconv.Itoa(color)
}
