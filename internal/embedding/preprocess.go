package embedding

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// DefaultInputSize is the square edge expected by MobileNetV2.
const DefaultInputSize = 224

var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocess centre-crops img to a square, resizes it to size×size, and
// returns a planar [3][size][size] float32 buffer normalized with the
// ImageNet channel mean and standard deviation.
func Preprocess(img image.Image, size int) []float32 {
	if size <= 0 {
		size = DefaultInputSize
	}
	fitted := imaging.Fill(img, size, size, imaging.Center, imaging.CatmullRom)
	plane := size * size
	out := make([]float32, 3*plane)
	for y := range size {
		row := fitted.Pix[y*fitted.Stride:]
		for x := range size {
			px := row[x*4 : x*4+3]
			idx := y*size + x
			for c := range 3 {
				out[c*plane+idx] = (float32(px[c])/255 - imagenetMean[c]) / imagenetStd[c]
			}
		}
	}
	return out
}

// CosineSimilarity returns the cosine of the angle between a and b. Vectors
// of different lengths, or with a near-zero magnitude, have similarity 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		magA += x * x
		magB += y * y
	}
	denominator := math.Sqrt(magA) * math.Sqrt(magB)
	if denominator < math.SmallestNonzeroFloat32 {
		return 0
	}
	return float32(dot / denominator)
}
