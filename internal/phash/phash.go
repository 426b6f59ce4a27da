// Package phash computes 64-bit DCT perceptual hashes.
//
// The layout is fixed: the image is reduced to a 32x32 grayscale grid, the
// 8x8 low-frequency block of its 2-D DCT-II is taken, and coefficient (u, v)
// with u the horizontal and v the vertical frequency maps to bit u*8+v-1.
// The DC term (0, 0) is skipped, so bits 0..62 carry data and bit 63 is
// always zero. A bit is set when its coefficient is at least the mean of the
// 63 coefficients.
package phash

import (
	"fmt"
	"image"
	"math"
	"math/bits"

	"github.com/disintegration/imaging"

	"imgdupes/internal/imagefile"
)

const (
	// Bits is the hash width.
	Bits = 64
	// DefaultThreshold is the maximum Hamming distance treated as similar.
	DefaultThreshold = 10

	gridSize = 32
	lowFreq  = 8
)

// cosTable[k][n] = cos((2n+1)kπ / 2N) for the low-frequency rows only.
var cosTable = func() [lowFreq][gridSize]float64 {
	var table [lowFreq][gridSize]float64
	for k := range lowFreq {
		for n := range gridSize {
			table[k][n] = math.Cos(float64((2*n+1)*k) * math.Pi / (2 * gridSize))
		}
	}
	return table
}()

// Hash returns the perceptual hash of img.
func Hash(img image.Image) uint64 {
	pixels := grid(img)
	dct := lowFrequencyDCT(&pixels)

	var sum float64
	for u := range lowFreq {
		for v := range lowFreq {
			if u == 0 && v == 0 {
				continue
			}
			sum += dct[u][v]
		}
	}
	mean := sum / (lowFreq*lowFreq - 1)

	var hash uint64
	bit := 0
	for u := range lowFreq {
		for v := range lowFreq {
			if u == 0 && v == 0 {
				continue
			}
			if dct[u][v] >= mean {
				hash |= 1 << bit
			}
			bit++
		}
	}
	return hash
}

// HashFile decodes the image at path and hashes it.
func HashFile(path string) (uint64, error) {
	img, err := imagefile.Decode(path)
	if err != nil {
		return 0, err
	}
	return Hash(img), nil
}

// Distance returns the Hamming distance between two hashes.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether two hashes differ by at most threshold bits.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

// Format renders the hash as a 64-character binary string, most significant
// bit first.
func Format(hash uint64) string {
	return fmt.Sprintf("%064b", hash)
}

// grid converts img to grayscale, resamples it to 32x32 and returns the
// intensities scaled to [0, 1], indexed [x][y].
func grid(img image.Image) [gridSize][gridSize]float64 {
	small := imaging.Resize(imaging.Grayscale(img), gridSize, gridSize, imaging.CatmullRom)
	var pixels [gridSize][gridSize]float64
	for y := range gridSize {
		row := small.Pix[y*small.Stride:]
		for x := range gridSize {
			pixels[x][y] = float64(row[x*4]) / 255
		}
	}
	return pixels
}

// lowFrequencyDCT evaluates the orthonormal-scaled DCT-II only for the
// coefficients the hash uses.
func lowFrequencyDCT(pixels *[gridSize][gridSize]float64) [lowFreq][lowFreq]float64 {
	// partial[v][x] = Σy p[x][y]·cos(v, y)
	var partial [lowFreq][gridSize]float64
	for v := range lowFreq {
		for x := range gridSize {
			var s float64
			for y := range gridSize {
				s += pixels[x][y] * cosTable[v][y]
			}
			partial[v][x] = s
		}
	}

	scale := math.Sqrt(2.0 / gridSize)
	var out [lowFreq][lowFreq]float64
	for u := range lowFreq {
		cu := 1.0
		if u == 0 {
			cu = 1 / math.Sqrt2
		}
		for v := range lowFreq {
			cv := 1.0
			if v == 0 {
				cv = 1 / math.Sqrt2
			}
			var s float64
			for x := range gridSize {
				s += cosTable[u][x] * partial[v][x]
			}
			out[u][v] = cu * cv * scale * s
		}
	}
	return out
}
