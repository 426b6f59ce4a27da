package strategy_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"

	"imgdupes/internal/embedding"
	"imgdupes/internal/imagefile"
)

// noise returns a gray image made of 8x8 pixel blocks with seeded random
// levels in [40, 120).
func noise(seed uint64, size int) *image.NRGBA {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	blocks := size / 8
	levels := make([]uint8, blocks*blocks)
	for i := range levels {
		levels[i] = uint8(40 + rng.IntN(80))
	}
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			v := levels[(y/8)*blocks+x/8]
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, dir, name string, img image.Image) imagefile.File {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close %s: %v", name, err)
	}
	return statFile(t, path)
}

func writeBytes(t *testing.T, dir, name string, data []byte) imagefile.File {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return statFile(t, path)
}

func statFile(t *testing.T, path string) imagefile.File {
	t.Helper()
	file, err := imagefile.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return file
}

func resized(img image.Image, size int) image.Image {
	return imaging.Resize(img, size, size, imaging.Lanczos)
}

// fakeExtractor returns canned vectors keyed by file base name.
type fakeExtractor struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   map[string]int
	closed  int
}

func newFakeExtractor(vectors map[string][]float32) *fakeExtractor {
	return &fakeExtractor{vectors: vectors, calls: make(map[string]int)}
}

func (f *fakeExtractor) Embed(ctx context.Context, path string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	name := filepath.Base(path)
	f.calls[name]++
	v, ok := f.vectors[name]
	if !ok {
		return nil, errors.New("cannot embed " + name)
	}
	return v, nil
}

func (f *fakeExtractor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

var _ embedding.Extractor = (*fakeExtractor)(nil)
