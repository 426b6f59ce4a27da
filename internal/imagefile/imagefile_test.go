package imagefile_test

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"imgdupes/internal/imagefile"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.jpg", true},
		{"a.JPEG", true},
		{"dir/b.Png", true},
		{"c.bmp", true},
		{"d.GIF", true},
		{"e.webp", true},
		{"f.tiff", false},
		{"g.jpg.txt", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := imagefile.IsSupported(tt.path); got != tt.want {
			t.Errorf("IsSupported(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	for _, ext := range imagefile.Extensions() {
		if !imagefile.IsSupported("x" + ext) {
			t.Errorf("listed extension %q not supported", ext)
		}
	}
}

func TestCacheKeyTracksSizeAndModTime(t *testing.T) {
	base := imagefile.File{Path: "/p/a.jpg", Size: 10, ModTime: time.Unix(100, 5)}
	if base.CacheKey() != "/p/a.jpg|10|100000000005" {
		t.Fatalf("unexpected key %q", base.CacheKey())
	}
	resized := base
	resized.Size = 11
	touched := base
	touched.ModTime = base.ModTime.Add(time.Nanosecond)
	if base.CacheKey() == resized.CacheKey() || base.CacheKey() == touched.CacheKey() {
		t.Fatal("expected key to change with size and mtime")
	}
}

func TestStatAndDecode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pixel.png")
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	file, err := imagefile.Stat(path)
	if err != nil {
		t.Fatalf("Stat returned error: %v", err)
	}
	if file.Name != "pixel.png" || file.Path != path || file.Size <= 0 {
		t.Fatalf("unexpected file %+v", file)
	}

	decoded, err := imagefile.Decode(path)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if decoded.Bounds().Dx() != 3 || decoded.Bounds().Dy() != 2 {
		t.Fatalf("unexpected bounds %v", decoded.Bounds())
	}
}

func TestStatRejectsDirectory(t *testing.T) {
	if _, err := imagefile.Stat(t.TempDir()); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestDecodeCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(path, []byte("not really a jpeg"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := imagefile.Decode(path); err == nil {
		t.Fatal("expected decode error")
	}
}
