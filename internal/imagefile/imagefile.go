// Package imagefile describes candidate image files and decodes them.
package imagefile

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var supportedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
	".gif":  {},
	".webp": {},
}

// File is an immutable snapshot of a candidate image taken at scan time.
type File struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// FromInfo builds a File from an absolute path and its stat result.
func FromInfo(path string, info os.FileInfo) File {
	return File{
		Path:    path,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// Stat snapshots the file at path.
func Stat(path string) (File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return File{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.Mode().IsRegular() {
		return File{}, fmt.Errorf("stat %s: not a regular file", abs)
	}
	return FromInfo(abs, info), nil
}

// CacheKey identifies the file content for cache lookups. Any change in size
// or modification time yields a different key, so stale entries are never hit.
func (f File) CacheKey() string {
	var b strings.Builder
	b.Grow(len(f.Path) + 42)
	b.WriteString(f.Path)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(f.Size, 10))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(f.ModTime.UnixNano(), 10))
	return b.String()
}

// IsSupported reports whether path carries a recognized image extension.
// The comparison is case-insensitive.
func IsSupported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the recognized image extensions.
func Extensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".webp"}
}

// Decode opens and decodes the image at path. EXIF orientation is ignored;
// the stored pixel grid is what gets fingerprinted.
func Decode(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
