package strategy

import (
	"context"
	"strconv"

	"imgdupes/internal/fileutil"
	"imgdupes/internal/imagefile"
	"imgdupes/internal/lru"
)

// Exact matches byte-identical files. Files are grouped by size and compared
// by SHA-256 digest; digests are cached by path, size, and mtime.
type Exact struct {
	digests *lru.Cache[string, fileutil.Digest]
}

// NewExact builds an exact matcher with a digest cache of the given capacity.
func NewExact(capacity int) *Exact {
	return &Exact{digests: lru.New[string, fileutil.Digest](capacity)}
}

func (*Exact) Name() string { return string(KindExact) }

func (*Exact) RequiresPreGrouping() bool { return true }

// GroupingKey returns the decimal byte length.
func (*Exact) GroupingKey(_ context.Context, file imagefile.File) (string, error) {
	return strconv.FormatInt(file.Size, 10), nil
}

// AreDuplicates compares content digests. Files of different length are
// never duplicates.
func (e *Exact) AreDuplicates(ctx context.Context, a, b imagefile.File) (bool, error) {
	if a.Size != b.Size {
		return false, nil
	}
	da, err := e.digest(ctx, a)
	if err != nil {
		return false, err
	}
	db, err := e.digest(ctx, b)
	if err != nil {
		return false, err
	}
	return da == db, nil
}

// digest returns the cached or freshly computed content digest of file.
func (e *Exact) digest(ctx context.Context, file imagefile.File) (fileutil.Digest, error) {
	return e.digests.GetOrCompute(file.CacheKey(), func(string) (fileutil.Digest, error) {
		return fileutil.HashFile(ctx, file.Path)
	})
}

func (e *Exact) ClearCache() { e.digests.Clear() }

func (e *Exact) CacheStats() lru.Stats { return e.digests.Stats() }
