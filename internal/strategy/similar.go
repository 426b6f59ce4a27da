package strategy

import (
	"context"

	"imgdupes/internal/imagefile"
	"imgdupes/internal/lru"
	"imgdupes/internal/phash"
	"imgdupes/internal/roughgroup"
)

// Similar matches near-duplicates by perceptual hash distance within rough
// visual buckets.
type Similar struct {
	threshold int
	hashes    *lru.Cache[string, uint64]
}

// NewSimilar builds a perceptual matcher. The hash cache may be shared by
// matchers with different thresholds.
func NewSimilar(threshold int, hashes *lru.Cache[string, uint64]) *Similar {
	if hashes == nil {
		hashes = lru.New[string, uint64](lru.DefaultCapacity)
	}
	return &Similar{threshold: threshold, hashes: hashes}
}

func (*Similar) Name() string { return string(KindPerceptual) }

func (*Similar) RequiresPreGrouping() bool { return true }

// Threshold returns the maximum Hamming distance treated as a match.
func (s *Similar) Threshold() int { return s.threshold }

// GroupingKey decodes the file once, derives its rough bucket, and primes the
// hash cache from the same decoded pixels.
func (s *Similar) GroupingKey(ctx context.Context, file imagefile.File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img, err := imagefile.Decode(file.Path)
	if err != nil {
		return "", err
	}
	key, err := roughgroup.Key(img)
	if err != nil {
		return "", err
	}
	if _, ok := s.hashes.Get(file.CacheKey()); !ok {
		s.hashes.Put(file.CacheKey(), phash.Hash(img))
	}
	return key, nil
}

// AreDuplicates reports whether the perceptual hashes differ by at most the
// threshold.
func (s *Similar) AreDuplicates(ctx context.Context, a, b imagefile.File) (bool, error) {
	ha, err := s.hash(ctx, a)
	if err != nil {
		return false, err
	}
	hb, err := s.hash(ctx, b)
	if err != nil {
		return false, err
	}
	return phash.Similar(ha, hb, s.threshold), nil
}

func (s *Similar) hash(ctx context.Context, file imagefile.File) (uint64, error) {
	return s.hashes.GetOrCompute(file.CacheKey(), func(string) (uint64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return phash.HashFile(file.Path)
	})
}

func (s *Similar) ClearCache() { s.hashes.Clear() }

func (s *Similar) CacheStats() lru.Stats { return s.hashes.Stats() }
