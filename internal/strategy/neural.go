package strategy

import (
	"context"

	"imgdupes/internal/embedding"
	"imgdupes/internal/imagefile"
	"imgdupes/internal/lru"
	"imgdupes/internal/roughgroup"
)

// Neural matches near-duplicates by cosine similarity of model embeddings
// within rough visual buckets.
type Neural struct {
	threshold  float32
	extractor  embedding.Extractor
	embeddings *lru.Cache[string, []float32]
}

// NewNeural builds an embedding matcher. The caller retains ownership of the
// extractor and must close it once every matcher using it is retired.
func NewNeural(threshold float64, extractor embedding.Extractor, embeddings *lru.Cache[string, []float32]) *Neural {
	if embeddings == nil {
		embeddings = lru.New[string, []float32](lru.DefaultCapacity)
	}
	return &Neural{threshold: float32(threshold), extractor: extractor, embeddings: embeddings}
}

func (*Neural) Name() string { return string(KindNeural) }

func (*Neural) RequiresPreGrouping() bool { return true }

// Threshold returns the minimum cosine similarity treated as a match.
func (n *Neural) Threshold() float64 { return float64(n.threshold) }

func (*Neural) GroupingKey(ctx context.Context, file imagefile.File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return roughgroup.KeyFile(file.Path)
}

// AreDuplicates reports whether the embeddings are at least threshold
// similar.
func (n *Neural) AreDuplicates(ctx context.Context, a, b imagefile.File) (bool, error) {
	ea, err := n.embed(ctx, a)
	if err != nil {
		return false, err
	}
	eb, err := n.embed(ctx, b)
	if err != nil {
		return false, err
	}
	return embedding.CosineSimilarity(ea, eb) >= n.threshold, nil
}

func (n *Neural) embed(ctx context.Context, file imagefile.File) ([]float32, error) {
	return n.embeddings.GetOrCompute(file.CacheKey(), func(string) ([]float32, error) {
		return n.extractor.Embed(ctx, file.Path)
	})
}

func (n *Neural) ClearCache() { n.embeddings.Clear() }

func (n *Neural) CacheStats() lru.Stats { return n.embeddings.Stats() }
