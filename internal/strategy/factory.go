package strategy

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"imgdupes/internal/config"
	"imgdupes/internal/embedding"
	"imgdupes/internal/logging"
	"imgdupes/internal/lru"
	"imgdupes/internal/pipeline"
)

// ExtractorFunc opens an embedding extractor. It is called at most once per
// Factory.
type ExtractorFunc func(embedding.Options) (embedding.Extractor, error)

// FactoryOptions configures a Factory.
type FactoryOptions struct {
	CacheCapacity int
	Embedding     embedding.Options
	NewExtractor  ExtractorFunc
	Logger        *slog.Logger
}

// Factory builds strategies on demand and keeps them for reuse. Exact and
// perceptual matchers are cheap singletons per threshold; neural matchers
// share one lazily opened extractor and one embedding cache.
type Factory struct {
	mu     sync.Mutex
	opts   FactoryOptions
	logger *slog.Logger

	exact     *Exact
	similar   map[int]*Similar
	hashes    *lru.Cache[string, uint64]
	neural    map[float64]*Neural
	vectors   *lru.Cache[string, []float32]
	extractor embedding.Extractor
	closed    bool
}

// NewFactory constructs a factory. A nil NewExtractor opens ONNX Runtime.
func NewFactory(opts FactoryOptions) *Factory {
	if opts.CacheCapacity <= 0 {
		opts.CacheCapacity = lru.DefaultCapacity
	}
	if opts.NewExtractor == nil {
		opts.NewExtractor = func(o embedding.Options) (embedding.Extractor, error) {
			extractor, err := embedding.NewONNX(o)
			if err != nil {
				return nil, err
			}
			return extractor, nil
		}
	}
	if opts.Embedding.Logger == nil {
		opts.Embedding.Logger = opts.Logger
	}
	return &Factory{
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "strategy"),
		similar: make(map[int]*Similar),
		neural:  make(map[float64]*Neural),
	}
}

// NewFactoryFromConfig maps configuration onto FactoryOptions.
func NewFactoryFromConfig(cfg *config.Config, logger *slog.Logger) *Factory {
	return NewFactory(FactoryOptions{
		CacheCapacity: cfg.Cache.Capacity,
		Embedding: embedding.Options{
			ModelPath:      cfg.Neural.ModelPath,
			RuntimeLibrary: cfg.Neural.RuntimeLibrary,
			InputSize:      cfg.Neural.InputSize,
			IntraOpThreads: cfg.Neural.Threads,
		},
		Logger: logger,
	})
}

// Exact returns the shared exact matcher.
func (f *Factory) Exact() *Exact {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exact == nil {
		f.exact = NewExact(f.opts.CacheCapacity)
		f.logger.Debug("strategy created", logging.String(logging.FieldStrategy, string(KindExact)))
	}
	return f.exact
}

// Perceptual returns the perceptual matcher for threshold, creating it on
// first use. All perceptual matchers share one hash cache.
func (f *Factory) Perceptual(threshold int) (*Similar, error) {
	if err := config.ValidatePerceptualThreshold(threshold); err != nil {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, "", "create perceptual strategy", "", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.similar[threshold]; ok {
		return s, nil
	}
	if f.hashes == nil {
		f.hashes = lru.New[string, uint64](f.opts.CacheCapacity)
	}
	s := NewSimilar(threshold, f.hashes)
	f.similar[threshold] = s
	f.logger.Debug("strategy created",
		logging.String(logging.FieldStrategy, string(KindPerceptual)),
		logging.Int("threshold", threshold),
	)
	return s, nil
}

// Neural returns the neural matcher for threshold. The embedding model is
// loaded on the first call; a load failure is returned on every call until
// it succeeds.
func (f *Factory) Neural(threshold float64) (*Neural, error) {
	if err := config.ValidateNeuralThreshold(threshold); err != nil {
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, "", "create neural strategy", "", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, pipeline.Wrap(pipeline.ErrModel, "", "create neural strategy", "factory closed", nil)
	}
	if n, ok := f.neural[threshold]; ok {
		return n, nil
	}
	if f.extractor == nil {
		extractor, err := f.opts.NewExtractor(f.opts.Embedding)
		if err != nil {
			if !errors.Is(err, pipeline.ErrModel) {
				err = pipeline.Wrap(pipeline.ErrModel, "", "open embedding extractor", "", err)
			}
			return nil, err
		}
		f.extractor = extractor
		f.vectors = lru.New[string, []float32](f.opts.CacheCapacity)
	}
	n := NewNeural(threshold, f.extractor, f.vectors)
	f.neural[threshold] = n
	f.logger.Debug("strategy created",
		logging.String(logging.FieldStrategy, string(KindNeural)),
		logging.Float64("threshold", threshold),
	)
	return n, nil
}

// ForKind dispatches on kind. perceptual and neural thresholds are used only
// by their respective kinds.
func (f *Factory) ForKind(kind Kind, perceptual int, neural float64) (Strategy, error) {
	switch kind {
	case KindExact:
		return f.Exact(), nil
	case KindPerceptual:
		return f.Perceptual(perceptual)
	case KindNeural:
		return f.Neural(neural)
	default:
		return nil, pipeline.Wrap(pipeline.ErrConfiguration, "", "create strategy", fmt.Sprintf("unknown strategy %q", kind), nil)
	}
}

// ClearCaches drops every cached digest, hash, and embedding.
func (f *Factory) ClearCaches() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exact != nil {
		f.exact.ClearCache()
	}
	if f.hashes != nil {
		f.hashes.Clear()
	}
	if f.vectors != nil {
		f.vectors.Clear()
	}
}

// CacheStats returns counters for every cache created so far, keyed by
// strategy kind.
func (f *Factory) CacheStats() map[Kind]lru.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := make(map[Kind]lru.Stats, 3)
	if f.exact != nil {
		stats[KindExact] = f.exact.CacheStats()
	}
	if f.hashes != nil {
		stats[KindPerceptual] = f.hashes.Stats()
	}
	if f.vectors != nil {
		stats[KindNeural] = f.vectors.Stats()
	}
	return stats
}

// Close releases the embedding extractor. Strategies obtained earlier must
// not be used afterwards.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	clear(f.neural)
	if f.extractor == nil {
		return nil
	}
	err := f.extractor.Close()
	f.extractor = nil
	if err != nil {
		return fmt.Errorf("close embedding extractor: %w", err)
	}
	return nil
}
