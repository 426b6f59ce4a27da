package strategy_test

import (
	"context"
	"errors"
	"testing"

	"imgdupes/internal/config"
	"imgdupes/internal/embedding"
	"imgdupes/internal/pipeline"
	"imgdupes/internal/strategy"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want strategy.Kind
		ok   bool
	}{
		{"exact", strategy.KindExact, true},
		{" Perceptual ", strategy.KindPerceptual, true},
		{"similar", strategy.KindPerceptual, true},
		{"NEURAL", strategy.KindNeural, true},
		{"fuzzy", "", false},
	}
	for _, tt := range tests {
		got, err := strategy.ParseKind(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseKind(%q) = %q, %v", tt.in, got, err)
		}
		if err != nil && !errors.Is(err, pipeline.ErrConfiguration) {
			t.Errorf("expected configuration error, got %v", err)
		}
	}
	if len(strategy.Kinds()) != 3 {
		t.Fatalf("unexpected kinds %v", strategy.Kinds())
	}
}

func TestFactoryReusesInstances(t *testing.T) {
	f := strategy.NewFactory(strategy.FactoryOptions{CacheCapacity: 8})
	defer f.Close()

	if f.Exact() != f.Exact() {
		t.Fatal("expected exact singleton")
	}
	p1, err := f.Perceptual(10)
	if err != nil {
		t.Fatalf("Perceptual returned error: %v", err)
	}
	p2, _ := f.Perceptual(10)
	p3, _ := f.Perceptual(4)
	if p1 != p2 || p1 == p3 {
		t.Fatal("expected one perceptual matcher per threshold")
	}
	if _, err := f.Perceptual(65); !errors.Is(err, pipeline.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	s, err := f.ForKind(strategy.KindExact, 10, 0.7)
	if err != nil || s != strategy.Strategy(f.Exact()) {
		t.Fatalf("ForKind(exact) = %v, %v", s, err)
	}
	if _, err := f.ForKind("bogus", 10, 0.7); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestFactoryNeuralSharesExtractor(t *testing.T) {
	fake := newFakeExtractor(nil)
	opened := 0
	f := strategy.NewFactory(strategy.FactoryOptions{
		NewExtractor: func(embedding.Options) (embedding.Extractor, error) {
			opened++
			return fake, nil
		},
	})

	n1, err := f.Neural(0.7)
	if err != nil {
		t.Fatalf("Neural returned error: %v", err)
	}
	n2, _ := f.Neural(0.7)
	n3, _ := f.Neural(0.9)
	if n1 != n2 || n1 == n3 {
		t.Fatal("expected one neural matcher per threshold")
	}
	if opened != 1 {
		t.Fatalf("extractor opened %d times, want 1", opened)
	}
	if _, err := f.Neural(1.2); !errors.Is(err, pipeline.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
	if fake.closed != 1 {
		t.Fatalf("extractor closed %d times, want 1", fake.closed)
	}
	if _, err := f.Neural(0.7); !errors.Is(err, pipeline.ErrModel) {
		t.Fatalf("expected model error after close, got %v", err)
	}
}

func TestFactoryNeuralModelFailure(t *testing.T) {
	boom := errors.New("no such model")
	f := strategy.NewFactory(strategy.FactoryOptions{
		NewExtractor: func(embedding.Options) (embedding.Extractor, error) { return nil, boom },
	})
	_, err := f.ForKind(strategy.KindNeural, 10, 0.7)
	if !errors.Is(err, pipeline.ErrModel) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped model error, got %v", err)
	}
}

func TestFactoryFromConfigMissingModel(t *testing.T) {
	cfg := config.Default()
	cfg.Neural.ModelPath = t.TempDir() + "/absent.onnx"
	f := strategy.NewFactoryFromConfig(&cfg, nil)
	if _, err := f.Neural(cfg.Strategy.NeuralThreshold); !errors.Is(err, pipeline.ErrModel) {
		t.Fatalf("expected model error, got %v", err)
	}
}

func TestFactoryClearCaches(t *testing.T) {
	dir := t.TempDir()
	a := writeBytes(t, dir, "a.jpg", []byte("xyz"))
	b := writeBytes(t, dir, "b.jpg", []byte("xyz"))
	f := strategy.NewFactory(strategy.FactoryOptions{})
	exact := f.Exact()
	if _, err := exact.AreDuplicates(context.Background(), a, b); err != nil {
		t.Fatal(err)
	}
	if stats := f.CacheStats(); stats[strategy.KindExact].Count != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	f.ClearCaches()
	if stats := f.CacheStats(); stats[strategy.KindExact].Count != 0 {
		t.Fatalf("expected cleared caches, got %+v", stats)
	}
}
