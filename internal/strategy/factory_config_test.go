package strategy

import (
	"testing"

	"imgdupes/internal/config"
)

func TestNewFactoryFromConfigMapsNeuralSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Capacity = 32
	cfg.Neural.ModelPath = "/models/m.onnx"
	cfg.Neural.RuntimeLibrary = "/opt/onnx/libonnxruntime.so"
	cfg.Neural.InputSize = 160
	cfg.Neural.Threads = 3

	f := NewFactoryFromConfig(&cfg, nil)
	defer f.Close()

	got := f.opts.Embedding
	if got.ModelPath != cfg.Neural.ModelPath || got.RuntimeLibrary != cfg.Neural.RuntimeLibrary {
		t.Fatalf("unexpected model wiring %+v", got)
	}
	if got.InputSize != 160 || got.IntraOpThreads != 3 {
		t.Fatalf("input size %d threads %d, want 160 and 3", got.InputSize, got.IntraOpThreads)
	}
	if f.opts.CacheCapacity != 32 {
		t.Fatalf("cache capacity = %d, want 32", f.opts.CacheCapacity)
	}
}
