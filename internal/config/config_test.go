package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"imgdupes/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("IMGDUPES_MODEL_PATH", "")
	t.Setenv("ONNXRUNTIME_LIB", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "imgdupes", "config.toml"); resolved != want {
		t.Fatalf("resolved = %q, want %q", resolved, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "imgdupes", "models", "mobilenetv2-7.onnx"); cfg.Neural.ModelPath != want {
		t.Fatalf("model path = %q, want %q", cfg.Neural.ModelPath, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "imgdupes", "history.db"); cfg.History.Path != want {
		t.Fatalf("history path = %q, want %q", cfg.History.Path, want)
	}
	if cfg.Strategy.Default != config.StrategyExact || cfg.Strategy.Closure != config.ClosureRepresentative {
		t.Fatalf("unexpected strategy defaults: %+v", cfg.Strategy)
	}
	if cfg.Strategy.PerceptualThreshold != 10 || cfg.Strategy.NeuralThreshold != 0.7 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Strategy)
	}
	if cfg.Cache.Capacity != 10000 || !cfg.Cache.ClearAfterRun {
		t.Fatalf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Workers() != max(runtime.NumCPU(), 1) {
		t.Fatalf("Workers() = %d", cfg.Workers())
	}
}

func TestLoadCustomFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("IMGDUPES_MODEL_PATH", "")
	t.Setenv("ONNXRUNTIME_LIB", "/opt/onnx/libonnxruntime.so")

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[scan]
workers = 3

[strategy]
default = " Perceptual "
perceptual_threshold = 6
closure = "TRANSITIVE"

[neural]
model_path = "~/models/custom.onnx"
threads = 2

[logging]
format = "json"
level = "DEBUG"
dir = "~/logs"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Workers() != 3 {
		t.Fatalf("Workers() = %d, want 3", cfg.Workers())
	}
	if cfg.Strategy.Default != config.StrategyPerceptual || cfg.Strategy.Closure != config.ClosureTransitive {
		t.Fatalf("expected normalized enums, got %+v", cfg.Strategy)
	}
	if cfg.Strategy.PerceptualThreshold != 6 || cfg.Strategy.NeuralThreshold != 0.7 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Strategy)
	}
	if cfg.Neural.ModelPath != filepath.Join(tempHome, "models", "custom.onnx") {
		t.Fatalf("unexpected model path %q", cfg.Neural.ModelPath)
	}
	if cfg.Neural.Threads != 2 {
		t.Fatalf("neural threads = %d, want 2", cfg.Neural.Threads)
	}
	if cfg.Neural.RuntimeLibrary != "/opt/onnx/libonnxruntime.so" {
		t.Fatalf("expected runtime library from env, got %q", cfg.Neural.RuntimeLibrary)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Dir != filepath.Join(tempHome, "logs") {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestModelPathEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	modelPath := filepath.Join(t.TempDir(), "m.onnx")
	t.Setenv("IMGDUPES_MODEL_PATH", modelPath)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Neural.ModelPath != modelPath {
		t.Fatalf("model path = %q, want %q", cfg.Neural.ModelPath, modelPath)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"strategy", "[strategy]\ndefault = \"fuzzy\"\n", "strategy.default"},
		{"perceptual range", "[strategy]\nperceptual_threshold = 65\n", "strategy.perceptual_threshold"},
		{"neural range", "[strategy]\nneural_threshold = 1.5\n", "strategy.neural_threshold"},
		{"closure", "[strategy]\nclosure = \"mutual\"\n", "strategy.closure"},
		{"workers", "[scan]\nworkers = -1\n", "scan.workers"},
		{"neural threads", "[neural]\nthreads = -2\n", "neural.threads"},
		{"capacity", "[cache]\ncapacity = 0\n", "cache.capacity"},
		{"log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"unknown key", "[scan]\nthreads = 4\n", "threads"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("IMGDUPES_MODEL_PATH", "")
	t.Setenv("ONNXRUNTIME_LIB", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected CreateSample to refuse overwriting an existing file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid toml: %v", err)
	}
	def := config.Default()
	if decoded.Strategy != def.Strategy || decoded.Cache != def.Cache || decoded.Logging != def.Logging {
		t.Fatalf("sample drifted from defaults: %+v", decoded)
	}

	loaded, _, exists, err := config.Load(path)
	if err != nil || !exists {
		t.Fatalf("Load(sample) = exists %v, err %v", exists, err)
	}
	if loaded.History.Path == "" || !filepath.IsAbs(loaded.History.Path) {
		t.Fatalf("expected absolute history path, got %q", loaded.History.Path)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Strategy.Default = config.StrategyNeural
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode encoded config: %v", err)
	}
	if decoded != cfg {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, cfg)
	}
}
