package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"imgdupes/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose state paths live in a per-test temp
// directory. Logging is reduced to errors to keep test output quiet.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.History.Path = filepath.Join(base, "state", "history.db")
	cfgVal.Neural.ModelPath = filepath.Join(base, "models", "model.onnx")
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithStrategy sets the default strategy on the test config.
func WithStrategy(kind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Strategy.Default = kind
	}
}

// WithHistoryDisabled turns run history off.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithModelFile writes a placeholder model file and points the config at it.
func WithModelFile() ConfigOption {
	return func(b *configBuilder) {
		WriteFile(b.t, b.cfg.Neural.ModelPath, []byte("placeholder model"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.History.Path))
}

// WriteConfigFile encodes cfg as TOML inside its base directory and returns
// the file path.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
