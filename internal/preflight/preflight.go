package preflight

import (
	"path/filepath"
	"strings"

	"imgdupes/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Failed reports whether any required check did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}

// RunAll executes the checks that apply to cfg. Neural checks are optional
// unless neural is the default strategy.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	if cfg.History.Enabled {
		results = append(results, CheckWritableLocation("History database", filepath.Dir(cfg.History.Path)))
	}
	if dir := strings.TrimSpace(cfg.Logging.Dir); dir != "" {
		results = append(results, CheckWritableLocation("Log directory", dir))
	}

	neuralRequired := cfg.Strategy.Default == config.StrategyNeural
	model := CheckFileReadable("Embedding model", cfg.Neural.ModelPath)
	model.Optional = !neuralRequired
	results = append(results, model)

	runtime := CheckRuntimeLibrary(cfg.Neural.RuntimeLibrary)
	runtime.Optional = !neuralRequired
	results = append(results, runtime)

	return results
}
