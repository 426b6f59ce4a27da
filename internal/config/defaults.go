package config

import "runtime"

// Strategy kinds accepted by strategy.default.
const (
	StrategyExact      = "exact"
	StrategyPerceptual = "perceptual"
	StrategyNeural     = "neural"
)

// Closure modes accepted by strategy.closure.
const (
	ClosureRepresentative = "representative"
	ClosureTransitive     = "transitive"
)

const (
	defaultConfigPath          = "~/.config/imgdupes/config.toml"
	defaultPerceptualThreshold = 10
	defaultNeuralThreshold     = 0.7
	defaultModelPath           = "~/.local/share/imgdupes/models/mobilenetv2-7.onnx"
	defaultInputSize           = 224
	defaultCacheCapacity       = 10000
	defaultHistoryPath         = "~/.local/share/imgdupes/history.db"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

func defaultWorkers() int {
	return max(runtime.NumCPU(), 1)
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Strategy: Strategy{
			Default:             StrategyExact,
			PerceptualThreshold: defaultPerceptualThreshold,
			NeuralThreshold:     defaultNeuralThreshold,
			Closure:             ClosureRepresentative,
		},
		Neural: Neural{
			ModelPath: defaultModelPath,
			InputSize: defaultInputSize,
		},
		Cache: Cache{
			Capacity:      defaultCacheCapacity,
			ClearAfterRun: true,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
