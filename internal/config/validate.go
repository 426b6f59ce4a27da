package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Scan.Workers < 0 {
		return errors.New("scan.workers must be zero or positive")
	}
	if err := c.validateStrategy(); err != nil {
		return err
	}
	if c.Neural.InputSize < 32 {
		return errors.New("neural.input_size must be at least 32")
	}
	if c.Neural.Threads < 0 {
		return errors.New("neural.threads must be zero or positive")
	}
	if c.Cache.Capacity <= 0 {
		return errors.New("cache.capacity must be positive")
	}
	return c.validateLogging()
}

func (c *Config) validateStrategy() error {
	switch c.Strategy.Default {
	case StrategyExact, StrategyPerceptual, StrategyNeural:
	default:
		return fmt.Errorf("strategy.default must be one of exact, perceptual, neural (got %q)", c.Strategy.Default)
	}
	if err := ValidatePerceptualThreshold(c.Strategy.PerceptualThreshold); err != nil {
		return err
	}
	if err := ValidateNeuralThreshold(c.Strategy.NeuralThreshold); err != nil {
		return err
	}
	switch c.Strategy.Closure {
	case ClosureRepresentative, ClosureTransitive:
	default:
		return fmt.Errorf("strategy.closure must be representative or transitive (got %q)", c.Strategy.Closure)
	}
	return nil
}

// ValidatePerceptualThreshold checks a maximum Hamming distance.
func ValidatePerceptualThreshold(value int) error {
	if value < 0 || value > 64 {
		return errors.New("strategy.perceptual_threshold must be between 0 and 64")
	}
	return nil
}

// ValidateNeuralThreshold checks a minimum cosine similarity.
func ValidateNeuralThreshold(value float64) error {
	if value < 0 || value > 1 {
		return errors.New("strategy.neural_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
