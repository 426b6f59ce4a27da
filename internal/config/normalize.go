package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeNeural(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeStrategy()
	return c.normalizeLogging()
}

func (c *Config) normalizeStrategy() {
	c.Strategy.Default = strings.ToLower(strings.TrimSpace(c.Strategy.Default))
	if c.Strategy.Default == "" {
		c.Strategy.Default = StrategyExact
	}
	c.Strategy.Closure = strings.ToLower(strings.TrimSpace(c.Strategy.Closure))
	if c.Strategy.Closure == "" {
		c.Strategy.Closure = ClosureRepresentative
	}
}

func (c *Config) normalizeNeural() error {
	if value, ok := os.LookupEnv("IMGDUPES_MODEL_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Neural.ModelPath = value
	}
	if strings.TrimSpace(c.Neural.ModelPath) == "" {
		c.Neural.ModelPath = defaultModelPath
	}
	var err error
	if c.Neural.ModelPath, err = expandPath(strings.TrimSpace(c.Neural.ModelPath)); err != nil {
		return fmt.Errorf("neural.model_path: %w", err)
	}

	c.Neural.RuntimeLibrary = strings.TrimSpace(c.Neural.RuntimeLibrary)
	if c.Neural.RuntimeLibrary == "" {
		if value, ok := os.LookupEnv("ONNXRUNTIME_LIB"); ok {
			c.Neural.RuntimeLibrary = strings.TrimSpace(value)
		}
	}
	if c.Neural.RuntimeLibrary != "" {
		if c.Neural.RuntimeLibrary, err = expandPath(c.Neural.RuntimeLibrary); err != nil {
			return fmt.Errorf("neural.runtime_library: %w", err)
		}
	}
	if c.Neural.InputSize == 0 {
		c.Neural.InputSize = defaultInputSize
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	var err error
	if c.History.Path, err = expandPath(strings.TrimSpace(c.History.Path)); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if dir := strings.TrimSpace(c.Logging.Dir); dir != "" {
		expanded, err := expandPath(dir)
		if err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
		c.Logging.Dir = expanded
	}
	return nil
}
