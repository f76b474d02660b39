package retry

import (
	"fmt"
	"time"
)

// BackoffStrategy selects how the delay grows between attempts.
type BackoffStrategy string

const (
	BackoffConstant    BackoffStrategy = "constant"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// Config controls connection retries.
type Config struct {
	Enabled bool `yaml:"enabled"`

	// MaxAttempts counts the first attempt too. 0 means unlimited.
	MaxAttempts int `yaml:"max_attempts"`

	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`

	BackoffStrategy   BackoffStrategy `yaml:"backoff"`
	BackoffMultiplier float64         `yaml:"multiplier"`

	// Jitter in [0, 1] randomizes each delay by up to that fraction.
	Jitter float64 `yaml:"jitter"`

	// RetryableErrors are substrings of retryable error messages.
	// Empty means every error is retried unless Permanent says otherwise.
	RetryableErrors []string `yaml:"retryable_errors"`

	// Permanent short-circuits retrying for errors it accepts.
	Permanent func(err error) bool `yaml:"-"`

	// OnRetry is called before each retry, not before the first attempt.
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-"`
}

// Validate checks the config and fills in the multiplier default.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must be >= 0, got %d", c.MaxAttempts)
	}

	if c.InitialDelay < 0 {
		return fmt.Errorf("initial_delay must be >= 0")
	}

	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("max_delay (%v) must be >= initial_delay (%v)", c.MaxDelay, c.InitialDelay)
	}

	switch c.BackoffStrategy {
	case BackoffConstant, BackoffLinear, BackoffExponential:
	default:
		return fmt.Errorf("invalid backoff strategy: %s", c.BackoffStrategy)
	}

	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = 2.0
	}

	if c.Jitter < 0 || c.Jitter > 1.0 {
		return fmt.Errorf("jitter must be between 0.0 and 1.0, got %f", c.Jitter)
	}

	return nil
}

// DefaultConfig returns a disabled config with sensible values.
func DefaultConfig() Config {
	return Config{
		Enabled:           false,
		MaxAttempts:       3,
		InitialDelay:      1 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffStrategy:   BackoffExponential,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
	}
}

// EnableRetry returns DefaultConfig with retries switched on.
func EnableRetry(maxAttempts int, initialDelay time.Duration) Config {
	config := DefaultConfig()
	config.Enabled = true
	config.MaxAttempts = maxAttempts
	config.InitialDelay = initialDelay
	return config
}
