package engine

import "time"

const (
	// DefaultMaxIterations bounds the oracle calls of one run.
	DefaultMaxIterations = 10

	// DefaultCapabilityTimeout bounds a single capability invocation.
	DefaultCapabilityTimeout = 30 * time.Second
)

// Config holds configuration for the engine.
type Config struct {
	// MaxIterations is the maximum number of oracle calls per run. Zero or
	// negative means DefaultMaxIterations.
	MaxIterations int

	// ParallelDispatch runs the requests of one deferral concurrently.
	// Results are appended in request order either way.
	ParallelDispatch bool

	// CapabilityTimeout bounds each capability invocation. Zero or negative
	// means DefaultCapabilityTimeout.
	CapabilityTimeout time.Duration
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MaxIterations:     DefaultMaxIterations,
		ParallelDispatch:  true,
		CapabilityTimeout: DefaultCapabilityTimeout,
	}
}

func (c Config) maxIterations() int {
	if c.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return c.MaxIterations
}

func (c Config) capabilityTimeout() time.Duration {
	if c.CapabilityTimeout <= 0 {
		return DefaultCapabilityTimeout
	}
	return c.CapabilityTimeout
}
