package llmqueue

import "time"

// Config controls Manager behavior.
type Config struct {
	MaxConcurrent int

	CriticalQueueSize   int
	BackgroundQueueSize int

	CriticalTimeout   time.Duration
	BackgroundTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrent:       8,
		CriticalQueueSize:   64,
		BackgroundQueueSize: 128,
		CriticalTimeout:     30 * time.Second,
		BackgroundTimeout:   60 * time.Second,
	}
}
