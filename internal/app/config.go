package app

import "errors"

// Config holds everything an App instance needs to run. Zero values for
// Workers and Loops mean "take the grid file's setting".
type Config struct {
	GridPath string

	Workers int
	Loops   int

	LogFormat string
	LogLevel  string

	PrintGraph   bool
	PrintTrace   bool
	LogLoops     bool
	LogLifecycle bool
	LogTask      bool

	// Jitter forces task-duration jitter on, regardless of the grid file.
	Jitter bool
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, errors.New("GridPath is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 0 {
		return nil, errors.New("Workers must not be negative")
	}
	if cfg.Loops < 0 {
		return nil, errors.New("Loops must not be negative")
	}
	return &cfg, nil
}
