package app

import (
	"errors"
	"fmt"
)

// Scheduling strategies accepted by Config.Strategy.
const (
	StrategyEager      = "eager"
	StrategyWeakLeaves = "weak_leaves"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GridPath string // hcl files

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int

	// EventsURL is a socket.io endpoint receiving node events. Empty
	// disables it.
	EventsURL string
	// Strategy and Budget override the grid's run block when set.
	Strategy string
	Budget   int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, errors.New("GridPath is a required configuration field and cannot be empty")
	}
	if err := validateStrategy(cfg.Strategy); err != nil {
		return nil, err
	}
	if cfg.Budget < 0 {
		return nil, fmt.Errorf("budget must not be negative, got %d", cfg.Budget)
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count must not be negative, got %d", cfg.WorkerCount)
	}
	return &cfg, nil
}

func validateStrategy(s string) error {
	switch s {
	case "", StrategyEager, StrategyWeakLeaves:
		return nil
	default:
		return fmt.Errorf("unknown strategy %q: must be %q or %q", s, StrategyEager, StrategyWeakLeaves)
	}
}
